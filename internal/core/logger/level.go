// Package logger provides logging utilities for the application.
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// levelCache memoizes name -> level lookups, sync.Map for lock-free reads.
var levelCache sync.Map

var (
	levelConfigMu  sync.RWMutex
	levelConfigMap map[string]string // configured per-name level overrides
	globalLevel    zapcore.Level     // fallback level
)

// InitLevelConfig installs the per-name level configuration. Called from
// InitLogger with the levels map from the config file.
func InitLevelConfig(levels map[string]string, defaultLevel zapcore.Level) {
	levelConfigMu.Lock()
	defer levelConfigMu.Unlock()
	levelConfigMap = levels
	globalLevel = defaultLevel
	// The configuration changed, so cached lookups are stale.
	levelCache = sync.Map{}
}

// GetLevelForName resolves the most specific configured level for a logger
// name. Lookups are cached after the first computation. Matching is
// case-sensitive.
func GetLevelForName(name string) zapcore.Level {
	if cached, ok := levelCache.Load(name); ok {
		return cached.(zapcore.Level)
	}

	level := computeLevelForName(name)
	levelCache.Store(name, level)

	return level
}

func computeLevelForName(name string) zapcore.Level {
	levelConfigMu.RLock()
	defer levelConfigMu.RUnlock()

	if len(levelConfigMap) == 0 || name == "" {
		return globalLevel
	}

	// Exact match first.
	if levelStr, ok := levelConfigMap[name]; ok {
		if level, err := ParseLevel(levelStr); err == nil {
			return level
		}
		// Invalid level value, fall through to parent lookup.
	}

	// Walk up the dotted hierarchy: "a.b.c" tries "a.b", then "a".
	parts := strings.Split(name, ".")
	for i := len(parts) - 1; i > 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		if levelStr, ok := levelConfigMap[prefix]; ok {
			if level, err := ParseLevel(levelStr); err == nil {
				return level
			}
		}
	}

	return globalLevel
}

// ParseLevel parses a log level string (case-insensitive).
// Supported: debug, info, warn, error.
func ParseLevel(levelStr string) (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(strings.ToLower(levelStr)))
	return level, err
}
