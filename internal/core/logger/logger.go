// Package logger provides logging utilities for the application.
package logger

import (
	"log"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// L is the global logger instance.
var L *zap.Logger

// logger is the base logger that Named derives from. Kept separate from L
// so tests can swap it out.
var logger *zap.Logger

// Environment represents the application environment type.
type Environment string

const (
	// EnvironmentDevelopment represents the development environment.
	EnvironmentDevelopment Environment = "development"
	// EnvironmentProduction represents the production environment.
	EnvironmentProduction Environment = "production"
)

// LogLevel represents the logging level type.
type LogLevel string

const (
	// LogLevelDebug represents the debug logging level.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo represents the info logging level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn represents the warn logging level.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError represents the error logging level.
	LogLevelError LogLevel = "error"
)

// InitLogger initializes the global logger with the specified environment
// and log level. levels carries per-component overrides keyed by logger
// name (e.g. "core.scheduler" = "warn"); pass nil when none are configured.
func InitLogger(environment Environment, logLevel LogLevel, levels map[string]string) {
	var cfg zap.Config

	if environment == EnvironmentDevelopment {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	// The base logger allows everything through; Named loggers apply the
	// per-name level on top.
	cfg.Level.SetLevel(zapcore.DebugLevel)

	var err error
	logger, err = cfg.Build()
	if err != nil {
		log.Printf("Failed to initialize zap logger: %v", err)
		os.Exit(1)
	}

	defaultLevel, err := ParseLevel(string(logLevel))
	if err != nil {
		defaultLevel = zapcore.InfoLevel
	}
	InitLevelConfig(levels, defaultLevel)

	L = Named("")

	// Redirect standard log to zap
	zap.RedirectStdLog(L)

	// Redirect slog to zap so libraries using log/slog land in the same sink
	slogHandler := zapslog.NewHandler(L.Core())
	slog.SetDefault(slog.New(slogHandler))
}

// Named returns a logger for the given component name with the most
// specific configured level applied. Safe to call before InitLogger; it
// then returns a no-op logger.
func Named(name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	level := GetLevelForName(name)
	l := logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelFilterCore{Core: core, level: level}
	}))
	if name == "" {
		return l
	}
	return l.Named(name)
}
