// Package logger provides logging utilities for the application.
package logger

import (
	"go.uber.org/zap/zapcore"
)

// levelFilterCore wraps a zapcore.Core and drops entries below its level.
type levelFilterCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.level
}

// Check must be overridden: the embedded Core's Check would consult the
// embedded Enabled, not the filtered one.
func (c *levelFilterCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

var (
	_ zapcore.Core         = (*levelFilterCore)(nil)
	_ zapcore.LevelEnabler = (*levelFilterCore)(nil)
)
