// Package check defines the periodic validation check model shared by the
// scheduler, runner, watcher and API layers.
package check

import (
	"time"

	"github.com/sunbeam-ops/cloudcheck/internal/core/config"
)

// Trigger identifies what caused a check run.
type Trigger string

const (
	// TriggerManual is an operator-initiated run (CLI or API).
	TriggerManual Trigger = "manual"
	// TriggerSchedule is a cron-initiated run.
	TriggerSchedule Trigger = "schedule"
	// TriggerConfig is a run caused by a change to the check's config file.
	TriggerConfig Trigger = "config"
)

// DefaultTimeout applies when a check does not set its own.
const DefaultTimeout = time.Hour

// Check is a single configured validation check. Schedule is a raw cron
// string; an empty schedule means the check only runs on manual or
// config-change triggers.
type Check struct {
	Name       string        `json:"name"`
	Schedule   string        `json:"schedule"`
	Command    string        `json:"command"`
	Args       []string      `json:"args,omitempty"`
	ConfigPath string        `json:"config_path,omitempty"`
	Timeout    time.Duration `json:"timeout"`
}

// FromConfig converts a configuration entry into a Check, filling defaults.
func FromConfig(cc config.CheckConfig) *Check {
	timeout := cc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Check{
		Name:       cc.Name,
		Schedule:   cc.Schedule,
		Command:    cc.Command,
		Args:       cc.Args,
		ConfigPath: cc.ConfigPath,
		Timeout:    timeout,
	}
}
