// Package ports defines interfaces for core application services.
// These interfaces allow for dependency inversion, making the system
// more modular, testable, and maintainable.
package ports

import (
	"context"

	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
)

// Runner manages the lifecycle of check executions.
type Runner interface {
	Start()
	Stop()
	StartCheck(c *check.Check, trigger check.Trigger) error
	StopCheck(name string) error
	IsRunning(name string) bool
}

// Scheduler registers checks for cron-driven execution.
type Scheduler interface {
	Start()
	Stop()
	AddCheck(c *check.Check) error
	RemoveCheck(name string)
}

// Watcher re-runs checks when their config files change.
type Watcher interface {
	Start()
	Stop()
	AddCheck(c *check.Check) error
	RemoveCheck(name string)
}

// Reserver reserves host resources before a check run. Implemented by the
// EPA client; nil means no reservation is performed.
type Reserver interface {
	AllocateCores(ctx context.Context, serviceName string, count int, numaNode *int) ([]int, error)
}
