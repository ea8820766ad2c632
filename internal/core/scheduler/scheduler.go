// Package scheduler drives cron-based execution of periodic checks.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"github.com/sunbeam-ops/cloudcheck/internal/core/ports"
	"github.com/sunbeam-ops/cloudcheck/internal/core/schedule"
	"go.uber.org/zap"
)

// Scheduler registers checks with a 5-field cron runtime. Every schedule is
// passed through schedule.Validate before registration, so anything the
// validator rejects never reaches the cron library.
type Scheduler struct {
	cron    *cron.Cron
	runner  ports.Runner
	logger  *zap.Logger
	mu      sync.Mutex
	jobMap  map[string]cron.EntryID // check name -> cron entry
	running bool
}

func New(runner ports.Runner) *Scheduler {
	return &Scheduler{
		// Standard vixie cron, no seconds field.
		cron:   cron.New(),
		runner: runner,
		logger: logger.Named("core.scheduler"),
		jobMap: make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn("Scheduler is already running")
		return
	}
	s.logger.Info("Starting scheduler")
	s.cron.Start()
	s.running = true
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.logger.Warn("Scheduler is not running")
		return
	}
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
	s.running = false
}

// AddCheck registers a check for scheduled execution. A check with an empty
// schedule is treated as disabled and silently skipped. An invalid schedule
// is rejected with the validator's diagnostic.
func (s *Scheduler) AddCheck(c *check.Check) error {
	if c.Schedule == "" {
		return nil
	}

	result := schedule.Validate(c.Schedule)
	if !result.Valid {
		return fmt.Errorf("%w: check %q: %s", errs.ErrInvalidSchedule, c.Name, result.Err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addJob(c, result)
}

// RemoveCheck unregisters a check. Unknown names are ignored.
func (s *Scheduler) RemoveCheck(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeJob(name)
}

// NextRun reports the next scheduled fire time for a check, or the zero
// time when the check is not scheduled.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.jobMap[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(entryID).Next
}

func (s *Scheduler) addJob(c *check.Check, result schedule.Schedule) error {
	// Remove existing job if any, to handle updates.
	s.removeJob(c.Name)

	entryID, err := s.cron.AddFunc(c.Schedule, func() {
		s.logger.Info("Running scheduled check", zap.String("check", c.Name))
		if err := s.runner.StartCheck(c, check.TriggerSchedule); err != nil {
			s.logger.Error("Failed to start scheduled check",
				zap.String("check", c.Name),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return err
	}

	s.jobMap[c.Name] = entryID
	s.logger.Info("Scheduled check added",
		zap.String("check", c.Name),
		zap.String("schedule", c.Schedule),
		zap.Int64("min_interval_seconds", result.MinIntervalSeconds),
		zap.Int64("max_interval_seconds", result.MaxIntervalSeconds),
	)
	return nil
}

func (s *Scheduler) removeJob(name string) {
	if entryID, ok := s.jobMap[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobMap, name)
		s.logger.Info("Removed check from scheduler", zap.String("check", name))
	}
}

var _ ports.Scheduler = (*Scheduler)(nil)
