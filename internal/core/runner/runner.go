// Package runner provides check execution management for the application.
package runner

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/logger"
	"github.com/sunbeam-ops/cloudcheck/internal/core/ports"
	"go.uber.org/zap"
)

// Status of a check run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one execution of a check. History is in-memory only.
type Run struct {
	ID        uuid.UUID     `json:"id"`
	Check     string        `json:"check"`
	Trigger   check.Trigger `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Output    string        `json:"output,omitempty"`
}

// outputLimit caps how much combined output is retained per run.
const outputLimit = 8 * 1024

// defaultHistorySize bounds the in-memory run history.
const defaultHistorySize = 50

type runInfo struct {
	cancel context.CancelFunc
	runID  uuid.UUID
	done   chan struct{} // closed when the run goroutine finishes
}

// Options configures a Runner.
type Options struct {
	// Reserver, when non-nil, reserves cores before each run.
	Reserver    ports.Reserver
	ServiceName string
	Cores       int
	NUMANode    *int
	// HistorySize bounds retained runs; 0 means the default.
	HistorySize int
}

// Runner executes check commands. At most one run per check is in flight:
// a check is never allowed to trample a still-running instance of itself.
type Runner struct {
	opts    Options
	logger  *zap.Logger
	mu      sync.Mutex
	running map[string]runInfo
	history []*Run
	wg      sync.WaitGroup
}

// New creates a new Runner instance.
func New(opts Options) *Runner {
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}
	return &Runner{
		opts:    opts,
		logger:  logger.Named("core.runner"),
		running: make(map[string]runInfo),
	}
}

// Start initializes the runner (no-op currently, reserved for future use).
func (r *Runner) Start() {}

// Stop cancels all running checks and waits for them to finish.
func (r *Runner) Stop() {
	r.logger.Info("Stopping runner, cancelling all checks...")
	r.mu.Lock()
	for name, info := range r.running {
		r.logger.Info("Cancelling check", zap.String("check", name))
		info.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Runner stopped")
}

// StartCheck starts a check execution asynchronously. If the check is
// already running, manual triggers get an error the caller can surface,
// while schedule and config triggers are silently skipped: periodic runs
// must not pile up behind a slow one.
func (r *Runner) StartCheck(c *check.Check, trigger check.Trigger) error {
	runID := uuid.New()

	r.mu.Lock()
	if info, ok := r.running[c.Name]; ok {
		r.mu.Unlock()
		if trigger == check.TriggerManual {
			return fmt.Errorf("%w: %s (run %s)", errs.ErrAlreadyRunning, c.Name, info.runID)
		}
		r.logger.Debug("Check already running, skipping trigger",
			zap.String("check", c.Name),
			zap.String("trigger", string(trigger)),
			zap.Stringer("existing_run_id", info.runID))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.running[c.Name] = runInfo{cancel: cancel, runID: runID, done: done}

	run := &Run{
		ID:        runID,
		Check:     c.Name,
		Trigger:   trigger,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}
	r.history = append(r.history, run)
	if len(r.history) > r.opts.HistorySize {
		r.history = r.history[len(r.history)-r.opts.HistorySize:]
	}
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			close(done)
			r.mu.Lock()
			if info, ok := r.running[c.Name]; ok && info.runID == runID {
				delete(r.running, c.Name)
			}
			r.mu.Unlock()
		}()

		r.logger.Info("Starting check execution",
			zap.String("check", c.Name),
			zap.Stringer("run_id", runID),
			zap.String("trigger", string(trigger)))
		r.execute(ctx, c, run)
	}()
	return nil
}

// StopCheck cancels a running check and waits for it to exit.
func (r *Runner) StopCheck(name string) error {
	r.mu.Lock()
	info, ok := r.running[name]
	if ok {
		r.logger.Info("Stopping check", zap.String("check", name))
		info.cancel()
		delete(r.running, name)
	}
	r.mu.Unlock()
	if ok {
		<-info.done
	}
	return nil
}

// IsRunning checks if a check is currently running.
func (r *Runner) IsRunning(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[name]
	return ok
}

// Runs returns a snapshot of the run history, newest first.
func (r *Runner) Runs() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Run, 0, len(r.history))
	for i := len(r.history) - 1; i >= 0; i-- {
		out = append(out, *r.history[i])
	}
	return out
}

func (r *Runner) execute(ctx context.Context, c *check.Check, run *Run) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := r.reserve(ctx, c); err != nil {
		r.finish(run, StatusFailed, err.Error(), nil)
		r.logger.Error("Resource reservation failed",
			zap.String("check", c.Name),
			zap.Stringer("run_id", run.ID),
			zap.Error(err))
		return
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	output, err := cmd.CombinedOutput()

	switch {
	case ctx.Err() != nil:
		r.finish(run, StatusCancelled, ctx.Err().Error(), output)
		r.logger.Warn("Check execution cancelled",
			zap.String("check", c.Name),
			zap.Stringer("run_id", run.ID),
			zap.Error(ctx.Err()))
	case err != nil:
		r.finish(run, StatusFailed, err.Error(), output)
		r.logger.Error("Check execution failed",
			zap.String("check", c.Name),
			zap.Stringer("run_id", run.ID),
			zap.Error(err))
	default:
		r.finish(run, StatusSucceeded, "", output)
		r.logger.Info("Check execution succeeded",
			zap.String("check", c.Name),
			zap.Stringer("run_id", run.ID))
	}
}

// reserve asks the EPA service for cores before the run. No reserver or a
// zero core count means reservation is disabled.
func (r *Runner) reserve(ctx context.Context, c *check.Check) error {
	if r.opts.Reserver == nil || r.opts.Cores <= 0 {
		return nil
	}
	cores, err := r.opts.Reserver.AllocateCores(ctx, r.opts.ServiceName, r.opts.Cores, r.opts.NUMANode)
	if err != nil {
		return err
	}
	r.logger.Info("Reserved cores for check",
		zap.String("check", c.Name),
		zap.Ints("cores", cores))
	return nil
}

func (r *Runner) finish(run *Run, status Status, errMsg string, output []byte) {
	if len(output) > outputLimit {
		output = output[len(output)-outputLimit:]
	}
	now := time.Now()
	r.mu.Lock()
	run.Status = status
	run.Error = errMsg
	run.Output = string(output)
	run.EndedAt = &now
	r.mu.Unlock()
}

var _ ports.Runner = (*Runner)(nil)
