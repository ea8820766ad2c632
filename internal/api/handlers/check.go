package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/runner"
	"github.com/sunbeam-ops/cloudcheck/internal/core/schedule"
)

// CheckRunner is the runner surface the API needs.
type CheckRunner interface {
	StartCheck(c *check.Check, trigger check.Trigger) error
	StopCheck(name string) error
	IsRunning(name string) bool
	Runs() []runner.Run
}

// SchedulePlanner reports upcoming fire times for scheduled checks.
type SchedulePlanner interface {
	NextRun(name string) time.Time
}

// CheckHandler serves the configured check set. Checks come from the config
// file, so the set is immutable for the lifetime of the process.
type CheckHandler struct {
	checks    []*check.Check
	runner    CheckRunner
	scheduler SchedulePlanner
}

// NewCheckHandler creates a new CheckHandler instance.
func NewCheckHandler(checks []*check.Check, checkRunner CheckRunner, scheduler SchedulePlanner) *CheckHandler {
	return &CheckHandler{
		checks:    checks,
		runner:    checkRunner,
		scheduler: scheduler,
	}
}

// CheckResponse is a check plus its live state.
type CheckResponse struct {
	*check.Check
	ScheduleInfo schedule.Schedule `json:"schedule_info"`
	Running      bool              `json:"running"`
	NextRun      *time.Time        `json:"next_run,omitempty"`
}

func (h *CheckHandler) toResponse(c *check.Check) CheckResponse {
	resp := CheckResponse{
		Check:        c,
		ScheduleInfo: schedule.Validate(c.Schedule),
		Running:      h.runner.IsRunning(c.Name),
	}
	if next := h.scheduler.NextRun(c.Name); !next.IsZero() {
		resp.NextRun = &next
	}
	return resp
}

func (h *CheckHandler) find(name string) *check.Check {
	for _, c := range h.checks {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// List handles GET /checks
func (h *CheckHandler) List(c *gin.Context) {
	responses := make([]CheckResponse, 0, len(h.checks))
	for _, chk := range h.checks {
		responses = append(responses, h.toResponse(chk))
	}
	c.JSON(http.StatusOK, responses)
}

// Get handles GET /checks/:name
func (h *CheckHandler) Get(c *gin.Context) {
	chk := h.find(c.Param("name"))
	if chk == nil {
		NotFoundHandler(c)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(chk))
}

// Run handles POST /checks/:name/run
func (h *CheckHandler) Run(c *gin.Context) {
	chk := h.find(c.Param("name"))
	if chk == nil {
		NotFoundHandler(c)
		return
	}
	if err := h.runner.StartCheck(chk, check.TriggerManual); err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "check": chk.Name})
}

// Stop handles POST /checks/:name/stop
func (h *CheckHandler) Stop(c *gin.Context) {
	chk := h.find(c.Param("name"))
	if chk == nil {
		NotFoundHandler(c)
		return
	}
	if err := h.runner.StopCheck(chk.Name); err != nil {
		HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "check": chk.Name})
}
