package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sunbeam-ops/cloudcheck/internal/core/runner"
)

// RunHandler serves the in-memory run history.
type RunHandler struct {
	runner CheckRunner
}

// NewRunHandler creates a new RunHandler instance.
func NewRunHandler(checkRunner CheckRunner) *RunHandler {
	return &RunHandler{runner: checkRunner}
}

// RunListResponse wraps the run history.
type RunListResponse struct {
	Runs []runner.Run `json:"runs"`
}

// List handles GET /runs, newest first. An optional "check" query filters
// by check name.
func (h *RunHandler) List(c *gin.Context) {
	runs := h.runner.Runs()
	if name := c.Query("check"); name != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if run.Check == name {
				filtered = append(filtered, run)
			}
		}
		runs = filtered
	}
	c.JSON(http.StatusOK, RunListResponse{Runs: runs})
}
