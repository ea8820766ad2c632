package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sunbeam-ops/cloudcheck/internal/core/schedule"
)

// ScheduleRequest is the body for POST /schedule/validate.
type ScheduleRequest struct {
	Schedule string `json:"schedule"`
}

// ValidateSchedule handles POST /schedule/validate. Validation always
// answers 200; the verdict is carried in the response body.
func ValidateSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, schedule.Validate(req.Schedule))
}
