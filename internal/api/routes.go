// Package api provides HTTP API routes and server setup.
package api

import (
	"github.com/sunbeam-ops/cloudcheck/internal/api/handlers"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"

	"github.com/gin-gonic/gin"
)

// RouterDeps contains all dependencies required for setting up API routes.
type RouterDeps struct {
	Checks    []*check.Check
	Runner    handlers.CheckRunner
	Scheduler handlers.SchedulePlanner
}

// RegisterAPIRoutes registers all API routes to the given router group.
func RegisterAPIRoutes(router *gin.RouterGroup, deps RouterDeps) {
	// Initialize handlers
	checkHandler := handlers.NewCheckHandler(deps.Checks, deps.Runner, deps.Scheduler)
	runHandler := handlers.NewRunHandler(deps.Runner)

	// Schedule validation
	schedules := router.Group("/schedule")
	{
		schedules.POST("/validate", handlers.ValidateSchedule)
	}

	// Check management
	checks := router.Group("/checks")
	{
		checks.GET("", checkHandler.List)
		checks.GET("/:name", checkHandler.Get)
		checks.POST("/:name/run", checkHandler.Run)
		checks.POST("/:name/stop", checkHandler.Stop)
	}

	// Run history
	runs := router.Group("/runs")
	{
		runs.GET("", runHandler.List)
	}
}
