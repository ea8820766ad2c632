package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/runner"
)

// MockRunner mocks the CheckRunner surface.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) StartCheck(c *check.Check, trigger check.Trigger) error {
	args := m.Called(c, trigger)
	return args.Error(0)
}

func (m *MockRunner) StopCheck(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockRunner) IsRunning(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}

func (m *MockRunner) Runs() []runner.Run {
	args := m.Called()
	return args.Get(0).([]runner.Run)
}

// fakePlanner returns a fixed next-run time per check name.
type fakePlanner struct {
	next map[string]time.Time
}

func (p *fakePlanner) NextRun(name string) time.Time {
	return p.next[name]
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(h *CheckHandler, r *RunHandler) *gin.Engine {
	router := gin.New()
	router.POST("/schedule/validate", ValidateSchedule)
	if h != nil {
		router.GET("/checks", h.List)
		router.GET("/checks/:name", h.Get)
		router.POST("/checks/:name/run", h.Run)
		router.POST("/checks/:name/stop", h.Stop)
	}
	if r != nil {
		router.GET("/runs", r.List)
	}
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
