package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/scheduler"
)

// MockRunner is a mock for the Runner interface
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start() { m.Called() }
func (m *MockRunner) Stop()  { m.Called() }
func (m *MockRunner) StartCheck(c *check.Check, trigger check.Trigger) error {
	args := m.Called(c, string(trigger))
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

func TestScheduler_AddCheck_ValidSchedule(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	c := &check.Check{Name: "smoke", Schedule: "0 */1 * * *", Command: "tempest"}
	err := s.AddCheck(c)

	require.NoError(t, err)
	// Not started yet: no run should have been triggered.
	mockRunner.AssertNotCalled(t, "StartCheck")
}

func TestScheduler_AddCheck_EmptyScheduleIsDisabled(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	err := s.AddCheck(&check.Check{Name: "full", Schedule: ""})

	require.NoError(t, err)
	assert.True(t, s.NextRun("full").IsZero())
}

func TestScheduler_AddCheck_RejectsInvalidSchedule(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	tests := []struct {
		name     string
		schedule string
		errPart  string
	}{
		{"six fields", "*/30 * * * * 6", "not support seconds"},
		{"too fast", "* * * * *", "faster than every 15 minutes"},
		{"missing columns", "*/30 * *", "Exactly 5 columns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddCheck(&check.Check{Name: "bad", Schedule: tt.schedule})
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrInvalidSchedule)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestScheduler_NextRun(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	c := &check.Check{Name: "smoke", Schedule: "0 */1 * * *"}
	require.NoError(t, s.AddCheck(c))

	s.Start()
	defer s.Stop()

	next := s.NextRun("smoke")
	require.False(t, next.IsZero())
	assert.True(t, next.After(time.Now()))
	assert.True(t, next.Before(time.Now().Add(time.Hour+time.Minute)))
}

func TestScheduler_AddCheck_ReplacesExistingEntry(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	c := &check.Check{Name: "smoke", Schedule: "0 */1 * * *"}
	require.NoError(t, s.AddCheck(c))

	s.Start()
	defer s.Stop()
	hourly := s.NextRun("smoke")

	// Re-adding with a new schedule replaces the entry instead of doubling it.
	// The replacement fires at :30 so its next run can never collide with the
	// hourly one.
	c2 := &check.Check{Name: "smoke", Schedule: "30 3 * * *"}
	require.NoError(t, s.AddCheck(c2))

	daily := s.NextRun("smoke")
	require.False(t, daily.IsZero())
	assert.NotEqual(t, hourly, daily)
}

func TestScheduler_RemoveCheck(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	require.NoError(t, s.AddCheck(&check.Check{Name: "smoke", Schedule: "0 */1 * * *"}))
	s.RemoveCheck("smoke")

	assert.True(t, s.NextRun("smoke").IsZero())

	// Removing twice is harmless.
	s.RemoveCheck("smoke")
}

func TestScheduler_StartStop_Idempotent(t *testing.T) {
	mockRunner := new(MockRunner)
	s := scheduler.New(mockRunner)

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
