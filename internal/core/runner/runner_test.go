package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sunbeam-ops/cloudcheck/internal/core/check"
	"github.com/sunbeam-ops/cloudcheck/internal/core/errs"
	"github.com/sunbeam-ops/cloudcheck/internal/core/runner"
)

// MockReserver is a mock for the Reserver interface
type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) AllocateCores(ctx context.Context, serviceName string, count int, numaNode *int) ([]int, error) {
	args := m.Called(ctx, serviceName, count, numaNode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func newCheck(name, command string, args ...string) *check.Check {
	return &check.Check{
		Name:    name,
		Command: command,
		Args:    args,
		Timeout: 10 * time.Second,
	}
}

// waitForRun polls until the named check's latest run leaves the running state.
func waitForRun(t *testing.T, r *runner.Runner, name string) runner.Run {
	t.Helper()
	var got runner.Run
	require.Eventually(t, func() bool {
		for _, run := range r.Runs() {
			if run.Check == name && run.Status != runner.StatusRunning {
				got = run
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestRunner_SuccessfulRun(t *testing.T) {
	r := runner.New(runner.Options{})
	defer r.Stop()

	err := r.StartCheck(newCheck("smoke", "sh", "-c", "echo all green"), check.TriggerManual)
	require.NoError(t, err)

	run := waitForRun(t, r, "smoke")
	assert.Equal(t, runner.StatusSucceeded, run.Status)
	assert.Empty(t, run.Error)
	assert.Contains(t, run.Output, "all green")
	assert.Equal(t, check.TriggerManual, run.Trigger)
	require.NotNil(t, run.EndedAt)
	assert.False(t, run.EndedAt.Before(run.StartedAt))
}

func TestRunner_FailedRun(t *testing.T) {
	r := runner.New(runner.Options{})
	defer r.Stop()

	err := r.StartCheck(newCheck("broken", "sh", "-c", "echo boom >&2; exit 3"), check.TriggerSchedule)
	require.NoError(t, err)

	run := waitForRun(t, r, "broken")
	assert.Equal(t, runner.StatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	assert.Contains(t, run.Output, "boom")
}

func TestRunner_ManualTriggerWhileRunning(t *testing.T) {
	r := runner.New(runner.Options{})
	defer r.Stop()

	slow := newCheck("slow", "sleep", "10")
	require.NoError(t, r.StartCheck(slow, check.TriggerManual))
	require.Eventually(t, func() bool { return r.IsRunning("slow") }, 2*time.Second, 10*time.Millisecond)

	err := r.StartCheck(slow, check.TriggerManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrAlreadyRunning)

	require.NoError(t, r.StopCheck("slow"))
	assert.False(t, r.IsRunning("slow"))
}

func TestRunner_ScheduleTriggerWhileRunningIsSkipped(t *testing.T) {
	r := runner.New(runner.Options{})
	defer r.Stop()

	slow := newCheck("slow", "sleep", "10")
	require.NoError(t, r.StartCheck(slow, check.TriggerManual))
	require.Eventually(t, func() bool { return r.IsRunning("slow") }, 2*time.Second, 10*time.Millisecond)

	// Scheduled re-trigger is silently skipped, no second run appears.
	require.NoError(t, r.StartCheck(slow, check.TriggerSchedule))

	runs := r.Runs()
	count := 0
	for _, run := range runs {
		if run.Check == "slow" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	require.NoError(t, r.StopCheck("slow"))
}

func TestRunner_StopCancelsRun(t *testing.T) {
	r := runner.New(runner.Options{})

	require.NoError(t, r.StartCheck(newCheck("slow", "sleep", "10"), check.TriggerManual))
	require.Eventually(t, func() bool { return r.IsRunning("slow") }, 2*time.Second, 10*time.Millisecond)

	r.Stop()

	run := waitForRun(t, r, "slow")
	assert.Equal(t, runner.StatusCancelled, run.Status)
}

func TestRunner_TimeoutCancelsRun(t *testing.T) {
	r := runner.New(runner.Options{})
	defer r.Stop()

	c := newCheck("slow", "sleep", "10")
	c.Timeout = 100 * time.Millisecond
	require.NoError(t, r.StartCheck(c, check.TriggerManual))

	run := waitForRun(t, r, "slow")
	assert.Equal(t, runner.StatusCancelled, run.Status)
}

func TestRunner_ReservationBeforeRun(t *testing.T) {
	reserver := new(MockReserver)
	reserver.On("AllocateCores", mock.Anything, "tempest", 2, (*int)(nil)).Return([]int{4, 5}, nil)

	r := runner.New(runner.Options{
		Reserver:    reserver,
		ServiceName: "tempest",
		Cores:       2,
	})
	defer r.Stop()

	require.NoError(t, r.StartCheck(newCheck("smoke", "true"), check.TriggerManual))

	run := waitForRun(t, r, "smoke")
	assert.Equal(t, runner.StatusSucceeded, run.Status)
	reserver.AssertExpectations(t)
}

func TestRunner_ReservationFailureFailsRun(t *testing.T) {
	reserver := new(MockReserver)
	reserver.On("AllocateCores", mock.Anything, "tempest", 2, (*int)(nil)).
		Return(nil, errs.ErrConnection)

	r := runner.New(runner.Options{
		Reserver:    reserver,
		ServiceName: "tempest",
		Cores:       2,
	})
	defer r.Stop()

	require.NoError(t, r.StartCheck(newCheck("smoke", "true"), check.TriggerManual))

	run := waitForRun(t, r, "smoke")
	assert.Equal(t, runner.StatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)
	reserver.AssertExpectations(t)
}

func TestRunner_HistoryBounded(t *testing.T) {
	r := runner.New(runner.Options{HistorySize: 3})
	defer r.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.StartCheck(newCheck("quick", "true"), check.TriggerManual))
		waitForRun(t, r, "quick")
		require.Eventually(t, func() bool { return !r.IsRunning("quick") }, 2*time.Second, 10*time.Millisecond)
	}

	assert.LessOrEqual(t, len(r.Runs()), 3)
}
