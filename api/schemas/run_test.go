package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunResult(t *testing.T) {
	r := NewRunResult("run-1", "simulation", "file:///tmp/index.html")

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "simulation", r.Scenario)
	assert.Equal(t, OutcomePassed, r.Outcome)
	assert.True(t, r.Passed())
	assert.False(t, r.StartedAt.IsZero())
	assert.Empty(t, r.Steps)
}

func TestRecordFailure(t *testing.T) {
	t.Run("first failure wins", func(t *testing.T) {
		r := NewRunResult("run-1", "simulation", "file:///x")
		r.RecordFailure(FailureNavigation, "navigation to file:///x failed")
		r.RecordFailure(FailureAssertion, "should be ignored")

		assert.Equal(t, OutcomeFailed, r.Outcome)
		assert.Equal(t, FailureNavigation, r.FailureKind)
		assert.Equal(t, "navigation to file:///x failed", r.FailureDetail)
		assert.False(t, r.Passed())
	})

	t.Run("environment failures escalate to error outcome", func(t *testing.T) {
		r := NewRunResult("run-2", "boundary", "file:///x")
		r.RecordFailure(FailureEnvironment, "no chromium executable found")

		assert.Equal(t, OutcomeError, r.Outcome)
		assert.Equal(t, FailureEnvironment, r.FailureKind)
	})
}

func TestAddStepPreservesOrder(t *testing.T) {
	r := NewRunResult("run-3", "clusters", "file:///x")
	names := []string{"navigate", "click #start-button", "sleep 3s", "click #pause-button"}
	for _, n := range names {
		r.AddStep(StepReport{Name: n, Status: StepPassed})
	}

	require.Len(t, r.Steps, len(names))
	for i, n := range names {
		assert.Equal(t, n, r.Steps[i].Name)
	}
}

func TestFinish(t *testing.T) {
	r := NewRunResult("run-4", "simulation", "file:///x")
	r.StartedAt = time.Now().UTC().Add(-2 * time.Second)
	r.Finish()

	assert.False(t, r.FinishedAt.IsZero())
	assert.GreaterOrEqual(t, r.Duration, 2*time.Second)
}
