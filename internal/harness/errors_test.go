// internal/harness/errors_test.go

package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want schemas.FailureKind
	}{
		{"Nil", nil, schemas.FailureNone},
		{"Environment", &EnvironmentError{Op: "screenshot capture", Err: errors.New("tab crashed")}, schemas.FailureEnvironment},
		{"Navigation", &NavigationError{Target: "file:///x.html", Err: errors.New("not found")}, schemas.FailureNavigation},
		{"ElementNotFound", &ElementNotFoundError{Subject: "element #start-button", Err: schemas.ErrNoElement}, schemas.FailureElementNotFound},
		{"Assertion", &AssertionError{Subject: "value of #line-count", Expected: "0", Observed: "7"}, schemas.FailureAssertion},
		{"WrappedEnvironment", fmt.Errorf("run failed: %w", &EnvironmentError{Op: "pause", Err: errors.New("gone")}), schemas.FailureEnvironment},
		{"BareNoElement", fmt.Errorf("probe: %w", schemas.ErrNoElement), schemas.FailureElementNotFound},
		{"BareConditionNotMet", fmt.Errorf("wait: %w", schemas.ErrConditionNotMet), schemas.FailureAssertion},
		{"UnknownError", errors.New("websocket closed"), schemas.FailureEnvironment},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestErrorMessagesAndUnwrap(t *testing.T) {
	cause := errors.New("root cause")

	envErr := &EnvironmentError{Op: "session acquisition", Err: cause}
	assert.Equal(t, "environment failure during session acquisition: root cause", envErr.Error())
	assert.ErrorIs(t, envErr, cause)

	navErr := &NavigationError{Target: "file:///srv/page.html", Err: cause}
	assert.Equal(t, "could not load file:///srv/page.html: root cause", navErr.Error())
	assert.ErrorIs(t, navErr, cause)

	notFoundErr := &ElementNotFoundError{Subject: "element #start-button", Err: schemas.ErrNoElement}
	assert.Equal(t, "element #start-button not found: no matching element", notFoundErr.Error())
	assert.ErrorIs(t, notFoundErr, schemas.ErrNoElement)

	assertErr := &AssertionError{
		Subject:  "value of #line-count",
		Expected: "0",
		Observed: "7",
		Err:      schemas.ErrConditionNotMet,
	}
	assert.Equal(t, `value of #line-count: expected "0", observed "7"`, assertErr.Error())
	assert.ErrorIs(t, assertErr, schemas.ErrConditionNotMet)
}

func TestAssertionDiff(t *testing.T) {
	t.Run("SingleLineHasNoDiff", func(t *testing.T) {
		e := &AssertionError{Subject: "value of #line-count", Expected: "0", Observed: "7"}
		assert.Empty(t, e.Diff())
	})

	t.Run("MultilineGetsUnifiedDiff", func(t *testing.T) {
		e := &AssertionError{
			Subject:  "text of #status-panel",
			Expected: "lines: 0\nstate: ready\n",
			Observed: "lines: 12\nstate: running\n",
		}
		diff := e.Diff()
		require.NotEmpty(t, diff)
		assert.Contains(t, diff, "--- expected")
		assert.Contains(t, diff, "+++ observed")
		assert.Contains(t, diff, "-lines: 0")
		assert.Contains(t, diff, "+lines: 12")
	})

	t.Run("MixedSidesStillDiff", func(t *testing.T) {
		e := &AssertionError{Expected: "ready", Observed: "ready\nrunning"}
		assert.NotEmpty(t, e.Diff())
	})
}
