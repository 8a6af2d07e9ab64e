// internal/reporting/console_test.go

package reporting_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/reporting"
)

func passedResult() *schemas.RunResult {
	result := schemas.NewRunResult("f2a8d0b2-9c1e-4a7d-8f23-5f1f4f9f0a11", "simulation", "file:///srv/index.html")
	result.ScreenshotPath = "verification/simulation-running.png"
	result.Steps = []schemas.StepReport{
		{Name: "navigate", Status: schemas.StepPassed, Duration: 120 * time.Millisecond},
		{Name: "click #start-button", Status: schemas.StepPassed, Duration: 45 * time.Millisecond},
	}
	result.ConsoleLogs = []schemas.ConsoleLog{
		{Seq: 1, Level: "log", Text: "sim ready"},
		{Seq: 2, Level: "warning", Text: "canvas fallback in use"},
	}
	result.PageErrors = []schemas.PageError{
		{Seq: 1, Text: "TypeError: sim exploded"},
	}
	result.Finish()
	return result
}

func TestConsoleTextPassedRun(t *testing.T) {
	got := reporting.ConsoleText(passedResult())

	want := strings.Join([]string{
		"Screenshot saved to verification/simulation-running.png",
		"",
		"--- Browser Console Logs ---",
		"[log] sim ready",
		"[warning] canvas fallback in use",
		"",
		"--- Browser Page Errors ---",
		"TypeError: sim exploded",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("console text mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleTextNothingCaptured(t *testing.T) {
	result := schemas.NewRunResult("run-1", "boundary", "file:///srv/index.html")
	result.ScreenshotPath = "verification/verification.png"
	result.Finish()

	got := reporting.ConsoleText(result)

	want := strings.Join([]string{
		"Screenshot saved to verification/verification.png",
		"",
		"--- Browser Console Logs ---",
		"No console messages were captured.",
		"",
		"--- Browser Page Errors ---",
		"No page errors were captured.",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("console text mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleTextAssertionFailure(t *testing.T) {
	result := schemas.NewRunResult("run-2", "boundary", "file:///srv/index.html")
	result.RecordFailure(schemas.FailureAssertion, `value of #boundary-condition: expected "top-to-bottom", observed "left-to-right"`)
	result.Expected = "top-to-bottom"
	result.Observed = "left-to-right"
	result.Finish()

	got := reporting.ConsoleText(result)

	assert.NotContains(t, got, "Screenshot saved to")
	assert.Contains(t, got, `An error occurred during verification: value of #boundary-condition: expected "top-to-bottom", observed "left-to-right"`)
	assert.Contains(t, got, `  expected: "top-to-bottom"`)
	assert.Contains(t, got, `  observed: "left-to-right"`)
	assert.NotContains(t, got, "+++ observed", "single line values should not produce a diff")
	assert.Contains(t, got, "No console messages were captured.")
}

func TestConsoleTextMultilineMismatchDiff(t *testing.T) {
	result := schemas.NewRunResult("run-3", "simulation", "file:///srv/index.html")
	result.RecordFailure(schemas.FailureAssertion, "text of #status-panel: mismatch")
	result.Expected = "lines: 0\nstate: ready"
	result.Observed = "lines: 12\nstate: running"
	result.Finish()

	got := reporting.ConsoleText(result)
	assert.Contains(t, got, "--- expected")
	assert.Contains(t, got, "+++ observed")
	assert.Contains(t, got, "-lines: 0")
	assert.Contains(t, got, "+lines: 12")
}

func TestConsoleTextEnvironmentFailure(t *testing.T) {
	result := schemas.NewRunResult("run-4", "simulation", "file:///srv/index.html")
	result.RecordFailure(schemas.FailureEnvironment, "environment failure during session acquisition: chrome executable not found")
	result.Finish()

	got := reporting.ConsoleText(result)
	assert.Contains(t, got, "An error occurred during verification: environment failure during session acquisition")
	assert.NotContains(t, got, "expected:")
}

func TestWriteConsole(t *testing.T) {
	var sb strings.Builder
	result := passedResult()
	require.NoError(t, reporting.WriteConsole(&sb, result))
	assert.Equal(t, reporting.ConsoleText(result), sb.String())
}
