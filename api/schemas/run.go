// Package schemas holds the shared result model passed between the browser
// layer, the harness, reporting and storage.
package schemas

import "time"

// Outcome is the final verdict of a verification run.
type Outcome string

const (
	// OutcomePassed means every step completed and every assertion held.
	OutcomePassed Outcome = "passed"
	// OutcomeFailed means the page did not behave as scripted (navigation,
	// element lookup or assertion failure). The run itself completed.
	OutcomeFailed Outcome = "failed"
	// OutcomeError means the harness could not perform the run at all,
	// most commonly because no browser runtime was available.
	OutcomeError Outcome = "error"
)

// FailureKind identifies which class of failure ended a run.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureEnvironment     FailureKind = "environment"
	FailureNavigation      FailureKind = "navigation"
	FailureElementNotFound FailureKind = "element-not-found"
	FailureAssertion       FailureKind = "assertion"
)

// StepStatus is the execution status of a single interaction step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// ConsoleLog is one console message emitted by the page, in emission order.
// Seq starts at 1 and is assigned as the message arrives.
type ConsoleLog struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
}

// PageError is an uncaught exception thrown by the page.
type PageError struct {
	Seq       int       `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// StepReport records how one scripted step went.
type StepReport struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// RunResult is the complete record of one verification run: what was driven,
// what the page said, and what evidence was captured. It is produced whether
// the run passed or failed; only an environment failure can leave it partial.
type RunResult struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Target   string `json:"target"`

	Outcome       Outcome     `json:"outcome"`
	FailureKind   FailureKind `json:"failure_kind,omitempty"`
	FailureDetail string      `json:"failure_detail,omitempty"`
	// Expected/Observed are populated for assertion failures so reports can
	// show both sides of the mismatch.
	Expected string `json:"expected,omitempty"`
	Observed string `json:"observed,omitempty"`

	Steps       []StepReport `json:"steps"`
	ConsoleLogs []ConsoleLog `json:"console_logs"`
	PageErrors  []PageError  `json:"page_errors"`

	ScreenshotPath string `json:"screenshot_path,omitempty"`
	GitRevision    string `json:"git_revision,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// NewRunResult seeds a result for a run that is about to begin.
func NewRunResult(runID, scenario, target string) *RunResult {
	return &RunResult{
		RunID:     runID,
		Scenario:  scenario,
		Target:    target,
		Outcome:   OutcomePassed,
		StartedAt: time.Now().UTC(),
	}
}

// Passed reports whether the run completed with every assertion holding.
func (r *RunResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// RecordFailure marks the run failed with the given class and detail. The
// first failure wins; later calls are ignored because steps after a failure
// are skipped, not executed.
func (r *RunResult) RecordFailure(kind FailureKind, detail string) {
	if r.FailureKind != FailureNone {
		return
	}
	r.FailureKind = kind
	r.FailureDetail = detail
	if kind == FailureEnvironment {
		r.Outcome = OutcomeError
	} else {
		r.Outcome = OutcomeFailed
	}
}

// AddStep appends a step report, preserving execution order.
func (r *RunResult) AddStep(step StepReport) {
	r.Steps = append(r.Steps, step)
}

// Finish stamps the end time and duration.
func (r *RunResult) Finish() {
	r.FinishedAt = time.Now().UTC()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}
