// internal/harness/errors.go

package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

// EnvironmentError means the harness could not do its job at all: no
// browser, a dead tab, an unwritable artifact directory. Runs ending this
// way are infrastructure failures, not verification verdicts.
type EnvironmentError struct {
	Op  string
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment failure during %s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// NavigationError means the target document could not be loaded.
type NavigationError struct {
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("could not load %s: %v", e.Target, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ElementNotFoundError means an element or heading the page contract
// promises never turned up.
type ElementNotFoundError struct {
	Subject string
	Err     error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Subject, e.Err)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

// AssertionError means the page was reachable and the element existed, but
// its observed state did not match the expectation.
type AssertionError struct {
	Subject  string
	Expected string
	Observed string
	Err      error
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %q, observed %q", e.Subject, e.Expected, e.Observed)
}

func (e *AssertionError) Unwrap() error { return e.Err }

// Diff renders a unified diff of the mismatch when either side is
// multiline, where the inline expected/observed pair stops being readable.
func (e *AssertionError) Diff() string {
	if !strings.Contains(e.Expected, "\n") && !strings.Contains(e.Observed, "\n") {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(e.Expected),
		B:        difflib.SplitLines(e.Observed),
		FromFile: "expected",
		ToFile:   "observed",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}

// Classify maps an error onto the failure taxonomy recorded in run results.
// Unwrapped browser errors count as environment failures: if the page
// misbehaves, the session reports it through the sentinel errors instead.
func Classify(err error) schemas.FailureKind {
	if err == nil {
		return schemas.FailureNone
	}
	var (
		envErr      *EnvironmentError
		navErr      *NavigationError
		notFoundErr *ElementNotFoundError
		assertErr   *AssertionError
	)
	switch {
	case errors.As(err, &envErr):
		return schemas.FailureEnvironment
	case errors.As(err, &navErr):
		return schemas.FailureNavigation
	case errors.As(err, &notFoundErr):
		return schemas.FailureElementNotFound
	case errors.As(err, &assertErr):
		return schemas.FailureAssertion
	case errors.Is(err, schemas.ErrNoElement):
		return schemas.FailureElementNotFound
	case errors.Is(err, schemas.ErrConditionNotMet):
		return schemas.FailureAssertion
	default:
		return schemas.FailureEnvironment
	}
}
