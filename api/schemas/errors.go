package schemas

import "errors"

// Sentinel errors wrapped by BrowserSession implementations so callers can
// tell a missing element apart from a condition that never came true.
var (
	// ErrNoElement means no element matched the selector, or none became
	// visible within the allotted wait.
	ErrNoElement = errors.New("no matching element")

	// ErrConditionNotMet means the element was there but the awaited state
	// never arrived before the deadline.
	ErrConditionNotMet = errors.New("condition not met")
)
