// internal/reporting/console.go

package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

const (
	consoleLogsHeader = "--- Browser Console Logs ---"
	pageErrorsHeader  = "--- Browser Page Errors ---"
	noConsoleLine     = "No console messages were captured."
	noPageErrorsLine  = "No page errors were captured."
)

// ConsoleText renders the human readable run summary: the screenshot
// confirmation, the failure message when the run did not pass, and the two
// diagnostic sections. The layout is fixed; scripts parse it.
func ConsoleText(result *schemas.RunResult) string {
	var b strings.Builder

	if result.ScreenshotPath != "" {
		fmt.Fprintf(&b, "Screenshot saved to %s\n", result.ScreenshotPath)
	}

	if !result.Passed() {
		fmt.Fprintf(&b, "\nAn error occurred during verification: %s\n", result.FailureDetail)
		if result.FailureKind == schemas.FailureAssertion {
			fmt.Fprintf(&b, "  expected: %q\n", result.Expected)
			fmt.Fprintf(&b, "  observed: %q\n", result.Observed)
			if diff := mismatchDiff(result.Expected, result.Observed); diff != "" {
				b.WriteString(diff)
			}
		}
	}

	b.WriteString("\n" + consoleLogsHeader + "\n")
	if len(result.ConsoleLogs) > 0 {
		for _, entry := range result.ConsoleLogs {
			fmt.Fprintf(&b, "[%s] %s\n", entry.Level, entry.Text)
		}
	} else {
		b.WriteString(noConsoleLine + "\n")
	}

	b.WriteString("\n" + pageErrorsHeader + "\n")
	if len(result.PageErrors) > 0 {
		for _, entry := range result.PageErrors {
			fmt.Fprintf(&b, "%s\n", entry.Text)
		}
	} else {
		b.WriteString(noPageErrorsLine + "\n")
	}

	return b.String()
}

// WriteConsole writes the run summary to w, typically os.Stdout.
func WriteConsole(w io.Writer, result *schemas.RunResult) error {
	_, err := io.WriteString(w, ConsoleText(result))
	return err
}

// mismatchDiff renders a unified diff of an assertion mismatch when either
// side spans multiple lines. Single line values read fine inline.
func mismatchDiff(expected, observed string) string {
	if !strings.Contains(expected, "\n") && !strings.Contains(observed, "\n") {
		return ""
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(observed),
		FromFile: "expected",
		ToFile:   "observed",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
