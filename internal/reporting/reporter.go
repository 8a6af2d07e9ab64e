// internal/reporting/reporter.go

// Package reporting renders run results: the fixed console summary printed
// after every run, plus optional machine readable report files.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

// Reporter writes a machine readable report for a completed run.
type Reporter interface {
	// Write renders a single run result.
	Write(result *schemas.RunResult) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format. An empty or "stdout" path
// writes to standard output; otherwise the file at outputPath is created,
// truncating any previous report.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	isStdout := outputPath == "" || outputPath == "stdout"

	if isStdout {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create report file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json":
		return NewJSONReporter(writer), nil
	case "junit":
		return NewJUnitReporter(writer, toolVersion), nil
	default:
		if !isStdout {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}
