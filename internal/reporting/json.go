// internal/reporting/json.go

package reporting

import (
	"fmt"
	"io"

	json "github.com/json-iterator/go"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

// JSONReporter writes the complete RunResult as indented JSON.
type JSONReporter struct {
	writer io.WriteCloser
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(result *schemas.RunResult) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
