// internal/reporting/junit.go

package reporting

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/fenlock-io/pagecheck/api/schemas"
)

// JUnitReporter renders a run as a JUnit XML testsuite, one testcase per
// step, so CI systems can ingest verification results.
type JUnitReporter struct {
	writer      io.WriteCloser
	toolVersion string
}

func NewJUnitReporter(writer io.WriteCloser, toolVersion string) *JUnitReporter {
	return &JUnitReporter{writer: writer, toolVersion: toolVersion}
}

func (r *JUnitReporter) Write(result *schemas.RunResult) error {
	doc := buildJUnitDocument(result, r.toolVersion)
	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("failed to write JUnit report: %w", err)
	}
	return nil
}

func (r *JUnitReporter) Close() error {
	return r.writer.Close()
}

func buildJUnitDocument(result *schemas.RunResult, toolVersion string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "pagecheck."+result.Scenario)
	suite.CreateAttr("tests", strconv.Itoa(len(result.Steps)))

	var failures, errored, skipped int
	for _, step := range result.Steps {
		switch step.Status {
		case schemas.StepFailed:
			if result.Outcome == schemas.OutcomeError {
				errored++
			} else {
				failures++
			}
		case schemas.StepSkipped:
			skipped++
		}
	}
	suite.CreateAttr("failures", strconv.Itoa(failures))
	suite.CreateAttr("errors", strconv.Itoa(errored))
	suite.CreateAttr("skipped", strconv.Itoa(skipped))
	suite.CreateAttr("time", junitSeconds(result.Duration))
	suite.CreateAttr("timestamp", result.StartedAt.Format("2006-01-02T15:04:05"))

	props := suite.CreateElement("properties")
	addProperty(props, "pagecheck.version", toolVersion)
	addProperty(props, "pagecheck.run_id", result.RunID)
	addProperty(props, "pagecheck.target", result.Target)
	if result.GitRevision != "" {
		addProperty(props, "pagecheck.git_revision", result.GitRevision)
	}

	for _, step := range result.Steps {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", step.Name)
		tc.CreateAttr("classname", result.Scenario)
		tc.CreateAttr("time", junitSeconds(step.Duration))

		switch step.Status {
		case schemas.StepFailed:
			tag := "failure"
			if result.Outcome == schemas.OutcomeError {
				tag = "error"
			}
			el := tc.CreateElement(tag)
			el.CreateAttr("message", step.Error)
			el.CreateAttr("type", string(result.FailureKind))
		case schemas.StepSkipped:
			tc.CreateElement("skipped")
		}
	}
	return doc
}

func addProperty(parent *etree.Element, name, value string) {
	prop := parent.CreateElement("property")
	prop.CreateAttr("name", name)
	prop.CreateAttr("value", value)
}

func junitSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
