// internal/reporting/junit_test.go

package reporting_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenlock-io/pagecheck/api/schemas"
	"github.com/fenlock-io/pagecheck/internal/reporting"
)

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func failedResult() *schemas.RunResult {
	result := schemas.NewRunResult("run-junit", "simulation", "file:///srv/index.html")
	result.GitRevision = "deadbeef"
	result.Steps = []schemas.StepReport{
		{Name: "navigate", Status: schemas.StepPassed, Duration: 80 * time.Millisecond},
		{Name: `wait for #line-count to leave "0"`, Status: schemas.StepFailed, Duration: 5 * time.Second, Error: "stayed at 0"},
		{Name: "screenshot simulation-running.png", Status: schemas.StepSkipped},
	}
	result.RecordFailure(schemas.FailureAssertion, "stayed at 0")
	result.Finish()
	return result
}

func TestJUnitReportStructure(t *testing.T) {
	buf := &closableBuffer{}
	r := reporting.NewJUnitReporter(buf, testToolVersion)

	require.NoError(t, r.Write(failedResult()))
	require.NoError(t, r.Close())
	assert.True(t, buf.closed)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	suite := doc.FindElement("//testsuites/testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "pagecheck.simulation", suite.SelectAttrValue("name", ""))
	assert.Equal(t, "3", suite.SelectAttrValue("tests", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))
	assert.Equal(t, "0", suite.SelectAttrValue("errors", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("skipped", ""))

	cases := suite.FindElements("testcase")
	require.Len(t, cases, 3)
	assert.Equal(t, "navigate", cases[0].SelectAttrValue("name", ""))
	assert.Equal(t, "simulation", cases[0].SelectAttrValue("classname", ""))
	assert.Nil(t, cases[0].FindElement("failure"))

	failure := cases[1].FindElement("failure")
	require.NotNil(t, failure)
	assert.Equal(t, "stayed at 0", failure.SelectAttrValue("message", ""))
	assert.Equal(t, "assertion", failure.SelectAttrValue("type", ""))

	assert.NotNil(t, cases[2].FindElement("skipped"))

	props := suite.FindElements("properties/property")
	byName := map[string]string{}
	for _, p := range props {
		byName[p.SelectAttrValue("name", "")] = p.SelectAttrValue("value", "")
	}
	assert.Equal(t, testToolVersion, byName["pagecheck.version"])
	assert.Equal(t, "run-junit", byName["pagecheck.run_id"])
	assert.Equal(t, "deadbeef", byName["pagecheck.git_revision"])
}

func TestJUnitEnvironmentFailureBecomesError(t *testing.T) {
	result := schemas.NewRunResult("run-env", "simulation", "file:///srv/index.html")
	result.Steps = []schemas.StepReport{
		{Name: "navigate", Status: schemas.StepPassed},
		{Name: "screenshot verification.png", Status: schemas.StepFailed, Error: "tab crashed"},
	}
	result.RecordFailure(schemas.FailureEnvironment, "tab crashed")
	result.Finish()

	buf := &closableBuffer{}
	r := reporting.NewJUnitReporter(buf, testToolVersion)
	require.NoError(t, r.Write(result))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	suite := doc.FindElement("//testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "1", suite.SelectAttrValue("errors", ""))
	assert.Equal(t, "0", suite.SelectAttrValue("failures", ""))

	errEl := doc.FindElement("//testcase[2]/error")
	require.NotNil(t, errEl)
	assert.Equal(t, "tab crashed", errEl.SelectAttrValue("message", ""))
	assert.Equal(t, "environment", errEl.SelectAttrValue("type", ""))
}
