// internal/browser/actions_test.go

package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSString(t *testing.T) {
	tests := []struct{ in, want string }{
		{`plain`, `"plain"`},
		{`with "quotes"`, `"with \"quotes\""`},
		{"line\nbreak", `"line\nbreak"`},
		{`back\slash`, `"back\\slash"`},
		{`#boundary-condition`, `"#boundary-condition"`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, jsString(tc.in))
	}
}

func TestProbeScriptEmbedsSelector(t *testing.T) {
	script := probeScript(`#line "count"`)
	assert.Contains(t, script, `document.querySelector("#line \"count\"")`)
	assert.Contains(t, script, "getBoundingClientRect")
}

func TestSelectScriptDispatchesEvents(t *testing.T) {
	script := selectScript("#boundary-condition", "top-to-bottom")
	assert.Contains(t, script, `document.querySelector("#boundary-condition")`)
	assert.Contains(t, script, `"top-to-bottom"`)
	assert.Contains(t, script, `new Event("input", { bubbles: true })`)
	assert.Contains(t, script, `new Event("change", { bubbles: true })`)
}

func TestHeadingScriptNormalizesName(t *testing.T) {
	script := headingScript("Line Bridge Simulator")
	assert.Contains(t, script, `"Line Bridge Simulator"`)
	assert.Contains(t, script, `[role="heading"]`)
}
