// internal/browser/actions.go

package browser

import (
	"fmt"

	"github.com/chromedp/cdproto/runtime"
)

// probeResult is what probeScript reports about the first matched element.
type probeResult struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Value   string `json:"value"`
	Text    string `json:"text"`
}

// selectResult is what selectScript reports after attempting a selection.
type selectResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Value  string `json:"value"`
}

// evalParams makes Evaluate marshal the script result back by value instead
// of handing out a remote object reference.
func evalParams(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true)
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// probeScript inspects the first element matched by selector without
// touching it.
func probeScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) {
		return { found: false, visible: false, value: "", text: "" };
	}
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	const visible = style.display !== "none" && style.visibility !== "hidden" &&
		rect.width > 0 && rect.height > 0;
	return {
		found: true,
		visible: visible,
		value: "value" in el ? String(el.value) : "",
		text: el.textContent || "",
	};
})()`, jsString(selector))
}

// selectScript sets the value of a select element and fires the input and
// change events the page would see from a real selection.
func selectScript(selector, value string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) {
		return { ok: false, reason: "no element", value: "" };
	}
	const want = %s;
	const options = Array.from(el.options || []);
	if (!options.some((opt) => opt.value === want)) {
		return { ok: false, reason: "no option " + JSON.stringify(want), value: String(el.value) };
	}
	el.value = want;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return { ok: true, reason: "", value: String(el.value) };
})()`, jsString(selector), jsString(value))
}

// headingScript reports whether a visible heading's normalized text equals
// name. Matches h1 through h6 plus explicit ARIA headings.
func headingScript(name string) string {
	return fmt.Sprintf(`(() => {
	const want = %s.replace(/\s+/g, " ").trim();
	const nodes = document.querySelectorAll('h1, h2, h3, h4, h5, h6, [role="heading"]');
	for (const el of nodes) {
		const text = (el.textContent || "").replace(/\s+/g, " ").trim();
		if (text !== want) {
			continue;
		}
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		if (style.display !== "none" && style.visibility !== "hidden" &&
			rect.width > 0 && rect.height > 0) {
			return true;
		}
	}
	return false;
})()`, jsString(name))
}
