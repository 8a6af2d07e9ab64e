// internal/scenario/builtin.go

package scenario

import "time"

// Builtins returns the stock scenarios for the line bridge simulator pages.
// Each call returns fresh values so callers can adjust timeouts without
// affecting later runs.
func Builtins() []*Scenario {
	return []*Scenario{
		{
			Name:        "simulation",
			Description: "Start the simulator and verify lines are being produced.",
			Steps: []Step{
				{Kind: KindAssertHeading, Name: "Line Bridge Simulator", Timeout: Duration(5 * time.Second)},
				{Kind: KindClick, Selector: "#start-button"},
				{Kind: KindWaitTextNot, Selector: "#line-count", Value: "0", Timeout: Duration(5 * time.Second)},
				{Kind: KindScreenshot, File: "simulation-running.png"},
			},
		},
		{
			Name:        "boundary",
			Description: "Switch the boundary condition and verify the control reports it.",
			Steps: []Step{
				{Kind: KindSelect, Selector: "#boundary-condition", Value: "top-to-bottom"},
				{Kind: KindAssertValue, Selector: "#boundary-condition", Value: "top-to-bottom"},
				{Kind: KindScreenshot, File: "verification.png"},
			},
		},
		{
			Name:        "clusters",
			Description: "Run the simulator briefly, then pause it for a stable capture.",
			Steps: []Step{
				{Kind: KindClick, Selector: "#start-button"},
				{Kind: KindSleep, Pause: Duration(3 * time.Second)},
				{Kind: KindClick, Selector: "#pause-button"},
				{Kind: KindScreenshot, File: "verification.png"},
			},
		},
	}
}

// Lookup finds a builtin scenario by name.
func Lookup(name string) (*Scenario, bool) {
	for _, sc := range Builtins() {
		if sc.Name == name {
			return sc, true
		}
	}
	return nil, false
}

// Names lists the builtin scenario names in definition order.
func Names() []string {
	builtins := Builtins()
	names := make([]string, 0, len(builtins))
	for _, sc := range builtins {
		names = append(names, sc.Name)
	}
	return names
}
