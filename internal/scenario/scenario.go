// internal/scenario/scenario.go

// Package scenario defines verification plans: named, ordered sequences of
// page interactions and assertions the harness executes against a target.
package scenario

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind identifies what a step does to the page.
type Kind string

const (
	KindClick         Kind = "click"
	KindSelect        Kind = "select"
	KindAssertValue   Kind = "assert-value"
	KindAssertHeading Kind = "assert-heading"
	KindWaitTextNot   Kind = "wait-text-not"
	KindSleep         Kind = "sleep"
	KindScreenshot    Kind = "screenshot"
)

// Duration is a time.Duration that reads and writes YAML as "5s" style
// strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Step is one instruction in a scenario. Which fields apply depends on the
// kind; Validate enforces the combinations.
type Step struct {
	Kind     Kind     `yaml:"kind"`
	Selector string   `yaml:"selector,omitempty"`
	Value    string   `yaml:"value,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
	Pause    Duration `yaml:"duration,omitempty"`
	File     string   `yaml:"file,omitempty"`
}

// Label names the step for step reports and logs.
func (s Step) Label() string {
	switch s.Kind {
	case KindClick:
		return "click " + s.Selector
	case KindSelect:
		return fmt.Sprintf("select %s on %s", s.Value, s.Selector)
	case KindAssertValue:
		return "assert value of " + s.Selector
	case KindAssertHeading:
		return fmt.Sprintf("assert heading %q", s.Name)
	case KindWaitTextNot:
		return fmt.Sprintf("wait for %s to leave %q", s.Selector, s.Value)
	case KindSleep:
		return fmt.Sprintf("sleep %v", s.Pause.Std())
	case KindScreenshot:
		return "screenshot " + s.File
	default:
		return string(s.Kind)
	}
}

func (s Step) validate(pos int) error {
	switch s.Kind {
	case KindClick:
		if s.Selector == "" {
			return fmt.Errorf("step %d: click requires a selector", pos)
		}
	case KindSelect:
		if s.Selector == "" {
			return fmt.Errorf("step %d: select requires a selector", pos)
		}
		if s.Value == "" {
			return fmt.Errorf("step %d: select requires a value", pos)
		}
	case KindAssertValue:
		if s.Selector == "" {
			return fmt.Errorf("step %d: assert-value requires a selector", pos)
		}
	case KindAssertHeading:
		if s.Name == "" {
			return fmt.Errorf("step %d: assert-heading requires a name", pos)
		}
	case KindWaitTextNot:
		if s.Selector == "" {
			return fmt.Errorf("step %d: wait-text-not requires a selector", pos)
		}
	case KindSleep:
		if s.Pause <= 0 {
			return fmt.Errorf("step %d: sleep requires a positive duration", pos)
		}
	case KindScreenshot:
		if s.File == "" {
			return fmt.Errorf("step %d: screenshot requires a file name", pos)
		}
	default:
		return fmt.Errorf("step %d: unknown kind %q", pos, s.Kind)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("step %d: timeout cannot be negative", pos)
	}
	return nil
}

// Scenario is a named verification plan for one page.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Validate checks the scenario is runnable. Step positions in errors are
// 1-based to match how authors count in a YAML file.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.validate(i + 1); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	return nil
}

// Selectors returns the CSS selectors the scenario touches, deduplicated in
// first-use order.
func (s *Scenario) Selectors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, step := range s.Steps {
		if step.Selector == "" || seen[step.Selector] {
			continue
		}
		seen[step.Selector] = true
		out = append(out, step.Selector)
	}
	return out
}
