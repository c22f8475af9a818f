// Package harness executes declarative navigation scenarios against a real
// engine wired with the deterministic clock and scheduler, and compares the
// resulting transition traces against golden files.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/sections"
)

// DefaultSessionToken is used when a scenario does not pin its own token.
// Fixed so golden files stay byte-stable.
const DefaultSessionToken = "scenario-session"

// Scenario defines a navigation test scenario: a sequence of navigation and
// key steps with expectations, plus assertions over the final trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Layout optionally points to a CUE layout file. Empty uses the
	// built-in section layout. Relative paths resolve against the
	// scenario file location.
	Layout string `yaml:"layout,omitempty"`

	// SessionToken pins the trace session token for deterministic golden
	// comparison. Defaults to DefaultSessionToken.
	SessionToken string `yaml:"session_token,omitempty"`

	// Options overrides runtime options for the run. Absent fields keep
	// their defaults.
	Options *ScenarioOptions `yaml:"options,omitempty"`

	// Steps is the main flow, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioOptions mirrors the runtime options a scenario may override.
type ScenarioOptions struct {
	MoveDistance         *float64 `yaml:"moveDistance,omitempty"`
	ZoomFactor           *float64 `yaml:"zoomFactor,omitempty"`
	EnableSpatialContext *bool    `yaml:"enableSpatialContext,omitempty"`
	ReducedMotion        *bool    `yaml:"reducedMotion,omitempty"`
}

// Step is one scenario action. Exactly one of Navigate, Key, or Cancel
// must be set.
type Step struct {
	// Navigate starts a camera movement and plays it to completion.
	Navigate *NavigateStep `yaml:"navigate,omitempty"`

	// Key feeds one key identifier through the input mapper.
	Key string `yaml:"key,omitempty"`

	// Cancel starts the movement described by Navigate semantics but
	// cancels it after the given number of frames instead of playing it
	// out.
	Cancel *CancelStep `yaml:"cancel,omitempty"`

	// Expect validates state after the step completes.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// NavigateStep describes a movement request.
type NavigateStep struct {
	// To is the destination section identifier.
	To string `yaml:"to"`

	// Movement is the movement kind, defaulting to pan-tilt.
	Movement string `yaml:"movement,omitempty"`

	// Scale optionally overrides the target scale (zoom movements).
	Scale float64 `yaml:"scale,omitempty"`
}

// CancelStep starts a movement and cancels it mid-flight.
type CancelStep struct {
	To       string `yaml:"to"`
	Movement string `yaml:"movement,omitempty"`

	// AfterFrames is how many 16ms frames run before the cancel.
	AfterFrames int `yaml:"after_frames"`
}

// ExpectClause validates observable state after a step.
type ExpectClause struct {
	// Refused expects the movement to be refused (concurrency ceiling,
	// dolly-zoom reuse).
	Refused bool `yaml:"refused,omitempty"`

	// Section is the expected active section.
	Section string `yaml:"section,omitempty"`

	// Position checks camera coordinates, each axis optional.
	X     *float64 `yaml:"x,omitempty"`
	Y     *float64 `yaml:"y,omitempty"`
	Scale *float64 `yaml:"scale,omitempty"`

	// Announcement is the expected exact announcement text, or "" to
	// skip. Use "none" to require that the step announced nothing.
	Announcement string `yaml:"announcement,omitempty"`
}

// Assertion validates the final trace or state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// final_state.
	Type string `yaml:"type"`

	// Movement filters by movement kind (trace_contains, trace_count).
	Movement string `yaml:"movement,omitempty"`

	// From/To filter by endpoints (trace_contains).
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Movements is the expected order (trace_order).
	Movements []string `yaml:"movements,omitempty"`

	// Count is the expected number of matches (trace_count).
	Count int `yaml:"count,omitempty"`

	// Section/X/Y/Scale validate final state (final_state).
	Section string   `yaml:"section,omitempty"`
	X       *float64 `yaml:"x,omitempty"`
	Y       *float64 `yaml:"y,omitempty"`
	Scale   *float64 `yaml:"scale,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error if
// the file is malformed, contains unknown fields (typos), or is missing
// required fields. The layout path, if any, resolves relative to the
// scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Layout != "" && !filepath.IsAbs(scenario.Layout) {
		scenario.Layout = filepath.Join(filepath.Dir(path), scenario.Layout)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field validation
// (catches typos like "assert:" vs "assertions:").
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.SessionToken == "" {
		scenario.SessionToken = DefaultSessionToken
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Navigate != nil {
			set++
			if step.Navigate.To == "" {
				return fmt.Errorf("steps[%d]: navigate.to is required", i)
			}
			if err := validMovement(step.Navigate.Movement); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if step.Key != "" {
			set++
		}
		if step.Cancel != nil {
			set++
			if step.Cancel.To == "" {
				return fmt.Errorf("steps[%d]: cancel.to is required", i)
			}
			if err := validMovement(step.Cancel.Movement); err != nil {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of navigate, key, cancel is required", i)
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains, AssertTraceOrder, AssertTraceCount, AssertFinalState:
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	return nil
}

func validMovement(name string) error {
	if name == "" {
		return nil // defaults to pan-tilt
	}
	if !movement.Kind(name).Valid() {
		return fmt.Errorf("unknown movement kind %q", name)
	}
	return nil
}

// sectionID validates and converts a scenario section name. Unknown names
// pass through so scenarios can exercise the unknown-section fallback.
func sectionID(name string) sections.ID {
	return sections.ID(name)
}
