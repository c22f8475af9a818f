package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/viewfinder/internal/config"
	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/trace"
)

// TraceSnapshot captures a scenario execution for golden comparison.
// Timestamps and movement tokens are excluded: they are the only fields
// that legitimately vary between identical runs.
type TraceSnapshot struct {
	ScenarioName  string       `json:"scenario_name"`
	SessionToken  string       `json:"session_token"`
	Trace         []TraceEvent `json:"trace"`
	FinalState    FinalState   `json:"final_state"`
	Announcements []string     `json:"announcements,omitempty"`
}

// TraceEvent is one traced transition, stripped to its deterministic
// fields.
type TraceEvent struct {
	Seq        int64   `json:"seq"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Movement   string  `json:"movement"`
	DurationMS float64 `json:"duration_ms"`
	Success    bool    `json:"success"`
}

// FinalState is the camera state at the end of the run.
type FinalState struct {
	Section string  `json:"section"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Scale   float64 `json:"scale"`
}

// Snapshot converts a result into its golden-comparable form.
func Snapshot(scenario *Scenario, result *Result) TraceSnapshot {
	events := make([]TraceEvent, len(result.Trace))
	for i, rec := range result.Trace {
		events[i] = TraceEvent{
			Seq:        rec.Seq,
			From:       rec.From,
			To:         rec.To,
			Movement:   rec.Movement,
			DurationMS: rec.DurationMS,
			Success:    rec.Success,
		}
	}
	return TraceSnapshot{
		ScenarioName: scenario.Name,
		SessionToken: scenario.SessionToken,
		Trace:        events,
		FinalState: FinalState{
			Section: string(result.FinalState.ActiveSection),
			X:       result.FinalState.Position.X,
			Y:       result.FinalState.Position.Y,
			Scale:   result.FinalState.Position.Scale,
		},
		Announcements: result.Announcements,
	}
}

// MarshalSnapshot renders a snapshot as stable, indented JSON.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := MarshalSnapshot(Snapshot(scenario, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

// Replay re-drives a recorded transition sequence through a fresh runner
// and returns the reproduced trace. Successful records are navigated to
// completion; unsuccessful ones are started and cancelled immediately, so
// the reproduction carries the same outcome per step.
func Replay(records []trace.Record, sessionToken string) ([]trace.Record, error) {
	runner, err := NewRunner(scenarioRegistryForReplay(), replayOptions(), sessionToken)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	for i, rec := range records {
		kind := parseKind(rec.Movement)
		if rec.Success {
			if err := runner.Navigate(kind, sectionID(rec.To), 0); err != nil {
				return nil, fmt.Errorf("replay record %d: %w", i, err)
			}
			continue
		}
		if err := runner.NavigateAndCancel(kind, sectionID(rec.To), 0); err != nil {
			return nil, fmt.Errorf("replay record %d: %w", i, err)
		}
	}

	return runner.ReadTrace()
}

// parseKind maps a traced movement name back to its kind, defaulting to
// pan-tilt for anything unexpected.
func parseKind(name string) movement.Kind {
	if k := movement.Kind(name); k.Valid() {
		return k
	}
	return movement.PanTilt
}

func scenarioRegistryForReplay() *sections.Registry {
	return sections.NewRegistry()
}

func replayOptions() config.Options {
	return config.DefaultOptions()
}
