package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewfinder/internal/trace"
)

func TestLoadScenario_GrandTour(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/grand-tour.yaml")
	require.NoError(t, err)
	assert.Equal(t, "grand-tour", scenario.Name)
	assert.Equal(t, DefaultSessionToken, scenario.SessionToken)
	assert.Len(t, scenario.Steps, 9)
	assert.Len(t, scenario.Assertions, 4)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: catches misspelled keys
steps:
  - navigate:
      to: portfolio
assertion:
  - type: trace_count
`))
	require.Error(t, err)
}

func TestParseScenario_RequiresExactlyOneAction(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: ambiguous
description: step with two actions
steps:
  - key: "1"
    navigate:
      to: portfolio
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestParseScenario_RejectsUnknownMovement(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-movement
description: movement outside the vocabulary
steps:
  - navigate:
      to: portfolio
      movement: crane-shot
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crane-shot")
}

func TestRun_GrandTourMatchesGolden(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/grand-tour.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/grand-tour.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(Snapshot(scenario, first))
	require.NoError(t, err)
	b, err := MarshalSnapshot(Snapshot(scenario, second))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "two runs must produce identical traces")
}

func TestRun_DollyZoomReuseRefused(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: dolly-reuse
description: second dolly-zoom in a session must be refused
steps:
  - navigate:
      to: services
      movement: dolly-zoom
    expect:
      section: services
  - navigate:
      to: hero
      movement: dolly-zoom
    expect:
      refused: true
assertions:
  - type: trace_count
    movement: dolly-zoom
    count: 1
  - type: final_state
    section: services
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "dolly-zoom", result.Trace[0].Movement)
}

func TestRun_ReducedMotionCollapsesDurations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: reduced-motion
description: reduced motion collapses movement durations to near zero
options:
  reducedMotion: true
steps:
  - navigate:
      to: about
    expect:
      section: about
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed, "failures: %v", result.Failures)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, 1.0, result.Trace[0].DurationMS)
}

func TestRun_FailedExpectationReported(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-expect
description: deliberately wrong expectation must fail the run
steps:
  - navigate:
      to: portfolio
    expect:
      section: contact
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "active section")
}

func TestRun_AssertionFailuresCollected(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong-assertions
description: both failing assertions must be reported
steps:
  - navigate:
      to: portfolio
assertions:
  - type: trace_count
    movement: dolly-zoom
    count: 2
  - type: trace_contains
    movement: match-cut
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Len(t, result.Failures, 2)
}

func TestReplay_ReproducesRecordedTrace(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/grand-tour.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Passed, "failures: %v", result.Failures)

	replayed, err := Replay(result.Trace, "replay-session")
	require.NoError(t, err)
	assert.NoError(t, trace.VerifyMatch(result.Trace, replayed))
}

func TestReplay_DetectsDivergence(t *testing.T) {
	recorded := []trace.Record{
		{From: "hero", To: "portfolio", Movement: "pan-tilt", DurationMS: 800, Success: true},
	}

	replayed, err := Replay(recorded, "replay-session")
	require.NoError(t, err)
	require.Len(t, replayed, 1)

	// Tamper with the recorded movement; verification must notice.
	recorded[0].Movement = "zoom-in"
	assert.Error(t, trace.VerifyMatch(recorded, replayed))
}
