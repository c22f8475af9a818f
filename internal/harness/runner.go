package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/viewfinder/internal/compiler"
	"github.com/roach88/viewfinder/internal/config"
	"github.com/roach88/viewfinder/internal/engine"
	"github.com/roach88/viewfinder/internal/input"
	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/perf"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/state"
	"github.com/roach88/viewfinder/internal/testutil"
	"github.com/roach88/viewfinder/internal/trace"
	"github.com/roach88/viewfinder/internal/transform"
)

// frameInterval is the virtual frame step. Matches the production 60Hz
// cadence rounded to whole milliseconds so golden durations stay integral.
const frameInterval = 16 * time.Millisecond

// maxFramesPerStep bounds playback so a stuck movement fails the run
// instead of spinning forever.
const maxFramesPerStep = 10000

// Result captures a scenario execution.
type Result struct {
	Passed        bool
	Failures      []string
	Trace         []trace.Record
	FinalState    state.Snapshot
	Announcements []string
}

// NewResult creates a passing result; failures flip it as they accumulate.
func NewResult() *Result {
	return &Result{Passed: true}
}

func (r *Result) failf(format string, args ...any) {
	r.Passed = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Runner bundles a real engine with the deterministic clock, scheduler,
// sequential tokens, in-memory trace recorder, and input mapper.
type Runner struct {
	Store    *state.Store
	Monitor  *perf.Monitor
	Registry *sections.Registry
	Engine   *engine.Engine
	Mapper   *input.Mapper
	Clock    *testutil.VirtualClock
	Sched    *testutil.ManualScheduler

	recorder *trace.Recorder
	session  string
	region   *input.BufferRegion
}

// NewRunner builds a deterministic runner. Every run starts from the same
// virtual instant so traces are reproducible byte for byte.
func NewRunner(registry *sections.Registry, opts config.Options, sessionToken string) (*Runner, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	recorder, err := trace.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open trace recorder: %w", err)
	}

	clock := testutil.NewVirtualClock(time.Unix(1_700_000_000, 0).UTC())
	recorder.SetClock(clock.Now)

	session, err := recorder.Session(context.Background(), sessionToken)
	if err != nil {
		recorder.Close()
		return nil, fmt.Errorf("open trace session: %w", err)
	}

	r := &Runner{
		Store:    state.New(transform.DefaultConstraints(), logger),
		Monitor:  perf.NewMonitor(perf.Config{}, logger),
		Registry: registry,
		Clock:    clock,
		Sched:    &testutil.ManualScheduler{},
		recorder: recorder,
		session:  sessionToken,
	}
	r.Store.SetClock(clock.Now)

	r.Engine = engine.New(registry, r.Store, r.Monitor, logger,
		engine.WithClock(clock),
		engine.WithScheduler(r.Sched),
		engine.WithTokenGenerator(engine.NewSequentialGenerator("mv")),
		engine.WithTraceSink(session),
	)

	factory := func() input.LiveRegion {
		r.region = &input.BufferRegion{}
		return r.region
	}
	r.Mapper = input.NewMapper(opts, r.Store, registry, r.Engine, factory, logger)
	r.Mapper.SetClock(clock.Now)

	return r, nil
}

// Close releases the engine and trace recorder.
func (r *Runner) Close() {
	r.Engine.Close()
	r.Mapper.Close()
	r.recorder.Close()
}

// Navigate starts a movement and plays frames until the engine idles.
func (r *Runner) Navigate(kind movement.Kind, to sections.ID, targetScale float64) error {
	req := engine.Request{
		Kind: kind,
		From: r.Store.ActiveSection(),
		To:   to,
	}
	if targetScale > 0 {
		pos := r.Store.Position()
		pos.Scale = targetScale
		req.ToPos = &pos
	}
	if _, err := r.Engine.Start(req); err != nil {
		return err
	}
	return r.drain()
}

// NavigateAndCancel starts a movement, advances the given number of
// frames, then cancels it.
func (r *Runner) NavigateAndCancel(kind movement.Kind, to sections.ID, afterFrames int) error {
	token, err := r.Engine.Start(engine.Request{
		Kind: kind,
		From: r.Store.ActiveSection(),
		To:   to,
	})
	if err != nil {
		return err
	}
	r.Sched.StepFrames(r.Clock, frameInterval, afterFrames)
	r.Engine.Cancel(token)
	return nil
}

// Key feeds one key event through the mapper, then plays out any movement
// it started (digit-key section jumps).
func (r *Runner) Key(key string) (input.Result, error) {
	res := r.Mapper.HandleKey(key)
	return res, r.drain()
}

// drain advances virtual time until no movements remain.
func (r *Runner) drain() error {
	for i := 0; i < maxFramesPerStep; i++ {
		if r.Engine.ActiveMovements() == 0 {
			return nil
		}
		r.Sched.StepFrames(r.Clock, frameInterval, 1)
	}
	return fmt.Errorf("movement did not complete within %d frames", maxFramesPerStep)
}

// ReadTrace returns the session's recorded transitions.
func (r *Runner) ReadTrace() ([]trace.Record, error) {
	return r.recorder.ReadSession(context.Background(), r.session)
}

// Announcements returns the live-region messages captured so far.
func (r *Runner) Announcements() []string {
	if r.region == nil {
		return nil
	}
	return r.region.Messages
}

// Run executes a scenario end to end: build a runner, walk the steps,
// evaluate per-step expectations and final assertions, and return the
// result with the full trace.
func Run(scenario *Scenario) (*Result, error) {
	registry, err := scenarioRegistry(scenario)
	if err != nil {
		return nil, err
	}

	opts := config.DefaultOptions()
	reducedMotion := false
	if o := scenario.Options; o != nil {
		if o.MoveDistance != nil {
			opts.MoveDistance = *o.MoveDistance
		}
		if o.ZoomFactor != nil {
			opts.ZoomFactor = *o.ZoomFactor
		}
		if o.EnableSpatialContext != nil {
			opts.EnableSpatialContext = *o.EnableSpatialContext
		}
		if o.ReducedMotion != nil {
			reducedMotion = *o.ReducedMotion
		}
	}

	runner, err := NewRunner(registry, opts, scenario.SessionToken)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	runner.Store.SetReducedMotion(reducedMotion)

	result := NewResult()
	for i, step := range scenario.Steps {
		executeStep(runner, i, step, result)
	}

	result.Trace, err = runner.ReadTrace()
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	result.FinalState = runner.Store.GetStateSnapshot()
	result.Announcements = runner.Announcements()

	evaluateAssertions(scenario.Assertions, result)
	return result, nil
}

func executeStep(r *Runner, i int, step Step, result *Result) {
	announcedBefore := len(r.Announcements())

	var err error
	switch {
	case step.Navigate != nil:
		kind := movement.PanTilt
		if step.Navigate.Movement != "" {
			kind = movement.Kind(step.Navigate.Movement)
		}
		err = r.Navigate(kind, sectionID(step.Navigate.To), step.Navigate.Scale)
	case step.Cancel != nil:
		kind := movement.PanTilt
		if step.Cancel.Movement != "" {
			kind = movement.Kind(step.Cancel.Movement)
		}
		err = r.NavigateAndCancel(kind, sectionID(step.Cancel.To), step.Cancel.AfterFrames)
	case step.Key != "":
		_, err = r.Key(step.Key)
	}

	expect := step.Expect
	if expect == nil {
		if err != nil {
			result.failf("steps[%d]: %v", i, err)
		}
		return
	}

	if expect.Refused {
		if !engine.IsMovementRefused(err) {
			result.failf("steps[%d]: expected refusal, got %v", i, err)
		}
		return
	}
	if err != nil {
		result.failf("steps[%d]: %v", i, err)
		return
	}

	snap := r.Store.GetStateSnapshot()
	if expect.Section != "" && string(snap.ActiveSection) != expect.Section {
		result.failf("steps[%d]: active section %q, want %q", i, snap.ActiveSection, expect.Section)
	}
	checkAxis := func(name string, got float64, want *float64) {
		if want != nil && !closeEnough(got, *want) {
			result.failf("steps[%d]: %s = %v, want %v", i, name, got, *want)
		}
	}
	checkAxis("x", snap.Position.X, expect.X)
	checkAxis("y", snap.Position.Y, expect.Y)
	checkAxis("scale", snap.Position.Scale, expect.Scale)

	if expect.Announcement != "" {
		announced := r.Announcements()[announcedBefore:]
		switch {
		case expect.Announcement == "none":
			if len(announced) != 0 {
				result.failf("steps[%d]: expected no announcement, got %q", i, announced)
			}
		case len(announced) == 0:
			result.failf("steps[%d]: expected announcement %q, got none", i, expect.Announcement)
		case announced[len(announced)-1] != expect.Announcement:
			result.failf("steps[%d]: announcement %q, want %q", i, announced[len(announced)-1], expect.Announcement)
		}
	}
}

func scenarioRegistry(scenario *Scenario) (*sections.Registry, error) {
	if scenario.Layout == "" {
		return sections.NewRegistry(), nil
	}
	layout, err := compiler.CompileFile(scenario.Layout)
	if err != nil {
		return nil, fmt.Errorf("compile layout: %w", err)
	}
	if errs := compiler.Validate(layout); len(errs) > 0 {
		return nil, fmt.Errorf("invalid layout: %v", errs[0])
	}
	return layout.Registry(), nil
}

func closeEnough(a, b float64) bool {
	const tolerance = 1e-6
	diff := a - b
	return diff < tolerance && diff > -tolerance
}
