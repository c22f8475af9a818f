// Package engine implements the camera movement orchestrator: the state
// machine that owns active movements, drives them forward on a per-frame
// clock, applies easing and adaptive duration scaling, and commits validated
// positions to the canvas state store.
//
// CONCURRENCY MODEL: all mutation happens in response to discrete calls
// (Start, Cancel) or scheduled ticks. The engine serializes these with one
// mutex; movement progress functions never block. At most one primary
// (position-moving) movement runs at a time, and the total of primary plus
// overlay movements is bounded by the concurrency ceiling (default 3).
// Start refuses - with a diagnostic, never a panic - rather than queue.
// Completion callbacks and sample listeners fire with the mutex released,
// so they may re-enter the engine (chain a Start, query state). Close may
// not be called from inside a callback: it waits for the tick goroutine
// the callback runs on.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/viewfinder/internal/movement"
	"github.com/roach88/viewfinder/internal/perf"
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/state"
	"github.com/roach88/viewfinder/internal/transform"
)

// DefaultConcurrencyCeiling bounds simultaneously active movements and
// overlay effects.
const DefaultConcurrencyCeiling = 3

// reducedMotionDurationMS is the near-instant duration applied when the
// reduced-motion preference is active.
const reducedMotionDurationMS = 1.0

// Request asks the orchestrator to start a movement. Section endpoints are
// resolved through the registry; explicit positions override them when set.
type Request struct {
	Kind movement.Kind
	From sections.ID
	To   sections.ID

	// FromPos/ToPos override section resolution. Nil means "resolve From/To
	// through the registry" (From defaults to the current store position).
	FromPos *transform.Position
	ToPos   *transform.Position

	// OnComplete fires exactly once when the movement completes. Cancelled
	// movements never invoke it.
	OnComplete func(Completion)
}

// Completion reports a finished movement to its requester.
type Completion struct {
	Token     string
	Kind      movement.Kind // kind actually executed (after any fallback)
	Requested movement.Kind
	From      sections.ID
	To        sections.ID
	Final     transform.Position
	Duration  float64 // effective duration, ms
}

// SampleListener receives every committed per-tick sample, for presentation
// layers that render blur/opacity/morph overlays.
type SampleListener func(token string, kind movement.Kind, sample movement.Sample)

// TraceSink receives committed transitions for external recording. The
// SQLite trace recorder implements this; nil disables tracing.
type TraceSink interface {
	Append(token string, t state.Transition) error
}

type activeMovement struct {
	token      string
	plan       movement.Plan
	requested  movement.Kind
	from, to   sections.ID
	startTime  time.Time
	durationMS float64
	primary    bool
	lastValid  transform.Position
	onComplete func(Completion)
}

// Engine is the camera movement orchestrator.
type Engine struct {
	mu sync.Mutex

	registry *sections.Registry
	store    *state.Store
	monitor  *perf.Monitor
	anchors  movement.AnchorResolver
	clock    Clock
	sched    Scheduler
	tokens   TokenGenerator
	tracer   TraceSink
	listener SampleListener
	logger   *slog.Logger

	ceiling int

	hasUsedDollyZoom bool
	movements        map[string]*activeMovement

	stopTicks func()
	lastTick  time.Time
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source (virtual clock in tests/replay).
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithScheduler substitutes the tick scheduler.
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

// WithTokenGenerator substitutes the movement token source.
func WithTokenGenerator(g TokenGenerator) Option { return func(e *Engine) { e.tokens = g } }

// WithConcurrencyCeiling overrides the default ceiling of 3.
func WithConcurrencyCeiling(n int) Option { return func(e *Engine) { e.ceiling = n } }

// WithAnchorResolver supplies the match-cut anchor source. Without one,
// every match cut falls back to pan-tilt.
func WithAnchorResolver(r movement.AnchorResolver) Option { return func(e *Engine) { e.anchors = r } }

// WithTraceSink attaches a transition recorder.
func WithTraceSink(t TraceSink) Option { return func(e *Engine) { e.tracer = t } }

// WithSampleListener attaches a per-tick sample consumer.
func WithSampleListener(l SampleListener) Option { return func(e *Engine) { e.listener = l } }

// New creates an orchestrator bound to a registry, store, and monitor.
func New(registry *sections.Registry, store *state.Store, monitor *perf.Monitor, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		registry:  registry,
		store:     store,
		monitor:   monitor,
		clock:     SystemClock{},
		sched:     &TickerScheduler{},
		tokens:    UUIDv7Generator{},
		logger:    logger,
		ceiling:   DefaultConcurrencyCeiling,
		movements: make(map[string]*activeMovement),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a movement. It refuses - returning a MOVEMENT_REFUSED
// diagnostic with state unchanged - when the concurrency ceiling is
// reached, when a second primary movement is requested while one runs, or
// when dolly-zoom is requested after its single session use.
//
// A match cut without a resolvable shared anchor silently executes as
// pan-tilt; the fallback is logged and visible in the Completion's
// Requested field.
func (e *Engine) Start(req Request) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", &RuntimeError{
			Code:    ErrCodeMovementRefused,
			Message: "engine is closed",
			Kind:    req.Kind,
		}
	}

	if !req.Kind.Valid() || req.Kind == movement.None {
		return "", &RuntimeError{
			Code:    ErrCodeMovementRefused,
			Message: fmt.Sprintf("kind %q is not a startable movement", req.Kind),
			Kind:    req.Kind,
		}
	}

	if e.monitor.ActiveOperations() >= e.ceiling {
		err := &RuntimeError{
			Code:    ErrCodeMovementRefused,
			Message: fmt.Sprintf("concurrency ceiling reached (%d active)", e.monitor.ActiveOperations()),
			Kind:    req.Kind,
		}
		e.logger.Warn("movement refused", "reason", "ceiling", "kind", req.Kind, "ceiling", e.ceiling)
		return "", err
	}

	primary := req.Kind != movement.RackFocus
	if primary && e.primaryActiveLocked() {
		err := &RuntimeError{
			Code:    ErrCodeMovementRefused,
			Message: "a primary movement is already active",
			Kind:    req.Kind,
		}
		e.logger.Warn("movement refused", "reason", "primary_active", "kind", req.Kind)
		return "", err
	}

	if req.Kind == movement.DollyZoom && e.hasUsedDollyZoom {
		err := &RuntimeError{
			Code:    ErrCodeMovementRefused,
			Message: "dolly-zoom has already been used this session",
			Kind:    req.Kind,
		}
		e.logger.Warn("movement refused", "reason", "dolly_zoom_reuse")
		return "", err
	}

	plan, requested := e.buildPlanLocked(req)

	durationMS := e.effectiveDurationLocked(plan.Kind)
	if req.Kind == movement.DollyZoom {
		e.hasUsedDollyZoom = true
	}

	token := e.tokens.Generate()
	mv := &activeMovement{
		token:      token,
		plan:       plan,
		requested:  requested,
		from:       req.From,
		to:         req.To,
		startTime:  e.clock.Now(),
		durationMS: durationMS,
		primary:    primary,
		lastValid:  plan.From,
		onComplete: req.OnComplete,
	}

	e.monitor.OpStarted()
	e.movements[token] = mv
	if primary {
		e.store.SetTargetPosition(plan.To)
	}
	e.ensureTickingLocked()

	e.logger.Info("movement started",
		"token", token,
		"kind", plan.Kind,
		"requested", requested,
		"from", req.From,
		"to", req.To,
		"duration_ms", durationMS,
	)
	return token, nil
}

// NavigateToSection pans the camera from the current active section to the
// named one. It is the entry point keyboard and deep-link navigation use.
func (e *Engine) NavigateToSection(id sections.ID, onComplete func(Completion)) (string, error) {
	return e.Start(Request{
		Kind:       movement.PanTilt,
		From:       e.store.ActiveSection(),
		To:         id,
		OnComplete: onComplete,
	})
}

// Cancel stops a movement without invoking its completion callback.
// Synchronous and idempotent: cancelling a finished or unknown token is a
// no-op, not an error.
func (e *Engine) Cancel(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mv, ok := e.movements[token]
	if !ok {
		return
	}
	e.removeLocked(mv, false)
	e.logger.Info("movement cancelled", "token", token, "kind", mv.plan.Kind)
}

// Close cancels all active movements and stops the tick scheduler. All
// resources are released deterministically; Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, mv := range e.movements {
		e.removeLocked(mv, false)
	}
	stop := e.stopTicks
	e.stopTicks = nil
	e.mu.Unlock()

	// The scheduler's stop waits for the tick goroutine, and that goroutine
	// may itself be blocked on the engine mutex. Stopping under the lock
	// would deadlock, so the stop runs after release; nulling stopTicks
	// first keeps Close idempotent.
	if stop != nil {
		stop()
	}
}

// ActiveMovements returns the number of in-flight movements.
func (e *Engine) ActiveMovements() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.movements)
}

// HasUsedDollyZoom reports whether the session's single dolly zoom has
// been consumed.
func (e *Engine) HasUsedDollyZoom() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasUsedDollyZoom
}

// buildPlanLocked resolves endpoints and anchor geometry into a frozen
// movement plan. Unknown sections resolve to the default position with a
// logged diagnostic; anchorless match cuts degrade to pan-tilt.
func (e *Engine) buildPlanLocked(req Request) (plan movement.Plan, requested movement.Kind) {
	requested = req.Kind

	from := e.store.Position()
	if req.FromPos != nil {
		from = *req.FromPos
	} else if req.From != "" {
		// The origin stays at the live camera position; resolving only
		// surfaces the unknown-section diagnostic.
		if _, err := e.registry.Resolve(req.From); err != nil {
			e.logger.Warn("unknown origin section", "code", ErrCodeUnknownSection, "section", req.From)
		}
	}

	var to transform.Position
	switch {
	case req.ToPos != nil:
		to = *req.ToPos
	case req.To != "":
		pos, err := e.registry.Position(req.To)
		if err != nil {
			e.logger.Warn("unknown target section, using default position",
				"code", ErrCodeUnknownSection, "section", req.To)
		}
		to = pos
	default:
		to = from
	}

	// Zoom kinds keep the current center; their target only contributes a
	// scale unless the caller gave an explicit target position.
	if (req.Kind == movement.ZoomIn || req.Kind == movement.ZoomOut) && req.ToPos == nil {
		to.X = from.X
		to.Y = from.Y
	}

	plan = movement.Plan{Kind: req.Kind, From: from, To: to}

	if req.Kind == movement.MatchCut {
		pair, err := e.resolveAnchor(req.From, req.To)
		if err != nil {
			e.logger.Warn("match cut anchor unavailable, falling back to pan-tilt",
				"code", ErrCodeAnchorNotFound,
				"from", req.From,
				"to", req.To,
				"error", err,
			)
			plan.Kind = movement.PanTilt
		} else {
			plan.AnchorDX, plan.AnchorDY = pair.Delta()
		}
	}
	return plan, requested
}

func (e *Engine) resolveAnchor(from, to sections.ID) (movement.AnchorPair, error) {
	if e.anchors == nil {
		return movement.AnchorPair{}, &movement.AnchorNotFoundError{From: from, To: to}
	}
	return e.anchors.SharedAnchor(from, to)
}

// effectiveDurationLocked shrinks the nominal duration under degradation
// and collapses it to near-zero under reduced motion.
func (e *Engine) effectiveDurationLocked(kind movement.Kind) float64 {
	if e.store.GetStateSnapshot().Accessibility.ReducedMotion {
		return reducedMotionDurationMS
	}
	return kind.NominalDuration() * e.monitor.DurationScale()
}

func (e *Engine) primaryActiveLocked() bool {
	for _, mv := range e.movements {
		if mv.primary {
			return true
		}
	}
	return false
}

func (e *Engine) ensureTickingLocked() {
	if e.stopTicks != nil {
		return
	}
	e.lastTick = time.Time{}
	e.stopTicks = e.sched.Start(e.tick)
}

// tickEffects collects the listener samples and completion callbacks
// gathered under the lock during one tick. They fire only after the lock
// is released, so a callback may safely re-enter the engine (an OnComplete
// chaining the next movement is the expected use).
type tickEffects struct {
	samples     []sampleEvent
	completions []completionEvent
}

type sampleEvent struct {
	token  string
	kind   movement.Kind
	sample movement.Sample
}

type completionEvent struct {
	fn func(Completion)
	c  Completion
}

// tick advances every active movement to the given instant. Calculator
// panics and invalid positions are contained here: the movement completes
// at its last valid position rather than leaving partial state behind.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()

	if !e.lastTick.IsZero() {
		e.monitor.RecordFrameDelta(float64(now.Sub(e.lastTick)) / float64(time.Millisecond))
	}
	e.lastTick = now

	// Ticking continues while the engine is open even with no active
	// movements: idle frames still feed the FPS window, and the stop
	// function must not be invoked from the scheduler's own callback.
	var fx tickEffects
	for _, mv := range e.movements {
		e.advanceLocked(mv, now, &fx)
	}
	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, s := range fx.samples {
			listener(s.token, s.kind, s.sample)
		}
	}
	for _, done := range fx.completions {
		done.fn(done.c)
	}
}

func (e *Engine) advanceLocked(mv *activeMovement, now time.Time, fx *tickEffects) {
	progress := 1.0
	if mv.durationMS > 0 {
		progress = float64(now.Sub(mv.startTime)) / float64(time.Millisecond) / mv.durationMS
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	sample, ok := e.computeSample(mv, progress)
	if !ok {
		// Calculator failure: complete immediately at the last valid position
		sample = movement.Sample{Position: mv.lastValid}
		progress = 1
	}

	tickStart := e.clock.Now()
	constraints := e.store.Constraints()
	if err := transform.Validate(sample.Position, constraints); err != nil {
		e.logger.Debug("sample clamped", "code", ErrCodeOutOfBounds, "token", mv.token, "error", err)
	}
	committed := sample.Position
	if mv.primary {
		committed = e.store.UpdatePosition(sample.Position)
	}
	e.monitor.RecordTransformOverhead(float64(e.clock.Now().Sub(tickStart)) / float64(time.Millisecond))

	mv.lastValid = committed

	if e.listener != nil {
		out := sample
		out.Position = committed
		fx.samples = append(fx.samples, sampleEvent{token: mv.token, kind: mv.plan.Kind, sample: out})
	}

	if progress >= 1 {
		e.completeLocked(mv, fx)
	}
}

// computeSample isolates calculator panics from the tick loop.
func (e *Engine) computeSample(mv *activeMovement, progress float64) (sample movement.Sample, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("calculator panic recovered",
				"token", mv.token,
				"kind", mv.plan.Kind,
				"panic", r,
			)
			ok = false
		}
	}()
	return movement.Compute(mv.plan, progress), true
}

// completeLocked finalizes a movement: section switch, history entry,
// metrics, trace, slot release. The completion callback is deferred into
// fx rather than invoked here.
func (e *Engine) completeLocked(mv *activeMovement, fx *tickEffects) {
	if mv.primary && mv.to != "" {
		e.store.SetActiveSection(mv.to)
	}

	entry := state.Transition{
		From:     mv.from,
		To:       mv.to,
		Movement: mv.plan.Kind,
		Duration: mv.durationMS,
		Success:  true,
	}
	e.store.TrackTransition(entry)
	if e.tracer != nil {
		if err := e.tracer.Append(mv.token, entry); err != nil {
			e.logger.Warn("trace append failed", "token", mv.token, "error", err)
		}
	}

	e.removeLocked(mv, true)
	e.monitor.RecordMovementDuration(mv.durationMS)
	e.store.UpdatePerformanceMetrics(e.monitor.Snapshot())

	e.logger.Info("movement completed",
		"token", mv.token,
		"kind", mv.plan.Kind,
		"final_x", mv.lastValid.X,
		"final_y", mv.lastValid.Y,
		"final_scale", mv.lastValid.Scale,
	)

	if mv.onComplete != nil {
		fx.completions = append(fx.completions, completionEvent{
			fn: mv.onComplete,
			c: Completion{
				Token:     mv.token,
				Kind:      mv.plan.Kind,
				Requested: mv.requested,
				From:      mv.from,
				To:        mv.to,
				Final:     mv.lastValid,
				Duration:  mv.durationMS,
			},
		})
	}
}

// removeLocked releases a movement's concurrency slot. completed controls
// whether the removal counts as completion (Cancel passes false).
func (e *Engine) removeLocked(mv *activeMovement, completed bool) {
	if _, ok := e.movements[mv.token]; !ok {
		return
	}
	delete(e.movements, mv.token)
	e.monitor.OpFinished()
	if !completed {
		entry := state.Transition{
			From:     mv.from,
			To:       mv.to,
			Movement: mv.plan.Kind,
			Duration: mv.durationMS,
			Success:  false,
		}
		e.store.TrackTransition(entry)
		if e.tracer != nil {
			if err := e.tracer.Append(mv.token, entry); err != nil {
				e.logger.Warn("trace append failed", "token", mv.token, "error", err)
			}
		}
	}
}
