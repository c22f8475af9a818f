package harness

import (
	"github.com/roach88/viewfinder/internal/trace"
)

// evaluateAssertions checks the scenario's final assertions against the
// trace and final state, recording every failure (does not fail-fast).
func evaluateAssertions(assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertTraceContains:
			if !traceContains(result.Trace, a) {
				result.failf("assertions[%d]: trace does not contain movement=%q from=%q to=%q",
					i, a.Movement, a.From, a.To)
			}
		case AssertTraceOrder:
			if !traceOrdered(result.Trace, a.Movements) {
				result.failf("assertions[%d]: trace order %v not satisfied", i, a.Movements)
			}
		case AssertTraceCount:
			got := traceCount(result.Trace, a.Movement)
			if got != a.Count {
				result.failf("assertions[%d]: movement %q appears %d times, want %d",
					i, a.Movement, got, a.Count)
			}
		case AssertFinalState:
			evaluateFinalState(i, a, result)
		}
	}
}

// traceContains reports whether any record matches every non-empty filter.
func traceContains(records []trace.Record, a Assertion) bool {
	for _, rec := range records {
		if a.Movement != "" && rec.Movement != a.Movement {
			continue
		}
		if a.From != "" && rec.From != a.From {
			continue
		}
		if a.To != "" && rec.To != a.To {
			continue
		}
		return true
	}
	return false
}

// traceOrdered reports whether the movements appear in the trace in the
// given relative order (not necessarily adjacent).
func traceOrdered(records []trace.Record, movements []string) bool {
	next := 0
	for _, rec := range records {
		if next < len(movements) && rec.Movement == movements[next] {
			next++
		}
	}
	return next == len(movements)
}

func traceCount(records []trace.Record, kind string) int {
	n := 0
	for _, rec := range records {
		if rec.Movement == kind {
			n++
		}
	}
	return n
}

func evaluateFinalState(i int, a Assertion, result *Result) {
	snap := result.FinalState
	if a.Section != "" && string(snap.ActiveSection) != a.Section {
		result.failf("assertions[%d]: final section %q, want %q", i, snap.ActiveSection, a.Section)
	}
	check := func(name string, got float64, want *float64) {
		if want != nil && !closeEnough(got, *want) {
			result.failf("assertions[%d]: final %s = %v, want %v", i, name, got, *want)
		}
	}
	check("x", snap.Position.X, a.X)
	check("y", snap.Position.Y, a.Y)
	check("scale", snap.Position.Scale, a.Scale)
}
