// Package optimize implements the subroutine optimizer, spec §4.4.3:
// an optional pre-pass to the layout planner that flattens existing
// subroutine calls, then greedily mines repeated event slices with a
// suffix automaton and re-extracts them as a fresh set of
// subroutines. Grounded on
// original_source/src/nspc/NspcOptimize.cpp/.hpp (the suffix-automaton
// search, scoring, and rejection rules) and
// original_source/src/nspc/NspcData.cpp's flattenSubroutines (the
// inlining pre-pass); tools/forge/encode/pattern_dedup.go's
// signature-to-canonical-index map is the teacher's own precedent for
// the "collapse structurally-identical slices via a string key" idiom,
// reused here for token-stream segment framing.
package optimize

// Options tunes the optimizer's search. The zero value is not ready to
// use as is; effective() (called internally by OptimizeSong) fills in
// the defaults for MaxIterations, TopCandidates and MaxCandidateBytes
// when they are zero. DefaultOptions returns the full default set.
type Options struct {
	// MaxIterations bounds how many times the optimizer rebuilds the
	// suffix automaton and applies one candidate. Each iteration
	// extracts at most one subroutine.
	MaxIterations int

	// TopCandidates caps how many suffix-automaton states are kept
	// (by estimated savings) before the expensive real-plan
	// computation runs against them.
	TopCandidates int

	// MaxCandidateBytes rejects candidate bodies whose encoded size
	// exceeds this, trading search depth for speed.
	MaxCandidateBytes int

	// SingleIterationCallPenaltyBytes is a runtime-cost proxy charged
	// against a candidate's savings for every call that only repeats
	// once; single-iteration calls are the cheapest for a pattern to
	// trigger but the most expensive per byte saved for the sound CPU
	// to dispatch.
	SingleIterationCallPenaltyBytes int

	// AllowSingleIterationCalls disables single-iteration call chunks
	// entirely when false: a run must repeat at least twice to be
	// extracted.
	AllowSingleIterationCalls bool
}

// DefaultOptions returns NspcOptimizerOptions' documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:                   128,
		TopCandidates:                   2048,
		MaxCandidateBytes:               2048,
		SingleIterationCallPenaltyBytes: 4,
		AllowSingleIterationCalls:       true,
	}
}

// callBytes is the encoded size of one subroutine-call vcmd: opcode +
// u16 address + u8 count, per VcmdParamByteCount(VcmdIDSubroutineCall).
const callBytes = 4

// subTerminatorBytes is the encoded size of a subroutine's trailing End.
const subTerminatorBytes = 1

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// effective clamps a caller-supplied Options to the same ranges
// NspcOptimize.cpp's makeEffectiveOptions enforces, treating a zero
// MaxIterations, TopCandidates or MaxCandidateBytes as "use the
// default". SingleIterationCallPenaltyBytes and
// AllowSingleIterationCalls are used as given, so in a zero Options the
// penalty is 0 and single-iteration calls are off.
func (o Options) effective() Options {
	d := DefaultOptions()
	if o.MaxIterations == 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.TopCandidates == 0 {
		o.TopCandidates = d.TopCandidates
	}
	if o.MaxCandidateBytes == 0 {
		o.MaxCandidateBytes = d.MaxCandidateBytes
	}
	o.MaxIterations = clamp(o.MaxIterations, 1, 4096)
	o.TopCandidates = clamp(o.TopCandidates, 1, 16384)
	o.MaxCandidateBytes = clamp(o.MaxCandidateBytes, 8, 32768)
	o.SingleIterationCallPenaltyBytes = clamp(o.SingleIterationCallPenaltyBytes, 0, 256)
	return o
}
