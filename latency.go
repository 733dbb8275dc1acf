package dsp

// LatencySpec describes the frame-neighbourhood a stage needs to operate
// correctly, and the algorithmic delay it introduces.
//
//   - LatencyFrames is the delay the stage introduces in its output
//     relative to its input; reported upstream so a host can advertise
//     end-to-end latency.
//   - LeadingFrames/TrailingFrames are the edge context (in frames) the
//     stage wants the chain to provide on either side of the body it is
//     asked to transform.
type LatencySpec struct {
	LatencyFrames  int
	LeadingFrames  int
	TrailingFrames int
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SerialCombine composes the spec of a downstream stage (dst) that
// follows an upstream stage (src) in a chain. The upstream stage's trailing
// requirement becomes additional algorithmic delay, because the chain
// must defer publishing frames until enough trailing context has been
// observed; leading/trailing take the max across both stages so a single
// shared edge region is large enough for the wider of the two.
func SerialCombine(dst, src LatencySpec) LatencySpec {
	return LatencySpec{
		LatencyFrames:  dst.LatencyFrames + src.LatencyFrames + src.TrailingFrames,
		LeadingFrames:  max(dst.LeadingFrames, src.LeadingFrames),
		TrailingFrames: max(dst.TrailingFrames, src.TrailingFrames),
	}
}

// ParallelCombine composes the specs of two stages that run side by side
// on the same input (e.g. a wet/dry split): every field is the max of
// the two, since whichever stage needs more is the binding constraint.
func ParallelCombine(a, b LatencySpec) LatencySpec {
	return LatencySpec{
		LatencyFrames:  max(a.LatencyFrames, b.LatencyFrames),
		LeadingFrames:  max(a.LeadingFrames, b.LeadingFrames),
		TrailingFrames: max(a.TrailingFrames, b.TrailingFrames),
	}
}
