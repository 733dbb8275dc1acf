package dsp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gainStage is a minimal stub Plugin that multiplies every sample by a
// constant, used to exercise Chain without depending on the plugins
// package.
type gainStage struct {
	hdr  Header
	gain float32
}

func (g *gainStage) Header() *Header { return &g.hdr }

func (g *gainStage) Process(dst, src *Buffer, flags Flags) error {
	for i := 0; i < dst.Frames; i++ {
		for c := 0; c < dst.Layout.Count; c++ {
			dst.Set(i, c, src.At(i, c)*g.gain)
		}
	}
	return nil
}

// specStage reports a fixed LatencySpec and records the Leading/Trailing
// of every view it's handed, to verify the chain actually satisfies its
// declared edge-context requirement.
type specStage struct {
	hdr            Header
	spec           LatencySpec
	sawLeading     int
	sawTrailing    int
	leadSample     float32
	resetChannels  []int
	resetCallCount int
}

func (s *specStage) Header() *Header                  { return &s.hdr }
func (s *specStage) GetSpecs(int) LatencySpec          { return s.spec }
func (s *specStage) ResetChannels(firstNew, added int) { s.resetChannels = []int{firstNew, added}; s.resetCallCount++ }

func (s *specStage) Process(dst, src *Buffer, flags Flags) error {
	s.sawLeading = src.Leading
	s.sawTrailing = src.Trailing
	if src.Leading > 0 {
		s.leadSample = src.At(-src.Leading, 0)
	}
	for i := 0; i < dst.Frames; i++ {
		for c := 0; c < dst.Layout.Count; c++ {
			dst.Set(i, c, src.At(i, c))
		}
	}
	return nil
}

// failingStage always errors, to exercise Chain's persistent-error path.
type failingStage struct {
	hdr Header
}

func (f *failingStage) Header() *Header { return &f.hdr }
func (f *failingStage) Process(dst, src *Buffer, flags Flags) error {
	return errors.New("boom")
}

func newTestBuffer(t *testing.T, frames int, fill func(i, c int) float32) *Buffer {
	t.Helper()
	buf, err := NewOwnedBuffer(frames, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		for c := 0; c < 2; c++ {
			buf.Set(i, c, fill(i, c))
		}
	}
	return buf
}

func TestChainProcessAppliesStagesInOrder(t *testing.T) {
	chain := NewChain()
	chain.Append(&gainStage{gain: 2})
	chain.Append(&gainStage{gain: 3})

	src := newTestBuffer(t, 4, func(i, c int) float32 { return float32(i + 1) })
	dst, err := NewOwnedBuffer(4, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, chain.Process(dst, src, 0, nil))
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(i+1)*6, dst.At(i, 0))
	}
}

func TestChainGetSpecsSerialCombinesStages(t *testing.T) {
	chain := NewChain()
	a := &specStage{spec: LatencySpec{LatencyFrames: 2, LeadingFrames: 1, TrailingFrames: 3}}
	b := &specStage{spec: LatencySpec{LatencyFrames: 5, LeadingFrames: 4, TrailingFrames: 0}}
	chain.Append(a)
	chain.Append(b)

	got := chain.GetSpecs(48000)
	want := SerialCombine(b.spec, a.spec)
	assert.Equal(t, want, got)
}

// TestChainGetSpecsOverThreeStagesMatchesSumFormula guards against
// folding SerialCombine pairwise across 3+ stages, which would subtract
// a running max trailing instead of the last stage's own trailing and
// overcount the chain's reported latency.
func TestChainGetSpecsOverThreeStagesMatchesSumFormula(t *testing.T) {
	const r = 7
	chain := NewChain()
	chain.Append(&specStage{spec: LatencySpec{LatencyFrames: r, LeadingFrames: r, TrailingFrames: r}})
	chain.Append(&specStage{spec: LatencySpec{}})
	chain.Append(&specStage{spec: LatencySpec{}})

	got := chain.GetSpecs(48000)
	assert.Equal(t, 2*r, got.LatencyFrames, "latency must be Σ(lat+trail) - last.trail, not the pairwise-folded max")
}

func TestChainProvidesDeclaredEdgeContext(t *testing.T) {
	chain := NewChain()
	stage := &specStage{spec: LatencySpec{LeadingFrames: 2, TrailingFrames: 3}}
	chain.Append(stage)

	src := newTestBuffer(t, 8, func(i, c int) float32 { return 0 })
	dst, err := NewOwnedBuffer(8, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, chain.Process(dst, src, 0, nil))
	assert.GreaterOrEqual(t, stage.sawLeading, 2)
	assert.GreaterOrEqual(t, stage.sawTrailing, 3)
}

func TestChainCutFlagClearsPersistedHistory(t *testing.T) {
	chain := NewChain()
	stage := &specStage{spec: LatencySpec{LeadingFrames: 2, TrailingFrames: 2}}
	chain.Append(stage)

	// Prime the history ring with non-zero data.
	src := newTestBuffer(t, 4, func(i, c int) float32 { return 99 })
	dst, err := NewOwnedBuffer(4, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)
	require.NoError(t, chain.Process(dst, src, 0, nil))

	st := chain.steps[0]
	hist := chain.history(st)
	require.NotEmpty(t, hist)
	assert.NotZero(t, hist[0], "history should be primed with the previous block's data")

	src2 := newTestBuffer(t, 4, func(i, c int) float32 { return 1 })
	require.NoError(t, chain.Process(dst, src2, Cut, nil))
	assert.Zero(t, stage.leadSample, "Cut must zero the persisted edge history the stage sees, even though the previous block left it non-zero")
}

func TestChainBypassSkipsStage(t *testing.T) {
	chain := NewChain()
	stage := &gainStage{gain: 10}
	stage.hdr.Bypass = true
	chain.Append(stage)

	src := newTestBuffer(t, 2, func(i, c int) float32 { return 5 })
	dst, err := NewOwnedBuffer(2, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, chain.Process(dst, src, 0, nil))
	assert.Equal(t, float32(5), dst.At(0, 0), "a bypassed stage must leave the signal untouched")
}

func TestChainErroredStageIsSkippedAndReported(t *testing.T) {
	chain := NewChain()
	chain.Append(&failingStage{})

	src := newTestBuffer(t, 2, func(i, c int) float32 { return 1 })
	dst, err := NewOwnedBuffer(2, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)

	var reported []error
	require.NoError(t, chain.Process(dst, src, 0, func(index int, p Plugin, err error) {
		reported = append(reported, err)
	}))
	require.Len(t, reported, 1)
	assert.EqualError(t, reported[0], "boom")

	// A second call must report the persisted error again without calling
	// Process on the stage a second time (the header stays errored).
	reported = nil
	require.NoError(t, chain.Process(dst, src, 0, func(index int, p Plugin, err error) {
		reported = append(reported, err)
	}))
	require.Len(t, reported, 1)
}

func TestChainRejectsMismatchedChannelsOrFrames(t *testing.T) {
	chain := NewChain()
	chain.Append(&gainStage{gain: 1})

	src := newTestBuffer(t, 4, func(i, c int) float32 { return 0 })
	monoDst, err := NewOwnedBuffer(4, 0, 0, MonoLayout(), 48000)
	require.NoError(t, err)
	assert.ErrorIs(t, chain.Process(monoDst, src, 0, nil), ErrInvalidChannelCount)

	shortDst, err := NewOwnedBuffer(2, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)
	assert.ErrorIs(t, chain.Process(shortDst, src, 0, nil), ErrInvalidFrameCount)
}

func TestChainResetChannelsCalledOnGrowth(t *testing.T) {
	chain := NewChain()
	stage := &specStage{}
	chain.Append(stage)

	monoSrc := newTestMonoBuffer(t, 2)
	monoDst, err := NewOwnedBuffer(2, 0, 0, MonoLayout(), 48000)
	require.NoError(t, err)
	require.NoError(t, chain.Process(monoDst, monoSrc, 0, nil))

	stereoSrc := newTestBuffer(t, 2, func(i, c int) float32 { return 0 })
	stereoDst, err := NewOwnedBuffer(2, 0, 0, StereoLayout(), 48000)
	require.NoError(t, err)
	require.NoError(t, chain.Process(stereoDst, stereoSrc, 0, nil))

	require.Equal(t, 1, stage.resetCallCount)
	assert.Equal(t, []int{1, 1}, stage.resetChannels)
}

func newTestMonoBuffer(t *testing.T, frames int) *Buffer {
	t.Helper()
	buf, err := NewOwnedBuffer(frames, 0, 0, MonoLayout(), 48000)
	require.NoError(t, err)
	return buf
}
