package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullframe/dsp"
)

func TestGatePassesLoudSignalAboveThresholdAtUnity(t *testing.T) {
	g := NewGate(GateConfig{ThresholdDB: -40, AttackMs: 1, DecayMs: 50})
	frames := 4096
	src, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		src.Set(i, 0, 1)
	}
	dst, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, g.Process(dst, src, 0))
	assert.InDelta(t, 1, dst.At(frames-1, 0), 1e-2, "a signal well above threshold should settle at unity gain")
}

func TestGateAttenuatesSilenceBelowThreshold(t *testing.T) {
	g := NewGate(GateConfig{ThresholdDB: -20, AttackMs: 1, DecayMs: 10})
	frames := 4096
	src, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	dst, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, g.Process(dst, src, 0))
	assert.Less(t, g.gain, float32(-20), "silence held long enough must close the gate well past its floor")
}

func TestGateActivationEffectsShapeDetectorNotOutput(t *testing.T) {
	inner := dsp.NewChain()
	inner.Append(&gainZeroerStub{})
	g := NewGate(GateConfig{ThresholdDB: -20, AttackMs: 1, DecayMs: 10, ActivationEffects: inner})

	frames := 256
	src, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		src.Set(i, 0, 1)
	}
	dst, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, g.Process(dst, src, 0))
	// The activation chain silences what the detector sees, so even a
	// loud input should read as below threshold and get gated down, while
	// the actual signal passed to dst remains the unmodified input before
	// gain is applied.
	assert.Less(t, dst.At(frames-1, 0), float32(1))
}

// gainZeroerStub is a minimal dsp.Plugin that zeroes everything it sees,
// used to verify Gate.ActivationEffects only reshapes the detector path.
type gainZeroerStub struct {
	hdr dsp.Header
}

func (g *gainZeroerStub) Header() *dsp.Header { return &g.hdr }
func (g *gainZeroerStub) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	for i := 0; i < dst.Frames; i++ {
		for c := 0; c < dst.Layout.Count; c++ {
			dst.Set(i, c, 0)
		}
	}
	return nil
}
