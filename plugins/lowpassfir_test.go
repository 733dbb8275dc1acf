package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/kernel"
)

func TestLowPassFIRGetSpecsReportsKernelRadiusOnBothEdges(t *testing.T) {
	f := NewLowPassFIR(LowPassFIRConfig{Frequency: 8000, FrequencyFollowTimeMs: 10, MaxKernelSamples: 17})
	spec := f.GetSpecs(48000)
	assert.Equal(t, 8, spec.LatencyFrames)
	assert.Equal(t, 8, spec.LeadingFrames)
	assert.Equal(t, 8, spec.TrailingFrames)
}

func TestLowPassFIRMaxKernelRadiusClampsToLanczosBound(t *testing.T) {
	f := NewLowPassFIR(LowPassFIRConfig{MaxKernelSamples: 10000})
	assert.LessOrEqual(t, f.maxKernelRadius(), kernel.MaxLanczosRadius)
}

func TestLowPassFIRDefaultKernelSizeIsUsedWhenZero(t *testing.T) {
	f := NewLowPassFIR(LowPassFIRConfig{})
	assert.Greater(t, f.maxKernelRadius(), 0)
}

func TestLowPassFIRPassesConstantSignalThroughApproximately(t *testing.T) {
	radius := 4
	f := NewLowPassFIR(LowPassFIRConfig{Frequency: 20000, FrequencyFollowTimeMs: 1, MaxKernelSamples: 2*radius + 1})

	sampleRate := 48000
	frames := 64
	src, err := dsp.NewOwnedBuffer(frames, radius, radius, dsp.MonoLayout(), sampleRate)
	require.NoError(t, err)
	for i := -radius; i < frames+radius; i++ {
		src.Set(i, 0, 1)
	}
	dst, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), sampleRate)
	require.NoError(t, err)

	require.NoError(t, f.Process(dst, src, 0))
	for i := 0; i < frames; i++ {
		assert.InDelta(t, 1, dst.At(i, 0), 0.2, "a near-Nyquist cutoff on a constant signal should pass it through close to unchanged")
	}
}
