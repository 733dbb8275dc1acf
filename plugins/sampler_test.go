package plugins

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/follower"
)

func TestSamplerProcessWithNoBufferIsSilent(t *testing.T) {
	s := NewSampler(SamplerConfig{})
	s.Play(1, 0)
	frames := 16
	src, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	dst, err := dsp.NewOwnedBuffer(frames, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)

	require.NoError(t, s.Process(dst, src, 0))
	for i := 0; i < frames; i++ {
		assert.Equal(t, float32(0), dst.At(i, 0))
	}
}

func TestSamplerPlayReturnsDistinctIDsUntilCapacity(t *testing.T) {
	s := NewSampler(SamplerConfig{})
	seen := map[uuid.UUID]bool{}
	for i := 0; i < SamplerMaxInstances; i++ {
		id := s.Play(1, 0)
		require.NotEqual(t, uuid.UUID{}, id)
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, uuid.UUID{}, s.Play(1, 0), "a sampler at max capacity must refuse new voices")
}

func TestSamplerStopTriggersReleaseStage(t *testing.T) {
	s := NewSampler(SamplerConfig{Envelope: follower.ADSRConfig{AttackMs: 1, DecayMs: 1, SustainDB: -6, ReleaseMs: 1}})
	id := s.Play(1, 0)
	s.Stop(id)
	inst := s.find(id)
	require.NotNil(t, inst)
	assert.True(t, inst.released)
}

func TestSamplerProcessRemovesVoiceAfterReleaseCompletes(t *testing.T) {
	buf, err := dsp.NewOwnedBuffer(1000, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	s := NewSampler(SamplerConfig{
		Buffer:                 buf,
		SpeedTransitionTimeMs:  1,
		VolumeTransitionTimeMs: 1,
		Envelope:               follower.ADSRConfig{AttackMs: 1, DecayMs: 1, SustainDB: -6, ReleaseMs: 1},
	})
	id := s.Play(1, 0)
	s.Stop(id)

	dst, err := dsp.NewOwnedBuffer(512, 0, 0, dsp.MonoLayout(), 48000)
	require.NoError(t, err)
	require.NoError(t, s.Process(dst, buf, 0))

	assert.Nil(t, s.find(id), "a fully released voice must be dropped from the active instance list")
}

func TestSamplerResetClearsAllInstances(t *testing.T) {
	s := NewSampler(SamplerConfig{})
	s.Play(1, 0)
	s.Play(1, 0)
	s.reset()
	assert.Empty(t, s.instances)
}
