package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSerialCombineAddsTrailingAsLatency(t *testing.T) {
	upstream := LatencySpec{LatencyFrames: 10, LeadingFrames: 2, TrailingFrames: 4}
	downstream := LatencySpec{LatencyFrames: 5, LeadingFrames: 8, TrailingFrames: 1}

	got := SerialCombine(downstream, upstream)
	assert.Equal(t, LatencySpec{
		LatencyFrames:  5 + 10 + 4,
		LeadingFrames:  8,
		TrailingFrames: 4,
	}, got)
}

func TestParallelCombineTakesMaxOfEachField(t *testing.T) {
	a := LatencySpec{LatencyFrames: 3, LeadingFrames: 9, TrailingFrames: 1}
	b := LatencySpec{LatencyFrames: 7, LeadingFrames: 2, TrailingFrames: 6}

	got := ParallelCombine(a, b)
	assert.Equal(t, LatencySpec{LatencyFrames: 7, LeadingFrames: 9, TrailingFrames: 6}, got)
}

func TestParallelCombineIsCommutativeAndIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		specGen := rapid.Custom(func(t *rapid.T) LatencySpec {
			return LatencySpec{
				LatencyFrames:  rapid.IntRange(0, 1000).Draw(t, "latency"),
				LeadingFrames:  rapid.IntRange(0, 1000).Draw(t, "leading"),
				TrailingFrames: rapid.IntRange(0, 1000).Draw(t, "trailing"),
			}
		})
		a := specGen.Draw(t, "a")
		b := specGen.Draw(t, "b")

		assert.Equal(t, ParallelCombine(a, b), ParallelCombine(b, a))
		assert.Equal(t, a, ParallelCombine(a, a))
	})
}
