// Package plugins implements the peripheral effects spec.md §4.7-4.8 and
// §9 describe only by contract: dynamics, filters, time-based effects, a
// sampler, a spatializer, and the metering helper they share. Every effect
// type here implements dsp.Plugin; cmd/dspchain registers all of them
// except Sampler and Spatializer through dsp.Registry.
//
// Grounded on original_source/base/src/AzAudio/dsp/plugins/*.c (algorithm
// shape) adapted to the teacher's (thesyncim/gopus) Go idiom: struct +
// methods instead of C's void* dsp pointer and function-pointer table.
package plugins

import (
	"math"

	"github.com/nullframe/dsp"
)

const maxMeterChannels = 64

// meterRMSWindowFrames bounds how many frames' worth of weight
// rmsSquaredAvg's running average carries, so it tracks recent level
// (spec's "running window of rmsSquaredAvg") instead of drifting into an
// all-time average that stops responding once enough frames have passed.
const meterRMSWindowFrames = 4800

// Meters is the windowed RMS + peak-hold monitor shared by every plugin
// that reports metering data. Update is a no-op unless the caller's
// selected bit is set, so a hidden meter costs nothing on the hot path.
type Meters struct {
	rmsSquaredAvg  [maxMeterChannels]float32
	peaks          [maxMeterChannels]float32
	peaksShortTerm [maxMeterChannels]float32
	rmsFrames      uint32
}

// Reset zeroes every channel's accumulated state.
func (m *Meters) Reset() {
	*m = Meters{}
}

// ResetChannels zeroes the state for channels [first, first+count).
func (m *Meters) ResetChannels(first, count int) {
	for c := first; c < first+count && c < maxMeterChannels; c++ {
		m.rmsSquaredAvg[c] = 0
		m.peaks[c] = 0
		m.peaksShortTerm[c] = 0
	}
}

// RMS returns the running RMS amplitude for a channel.
func (m *Meters) RMS(channel int) float32 {
	if channel < 0 || channel >= maxMeterChannels {
		return 0
	}
	return sqrtf(m.rmsSquaredAvg[channel])
}

// Peak returns the long-term peak-hold amplitude for a channel.
func (m *Meters) Peak(channel int) float32 {
	if channel < 0 || channel >= maxMeterChannels {
		return 0
	}
	return m.peaks[channel]
}

// PeakShortTerm returns the short-term (decaying) peak-hold amplitude for
// a channel.
func (m *Meters) PeakShortTerm(channel int) float32 {
	if channel < 0 || channel >= maxMeterChannels {
		return 0
	}
	return m.peaksShortTerm[channel]
}

// selected reports whether channel c's monitoring bit is set.
func selected(bits uint64, c int) bool {
	if c < 0 || c >= 64 {
		return false
	}
	return bits&(1<<uint(c)) != 0
}

// Update folds an entire buffer's worth of samples into the running
// averages, scaled by inputAmp (so callers can meter pre-gain signal
// without a separate pass). Only channels whose bit is set in selected
// are touched.
func (m *Meters) Update(buf *dsp.Buffer, inputAmp float32, selectedBits uint64) {
	if selectedBits == 0 {
		return
	}
	n := buf.Frames
	if n == 0 {
		return
	}
	for c := 0; c < buf.Layout.Count && c < maxMeterChannels; c++ {
		if !selected(selectedBits, c) {
			continue
		}
		var sumSq float32
		var peak float32
		for i := 0; i < n; i++ {
			s := buf.At(i, c) * inputAmp
			sumSq += s * s
			if a := absf(s); a > peak {
				peak = a
			}
		}
		weight := m.rmsFrames
		if weight > meterRMSWindowFrames {
			weight = meterRMSWindowFrames
		}
		total := weight + uint32(n)
		if total == 0 {
			continue
		}
		avgSq := (m.rmsSquaredAvg[c]*float32(weight) + sumSq) / float32(total)
		m.rmsSquaredAvg[c] = avgSq
		if peak > m.peaks[c] {
			m.peaks[c] = peak
		}
		// Short-term peak decays toward the block's own peak so it tracks
		// recent activity instead of latching forever.
		if peak > m.peaksShortTerm[c] {
			m.peaksShortTerm[c] = peak
		} else {
			m.peaksShortTerm[c] *= 0.99
		}
	}
	m.rmsFrames += uint32(n)
	if m.rmsFrames > meterRMSWindowFrames {
		m.rmsFrames = meterRMSWindowFrames
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func sqrtf(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
