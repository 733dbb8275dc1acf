package plugins

import "github.com/nullframe/dsp"

// runningRMS maintains a sliding-window RMS amplitude per channel, then
// combines all channels into a single value per frame via max — the
// shape the compressor and gate both want for their detector signal.
//
// Grounded on azaRMS.h / the RMS usage in azaCompressor.c and azaGate.c
// (windowSamples=128, combineOp=max).
type runningRMS struct {
	windowSamples int
	channels      []rmsChannel
}

type rmsChannel struct {
	ring        []float32
	index       int
	squaredSum  float32
}

func newRunningRMS(windowSamples int) *runningRMS {
	if windowSamples < 1 {
		windowSamples = 1
	}
	return &runningRMS{windowSamples: windowSamples}
}

func (r *runningRMS) reset() {
	for i := range r.channels {
		r.resetChannel(i)
	}
}

func (r *runningRMS) resetChannel(c int) {
	ch := &r.channels[c]
	for i := range ch.ring {
		ch.ring[i] = 0
	}
	ch.index = 0
	ch.squaredSum = 0
}

func (r *runningRMS) ensure(channels int) {
	for len(r.channels) < channels {
		r.channels = append(r.channels, rmsChannel{ring: make([]float32, r.windowSamples)})
	}
}

// Process writes, for each frame of src, the cross-channel max RMS
// amplitude (of the window ending at that frame) into out.
func (r *runningRMS) Process(out []float32, src *dsp.Buffer) {
	channels := src.Layout.Count
	r.ensure(channels)
	for i := 0; i < src.Frames; i++ {
		var maxRMS float32
		for c := 0; c < channels; c++ {
			ch := &r.channels[c]
			sample := src.At(i, c)
			old := ch.ring[ch.index]
			ch.ring[ch.index] = sample * sample
			ch.squaredSum += ch.ring[ch.index] - old
			ch.index = (ch.index + 1) % r.windowSamples
			meanSq := ch.squaredSum / float32(r.windowSamples)
			if meanSq < 0 {
				meanSq = 0
			}
			maxRMS = maxf(maxRMS, sqrtf(meanSq))
		}
		out[i] = maxRMS
	}
}
