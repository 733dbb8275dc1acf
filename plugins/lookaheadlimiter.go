package plugins

import "github.com/nullframe/dsp"

// LookaheadSamples is the size of the lookahead limiter's internal
// circular peak/delay buffer: 128 samples is 2.7ms at 48kHz.
const LookaheadSamples = 128

// LookaheadLimiterConfig configures a LookaheadLimiter.
type LookaheadLimiterConfig struct {
	GainInputDB  float32
	GainOutputDB float32
}

// LookaheadLimiter is a constant-latency true-peak limiter: it previews
// up to LookaheadSamples of future peaks (via its own internal delay, not
// the chain's edge-context mechanism) and ramps gain reduction ahead of
// them instead of clipping.
//
// Grounded on azaLookaheadLimiter.c.
type LookaheadLimiter struct {
	hdr    dsp.Header
	Config LookaheadLimiterConfig

	MetersInput  Meters
	MetersOutput Meters

	minAmp      float32
	minAmpShort float32

	peakBuffer [LookaheadSamples]float32
	index      int
	cooldown   int
	sum        float32
	slope      float32

	channelData [][LookaheadSamples]float32
}

// NewLookaheadLimiter returns a LookaheadLimiter at unity gain.
func NewLookaheadLimiter() *LookaheadLimiter {
	l := &LookaheadLimiter{hdr: dsp.Header{Name: "Lookahead Limiter"}}
	l.reset()
	return l
}

// Header returns the plugin's common header.
func (l *LookaheadLimiter) Header() *dsp.Header { return &l.hdr }

// GetSpecs reports the limiter's fixed lookahead latency; it needs no
// chain-provided edge context since it manages its own internal delay.
func (l *LookaheadLimiter) GetSpecs(sampleRate int) dsp.LatencySpec {
	return dsp.LatencySpec{LatencyFrames: LookaheadSamples}
}

func (l *LookaheadLimiter) reset() {
	l.MetersInput.Reset()
	l.MetersOutput.Reset()
	l.minAmp = 1
	l.minAmpShort = 1
	for i := range l.peakBuffer {
		l.peakBuffer[i] = 0
	}
	l.index = 0
	l.cooldown = 0
	l.sum = 1
	l.slope = 0
	for c := range l.channelData {
		l.channelData[c] = [LookaheadSamples]float32{}
	}
}

// ResetChannels zeroes per-channel delay state for newly added channels.
func (l *LookaheadLimiter) ResetChannels(firstNew, added int) {
	l.MetersInput.ResetChannels(firstNew, added)
	l.MetersOutput.ResetChannels(firstNew, added)
	for c := firstNew; c < firstNew+added && c < len(l.channelData); c++ {
		l.channelData[c] = [LookaheadSamples]float32{}
	}
}

func (l *LookaheadLimiter) ensureChannels(n int) {
	for len(l.channelData) < n {
		l.channelData = append(l.channelData, [LookaheadSamples]float32{})
	}
}

// Process implements the limiter's per-frame algorithm: compute the
// cross-channel peak, fold it into a ring of future peaks, derive the
// steepest gain-reduction slope that satisfies every peak within the
// lookahead window (or a gentle 5L-sample recovery slope when none
// demand attenuation), then apply the resulting gain envelope to the
// internally delayed signal.
func (l *LookaheadLimiter) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		l.reset()
	}
	channels := dst.Layout.Count
	l.ensureChannels(channels)

	if channels > l.hdr.PrevDstChannels {
		l.ResetChannels(l.hdr.PrevDstChannels, channels-l.hdr.PrevDstChannels)
	}
	l.hdr.PrevDstChannels = channels

	amountInput := dbToAmp(l.Config.GainInputDB)
	amountOutput := dbToAmp(l.Config.GainOutputDB)
	if l.hdr.Selected != 0 {
		l.MetersInput.Update(src, amountInput, l.hdr.Selected)
	}

	gain := make([]float32, dst.Frames)
	index := l.index
	for i := 0; i < dst.Frames; i++ {
		var crossPeak float32
		for c := 0; c < channels; c++ {
			crossPeak = maxf(crossPeak, absf(src.At(i, c)))
		}
		peak := maxf(crossPeak*amountInput, 1.0)
		l.peakBuffer[index] = peak
		index = (index + 1) % LookaheadSamples

		slope := (1/peak - l.sum) / LookaheadSamples
		switch {
		case slope < l.slope:
			l.slope = slope
			l.cooldown = LookaheadSamples
		case l.cooldown == 0 && l.sum < 1:
			l.slope = (1 - l.sum) / (LookaheadSamples * 5)
			for j := 0; j < LookaheadSamples; j++ {
				peak2 := l.peakBuffer[(index+j)%LookaheadSamples]
				slope2 := (1/peak2 - l.sum) / float32(j+1)
				if slope2 < l.slope {
					l.slope = slope2
					l.cooldown = j + 1
				}
			}
		case l.cooldown > 0:
			l.cooldown--
		}

		l.sum += l.slope
		l.minAmpShort = minf(l.minAmpShort, l.sum)
		if l.sum > 1 {
			l.slope = 0
			l.sum = 1
		}
		gain[i] = l.sum
	}
	l.minAmp = minf(l.minAmp, l.minAmpShort)

	for c := 0; c < channels; c++ {
		ch := &l.channelData[c]
		idx := l.index
		for i := 0; i < dst.Frames; i++ {
			ch[idx] = src.At(i, c)
			idx = (idx + 1) % LookaheadSamples
			out := clampf(ch[idx]*gain[i]*amountInput, -1, 1)
			dst.Set(i, c, out*amountOutput)
		}
	}
	l.index = index

	if l.hdr.Selected != 0 {
		l.MetersOutput.Update(dst, 1, l.hdr.Selected)
	}
	return nil
}
