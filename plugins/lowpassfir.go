package plugins

import (
	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/follower"
	"github.com/nullframe/dsp/internal/kernel"
)

// LowPassFIRConfig configures a LowPassFIR.
type LowPassFIRConfig struct {
	Frequency             float32
	FrequencyFollowTimeMs float32
	// MaxKernelSamples bounds the Lanczos kernel's tap count, 2*radius+1
	// (even values round down to the next odd count). Zero picks a default.
	MaxKernelSamples int
}

const lowPassFIRDefaultKernelSamples = 27

// LowPassFIR is a brick-wall lowpass built on a Lanczos-windowed sinc
// kernel; unlike the IIR Filter it can resample src and dst at different
// rates in the same pass. It reports a LatencySpec equal to the kernel
// radius, since sampling needs that much context on both edges.
//
// Grounded on azaLowPassFIR.h/.c.
type LowPassFIR struct {
	hdr    dsp.Header
	Config LowPassFIRConfig

	MetersInput  Meters
	MetersOutput Meters

	srcFrameOffset float64
	frequency      follower.Linear
}

// NewLowPassFIR returns a LowPassFIR with the given configuration.
func NewLowPassFIR(cfg LowPassFIRConfig) *LowPassFIR {
	return &LowPassFIR{
		hdr:       dsp.Header{Name: "FIR Low Pass"},
		Config:    cfg,
		frequency: follower.NewLinear(cfg.Frequency),
	}
}

// Header returns the plugin's common header.
func (l *LowPassFIR) Header() *dsp.Header { return &l.hdr }

func (l *LowPassFIR) maxKernelRadius() int {
	samples := l.Config.MaxKernelSamples
	if samples == 0 {
		samples = lowPassFIRDefaultKernelSamples
	}
	radius := (samples - 1) / 2
	if radius < 1 {
		radius = 1
	}
	if radius > kernel.MaxLanczosRadius {
		radius = kernel.MaxLanczosRadius
	}
	return radius
}

// GetSpecs reports the kernel radius as latency and required edge
// context on both sides.
func (l *LowPassFIR) GetSpecs(sampleRate int) dsp.LatencySpec {
	r := l.maxKernelRadius()
	return dsp.LatencySpec{LatencyFrames: r, LeadingFrames: r, TrailingFrames: r}
}

func (l *LowPassFIR) reset() {
	l.MetersInput.Reset()
	l.MetersOutput.Reset()
	l.srcFrameOffset = 0
}

// ResetChannels zeroes per-channel meter state.
func (l *LowPassFIR) ResetChannels(firstNew, added int) {
	l.MetersInput.ResetChannels(firstNew, added)
	l.MetersOutput.ResetChannels(firstNew, added)
}

// Process resamples src into dst (which may run at a different sample
// rate) through a Lanczos kernel whose effective cutoff tracks
// Config.Frequency, following changes over FrequencyFollowTimeMs to
// avoid popping, and never letting the cutoff exceed either side's
// Nyquist frequency.
func (l *LowPassFIR) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		l.reset()
	}
	channels := dst.Layout.Count
	if channels > l.hdr.PrevDstChannels {
		l.ResetChannels(l.hdr.PrevDstChannels, channels-l.hdr.PrevDstChannels)
	}
	l.hdr.PrevDstChannels = channels

	if l.hdr.Selected != 0 {
		l.MetersInput.Update(src, 1, l.hdr.Selected)
	}

	maxRadius := l.maxKernelRadius()
	if src.Leading < maxRadius || src.Trailing < maxRadius {
		maxRadius = minInt(src.Leading, src.Trailing)
		if maxRadius < 1 {
			maxRadius = 1
		}
	}

	srcFrameRate := float64(src.SampleRate) / float64(dst.SampleRate)
	minNyquist := minf(float32(dst.SampleRate), float32(src.SampleRate)) * 0.5

	deltaT := float32(dst.LengthMs()) / l.Config.FrequencyFollowTimeMs
	startFreq := minf(l.frequency.UpdateTarget(l.Config.Frequency, deltaT), minNyquist)
	endFreq := minf(l.frequency.Value(), minNyquist)

	window := src.Window()
	minFrame := -src.Leading
	maxFrame := src.Frames + src.Trailing

	srcFrame := l.srcFrameOffset
	frame := make([]float32, channels)
	for i := 0; i < dst.Frames; i++ {
		t := float32(i) / float32(dst.Frames)
		freq := startFreq + (endFreq-startFreq)*t
		rate := float64(1)
		if freq > 0 {
			rate = float64(freq) / float64(minNyquist)
		}
		f := int(srcFrame)
		fraction := srcFrame - float64(f)

		kern := kernel.LanczosForRate(rate)
		kernel.SampleWithKernel(frame, kern, window, src.Stride, minFrame, maxFrame, false, f, fraction, rate)
		for ch := 0; ch < channels; ch++ {
			dst.Set(i, ch, frame[ch])
		}
		srcFrame += srcFrameRate
	}
	// Each call's src window restarts at frame 0, but the source stream is
	// contiguous across calls, so carry the position forward relative to
	// that restart instead of leaving it pinned at the block's end.
	l.srcFrameOffset = srcFrame - float64(src.Frames)

	if l.hdr.Selected != 0 {
		l.MetersOutput.Update(dst, 1, l.hdr.Selected)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
