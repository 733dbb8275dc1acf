package plugins

import (
	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/follower"
	"github.com/nullframe/dsp/internal/kernel"
)

// DelayDynamicChannelConfig sets the target delay time of one channel; a
// channel without an entry targets 0 ms.
type DelayDynamicChannelConfig struct {
	DelayMs float32
}

// DelayDynamicConfig configures a DelayDynamic.
type DelayDynamicConfig struct {
	GainWetDB float32
	GainDryDB float32
	MuteWet   bool
	MuteDry   bool

	// DelayMaxMs bounds how far any channel's delay time may reach; it
	// sizes the internal ring buffer.
	DelayMaxMs float32
	// DelayFollowTimeMs is how long it takes a delay-time change to fully
	// ramp in, so that changing it mid-stream pitch-bends instead of
	// popping.
	DelayFollowTimeMs float32
	Feedback          float32 // 0..1
	Pingpong          float32 // 0..1

	// InputEffects, if non-nil, processes the wet signal (including
	// feedback) before it's written into the delay ring, so the effect
	// only colors what comes back out of the delay, not the dry path.
	InputEffects *dsp.Chain

	Channels []DelayDynamicChannelConfig
}

type delayDynamicChannel struct {
	ring             []float32
	writePos         int
	delay            follower.Linear
	prevDelaySamples float32
}

// DelayDynamic is a delay line whose time can change continuously while
// running: reading it through a resampling kernel instead of an integer
// ring index turns a changing delay time into a pitch bend instead of a
// pop, matching a tape-style delay. It reports a LatencySpec equal to
// the kernel radius, since the kernel needs that much context around
// its own fractional read position, but no chain-provided edge context
// (its ring holds all the history it samples from).
//
// Grounded on azaDelayDynamic.h (no azaDelayDynamic.c was present in the
// retrieved sources; the per-sample kernel-fed ring and rate-from-delta
// scheme below follow the header's documented ratePrevious/follower
// fields and azaLowPassFIR.c's analogous frequency-follow structure).
type DelayDynamic struct {
	hdr    dsp.Header
	Config DelayDynamicConfig

	MetersInput  Meters
	MetersOutput Meters

	channels []delayDynamicChannel
}

// NewDelayDynamic returns a DelayDynamic with the given configuration.
func NewDelayDynamic(cfg DelayDynamicConfig) *DelayDynamic {
	return &DelayDynamic{hdr: dsp.Header{Name: "Dynamic Delay"}, Config: cfg}
}

// Header returns the plugin's common header.
func (d *DelayDynamic) Header() *dsp.Header { return &d.hdr }

func (d *DelayDynamic) kernelRadius() int {
	return kernel.LanczosForRate(1).Length / 2
}

// GetSpecs reports the kernel's radius as fixed latency.
func (d *DelayDynamic) GetSpecs(sampleRate int) dsp.LatencySpec {
	return dsp.LatencySpec{LatencyFrames: d.kernelRadius()}
}

func (d *DelayDynamic) channelDelayMs(c int) float32 {
	if c < len(d.Config.Channels) {
		return d.Config.Channels[c].DelayMs
	}
	return 0
}

func (d *DelayDynamic) reset() {
	d.MetersInput.Reset()
	d.MetersOutput.Reset()
	for i := range d.channels {
		d.resetChannel(i)
	}
}

func (d *DelayDynamic) resetChannel(c int) {
	ch := &d.channels[c]
	for i := range ch.ring {
		ch.ring[i] = 0
	}
	ch.writePos = 0
	ch.prevDelaySamples = 0
	ch.delay.Jump(d.channelDelayMs(c))
}

// ResetChannels zeroes the given channel range's ring and follower state.
func (d *DelayDynamic) ResetChannels(firstNew, added int) {
	d.MetersInput.ResetChannels(firstNew, added)
	d.MetersOutput.ResetChannels(firstNew, added)
	for c := firstNew; c < firstNew+added && c < len(d.channels); c++ {
		d.resetChannel(c)
	}
}

func (d *DelayDynamic) ensure(channels, sampleRate int) {
	radius := d.kernelRadius()
	want := msToSamples(d.Config.DelayMaxMs, sampleRate) + 2*radius + 2
	if want < 8 {
		want = 8
	}
	for len(d.channels) < channels {
		d.channels = append(d.channels, delayDynamicChannel{delay: follower.NewLinear(0)})
	}
	for c := 0; c < channels; c++ {
		ch := &d.channels[c]
		if want > len(ch.ring) {
			grown := make([]float32, want)
			copy(grown, ch.ring)
			ch.ring = grown
		}
	}
}

// Process reads each channel's ring through a Lanczos kernel at a
// continuously-following fractional delay position (read before this
// frame's feedback-laden input is written into the ring), so history
// and feedback remain consistent with a simple static Delay while the
// delay time itself may glide smoothly between targets.
func (d *DelayDynamic) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		d.reset()
	}
	channels := dst.Layout.Count
	d.ensure(channels, dst.SampleRate)
	if channels > d.hdr.PrevDstChannels {
		d.ResetChannels(d.hdr.PrevDstChannels, channels-d.hdr.PrevDstChannels)
	}
	d.hdr.PrevDstChannels = channels

	if d.hdr.Selected != 0 {
		d.MetersInput.Update(src, 1, d.hdr.Selected)
	}

	followFrames := msToSamples(d.Config.DelayFollowTimeMs, dst.SampleRate)
	if followFrames < 1 {
		followFrames = 1
	}
	deltaT := float32(1) / float32(followFrames)

	kern := kernel.LanczosForRate(1)
	out := make([]float32, dst.Frames*channels)
	wet := make([]float32, dst.Frames*channels)
	one := make([]float32, 1)

	for c := 0; c < channels; c++ {
		ch := &d.channels[c]
		ringCap := len(ch.ring)
		index := ch.writePos
		c2 := (c + 1) % channels
		target := d.channelDelayMs(c)
		for i := 0; i < dst.Frames; i++ {
			delayMs := ch.delay.UpdateTarget(target, deltaT)
			sampleRate := float32(dst.SampleRate)
			delaySamples := delayMs * sampleRate / 1000
			readPos := float64(index) - float64(delaySamples)
			f := int(floorf64(readPos))
			frac := readPos - float64(f)

			rate := 1 - (delaySamples - ch.prevDelaySamples)
			ch.prevDelaySamples = delaySamples
			rate = clampf(rate, 0.05, 1)

			kernel.SampleWithKernel(one, kern, ch.ring, 1, 0, ringCap, true, f, frac, float64(rate))
			out[i*channels+c] = one[0]

			toAdd := src.At(i, c) + one[0]*d.Config.Feedback
			wet[i*channels+c] += toAdd * (1 - d.Config.Pingpong)
			wet[i*channels+c2] += toAdd * d.Config.Pingpong

			index = (index + 1) % ringCap
		}
	}

	if d.Config.InputEffects != nil {
		wetBuf, err := dsp.NewOwnedBuffer(dst.Frames, 0, 0, dst.Layout, dst.SampleRate)
		if err != nil {
			return err
		}
		for i := 0; i < dst.Frames; i++ {
			for c := 0; c < channels; c++ {
				wetBuf.Set(i, c, wet[i*channels+c])
			}
		}
		if err := d.Config.InputEffects.Process(wetBuf, wetBuf, flags, nil); err != nil {
			return err
		}
		for i := 0; i < dst.Frames; i++ {
			for c := 0; c < channels; c++ {
				wet[i*channels+c] = wetBuf.At(i, c)
			}
		}
	}

	amountWet := float32(0)
	if !d.Config.MuteWet {
		amountWet = dbToAmp(d.Config.GainWetDB)
	}
	amountDry := float32(0)
	if !d.Config.MuteDry {
		amountDry = dbToAmp(d.Config.GainDryDB)
	}

	for c := 0; c < channels; c++ {
		ch := &d.channels[c]
		ringCap := len(ch.ring)
		index := ch.writePos
		for i := 0; i < dst.Frames; i++ {
			ch.ring[index] = wet[i*channels+c]
			index = (index + 1) % ringCap
			dst.Set(i, c, out[i*channels+c]*amountWet+src.At(i, c)*amountDry)
		}
		ch.writePos = index
	}

	if d.hdr.Selected != 0 {
		d.MetersOutput.Update(dst, 1, d.hdr.Selected)
	}
	return nil
}

func floorf64(x float64) float64 {
	i := int64(x)
	if x < 0 && float64(i) != x {
		i--
	}
	return float64(i)
}
