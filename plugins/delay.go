package plugins

import "github.com/nullframe/dsp"

// DelayChannelConfig lets one channel add extra delay time on top of the
// shared DelayConfig.DelayMs.
type DelayChannelConfig struct {
	DelayMs float32
}

// DelayConfig configures a Delay.
type DelayConfig struct {
	GainWetDB float32
	GainDryDB float32
	MuteWet   bool
	MuteDry   bool

	DelayMs  float32
	Feedback float32 // 0..1 multiple of output fed back into input
	Pingpong float32 // 0..1 amount of one channel's signal added to the next

	Channels []DelayChannelConfig
}

type delayChannel struct {
	buffer      []float32
	delaySamples int
	index        int
}

// Delay is a static (per-block-constant) delay line with feedback and
// optional channel-to-channel ping-pong. It keeps its own internal ring
// buffer rather than relying on the chain's edge-context mechanism,
// because the ring must capture a snapshot of the signal as it existed
// when written, not whatever the chain's shared edge region holds by the
// time this stage runs later in the chain. It reports no LatencySpec:
// from the chain's perspective it introduces no additional latency or
// edge-context requirement, matching azaDelay's statically-declared
// fp_getSpecs = NULL.
//
// Grounded on azaDelay.c.
type Delay struct {
	hdr    dsp.Header
	Config DelayConfig

	MetersInput  Meters
	MetersOutput Meters

	channels []delayChannel
}

// NewDelay returns a Delay with the given configuration.
func NewDelay(cfg DelayConfig) *Delay {
	return &Delay{hdr: dsp.Header{Name: "Delay"}, Config: cfg}
}

// Header returns the plugin's common header.
func (d *Delay) Header() *dsp.Header { return &d.hdr }

func (d *Delay) channelDelayMs(c int) float32 {
	extra := float32(0)
	if c < len(d.Config.Channels) {
		extra = d.Config.Channels[c].DelayMs
	}
	return d.Config.DelayMs + extra
}

func (d *Delay) reset() {
	d.MetersInput.Reset()
	d.MetersOutput.Reset()
	for i := range d.channels {
		for j := range d.channels[i].buffer {
			d.channels[i].buffer[j] = 0
		}
		d.channels[i].index = 0
	}
}

// ResetChannels zeroes the given channel range's delay buffers.
func (d *Delay) ResetChannels(firstNew, added int) {
	d.MetersInput.ResetChannels(firstNew, added)
	d.MetersOutput.ResetChannels(firstNew, added)
	for c := firstNew; c < firstNew+added && c < len(d.channels); c++ {
		for j := range d.channels[c].buffer {
			d.channels[c].buffer[j] = 0
		}
		d.channels[c].index = 0
	}
}

func (d *Delay) ensure(channels, sampleRate int) {
	for len(d.channels) < channels {
		d.channels = append(d.channels, delayChannel{})
	}
	for c := 0; c < channels; c++ {
		want := msToSamples(d.channelDelayMs(c), sampleRate)
		if want < 1 {
			want = 1
		}
		ch := &d.channels[c]
		if want > len(ch.buffer) {
			grown := make([]float32, want)
			copy(grown, ch.buffer)
			ch.buffer = grown
		}
		ch.delaySamples = want
		if ch.index >= ch.delaySamples {
			ch.index = 0
		}
	}
}

// Process reads each channel's ring at the current index (the sample
// written exactly DelaySamples frames ago) before overwriting that slot
// with the new feedback-laden input, so a value written this frame
// surfaces again in exactly DelaySamples frames, not DelaySamples-1.
func (d *Delay) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
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

	wet := make([]float32, dst.Frames*channels)
	for c := 0; c < channels; c++ {
		ch := &d.channels[c]
		index := ch.index
		c2 := (c + 1) % channels
		for i := 0; i < dst.Frames; i++ {
			toAdd := src.At(i, c) + ch.buffer[index]*d.Config.Feedback
			wet[i*channels+c] += toAdd * (1 - d.Config.Pingpong)
			wet[i*channels+c2] += toAdd * d.Config.Pingpong
			index = (index + 1) % ch.delaySamples
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
		index := ch.index
		for i := 0; i < dst.Frames; i++ {
			delayed := ch.buffer[index]
			ch.buffer[index] = wet[i*channels+c]
			index = (index + 1) % ch.delaySamples
			dst.Set(i, c, delayed*amountWet+src.At(i, c)*amountDry)
		}
		ch.index = index
	}

	if d.hdr.Selected != 0 {
		d.MetersOutput.Update(dst, 1, d.hdr.Selected)
	}
	return nil
}
