package plugins

import (
	"math"

	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/follower"
)

// MaxFilterPoles bounds the cascade depth of a Filter stage.
const MaxFilterPoles = 16

// FilterKind selects a Filter's response shape.
type FilterKind int

const (
	FilterHighPass FilterKind = iota
	FilterLowPass
	FilterBandPass
)

// FilterConfig configures a Filter.
type FilterConfig struct {
	Kind FilterKind
	// Poles is pole count minus one: 0 means a single one-pole (6dB/oct)
	// stage, 1 means two cascaded stages (12dB/oct), and so on, up to
	// MaxFilterPoles-1.
	Poles int
	// Frequency is the cutoff in Hz.
	Frequency float32
	// DryMix blends in the unprocessed signal: 1 is fully dry, 0 fully wet.
	DryMix   float32
	GainWetDB float32
	// FrequencyFollowTimeMs is how long a change to Frequency (or a
	// channel override) takes to fade in, avoiding zipper noise.
	FrequencyFollowTimeMs float32
	// ChannelFrequencyOverride lets individual channels cut at a
	// different frequency than Frequency. A zero entry (or an index
	// past the end) means "use Frequency".
	ChannelFrequencyOverride []float32
}

type filterChannelData struct {
	frequency follower.Linear
	lowpass   [MaxFilterPoles]float32
	highpass  [MaxFilterPoles]float32
}

// Filter is a cascaded one-pole IIR filter (high-pass, low-pass, or
// band-pass, the latter formed by running the high-pass cascade's output
// back through the low-pass cascade) with per-channel cutoff overrides
// and click-free frequency following. As an IIR filter it affects phase
// in a way that depends on frequency, so it reports no LatencySpec (zero
// latency), matching the header's static fp_getSpecs = NULL.
//
// Grounded on azaFilter.h's documented config/channel-data layout (no
// azaFilter.c was present in the retrieved sources; the one-pole cascade
// below is the standard realization of that layout).
type Filter struct {
	hdr    dsp.Header
	Config FilterConfig

	MetersInput  Meters
	MetersOutput Meters

	frequency follower.Linear
	channels  []filterChannelData
}

// NewFilter returns a Filter with the given configuration.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{
		hdr:       dsp.Header{Name: "Filter"},
		Config:    cfg,
		frequency: follower.NewLinear(cfg.Frequency),
	}
}

// Header returns the plugin's common header.
func (f *Filter) Header() *dsp.Header { return &f.hdr }

func (f *Filter) reset() {
	f.MetersInput.Reset()
	f.MetersOutput.Reset()
	for i := range f.channels {
		f.resetChannel(i)
	}
}

func (f *Filter) resetChannel(c int) {
	ch := &f.channels[c]
	ch.lowpass = [MaxFilterPoles]float32{}
	ch.highpass = [MaxFilterPoles]float32{}
}

// ResetChannels zeroes per-channel filter state for newly added channels.
func (f *Filter) ResetChannels(firstNew, added int) {
	f.MetersInput.ResetChannels(firstNew, added)
	f.MetersOutput.ResetChannels(firstNew, added)
	for c := firstNew; c < firstNew+added && c < len(f.channels); c++ {
		f.resetChannel(c)
	}
}

func (f *Filter) ensureChannels(n int) {
	for len(f.channels) < n {
		f.channels = append(f.channels, filterChannelData{
			frequency: follower.NewLinear(f.Config.Frequency),
		})
	}
}

func (f *Filter) channelTarget(c int) float32 {
	if c < len(f.Config.ChannelFrequencyOverride) && f.Config.ChannelFrequencyOverride[c] != 0 {
		return f.Config.ChannelFrequencyOverride[c]
	}
	return f.Config.Frequency
}

func onePoleAlpha(freq float32, sampleRate int) float32 {
	if freq <= 0 || sampleRate <= 0 {
		return 0
	}
	a := float32(1 - math.Exp(-2*math.Pi*float64(freq)/float64(sampleRate)))
	return clampf(a, 0, 1)
}

func cascadeLowPass(state *[MaxFilterPoles]float32, poles int, alpha, x float32) float32 {
	for p := 0; p <= poles; p++ {
		state[p] += alpha * (x - state[p])
		x = state[p]
	}
	return x
}

func cascadeHighPass(state *[MaxFilterPoles]float32, poles int, alpha, x float32) float32 {
	for p := 0; p <= poles; p++ {
		state[p] += alpha * (x - state[p])
		x = x - state[p]
	}
	return x
}

// Process runs each channel's one-pole cascade, following per-channel
// frequency targets, and blends the result with DryMix.
func (f *Filter) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		f.reset()
	}
	channels := dst.Layout.Count
	f.ensureChannels(channels)
	if channels > f.hdr.PrevDstChannels {
		f.ResetChannels(f.hdr.PrevDstChannels, channels-f.hdr.PrevDstChannels)
	}
	f.hdr.PrevDstChannels = channels

	if f.hdr.Selected != 0 {
		f.MetersInput.Update(src, 1, f.hdr.Selected)
	}

	poles := f.Config.Poles
	if poles < 0 {
		poles = 0
	}
	if poles >= MaxFilterPoles {
		poles = MaxFilterPoles - 1
	}

	followFrames := msToSamples(f.Config.FrequencyFollowTimeMs, dst.SampleRate)
	if followFrames < 1 {
		followFrames = 1
	}
	deltaT := float32(1) / float32(followFrames)

	amountWet := dbToAmp(f.Config.GainWetDB)
	dry := clampf(f.Config.DryMix, 0, 1)
	wet := 1 - dry

	for c := 0; c < channels; c++ {
		ch := &f.channels[c]
		target := f.channelTarget(c)
		ch.frequency.SetTarget(target)
		for i := 0; i < dst.Frames; i++ {
			freq := ch.frequency.Update(deltaT)
			alpha := onePoleAlpha(freq, dst.SampleRate)
			x := src.At(i, c)

			var y float32
			switch f.Config.Kind {
			case FilterLowPass:
				y = cascadeLowPass(&ch.lowpass, poles, alpha, x)
			case FilterHighPass:
				y = cascadeHighPass(&ch.highpass, poles, alpha, x)
			case FilterBandPass:
				hp := cascadeHighPass(&ch.highpass, poles, alpha, x)
				y = cascadeLowPass(&ch.lowpass, poles, alpha, hp)
			}
			dst.Set(i, c, x*dry+y*amountWet*wet)
		}
	}

	if f.hdr.Selected != 0 {
		f.MetersOutput.Update(dst, 1, f.hdr.Selected)
	}
	return nil
}
