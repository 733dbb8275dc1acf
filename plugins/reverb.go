package plugins

import "github.com/nullframe/dsp"

// ReverbDelayCount is the number of parallel delay+filter lines that
// make up the reverb tail.
const ReverbDelayCount = 30

// ReverbConfig configures a Reverb.
type ReverbConfig struct {
	GainWetDB float32
	GainDryDB float32
	MuteWet   bool
	MuteDry   bool

	// RoomSize affects reverb feedback; roughly 1 to 100 for reasonable
	// results.
	RoomSize float32
	// Color affects damping of high frequencies; roughly 1 to 5, higher
	// is brighter.
	Color float32
	// DelayMs is the pre-delay before first reflections, in ms.
	DelayMs float32
}

// reverbSpread gives each of the ReverbDelayCount lines a distinct delay
// multiplier so they decorrelate instead of all echoing in lockstep.
// Generated from the fractional part of n times the golden ratio, a
// standard low-discrepancy spread that needs no random seed to reproduce.
var reverbSpread = func() [ReverbDelayCount]float32 {
	var out [ReverbDelayCount]float32
	const golden = 0.6180339887498949
	for i := range out {
		frac := float32(float64(i+1)*golden - float64(int(float64(i+1)*golden)))
		out[i] = 0.5 + frac // in [0.5, 1.5)
	}
	return out
}()

// Reverb is a parallel bank of feedback delay lines, each damped by a
// low-pass filter, fed from a single shared pre-delay. It's the same
// "unified buffer for delays" shape the header describes wanting, built
// instead from composed Delay/Filter plugin instances.
//
// Grounded on azaReverb.h (no azaReverb.c was present in the retrieved
// sources; the header's own comment that "this implementation is really
// bad" signals it never stabilized into one canonical translation unit,
// so the delay-bank topology below follows only the struct layout:
// one pre-delay plus ReverbDelayCount parallel (delay, filter) pairs).
type Reverb struct {
	hdr    dsp.Header
	Config ReverbConfig

	MetersInput  Meters
	MetersOutput Meters

	inputDelay *Delay
	delays     [ReverbDelayCount]*Delay
	filters    [ReverbDelayCount]*Filter
}

// NewReverb returns a Reverb with the given configuration.
func NewReverb(cfg ReverbConfig) *Reverb {
	r := &Reverb{hdr: dsp.Header{Name: "Reverb"}, Config: cfg}
	r.inputDelay = NewDelay(DelayConfig{MuteDry: true, DelayMs: cfg.DelayMs})
	for i := range r.delays {
		r.delays[i] = NewDelay(DelayConfig{})
		r.filters[i] = NewFilter(FilterConfig{Kind: FilterLowPass, Poles: 0, FrequencyFollowTimeMs: 1})
	}
	r.configure()
	return r
}

func (r *Reverb) configure() {
	base := 20 + r.Config.RoomSize*3 // ms
	feedback := clampf(r.Config.RoomSize/100, 0, 0.98)
	color := r.Config.Color
	if color <= 0 {
		color = 1
	}
	cutoff := clampf(2000*color, 200, 18000)

	r.inputDelay.Config.DelayMs = r.Config.DelayMs

	for i := range r.delays {
		d := r.delays[i]
		d.Config.DelayMs = base * reverbSpread[i]
		d.Config.Feedback = feedback
		d.Config.GainWetDB = 0
		d.Config.MuteDry = true

		f := r.filters[i]
		f.Config.Frequency = cutoff
	}
}

// Header returns the plugin's common header.
func (r *Reverb) Header() *dsp.Header { return &r.hdr }

// GetSpecs composes the pre-delay's spec in series with the parallel
// combination of every line's (delay, filter) spec. Every child in this
// topology currently reports a zero LatencySpec (Delay and Filter both
// manage their own internal state rather than requesting chain-provided
// edge context), so this evaluates to zero today — but it is computed
// from the actual children, not hardcoded, so it stays correct if that
// ever changes.
func (r *Reverb) GetSpecs(sampleRate int) dsp.LatencySpec {
	var lines dsp.LatencySpec
	for i := range r.delays {
		line := dsp.SerialCombine(specOf(r.filters[i], sampleRate), specOf(r.delays[i], sampleRate))
		lines = dsp.ParallelCombine(lines, line)
	}
	return dsp.SerialCombine(lines, specOf(r.inputDelay, sampleRate))
}

func specOf(p dsp.Plugin, sampleRate int) dsp.LatencySpec {
	if sp, ok := p.(dsp.SpecProvider); ok {
		return sp.GetSpecs(sampleRate)
	}
	return dsp.LatencySpec{}
}

func (r *Reverb) reset() {
	r.MetersInput.Reset()
	r.MetersOutput.Reset()
}

// ResetChannels resets the pre-delay, every line, and meter state for
// the given channel range.
func (r *Reverb) ResetChannels(firstNew, added int) {
	r.MetersInput.ResetChannels(firstNew, added)
	r.MetersOutput.ResetChannels(firstNew, added)
	r.inputDelay.ResetChannels(firstNew, added)
	for i := range r.delays {
		r.delays[i].ResetChannels(firstNew, added)
		r.filters[i].ResetChannels(firstNew, added)
	}
}

// Process runs the shared pre-delay, feeds it through every parallel
// (delay, filter) line, sums and averages the lines, and mixes the
// result with the dry signal.
func (r *Reverb) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		r.reset()
		r.inputDelay.reset()
		for i := range r.delays {
			r.delays[i].reset()
			r.filters[i].reset()
		}
	}
	channels := dst.Layout.Count
	if channels > r.hdr.PrevDstChannels {
		r.ResetChannels(r.hdr.PrevDstChannels, channels-r.hdr.PrevDstChannels)
	}
	r.hdr.PrevDstChannels = channels
	r.configure()

	if r.hdr.Selected != 0 {
		r.MetersInput.Update(src, 1, r.hdr.Selected)
	}

	predelayed, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, src.Layout, src.SampleRate)
	if err != nil {
		return err
	}
	if err := r.inputDelay.Process(predelayed, src, flags); err != nil {
		return err
	}

	sum, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, src.Layout, src.SampleRate)
	if err != nil {
		return err
	}
	lineOut, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, src.Layout, src.SampleRate)
	if err != nil {
		return err
	}
	filtered, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, src.Layout, src.SampleRate)
	if err != nil {
		return err
	}

	for i := range r.delays {
		if err := r.delays[i].Process(lineOut, predelayed, flags); err != nil {
			return err
		}
		if err := r.filters[i].Process(filtered, lineOut, flags); err != nil {
			return err
		}
		for f := 0; f < dst.Frames; f++ {
			for c := 0; c < channels; c++ {
				sum.Set(f, c, sum.At(f, c)+filtered.At(f, c))
			}
		}
		// Feed the damped output back in as next call's pre-delay input
		// for this line, so the filter's damping applies every bounce.
		copy(predelayed.Body(), filtered.Body())
	}

	amountWet := float32(0)
	if !r.Config.MuteWet {
		amountWet = dbToAmp(r.Config.GainWetDB) / ReverbDelayCount
	}
	amountDry := float32(0)
	if !r.Config.MuteDry {
		amountDry = dbToAmp(r.Config.GainDryDB)
	}
	for f := 0; f < dst.Frames; f++ {
		for c := 0; c < channels; c++ {
			dst.Set(f, c, sum.At(f, c)*amountWet+src.At(f, c)*amountDry)
		}
	}

	if r.hdr.Selected != 0 {
		r.MetersOutput.Update(dst, 1, r.hdr.Selected)
	}
	return nil
}
