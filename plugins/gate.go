package plugins

import (
	"github.com/nullframe/dsp"
)

// GateConfig configures a Gate.
type GateConfig struct {
	ThresholdDB  float32
	Ratio        float32 // retained for API symmetry with Compressor; the gate's closing slope is a fixed -10dB/dB below threshold
	AttackMs     float32
	DecayMs      float32
	GainInputDB  float32
	GainOutputDB float32

	// ActivationEffects, if non-nil, processes a scratch copy of the
	// input before it reaches the gate's detector, letting the gate key
	// off a filtered or otherwise shaped version of the signal without
	// affecting what actually passes through.
	ActivationEffects *dsp.Chain
}

// Gate is a downward expander: below ThresholdDB it attenuates at a
// fixed -10dB/dB slope; at or above threshold it passes the signal at
// unity gain. Ratio is accepted for configuration symmetry with
// Compressor but unused in the closing slope, matching azaGate.c.
//
// Grounded on azaGate.c.
type Gate struct {
	hdr    dsp.Header
	Config GateConfig

	MetersInput  Meters
	MetersOutput Meters

	rms         *runningRMS
	attenuation float32
	gain        float32
}

// NewGate returns a Gate with the given configuration.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		hdr:    dsp.Header{Name: "Gate"},
		Config: cfg,
		rms:    newRunningRMS(128),
	}
}

// Header returns the plugin's common header.
func (g *Gate) Header() *dsp.Header { return &g.hdr }

func (g *Gate) reset() {
	g.MetersInput.Reset()
	g.MetersOutput.Reset()
	g.rms.reset()
}

// ResetChannels zeroes per-channel RMS and meter state.
func (g *Gate) ResetChannels(firstNew, added int) {
	g.MetersInput.ResetChannels(firstNew, added)
	g.MetersOutput.ResetChannels(firstNew, added)
	for i := firstNew; i < firstNew+added && i < len(g.rms.channels); i++ {
		g.rms.resetChannel(i)
	}
}

// Process keys a detector RMS envelope (optionally pre-shaped by
// ActivationEffects) against ThresholdDB and applies the resulting gain
// to the unmodified input.
func (g *Gate) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		g.reset()
	}
	channels := dst.Layout.Count
	if channels > g.hdr.PrevDstChannels {
		g.ResetChannels(g.hdr.PrevDstChannels, channels-g.hdr.PrevDstChannels)
	}
	g.hdr.PrevDstChannels = channels

	amountInput := dbToAmp(g.Config.GainInputDB)
	if g.hdr.Selected != 0 {
		g.MetersInput.Update(src, amountInput, g.hdr.Selected)
	}

	activation := src
	if g.Config.ActivationEffects != nil {
		buf, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, src.Layout, src.SampleRate)
		if err != nil {
			return err
		}
		for i := 0; i < src.Frames; i++ {
			for ch := 0; ch < src.Layout.Count; ch++ {
				buf.Set(i, ch, src.At(i, ch))
			}
		}
		if err := g.Config.ActivationEffects.Process(buf, buf, flags, nil); err != nil {
			return err
		}
		activation = buf
	}

	level := make([]float32, dst.Frames)
	g.rms.Process(level, activation)

	t := float32(dst.SampleRate) / 1000
	attackFactor := expf(-1 / (g.Config.AttackMs * t))
	decayFactor := expf(-1 / (g.Config.DecayMs * t))

	for i := 0; i < dst.Frames; i++ {
		rms := ampToDB(level[i])
		if rms < -120 {
			rms = -120
		}
		if rms > g.Config.ThresholdDB {
			g.attenuation = rms + attackFactor*(g.attenuation-rms)
		} else {
			g.attenuation = rms + decayFactor*(g.attenuation-rms)
		}
		var gain float32
		if g.attenuation > g.Config.ThresholdDB {
			gain = 0
		} else {
			gain = -10 * (g.Config.ThresholdDB - g.attenuation)
		}
		g.gain = gain
		amp := dbToAmp(gain)
		for ch := 0; ch < channels; ch++ {
			dst.Set(i, ch, src.At(i, ch)*amp)
		}
	}

	if g.hdr.Selected != 0 {
		g.MetersOutput.Update(dst, 1, g.hdr.Selected)
	}
	return nil
}
