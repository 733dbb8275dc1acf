package plugins

import (
	"math"

	"github.com/nullframe/dsp"
)

// CompressorConfig configures a Compressor.
type CompressorConfig struct {
	GainInputDB  float32
	GainOutputDB float32
	ThresholdDB  float32
	Ratio        float32 // >1 compresses above threshold; <0 is treated as a fixed overgain factor
	AttackMs     float32
	DecayMs      float32
}

// Compressor is a feed-forward dynamics processor: it derives a detector
// signal from a 128-sample RMS window of the (gain-compensated) input,
// smooths it with asymmetric attack/decay exponential factors, and
// applies a dB-domain gain reduction above ThresholdDB.
//
// Grounded on azaCompressor.c.
type Compressor struct {
	hdr    dsp.Header
	Config CompressorConfig

	MetersInput  Meters
	MetersOutput Meters

	rms          *runningRMS
	attenuation  float32
	minGain      float32
	minGainShort float32
}

// NewCompressor returns a Compressor with the given configuration.
func NewCompressor(cfg CompressorConfig) *Compressor {
	return &Compressor{
		hdr:    dsp.Header{Name: "Compressor"},
		Config: cfg,
		rms:    newRunningRMS(128),
	}
}

// Header returns the plugin's common header.
func (c *Compressor) Header() *dsp.Header { return &c.hdr }

func (c *Compressor) reset() {
	c.MetersInput.Reset()
	c.MetersOutput.Reset()
	c.rms.reset()
}

// ResetChannels zeroes per-channel RMS and meter state.
func (c *Compressor) ResetChannels(firstNew, added int) {
	c.MetersInput.ResetChannels(firstNew, added)
	c.MetersOutput.ResetChannels(firstNew, added)
	for i := firstNew; i < firstNew+added && i < len(c.rms.channels); i++ {
		c.rms.resetChannel(i)
	}
}

// Process computes the detector envelope, derives per-frame gain
// reduction above ThresholdDB scaled by 1-1/Ratio, and applies it.
func (c *Compressor) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		c.reset()
	}
	channels := dst.Layout.Count
	if channels > c.hdr.PrevDstChannels {
		c.ResetChannels(c.hdr.PrevDstChannels, channels-c.hdr.PrevDstChannels)
	}
	c.hdr.PrevDstChannels = channels

	amountInput := dbToAmp(c.Config.GainInputDB)
	if c.hdr.Selected != 0 {
		c.MetersInput.Update(src, amountInput, c.hdr.Selected)
	}

	level := make([]float32, dst.Frames)
	c.rms.Process(level, src)

	t := float32(dst.SampleRate) / 1000
	attackFactor := expf(-1 / (c.Config.AttackMs * t))
	decayFactor := expf(-1 / (c.Config.DecayMs * t))

	var overgain float32
	switch {
	case c.Config.Ratio > 1:
		overgain = 1 - 1/c.Config.Ratio
	case c.Config.Ratio < 0:
		overgain = -c.Config.Ratio
	default:
		overgain = 0
	}

	c.minGainShort = 0
	totalGain := c.Config.GainOutputDB + c.Config.GainInputDB
	for i := 0; i < dst.Frames; i++ {
		rms := ampToDB(level[i]) + c.Config.GainInputDB
		if rms < -120 {
			rms = -120
		}
		if rms > c.attenuation {
			c.attenuation = rms + attackFactor*(c.attenuation-rms)
		} else {
			c.attenuation = rms + decayFactor*(c.attenuation-rms)
		}
		var gain float32
		if c.attenuation > c.Config.ThresholdDB {
			gain = overgain * (c.Config.ThresholdDB - c.attenuation)
		}
		c.minGainShort = minf(c.minGainShort, gain)
		amp := dbToAmp(gain + totalGain)
		for ch := 0; ch < channels; ch++ {
			dst.Set(i, ch, src.At(i, ch)*amp)
		}
	}
	c.minGain = minf(c.minGain, c.minGainShort)

	if c.hdr.Selected != 0 {
		c.MetersOutput.Update(dst, 1, c.hdr.Selected)
	}
	return nil
}

func expf(x float32) float32 {
	return float32(math.Exp(float64(x)))
}
