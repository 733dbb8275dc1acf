package plugins

import "github.com/nullframe/dsp"

// cubicLimiterGainCompensationDB cancels the implicit gain caused by the
// cubic transfer function's slope at zero being 1.5.
const cubicLimiterGainCompensationDB = -3.5218251811136247

// CubicLimiterConfig configures a CubicLimiter.
type CubicLimiterConfig struct {
	GainInputDB  float32
	GainOutputDB float32
}

// CubicLimiter is a zero-latency soft clipper: 1.5x - 0.5x^3, hard
// clamped to [-1,1] before the cubic is applied. It reports no
// LatencySpec (zero leading/trailing/latency).
//
// Grounded on azaCubicLimiter.c.
type CubicLimiter struct {
	hdr    dsp.Header
	Config CubicLimiterConfig

	MetersInput  Meters
	MetersOutput Meters
}

// NewCubicLimiter returns a CubicLimiter at unity gain.
func NewCubicLimiter() *CubicLimiter {
	return &CubicLimiter{hdr: dsp.Header{Name: "Cubic Limiter"}}
}

// Header returns the plugin's common header.
func (c *CubicLimiter) Header() *dsp.Header { return &c.hdr }

func cubicLimiterSample(x float32) float32 {
	x = clampf(x, -1, 1)
	return 1.5*x - 0.5*x*x*x
}

func (c *CubicLimiter) reset() {
	c.MetersInput.Reset()
	c.MetersOutput.Reset()
}

// ResetChannels zeroes per-channel meter state for newly added channels.
func (c *CubicLimiter) ResetChannels(firstNew, added int) {
	c.MetersInput.ResetChannels(firstNew, added)
	c.MetersOutput.ResetChannels(firstNew, added)
}

// Process applies the cubic soft-clip transfer function to every sample.
func (c *CubicLimiter) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		c.reset()
	}

	amountInput := dbToAmp(c.Config.GainInputDB + cubicLimiterGainCompensationDB)
	amountOutput := dbToAmp(c.Config.GainOutputDB)

	if c.hdr.Selected != 0 {
		c.MetersInput.Update(src, amountInput, c.hdr.Selected)
	}

	for i := 0; i < dst.Frames; i++ {
		for ch := 0; ch < dst.Layout.Count; ch++ {
			v := amountOutput * cubicLimiterSample(amountInput*src.At(i, ch))
			dst.Set(i, ch, v)
		}
	}

	if c.hdr.Selected != 0 {
		c.MetersOutput.Update(dst, 1, c.hdr.Selected)
	}
	return nil
}
