package kernel

import "math"

// SampleWithKernel convolves kernel against src to produce one output
// frame across len(dst) interleaved channels. src is the window of
// frames [minFrame, maxFrame); frames outside that window are treated as
// zero, or wrapped modulo the window if wrap is true. rate stretches the
// kernel: at rate==1 the packed layout is used and exactly Length taps
// are summed; at rate<1 the kernel is widened (taps spaced by rate in
// kernel space, roughly Length/rate of them) and the result is scaled to
// preserve unity gain. rate>1 is clamped to 1.
func SampleWithKernel(dst []float32, k *Kernel, src []float32, srcStride, minFrame, maxFrame int, wrap bool, frame int, fraction float64, rate float64) {
	for i := range dst {
		dst[i] = 0
	}
	if rate > 1 {
		rate = 1
	}
	if rate <= 0 {
		rate = 1
	}
	span := maxFrame - minFrame
	if span <= 0 {
		return
	}
	channels := len(dst)

	if rate == 1 {
		sub := int(math.Round(fraction * float64(k.Scale)))
		if sub < 0 {
			sub = 0
		}
		if sub > k.Scale {
			sub = k.Scale
		}
		// Tap frame+m takes the kernel value at m-fraction; for sub>0 that
		// is packed row Scale-sub, whose column n sits one frame further on.
		row, shift := k.packedRow(0), 0
		if sub > 0 {
			row, shift = k.packedRow(k.Scale-sub), 1
		}
		for n := 0; n < k.Length; n++ {
			coeff := row[n]
			if coeff == 0 {
				continue
			}
			samplePos := frame - k.SampleZero + n + shift
			accumulateTap(dst, src, srcStride, minFrame, span, wrap, samplePos, coeff, channels)
		}
		return
	}

	taps := int(math.Ceil(float64(k.Length) / rate))
	center := float64(taps) / 2
	gain := float32(rate)
	for n := 0; n < taps; n++ {
		kernelOffset := (float64(n-int(center)) - fraction) * rate
		tablePos := float64(k.SampleZero) + kernelOffset
		coeff := k.Sample(tablePos) * gain
		if coeff == 0 {
			continue
		}
		samplePos := frame + n - int(center)
		accumulateTap(dst, src, srcStride, minFrame, span, wrap, samplePos, coeff, channels)
	}
}

func accumulateTap(dst, src []float32, srcStride, minFrame, span int, wrap bool, samplePos int, coeff float32, channels int) {
	idx := samplePos - minFrame
	if wrap {
		idx = ((idx % span) + span) % span
	} else if idx < 0 || idx >= span {
		return
	}
	base := idx * srcStride
	for ch := 0; ch < channels; ch++ {
		dst[ch] += coeff * src[base+ch]
	}
}

// rateFor picks the kernel stretch rate for a given resample factor
// (srcRate/dstRate): upsampling (factor<1) needs no stretch, downsampling
// (factor>1) widens the kernel by 1/factor to avoid aliasing.
func rateFor(factor float64) float64 {
	if factor > 1 {
		return 1 / factor
	}
	return 1
}

// Resample fills dst (dstFrames frames, dstStride elements per frame,
// channels == len of one frame) by resampling src at the given factor
// (factor = srcRate/dstRate), starting at srcSampleOffset. For
// destination frame i, srcPos = srcSampleOffset + i*factor is decomposed
// into an integer frame and fraction and handed to SampleWithKernel. This
// is the streaming primitive used to splice consecutive blocks without a
// phase discontinuity: callers pass the new block's fractional position
// as the next call's srcSampleOffset.
func Resample(k *Kernel, factor float64, dst []float32, dstStride, dstFrames, channels int, src []float32, srcStride, minFrame, maxFrame int, srcSampleOffset float64) {
	rate := rateFor(factor)
	frame := make([]float32, channels)
	for i := 0; i < dstFrames; i++ {
		srcPos := srcSampleOffset + float64(i)*factor
		f := int(math.Floor(srcPos))
		frac := srcPos - float64(f)
		SampleWithKernel(frame, k, src, srcStride, minFrame, maxFrame, false, f, frac, rate)
		copy(dst[i*dstStride:i*dstStride+channels], frame)
	}
}

// ResampleAdd behaves like Resample but accumulates amp*sample into dst
// instead of overwriting it.
func ResampleAdd(k *Kernel, factor float64, dst []float32, dstStride, dstFrames, channels int, src []float32, srcStride, minFrame, maxFrame int, srcSampleOffset float64, amp float32) {
	rate := rateFor(factor)
	frame := make([]float32, channels)
	for i := 0; i < dstFrames; i++ {
		srcPos := srcSampleOffset + float64(i)*factor
		f := int(math.Floor(srcPos))
		frac := srcPos - float64(f)
		SampleWithKernel(frame, k, src, srcStride, minFrame, maxFrame, false, f, frac, rate)
		out := dst[i*dstStride : i*dstStride+channels]
		for ch := 0; ch < channels; ch++ {
			out[ch] += amp * frame[ch]
		}
	}
}
