package plugins

import "math"

// dbToAmp converts a decibel value to a linear amplitude multiplier.
func dbToAmp(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// ampToDB converts a linear amplitude multiplier to decibels. Zero or
// negative amplitudes map to a large negative floor instead of -Inf, so
// callers can clamp without special-casing.
func ampToDB(amp float32) float32 {
	if amp <= 0 {
		return -120
	}
	return float32(20 * math.Log10(float64(amp)))
}

// msToSamples converts a duration in milliseconds to a frame count at the
// given sample rate.
func msToSamples(ms float32, sampleRate int) int {
	return int(ms * float32(sampleRate) / 1000)
}
