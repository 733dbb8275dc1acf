package kernel

import (
	"math"
	"sync"
)

// MaxLanczosRadius bounds the cached Lanczos table radius. Larger radii
// give sharper stopbands at the cost of more taps per sample.
const MaxLanczosRadius = 8

// LanczosResolution is the number of sub-sample phases per whole sample
// in the cached Lanczos tables.
const LanczosResolution = 32

var (
	lanczosMu    sync.Mutex
	lanczosCache = make(map[int]*Kernel, MaxLanczosRadius)
)

// Lanczos returns the cached Lanczos-windowed sinc kernel of the given
// radius (length 2*radius+1), building it on first use. radius is
// clamped to [1, MaxLanczosRadius].
func Lanczos(radius int) *Kernel {
	radius = clampRadius(radius)

	lanczosMu.Lock()
	defer lanczosMu.Unlock()
	if k, ok := lanczosCache[radius]; ok {
		return k
	}
	k := buildLanczos(radius, LanczosResolution)
	lanczosCache[radius] = k
	return k
}

// LanczosForRate picks the smallest-radius cached table that satisfies
// a given sample-rate ratio, per spec: radius = clamp(floor(rate*MAX), 1, MAX).
func LanczosForRate(rate float64) *Kernel {
	radius := int(math.Floor(rate * float64(MaxLanczosRadius)))
	return Lanczos(radius)
}

func clampRadius(radius int) int {
	if radius < 1 {
		return 1
	}
	if radius > MaxLanczosRadius {
		return MaxLanczosRadius
	}
	return radius
}

func buildLanczos(radius, resolution int) *Kernel {
	length := 2*radius + 1
	k := New(length, radius, resolution)
	tbl := k.Table()
	for n := 0; n < length; n++ {
		for sub := 0; sub < resolution; sub++ {
			x := float64(n) + float64(sub)/float64(resolution) - float64(radius)
			tbl[n*resolution+sub] = float32(lanczosWindow(x, float64(radius)))
		}
	}
	k.Pack()
	return k
}

// lanczosWindow evaluates the Lanczos kernel L(x) = sinc(x)*sinc(x/a)
// for |x| < a, else 0.
func lanczosWindow(x, a float64) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) >= a {
		return 0
	}
	px := math.Pi * x
	return a * math.Sin(px) * math.Sin(px/a) / (px * px)
}
