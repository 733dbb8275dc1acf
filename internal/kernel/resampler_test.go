package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// impulseKernel returns a single-tap kernel whose only coefficient is 1 at
// every subsample phase, so that SampleWithKernel/Resample degenerate into
// a plain passthrough at integer positions. This isolates the tap-walking
// and wraparound logic in accumulateTap from the windowed-sinc math.
func impulseKernel(scale int) *Kernel {
	k := New(1, 0, scale)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = 1
	}
	k.Pack()
	return k
}

func TestSampleWithKernelPicksExactSourceSampleAtRateOne(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{10, 20, 30, 40, 50}
	dst := make([]float32, 1)

	SampleWithKernel(dst, k, src, 1, 0, len(src), false, 2, 0, 1)
	assert.Equal(t, float32(30), dst[0])
}

func TestSampleWithKernelZeroesOutOfRangeWithoutWrap(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{10, 20, 30}
	dst := make([]float32, 1)

	SampleWithKernel(dst, k, src, 1, 0, len(src), false, -5, 0, 1)
	assert.Equal(t, float32(0), dst[0])
}

func TestSampleWithKernelWrapsModuloWindowWhenRequested(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{10, 20, 30}
	dst := make([]float32, 1)

	// frame 3 is one past the 3-frame window; with wrap it must read back
	// around to frame 0.
	SampleWithKernel(dst, k, src, 1, 0, len(src), true, 3, 0, 1)
	assert.Equal(t, float32(10), dst[0])
}

func TestSampleWithKernelHandlesMultipleChannels(t *testing.T) {
	k := impulseKernel(4)
	// Two interleaved channels, 3 frames.
	src := []float32{1, -1, 2, -2, 3, -3}
	dst := make([]float32, 2)

	SampleWithKernel(dst, k, src, 2, 0, 3, false, 1, 0, 1)
	assert.Equal(t, []float32{2, -2}, dst)
}

func TestSampleWithKernelClampsRateAboveOne(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{10, 20, 30, 40}
	a := make([]float32, 1)
	b := make([]float32, 1)

	SampleWithKernel(a, k, src, 1, 0, len(src), false, 1, 0, 1)
	SampleWithKernel(b, k, src, 1, 0, len(src), false, 1, 0, 5) // should clamp to 1
	assert.Equal(t, a, b)
}

func TestSampleWithKernelEmptyWindowProducesZero(t *testing.T) {
	k := impulseKernel(4)
	dst := make([]float32, 1)
	dst[0] = 7
	SampleWithKernel(dst, k, nil, 1, 0, 0, false, 0, 0, 1)
	assert.Equal(t, float32(0), dst[0], "an empty window must still zero the destination")
}

func TestRateForUpsamplingUsesUnitRate(t *testing.T) {
	assert.Equal(t, float64(1), rateFor(0.5))
	assert.Equal(t, float64(1), rateFor(1))
}

func TestRateForDownsamplingWidensKernelInverseToFactor(t *testing.T) {
	assert.InDelta(t, 0.5, rateFor(2), 1e-9)
}

func TestResampleAtUnitFactorReproducesSourceExactly(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{1, 2, 3, 4, 5, 6}
	dst := make([]float32, len(src))

	Resample(k, 1, dst, 1, len(src), 1, src, 1, 0, len(src), 0)
	require.Equal(t, src, dst)
}

func TestResampleAddAccumulatesScaledSamples(t *testing.T) {
	k := impulseKernel(4)
	src := []float32{1, 2, 3, 4}
	dst := []float32{100, 100, 100, 100}

	ResampleAdd(k, 1, dst, 1, len(src), 1, src, 1, 0, len(src), 0, 0.5)
	assert.Equal(t, []float32{100.5, 101, 101.5, 102}, dst)
}
