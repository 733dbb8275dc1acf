package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewAllocatesFlatTable(t *testing.T) {
	k := New(3, 1, 4)
	assert.Equal(t, 3, k.Length)
	assert.Equal(t, 1, k.SampleZero)
	assert.Equal(t, 4, k.Scale)
	require.Len(t, k.Table(), 12)
}

func TestPackBuildsSubsampleRows(t *testing.T) {
	k := New(3, 1, 4)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = float32(i)
	}
	k.Pack()

	for sub := 0; sub < k.Scale; sub++ {
		row := k.packedRow(sub)
		require.Len(t, row, k.Length)
		for n := 0; n < k.Length; n++ {
			assert.Equal(t, tbl[n*k.Scale+sub], row[n], "sub=%d n=%d", sub, n)
		}
	}
}

func TestPackTopRowDuplicatesNextWholeSample(t *testing.T) {
	k := New(3, 1, 4)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = float32(i)
	}
	k.Pack()

	top := k.packedRow(k.Scale)
	for n := 0; n < k.Length; n++ {
		if n+1 < k.Length {
			assert.Equal(t, tbl[(n+1)*k.Scale], top[n], "n=%d", n)
		} else {
			assert.Equal(t, float32(0), top[n], "last row entry has no next whole sample, must be zero")
		}
	}
}

func TestPackIsIdempotent(t *testing.T) {
	k := New(3, 1, 4)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = float32(i) * 1.5
	}
	k.Pack()
	first := append([]float32(nil), k.packed...)
	k.Pack()
	assert.Equal(t, first, k.packed)
}

func TestSampleAtWholeIndexReturnsTableValueExactly(t *testing.T) {
	k := New(4, 0, 2)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = float32(i) * 2
	}
	// pos*Scale must land on an exact table index for this to be exact.
	assert.Equal(t, tbl[0], k.Sample(0))
	assert.Equal(t, tbl[2], k.Sample(1))
}

func TestSampleInterpolatesLinearlyBetweenAdjacentEntries(t *testing.T) {
	k := New(4, 0, 2)
	tbl := k.Table()
	for i := range tbl {
		tbl[i] = float32(i)
	}
	// pos=0.25 -> scaled=0.5 -> halfway between table[0] and table[1].
	got := k.Sample(0.25)
	assert.InDelta(t, 0.5, got, 1e-6)
}

func TestSampleOutOfRangeTreatsMissingEntriesAsZero(t *testing.T) {
	k := New(2, 0, 2)
	tbl := k.Table()
	tbl[0], tbl[1], tbl[2], tbl[3] = 1, 2, 3, 4
	// Far negative position falls entirely outside the table.
	assert.Equal(t, float32(0), k.Sample(-100))
}

// TestSampleMatchesHandInterpolationProperty checks Sample against a
// direct linear interpolation of the flat table for arbitrary fractional
// positions within the table's whole-sample range.
func TestSampleMatchesHandInterpolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(2, 8).Draw(t, "length")
		scale := rapid.IntRange(1, 8).Draw(t, "scale")
		k := New(length, 0, scale)
		tbl := k.Table()
		for i := range tbl {
			tbl[i] = rapid.Float32Range(-10, 10).Draw(t, "coeff")
		}

		maxWhole := length/scale - 1
		if maxWhole < 0 {
			maxWhole = 0
		}
		pos := rapid.Float64Range(0, float64(maxWhole)).Draw(t, "pos")

		scaled := pos * float64(scale)
		i0 := int(scaled)
		frac := scaled - float64(i0)
		var want float32
		if i0+1 < len(tbl) {
			want = float32((1-frac)*float64(tbl[i0]) + frac*float64(tbl[i0+1]))
		} else {
			want = tbl[i0]
		}
		assert.InDelta(t, want, k.Sample(pos), 1e-4)
	})
}
