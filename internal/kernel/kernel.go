// Package kernel implements the windowed-sinc kernel table and
// rate-adaptive sampler shared by the dynamic delay, spatializer, and
// FIR low-pass plugins.
//
// The table-generation shape (one coefficient row per fractional phase,
// built once and reused for every sample) follows
// internal/silk/resample_sinc.go in the teacher repo's windowed-sinc
// resampler.
package kernel

import "math"

// Kernel is a windowed-sinc table with two layouts: "table", a flat
// authoring layout, and "packed", a [subsample][sampleIndex] layout
// optimized for single-rate (rate==1) sampling.
type Kernel struct {
	Length     int // taps
	SampleZero int // integer table index at time offset zero
	Scale      int // sub-samples between whole samples

	table  []float32 // Length*Scale entries, natural order
	packed []float32 // Length*(Scale+1) entries, [sub][n]
}

// New allocates a Kernel's table layout. Callers author coefficients via
// Table and then call Pack once before sampling.
func New(length, sampleZero, scale int) *Kernel {
	return &Kernel{
		Length:     length,
		SampleZero: sampleZero,
		Scale:      scale,
		table:      make([]float32, length*scale),
	}
}

// Table returns the flat authoring layout for writing coefficients.
func (k *Kernel) Table() []float32 { return k.table }

// Pack rebuilds the packed [subsample][sampleIndex] layout from Table.
// Pack is idempotent: calling it again without modifying Table produces
// a bitwise-identical packed layout. The extra column at subsample index
// Scale duplicates subsample 0 shifted forward by one whole sample, so
// that linear interpolation between adjacent subsample columns never
// needs a special case at the top of the range.
func (k *Kernel) Pack() {
	if k.packed == nil {
		k.packed = make([]float32, k.Length*(k.Scale+1))
	}
	for sub := 0; sub < k.Scale; sub++ {
		row := k.packed[sub*k.Length : (sub+1)*k.Length]
		for n := 0; n < k.Length; n++ {
			row[n] = k.table[n*k.Scale+sub]
		}
	}
	row := k.packed[k.Scale*k.Length : (k.Scale+1)*k.Length]
	for n := 0; n < k.Length; n++ {
		if n+1 < k.Length {
			row[n] = k.table[(n+1)*k.Scale]
		} else {
			row[n] = 0
		}
	}
}

// packedRow returns the packed coefficients for one subsample index in
// [0, Scale]. Pack must have been called at least once.
func (k *Kernel) packedRow(sub int) []float32 {
	return k.packed[sub*k.Length : (sub+1)*k.Length]
}

// Sample returns the kernel's own value at a fractional table position
// (in whole-sample units, i.e. pos==SampleZero is the kernel's center),
// via linear interpolation between adjacent table entries.
func (k *Kernel) Sample(pos float64) float32 {
	scaled := pos * float64(k.Scale)
	i0 := int(math.Floor(scaled))
	frac := scaled - float64(i0)
	v0 := k.tableAt(i0)
	if frac == 0 {
		return v0
	}
	v1 := k.tableAt(i0 + 1)
	return float32((1-frac)*float64(v0) + frac*float64(v1))
}

func (k *Kernel) tableAt(i int) float32 {
	if i < 0 || i >= len(k.table) {
		return 0
	}
	return k.table[i]
}
