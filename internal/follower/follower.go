// Package follower implements the linear value-follower primitives shared
// by plugins that need a click-free ramp toward a changing target:
// per-channel gain smoothing, dynamic delay time, and spatializer
// position.
//
// Grounded on base/src/AzAudio/dsp/utility.h's azaFollowerLinear /
// azaFollowerLinear3D in original_source/.
package follower

import "github.com/nullframe/dsp/internal/world"

// Linear ramps a scalar value from a start toward a target over a
// caller-chosen number of updates, without re-snapping when the target
// moves mid-ramp.
type Linear struct {
	start, end float32
	progress   float32
}

// NewLinear returns a Linear already parked at value (no ramp pending).
func NewLinear(value float32) Linear {
	return Linear{start: value, end: value, progress: 1}
}

// Value returns the follower's current interpolated value.
func (f *Linear) Value() float32 {
	return f.start + (f.end-f.start)*f.progress
}

// Derivative returns the slope of the current ramp for a step size deltaT
// (deltaT is how far Update would progress the ramp from 0 to 1 in one
// call).
func (f *Linear) Derivative(deltaT float32) float32 {
	return (f.end - f.start) * deltaT
}

// SetTarget begins a new ramp toward target from the follower's current
// value, unless target already equals the current end (no-op, so calling
// this every block with an unchanged target is cheap).
func (f *Linear) SetTarget(target float32) {
	if target != f.end {
		f.start = f.Value()
		f.end = target
		f.progress = 0
	}
}

// Update returns the value before advancing progress by deltaT (clamped
// to 1).
func (f *Linear) Update(deltaT float32) float32 {
	result := f.Value()
	f.progress += deltaT
	if f.progress > 1 {
		f.progress = 1
	}
	return result
}

// UpdateTarget combines SetTarget and Update in one call, the common case
// of driving a follower from a per-block control value.
func (f *Linear) UpdateTarget(target, deltaT float32) float32 {
	f.SetTarget(target)
	return f.Update(deltaT)
}

// Jump snaps immediately to target with no transition.
func (f *Linear) Jump(target float32) {
	f.start = target
	f.end = target
	f.progress = 1
}

// Linear3 is Linear generalized to a 3D position, used by the
// spatializer to smooth source and listener movement.
type Linear3 struct {
	start, end world.Vec3
	progress   float32
}

// NewLinear3 returns a Linear3 parked at value.
func NewLinear3(value world.Vec3) Linear3 {
	return Linear3{start: value, end: value, progress: 1}
}

// Value returns the follower's current interpolated position.
func (f *Linear3) Value() world.Vec3 {
	return world.Lerp(f.start, f.end, f.progress)
}

// Derivative returns the velocity of the current ramp for step size deltaT.
func (f *Linear3) Derivative(deltaT float32) world.Vec3 {
	return world.Scale(world.Sub(f.end, f.start), deltaT)
}

// SetTarget begins a new ramp toward target unless it already equals the
// current end.
func (f *Linear3) SetTarget(target world.Vec3) {
	if !world.Equal(target, f.end) {
		f.start = f.Value()
		f.end = target
		f.progress = 0
	}
}

// Update returns the value before advancing progress by deltaT (clamped
// to 1).
func (f *Linear3) Update(deltaT float32) world.Vec3 {
	result := f.Value()
	f.progress += deltaT
	if f.progress > 1 {
		f.progress = 1
	}
	return result
}

// UpdateTarget combines SetTarget and Update.
func (f *Linear3) UpdateTarget(target world.Vec3, deltaT float32) world.Vec3 {
	f.SetTarget(target)
	return f.Update(deltaT)
}

// Jump snaps immediately to target with no transition.
func (f *Linear3) Jump(target world.Vec3) {
	f.start = target
	f.end = target
	f.progress = 1
}
