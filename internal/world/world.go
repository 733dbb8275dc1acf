// Package world implements the 3D listener frame used by the spatializer
// plugin: a moving origin, an orthonormal orientation, and a speed of
// sound for computing propagation delay.
//
// Grounded on base/src/AzAudio/dsp/utility.h's azaWorld in
// original_source/, translated from C's row-vector/matrix convention
// into explicit Go arithmetic.
package world

import "math"

// Vec3 is a point or direction in listener space.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns a+b.
func Add(a, b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// Sub returns a-b.
func Sub(a, b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Scale returns v*s.
func Scale(v Vec3, s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Lerp linearly interpolates between a and b by t in [0,1].
func Lerp(a, b Vec3, t float32) Vec3 {
	return Vec3{
		a.X + (b.X-a.X)*t,
		a.Y + (b.Y-a.Y)*t,
		a.Z + (b.Z-a.Z)*t,
	}
}

// Equal reports whether a and b are exactly equal.
func Equal(a, b Vec3) bool { return a == b }

// Length returns the Euclidean norm of v.
func Length(v Vec3) float32 {
	return sqrt32(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func sqrt32(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}

// Mat3 is a 3x3 matrix stored row-major; it must be orthonormal to serve
// as a listener orientation.
type Mat3 struct {
	Rows [3]Vec3
}

// Identity returns the identity orientation.
func Identity() Mat3 {
	return Mat3{Rows: [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// MulVec3 applies m to v: result[i] = dot(m.Rows[i], v).
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		X: m.Rows[0].X*v.X + m.Rows[0].Y*v.Y + m.Rows[0].Z*v.Z,
		Y: m.Rows[1].X*v.X + m.Rows[1].Y*v.Y + m.Rows[1].Z*v.Z,
		Z: m.Rows[2].X*v.X + m.Rows[2].Y*v.Y + m.Rows[2].Z*v.Z,
	}
}

// SpeedOfSoundDefault is the speed of sound in dry air at 20C, in units
// per second (meters, if the caller's world uses meters).
const SpeedOfSoundDefault = 343.0

// World is the listener's reference frame: where it is, how it's
// oriented, and how fast sound travels through it.
type World struct {
	Origin       Vec3
	Orientation  Mat3
	SpeedOfSound float32
}

// Default returns a world centered at the origin, unrotated, with sound
// traveling at SpeedOfSoundDefault.
func Default() World {
	return World{Orientation: Identity(), SpeedOfSound: SpeedOfSoundDefault}
}

// TransformPoint converts a point from world space into listener space:
// translate by -Origin, then rotate by Orientation.
func (w World) TransformPoint(point Vec3) Vec3 {
	return w.Orientation.MulVec3(Sub(point, w.Origin))
}

// PropagationDelay returns the time in seconds for sound to travel the
// given distance through this world.
func (w World) PropagationDelay(distance float32) float32 {
	if w.SpeedOfSound <= 0 {
		return 0
	}
	return distance / w.SpeedOfSound
}
