// pkg/physics/vector.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Body-frame unit axes: right = +X, up = +Y, forward = +Z.
var (
	BodyRight   = mgl64.Vec3{1, 0, 0}
	BodyUp      = mgl64.Vec3{0, 1, 0}
	BodyForward = mgl64.Vec3{0, 0, 1}
)

// BodyToWorld rotates a body-frame vector into the world frame
func BodyToWorld(v mgl64.Vec3, orientation mgl64.Quat) mgl64.Vec3 {
	return orientation.Rotate(v)
}

// WorldToBody rotates a world-frame vector into the body frame using the
// inverse of the orientation
func WorldToBody(v mgl64.Vec3, orientation mgl64.Quat) mgl64.Vec3 {
	return orientation.Inverse().Rotate(v)
}

// EulerAngles decomposes an orientation into rotations about the X, Y and Z
// axes, in radians. X is reported as pitch, Y as yaw and Z as roll.
func EulerAngles(q mgl64.Quat) (pitch, yaw, roll float64) {
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	py := 2 * (y*z + w*x)
	px := w*w - x*x - y*y + z*z
	if px == 0 && py == 0 {
		// Gimbal-locked: fall back to the half-angle form
		pitch = 2 * math.Atan2(x, w)
	} else {
		pitch = math.Atan2(py, px)
	}

	yaw = math.Asin(Clamp(-2*(x*z-w*y), -1, 1))

	ry := 2 * (x*y + w*z)
	rx := w*w + x*x - y*y - z*z
	if rx != 0 || ry != 0 {
		roll = math.Atan2(ry, rx)
	}
	return pitch, yaw, roll
}

// WrapHeading folds a heading in degrees into [0, 360). Non-finite input
// yields 0.
func WrapHeading(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	for deg < 0 {
		deg += 360
	}
	for deg >= 360 {
		deg -= 360
	}
	return deg
}

// Clamp limits v to [lo, hi]. NaN passes through.
func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFiniteVec reports whether every component of v is a finite number
func IsFiniteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
