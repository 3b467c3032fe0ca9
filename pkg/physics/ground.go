package physics

import "github.com/go-gl/mathgl/mgl64"

// GroundLevel is the world Y of the flat floor
const GroundLevel = 0.0

// ClampToGround keeps a body from sinking below the floor. Position Y is
// raised to the floor and any descending vertical velocity is removed. There
// is no restitution and no horizontal friction.
func ClampToGround(pos, vel mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3, bool) {
	if pos[1] >= GroundLevel {
		return pos, vel, false
	}
	pos[1] = GroundLevel
	if vel[1] < 0 {
		vel[1] = 0
	}
	return pos, vel, true
}
