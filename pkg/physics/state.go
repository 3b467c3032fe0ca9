package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ControlInputs is one frame of pilot input. The zero value is neutral.
type ControlInputs struct {
	Aileron  float64 `json:"aileron"`  // -1 to 1 (roll)
	Elevator float64 `json:"elevator"` // -1 to 1 (pitch)
	Rudder   float64 `json:"rudder"`   // -1 to 1 (yaw)
	Throttle float64 `json:"throttle"` // 0 to 1
	Flaps    float64 `json:"flaps"`    // 0 to 1
	Brakes   float64 `json:"brakes"`   // 0 to 1
}

// Clamped returns a copy with every axis limited to its valid range.
// NaN and infinite axes become neutral.
func (c ControlInputs) Clamped() ControlInputs {
	return ControlInputs{
		Aileron:  clampAxis(c.Aileron, -1, 1),
		Elevator: clampAxis(c.Elevator, -1, 1),
		Rudder:   clampAxis(c.Rudder, -1, 1),
		Throttle: clampAxis(c.Throttle, 0, 1),
		Flaps:    clampAxis(c.Flaps, 0, 1),
		Brakes:   clampAxis(c.Brakes, 0, 1),
	}
}

func clampAxis(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Clamp(v, lo, hi)
}

// AircraftState tracks rigid-body physics plus the flight instruments
// derived from it
type AircraftState struct {
	Position        mgl64.Vec3 `json:"position"`        // world, meters
	Velocity        mgl64.Vec3 `json:"velocity"`        // world, m/s
	Orientation     mgl64.Quat `json:"orientation"`     // body to world
	AngularVelocity mgl64.Vec3 `json:"angularVelocity"` // body, rad/s

	Airspeed      float64 `json:"airspeed"`      // m/s
	Altitude      float64 `json:"altitude"`      // meters
	VerticalSpeed float64 `json:"verticalSpeed"` // m/s, positive climbing
	Heading       float64 `json:"heading"`       // degrees, [0, 360)
	Pitch         float64 `json:"pitch"`         // degrees
	Roll          float64 `json:"roll"`          // degrees
}

// Derive recomputes the instrument fields from the physical state
func (s *AircraftState) Derive() {
	s.Airspeed = s.Velocity.Len()
	s.Altitude = s.Position.Y()
	s.VerticalSpeed = s.Velocity.Y()

	pitch, yaw, roll := EulerAngles(s.Orientation)
	s.Pitch = mgl64.RadToDeg(pitch)
	s.Roll = mgl64.RadToDeg(roll)
	s.Heading = WrapHeading(mgl64.RadToDeg(yaw))
}

// IsFinite reports whether the physical state is free of NaN and Inf
func (s AircraftState) IsFinite() bool {
	q := s.Orientation
	if math.IsNaN(q.W) || math.IsInf(q.W, 0) || !IsFiniteVec(q.V) {
		return false
	}
	return IsFiniteVec(s.Position) && IsFiniteVec(s.Velocity) && IsFiniteVec(s.AngularVelocity)
}
