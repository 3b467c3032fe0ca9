// Package aero computes the aerodynamic, propulsive and gravitational loads
// acting on an aircraft. A Model holds only immutable configuration, so every
// method is a pure function of its arguments and safe for concurrent use.
//
// Body axes follow the simulator convention: right = +X, up = +Y,
// forward = +Z. Forces are returned in the world frame, torques in the body
// frame.
package aero

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

const (
	// StandardGravity is applied uniformly regardless of altitude
	StandardGravity = 9.81
	// ScaleHeight is the e-folding height of the exponential atmosphere, meters
	ScaleHeight = 8400.0
	// chordFactor stands in for the mean aerodynamic chord as a fraction of span
	chordFactor = 0.25
)

// Model is the aerodynamic model of one aircraft type
type Model struct {
	params     config.AircraftParameters
	coeffs     config.AerodynamicCoefficients
	env        config.EnvironmentData
	convention config.AxisConvention
}

// Analysis is the intermediate aerodynamic state behind one force evaluation
type Analysis struct {
	AngleOfAttack        float64 `json:"angleOfAttack"`   // rad
	SideslipAngle        float64 `json:"sideslipAngle"`   // rad
	DynamicPressure      float64 `json:"dynamicPressure"` // Pa
	AirDensity           float64 `json:"airDensity"`      // kg/m^3
	LiftCoefficient      float64 `json:"liftCoefficient"`
	UnclampedLift        float64 `json:"unclampedLift"`
	DragCoefficient      float64 `json:"dragCoefficient"`
	SideForceCoefficient float64 `json:"sideForceCoefficient"`
	Stalled              bool    `json:"stalled"`
}

// NewModel creates a model for the given aircraft
func NewModel(aircraft config.Aircraft) *Model {
	convention := aircraft.Convention
	if !convention.Valid() {
		convention = config.ConventionBody
	}
	return &Model{
		params:     aircraft.Parameters,
		coeffs:     aircraft.Coefficients,
		env:        aircraft.Environment,
		convention: convention,
	}
}

// Convention returns the axis convention the model lays loads onto
func (m *Model) Convention() config.AxisConvention {
	return m.convention
}

// Environment returns the atmosphere the model was built with
func (m *Model) Environment() config.EnvironmentData {
	return m.env
}

// ComputeForces returns the net aerodynamic plus gravitational force in the
// world frame and the aerodynamic torque in the body frame. Thrust is not
// included. Control inputs are clamped to their valid ranges.
func (m *Model) ComputeForces(state physics.AircraftState, controls physics.ControlInputs) (force, torque mgl64.Vec3) {
	force, torque, _ = m.Evaluate(state, controls)
	return force, torque
}

// Analyze returns the aerodynamic quantities behind ComputeForces
func (m *Model) Analyze(state physics.AircraftState, controls physics.ControlInputs) Analysis {
	_, _, analysis := m.Evaluate(state, controls)
	return analysis
}

// Evaluate returns ComputeForces and Analyze results from a single pass
func (m *Model) Evaluate(state physics.AircraftState, controls physics.ControlInputs) (mgl64.Vec3, mgl64.Vec3, Analysis) {
	c := m.effective(controls)

	a := Analysis{
		AngleOfAttack:   m.AngleOfAttack(state),
		SideslipAngle:   m.SideslipAngle(state),
		AirDensity:      m.AirDensity(state.Altitude),
		DynamicPressure: m.DynamicPressure(state),
	}
	a.UnclampedLift = m.coeffs.CL0 + m.coeffs.CLa*a.AngleOfAttack + m.coeffs.CLde*c.Elevator
	a.LiftCoefficient = physics.Clamp(a.UnclampedLift, -m.coeffs.CLmax, m.coeffs.CLmax)
	a.Stalled = math.Abs(a.UnclampedLift) > m.coeffs.CLmax
	a.DragCoefficient = m.DragCoefficient(a.LiftCoefficient)
	a.SideForceCoefficient = m.coeffs.Cydr * c.Rudder

	qS := a.DynamicPressure * m.params.WingArea
	lift := a.LiftCoefficient * qS
	drag := a.DragCoefficient * qS
	side := a.SideForceCoefficient * qS

	pitching := (m.coeffs.Cm0 + m.coeffs.Cma*a.AngleOfAttack + m.coeffs.Cmde*c.Elevator) *
		qS * (m.params.Wingspan * chordFactor)
	rolling := m.coeffs.Clda * c.Aileron * qS * m.params.Wingspan
	yawing := m.coeffs.Cndr * c.Rudder * qS * m.params.Wingspan

	var bodyForce, torque mgl64.Vec3
	switch m.convention {
	case config.ConventionLegacy:
		bodyForce = mgl64.Vec3{-drag, side, -lift}
		torque = mgl64.Vec3{rolling, pitching, yawing}
	default:
		// Nose-up is a negative rotation about right and right-wing-down a
		// negative rotation about forward.
		bodyForce = mgl64.Vec3{side, lift, -drag}
		torque = mgl64.Vec3{-pitching, yawing, -rolling}
	}

	force := physics.BodyToWorld(bodyForce, state.Orientation).Add(m.ComputeGravity(state))
	return force, torque, a
}

// effective clamps the controls and scales the surfaces by their effectiveness
func (m *Model) effective(controls physics.ControlInputs) physics.ControlInputs {
	c := controls.Clamped()
	c.Aileron *= m.params.AileronEffectiveness
	c.Elevator *= m.params.ElevatorEffectiveness
	c.Rudder *= m.params.RudderEffectiveness
	return c
}

// ComputeThrust returns throttle*maxThrust along the body forward axis, in
// the world frame. Throttle is not clamped here.
func (m *Model) ComputeThrust(state physics.AircraftState, throttle, maxThrust float64) mgl64.Vec3 {
	forward := physics.BodyToWorld(physics.BodyForward, state.Orientation)
	return forward.Mul(throttle * maxThrust)
}

// ComputeGravity returns the constant weight vector in the world frame
func (m *Model) ComputeGravity(state physics.AircraftState) mgl64.Vec3 {
	return mgl64.Vec3{0, -m.params.Mass * StandardGravity, 0}
}

// AirDensity returns the exponential-atmosphere density at altitude
func (m *Model) AirDensity(altitude float64) float64 {
	return m.env.SeaLevelDensity * math.Exp(-altitude/ScaleHeight)
}

// AngleOfAttack returns the angle between the body forward axis and the
// velocity in the body vertical plane. Zero forward speed yields 0.
func (m *Model) AngleOfAttack(state physics.AircraftState) float64 {
	body := physics.WorldToBody(state.Velocity, state.Orientation)
	if body.Z() == 0 {
		return 0
	}
	return math.Atan2(-body.Y(), body.Z())
}

// SideslipAngle returns the angle of the velocity out of the body vertical
// plane. Zero horizontal body speed yields 0.
func (m *Model) SideslipAngle(state physics.AircraftState) float64 {
	body := physics.WorldToBody(state.Velocity, state.Orientation)
	horizontal := math.Sqrt(body.X()*body.X() + body.Z()*body.Z())
	if horizontal == 0 {
		return 0
	}
	return math.Atan2(body.X(), horizontal)
}

// DynamicPressure returns 0.5*rho*V^2 from the world-frame speed
func (m *Model) DynamicPressure(state physics.AircraftState) float64 {
	speed := state.Velocity.Len()
	return 0.5 * m.AirDensity(state.Altitude) * speed * speed
}

// LiftCoefficient returns the lift coefficient hard-limited to +-CLmax
func (m *Model) LiftCoefficient(angleOfAttack, elevator float64) float64 {
	cl := m.coeffs.CL0 + m.coeffs.CLa*angleOfAttack + m.coeffs.CLde*elevator
	return physics.Clamp(cl, -m.coeffs.CLmax, m.coeffs.CLmax)
}

// DragCoefficient returns parasitic plus induced drag
func (m *Model) DragCoefficient(liftCoefficient float64) float64 {
	return m.coeffs.CD0 + m.coeffs.CDi*liftCoefficient*liftCoefficient
}
