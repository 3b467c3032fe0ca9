// Package aircraft integrates the rigid-body motion of a single aircraft.
//
// A Simulator owns one AircraftState and advances it with semi-implicit
// Euler integration, one caller-supplied time step at a time. It is not safe
// for concurrent use; the engine package serializes access.
package aircraft

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/event"
	"github.com/opd-ai/go-flightsim/pkg/logging"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

// AngularDamping scales the angular velocity after every step.
// It keeps the first-order rotation integration from diverging.
const AngularDamping = 0.99

// Reset state
var (
	ResetPosition = mgl64.Vec3{0, 1000, 0}
	ResetVelocity = mgl64.Vec3{0, 0, 30}
)

// Simulator advances the state of one aircraft
type Simulator struct {
	// EventBus receives reset, type change, ground contact and stall events.
	// Nil disables publishing.
	EventBus *event.Bus
	Logger   *logging.Logger

	spec       config.Aircraft
	model      *aero.Model
	invInertia mgl64.Mat3

	state    physics.AircraftState
	analysis aero.Analysis
	simTime  float64
	onGround bool
	stalled  bool
}

// New creates a simulator bound to spec and resets it
func New(spec config.Aircraft) *Simulator {
	s := &Simulator{Logger: logging.Discard()}
	s.bind(spec)
	s.reset()
	return s
}

// Initialize rebinds the aircraft configuration and resets the state
func (s *Simulator) Initialize(spec config.Aircraft) {
	s.bind(spec)
	s.Reset()
}

func (s *Simulator) bind(spec config.Aircraft) {
	s.spec = spec
	s.model = aero.NewModel(spec)
	s.invInertia = spec.Parameters.InertiaTensor.Inv()
}

// SetAircraftType switches to a named preset, keeping the current atmosphere
// and axis convention, and resets the aircraft.
func (s *Simulator) SetAircraftType(name string) error {
	spec, err := config.Preset(name)
	if err != nil {
		return err
	}
	spec.Environment = s.spec.Environment
	spec.Convention = s.spec.Convention

	previous := s.spec.Type
	s.Initialize(spec)

	s.Logger.Info(context.Background(), "aircraft type changed", "from", previous, "to", name)
	s.publish(event.NewAircraftEvent(event.AircraftTypeChanged, s, name, s.simTime, s.state.Altitude, s.state.Airspeed))
	return nil
}

// Reset restores the canonical initial state: 1000 m up, flying forward at
// 30 m/s, level, with no rotation.
func (s *Simulator) Reset() {
	s.reset()
	s.Logger.Debug(context.Background(), "aircraft reset", "aircraft_type", s.spec.Type)
	s.publish(event.NewAircraftEvent(event.AircraftReset, s, s.spec.Type, 0, s.state.Altitude, s.state.Airspeed))
}

func (s *Simulator) reset() {
	s.state = physics.AircraftState{
		Position:    ResetPosition,
		Velocity:    ResetVelocity,
		Orientation: mgl64.QuatIdent(),
	}
	s.state.Derive()
	s.simTime = 0
	s.refresh(physics.ControlInputs{})
}

// refresh re-runs the aerodynamic analysis and resets edge tracking
// after the state was overwritten from outside.
func (s *Simulator) refresh(controls physics.ControlInputs) {
	s.analysis = s.model.Analyze(s.state, controls)
	s.stalled = s.analysis.Stalled
	s.onGround = s.state.Position.Y() <= physics.GroundLevel
}

// Step advances the simulation by dt seconds. A negative dt is treated as
// zero, and a zero or non-finite step only recomputes the derived fields.
func (s *Simulator) Step(dt float64, controls physics.ControlInputs) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		s.state.Derive()
		return
	}
	controls = controls.Clamped()

	force, torque, analysis := s.model.Evaluate(s.state, controls)
	force = force.Add(s.model.ComputeThrust(s.state, controls.Throttle, s.spec.Parameters.MaxThrust))

	// Linear: velocity first, then position with the new velocity
	acceleration := force.Mul(1 / s.spec.Parameters.Mass)
	s.state.Velocity = s.state.Velocity.Add(acceleration.Mul(dt))
	s.state.Position = s.state.Position.Add(s.state.Velocity.Mul(dt))

	// Angular
	angularAcceleration := s.invInertia.Mul3x1(torque)
	s.state.AngularVelocity = s.state.AngularVelocity.Add(angularAcceleration.Mul(dt))

	spin := mgl64.Quat{W: 0, V: s.state.AngularVelocity}.Mul(s.state.Orientation).Scale(0.5)
	s.state.Orientation = s.state.Orientation.Add(spin.Scale(dt)).Normalize()

	s.state.AngularVelocity = s.state.AngularVelocity.Mul(AngularDamping)

	s.state.Position, s.state.Velocity, _ = physics.ClampToGround(s.state.Position, s.state.Velocity)
	s.state.Derive()
	s.simTime += dt

	s.analysis = analysis
	s.trackEdges()
}

func (s *Simulator) trackEdges() {
	grounded := s.state.Position.Y() <= physics.GroundLevel
	if grounded && !s.onGround {
		s.Logger.Debug(context.Background(), "ground contact",
			"sim_time", s.simTime, "airspeed", s.state.Airspeed)
		s.publish(event.NewAircraftEvent(event.GroundContact, s, s.spec.Type, s.simTime, s.state.Altitude, s.state.Airspeed))
	}
	s.onGround = grounded

	if s.analysis.Stalled != s.stalled {
		eventType := event.StallExited
		if s.analysis.Stalled {
			eventType = event.StallEntered
		}
		s.Logger.Debug(context.Background(), string(eventType),
			"sim_time", s.simTime, "angle_of_attack", s.analysis.AngleOfAttack)
		s.publish(event.NewStallEvent(eventType, s, s.simTime, s.analysis.AngleOfAttack,
			s.analysis.UnclampedLift, s.analysis.LiftCoefficient))
	}
	s.stalled = s.analysis.Stalled
}

func (s *Simulator) publish(e event.Event) {
	if s.EventBus != nil {
		s.EventBus.Publish(e)
	}
}

// SetPosition overrides the world position
func (s *Simulator) SetPosition(position mgl64.Vec3) {
	s.state.Position = position
	s.state.Derive()
	s.refresh(physics.ControlInputs{})
}

// SetOrientation overrides the orientation. The quaternion is normalized;
// a zero quaternion becomes the identity.
func (s *Simulator) SetOrientation(orientation mgl64.Quat) {
	s.state.Orientation = orientation.Normalize()
	s.state.Derive()
	s.refresh(physics.ControlInputs{})
}

// SetVelocity overrides the world velocity
func (s *Simulator) SetVelocity(velocity mgl64.Vec3) {
	s.state.Velocity = velocity
	s.state.Derive()
	s.refresh(physics.ControlInputs{})
}

// State returns a copy of the current state
func (s *Simulator) State() physics.AircraftState {
	return s.state
}

// LastAnalysis returns the aerodynamic analysis behind the most recent step
func (s *Simulator) LastAnalysis() aero.Analysis {
	return s.analysis
}

// SimTime returns the seconds integrated since the last reset
func (s *Simulator) SimTime() float64 {
	return s.simTime
}

// Aircraft returns the bound configuration
func (s *Simulator) Aircraft() config.Aircraft {
	return s.spec
}

// Model returns the aerodynamic model for the bound aircraft
func (s *Simulator) Model() *aero.Model {
	return s.model
}

// Forward returns the body forward axis in the world frame
func (s *Simulator) Forward() mgl64.Vec3 {
	return physics.BodyToWorld(physics.BodyForward, s.state.Orientation)
}

// Right returns the body right axis in the world frame
func (s *Simulator) Right() mgl64.Vec3 {
	return physics.BodyToWorld(physics.BodyRight, s.state.Orientation)
}

// Up returns the body up axis in the world frame
func (s *Simulator) Up() mgl64.Vec3 {
	return physics.BodyToWorld(physics.BodyUp, s.state.Orientation)
}

// ModelMatrix returns translate(position) * rotate(orientation)
func (s *Simulator) ModelMatrix() mgl64.Mat4 {
	p := s.state.Position
	return mgl64.Translate3D(p.X(), p.Y(), p.Z()).Mul4(s.state.Orientation.Mat4())
}

// OrientationNorm reports how far the orientation is from unit length
func (s *Simulator) OrientationNorm() float64 {
	return math.Abs(s.state.Orientation.Len() - 1)
}
