// Package render presents the simulated flight to a human. Everything here
// only reads state; nothing feeds back into the simulation.
package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

// Frame is everything a HUD may draw for one presented step
type Frame struct {
	AircraftType string
	SimTime      float64
	State        physics.AircraftState
	Controls     physics.ControlInputs
	Analysis     aero.Analysis
	Trail        []mgl64.Vec3
}

// HUD draws frames
type HUD interface {
	Render(frame Frame) error
}

// Status bands for the instrument panel
type Status string

const (
	StatusNormal    Status = "NORMAL"
	StatusHigh      Status = "HIGH"
	StatusOverspeed Status = "OVERSPEED"
	StatusStall     Status = "STALL"
)

// Thresholds for the status bands
const (
	OverspeedAirspeed = 100.0  // m/s
	HighAltitude      = 2000.0 // m

	// smoothing is the per-frame blend toward the new reading
	smoothing = 0.1
)

// Classify returns the status band for a frame. A stall outranks the
// speed and altitude bands.
func Classify(state physics.AircraftState, analysis aero.Analysis) Status {
	switch {
	case analysis.Stalled:
		return StatusStall
	case state.Airspeed > OverspeedAirspeed:
		return StatusOverspeed
	case state.Altitude > HighAltitude:
		return StatusHigh
	}
	return StatusNormal
}

// Instruments low-pass filters the needle readings so the display does not
// jitter from frame to frame
type Instruments struct {
	Altitude      float64
	Airspeed      float64
	VerticalSpeed float64
	Heading       float64
	Roll          float64

	primed bool
}

// Update blends the readings toward state and returns the new values.
// The first update snaps to state.
func (in *Instruments) Update(state physics.AircraftState) Instruments {
	if !in.primed {
		in.Altitude = state.Altitude
		in.Airspeed = state.Airspeed
		in.VerticalSpeed = state.VerticalSpeed
		in.Heading = state.Heading
		in.Roll = state.Roll
		in.primed = true
		return *in
	}

	in.Altitude = mix(in.Altitude, state.Altitude)
	in.Airspeed = mix(in.Airspeed, state.Airspeed)
	in.VerticalSpeed = mix(in.VerticalSpeed, state.VerticalSpeed)
	in.Roll = mix(in.Roll, state.Roll)

	// Heading blends along the short way round
	delta := state.Heading - in.Heading
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	in.Heading = physics.WrapHeading(in.Heading + delta*smoothing)
	return *in
}

func mix(current, target float64) float64 {
	return current + (target-current)*smoothing
}
