// Package controls turns pilot commands and scripted schedules into
// per-step control inputs.
package controls

import (
	"sync"

	"github.com/opd-ai/go-flightsim/pkg/physics"
)

// Per-frame ramp rates for digital (keyboard style) input
const (
	SurfaceRate   = 0.02
	CenteringRate = 0.95
	ThrottleRate  = 0.01
)

// Command is the held direction of each control axis: -1, 0 or +1.
// A zero surface axis lets that surface drift back to center.
type Command struct {
	Elevator int `json:"elevator"`
	Aileron  int `json:"aileron"`
	Rudder   int `json:"rudder"`
	Throttle int `json:"throttle"`
}

// Shaper ramps surfaces toward their stops while a direction is held and
// eases them back to center when released. Throttle holds its setting.
type Shaper struct {
	controls physics.ControlInputs
}

// NewShaper creates a shaper starting from initial
func NewShaper(initial physics.ControlInputs) *Shaper {
	return &Shaper{controls: initial.Clamped()}
}

// Apply advances the shaper by one frame and returns the new inputs
func (s *Shaper) Apply(cmd Command) physics.ControlInputs {
	s.controls.Elevator = rampSurface(s.controls.Elevator, cmd.Elevator)
	s.controls.Aileron = rampSurface(s.controls.Aileron, cmd.Aileron)
	s.controls.Rudder = rampSurface(s.controls.Rudder, cmd.Rudder)
	s.controls.Throttle = physics.Clamp(s.controls.Throttle+float64(sign(cmd.Throttle))*ThrottleRate, 0, 1)
	return s.controls
}

// Controls returns the current inputs without advancing
func (s *Shaper) Controls() physics.ControlInputs {
	return s.controls
}

func rampSurface(value float64, direction int) float64 {
	if direction == 0 {
		return value * CenteringRate
	}
	return physics.Clamp(value+float64(sign(direction))*SurfaceRate, -1, 1)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Pilot is an interactive control source. Commands may be set from any
// goroutine; Next is called once per simulation step.
type Pilot struct {
	mu      sync.Mutex
	command Command
	shaper  *Shaper
}

// NewPilot creates a pilot holding the given throttle with neutral surfaces
func NewPilot(throttle float64) *Pilot {
	return &Pilot{shaper: NewShaper(physics.ControlInputs{Throttle: throttle})}
}

// SetCommand replaces the held command
func (p *Pilot) SetCommand(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.command = cmd
}

// Command returns the held command
func (p *Pilot) Command() Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.command
}

// Next advances the shaper one frame under the held command
func (p *Pilot) Next(simTime float64) physics.ControlInputs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shaper.Apply(p.command)
}
