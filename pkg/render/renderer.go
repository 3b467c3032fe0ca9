// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-flightsim/pkg/logging"
)

// NullHUD discards frames, logging each at debug level.
type NullHUD struct {
	logger *logging.Logger
}

// NewNullHUD creates a new NullHUD with structured logging.
func NewNullHUD(logger *logging.Logger) *NullHUD {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullHUD{logger: logger}
}

// Render implements HUD.
func (d *NullHUD) Render(frame Frame) error {
	d.logger.Debug(context.Background(), "Render called",
		"aircraft_type", frame.AircraftType,
		"sim_time", frame.SimTime,
		"altitude", frame.State.Altitude,
		"airspeed", frame.State.Airspeed,
		"trail_points", len(frame.Trail),
	)
	return nil
}

// Multi fans a frame out to several HUDs, returning the first error.
type Multi []HUD

// Render implements HUD.
func (m Multi) Render(frame Frame) error {
	var first error
	for _, hud := range m {
		if err := hud.Render(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}
