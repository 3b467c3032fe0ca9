package render

import (
	"fmt"
	"io"
	"sync"
)

// TextHUD writes one instrument line per rendered frame
type TextHUD struct {
	mu          sync.Mutex
	w           io.Writer
	instruments Instruments
}

// NewTextHUD creates a text HUD writing to w
func NewTextHUD(w io.Writer) *TextHUD {
	return &TextHUD{w: w}
}

// Render implements HUD
func (h *TextHUD) Render(frame Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	in := h.instruments.Update(frame.State)
	_, err := fmt.Fprintf(h.w,
		"T+%7.2fs ALT %6.0fm SPD %5.1fm/s VS %+6.1fm/s HDG %03.0f PIT %+5.1f ROL %+6.1f THR %3.0f%% AOA %+5.1f [%s]\n",
		frame.SimTime,
		in.Altitude,
		in.Airspeed,
		in.VerticalSpeed,
		in.Heading,
		frame.State.Pitch,
		in.Roll,
		frame.Controls.Throttle*100,
		frame.Analysis.AngleOfAttack*180/3.141592653589793,
		Classify(frame.State, frame.Analysis),
	)
	if err != nil {
		return fmt.Errorf("failed to write HUD line: %w", err)
	}
	return nil
}
