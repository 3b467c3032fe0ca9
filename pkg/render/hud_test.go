package render

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		state    physics.AircraftState
		analysis aero.Analysis
		want     Status
	}{
		{"cruise", physics.AircraftState{Airspeed: 50, Altitude: 1000}, aero.Analysis{}, StatusNormal},
		{"fast", physics.AircraftState{Airspeed: 101, Altitude: 1000}, aero.Analysis{}, StatusOverspeed},
		{"high", physics.AircraftState{Airspeed: 50, Altitude: 2500}, aero.Analysis{}, StatusHigh},
		{"fast and high", physics.AircraftState{Airspeed: 120, Altitude: 2500}, aero.Analysis{}, StatusOverspeed},
		{"stalled", physics.AircraftState{Airspeed: 120, Altitude: 2500}, aero.Analysis{Stalled: true}, StatusStall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.state, tt.analysis); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInstrumentsSmoothing(t *testing.T) {
	var in Instruments

	first := in.Update(physics.AircraftState{Altitude: 1000, Airspeed: 30, Heading: 10})
	if first.Altitude != 1000 || first.Airspeed != 30 || first.Heading != 10 {
		t.Errorf("first update = %+v, want snapped readings", first)
	}

	second := in.Update(physics.AircraftState{Altitude: 900, Airspeed: 40, Heading: 10})
	if math.Abs(second.Altitude-990) > 1e-9 || math.Abs(second.Airspeed-31) > 1e-9 {
		t.Errorf("second update = %+v, want 10%% blend", second)
	}
}

func TestInstrumentsHeadingShortWay(t *testing.T) {
	tests := []struct {
		name  string
		from  float64
		to    float64
		want  float64
	}{
		{"across north clockwise", 350, 10, 352},
		{"across north counterclockwise", 10, 350, 8},
		{"plain", 90, 100, 91},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in Instruments
			in.Update(physics.AircraftState{Heading: tt.from})
			got := in.Update(physics.AircraftState{Heading: tt.to}).Heading
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Heading = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestTextHUD_Render(t *testing.T) {
	var out bytes.Buffer
	hud := NewTextHUD(&out)

	frame := Frame{
		SimTime:  12.5,
		State:    physics.AircraftState{Altitude: 1000, Airspeed: 30, Heading: 7, VerticalSpeed: -1.25},
		Controls: physics.ControlInputs{Throttle: 0.8},
		Analysis: aero.Analysis{Stalled: true},
	}
	if err := hud.Render(frame); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	line := out.String()
	for _, want := range []string{"T+  12.50s", "ALT   1000m", "SPD  30.0m/s", "VS   -1.2m/s", "HDG 007", "THR  80%", "[STALL]"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("line %q should end with exactly one newline", line)
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTextHUD_WriteError(t *testing.T) {
	err := NewTextHUD(errWriter{}).Render(Frame{})
	if err == nil || !strings.Contains(err.Error(), "closed") {
		t.Errorf("Render() error = %v, want wrapped write error", err)
	}
}
