package controls

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/opd-ai/go-flightsim/pkg/physics"
)

var (
	// ErrInvalidSchedule is wrapped by schedule validation failures
	ErrInvalidSchedule = errors.New("invalid control schedule")
	// ErrUnknownScenario is returned for an unregistered built-in name
	ErrUnknownScenario = errors.New("unknown scenario")
)

// Segment holds a fixed set of inputs for a duration
type Segment struct {
	Duration float64               `json:"duration"` // seconds
	Controls physics.ControlInputs `json:"controls"`
}

// Schedule is a scripted sequence of control segments. Past the end every
// input is neutral.
type Schedule struct {
	Name     string    `json:"name"`
	Segments []Segment `json:"segments"`

	ends []float64
}

// NewSchedule validates segments and builds a schedule
func NewSchedule(name string, segments ...Segment) (*Schedule, error) {
	s := &Schedule{Name: name, Segments: segments}
	if err := s.index(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSchedule decodes a JSON schedule
func ParseSchedule(data []byte) (*Schedule, error) {
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}
	if err := s.index(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchedule reads a JSON schedule from a file
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return ParseSchedule(data)
}

func (s *Schedule) index() error {
	if len(s.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidSchedule)
	}
	s.ends = make([]float64, len(s.Segments))
	total := 0.0
	for i, seg := range s.Segments {
		if !(seg.Duration > 0) {
			return fmt.Errorf("%w: segment %d duration must be positive, got %g", ErrInvalidSchedule, i, seg.Duration)
		}
		total += seg.Duration
		s.ends[i] = total
	}
	return nil
}

// Duration returns the total scripted time
func (s *Schedule) Duration() float64 {
	if len(s.ends) == 0 {
		return 0
	}
	return s.ends[len(s.ends)-1]
}

// At returns the clamped inputs active at simTime
func (s *Schedule) At(simTime float64) physics.ControlInputs {
	i := sort.Search(len(s.ends), func(i int) bool { return s.ends[i] > simTime })
	if i == len(s.ends) || simTime < 0 {
		return physics.ControlInputs{}
	}
	return s.Segments[i].Controls.Clamped()
}

// Next implements the engine's control source
func (s *Schedule) Next(simTime float64) physics.ControlInputs {
	return s.At(simTime)
}

var scenarios = map[string]func() []Segment{
	// Elevator and power trim hold 30 m/s level flight.
	"level": func() []Segment {
		return []Segment{{Duration: 10, Controls: physics.ControlInputs{Elevator: -0.3, Throttle: 0.8}}}
	},
	"roll": func() []Segment {
		return []Segment{
			{Duration: 1, Controls: physics.ControlInputs{Aileron: 1}},
			{Duration: 4, Controls: physics.ControlInputs{}},
		}
	},
	"glide": func() []Segment {
		return []Segment{{Duration: 60, Controls: physics.ControlInputs{}}}
	},
	"stall": func() []Segment {
		return []Segment{
			{Duration: 0.5, Controls: physics.ControlInputs{Elevator: -1}},
			{Duration: 5, Controls: physics.ControlInputs{}},
		}
	},
	"climb": func() []Segment {
		return []Segment{
			{Duration: 5, Controls: physics.ControlInputs{Elevator: -0.4, Throttle: 1}},
			{Duration: 5, Controls: physics.ControlInputs{Elevator: -0.3, Throttle: 0.8}},
		}
	},
}

// Scenario returns a built-in schedule by name
func Scenario(name string) (*Schedule, error) {
	build, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return NewSchedule(name, build()...)
}

// ListScenarios returns the built-in schedule names in sorted order
func ListScenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
