package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownAircraftType is returned when a preset name is not registered
var ErrUnknownAircraftType = errors.New("unknown aircraft type")

// DefaultAircraftType is the preset used when none is named
const DefaultAircraftType = "default"

var presets = map[string]func() Aircraft{
	DefaultAircraftType: DefaultAircraft,
	"trainer":           trainerAircraft,
	"glider":            gliderAircraft,
}

// DefaultCoefficients returns the coefficients of a typical light aircraft
func DefaultCoefficients() AerodynamicCoefficients {
	return AerodynamicCoefficients{
		CL0:   0.4,
		CLa:   5.7,
		CLmax: 1.4,
		CD0:   0.03,
		CDi:   0.04,
		Cm0:   -0.1,
		Cma:   -0.8,
		CLde:  0.4,
		Cmde:  -1.2,
		Cydr:  0.3,
		Cndr:  -0.1,
		Clda:  0.2,
	}
}

// DefaultAircraft returns a small single-engine aircraft
func DefaultAircraft() Aircraft {
	return Aircraft{
		Type: DefaultAircraftType,
		Parameters: AircraftParameters{
			Mass:                  1500,
			InertiaTensor:         mgl64.Diag3(mgl64.Vec3{2000, 3000, 4000}),
			WingArea:              16,
			Wingspan:              10,
			MaxThrust:             8000,
			AileronEffectiveness:  1,
			ElevatorEffectiveness: 1,
			RudderEffectiveness:   1,
		},
		Coefficients: DefaultCoefficients(),
		Environment:  DefaultEnvironment(),
		Convention:   ConventionBody,
	}
}

func trainerAircraft() Aircraft {
	a := DefaultAircraft()
	a.Type = "trainer"
	a.Parameters.Mass = 1100
	a.Parameters.InertiaTensor = mgl64.Diag3(mgl64.Vec3{1300, 1800, 2600})
	a.Parameters.WingArea = 16.2
	a.Parameters.Wingspan = 11
	a.Parameters.MaxThrust = 6000
	a.Parameters.AileronEffectiveness = 0.8
	a.Coefficients.CLmax = 1.6
	a.Coefficients.Cm0 = 0
	return a
}

func gliderAircraft() Aircraft {
	a := DefaultAircraft()
	a.Type = "glider"
	a.Parameters.Mass = 600
	a.Parameters.InertiaTensor = mgl64.Diag3(mgl64.Vec3{1500, 1200, 2500})
	a.Parameters.WingArea = 15
	a.Parameters.Wingspan = 18
	a.Parameters.MaxThrust = 0
	a.Coefficients.CLa = 6.2
	a.Coefficients.CD0 = 0.012
	a.Coefficients.CDi = 0.018
	return a
}

// Preset returns a copy of the named aircraft preset
func Preset(name string) (Aircraft, error) {
	build, ok := presets[name]
	if !ok {
		return Aircraft{}, fmt.Errorf("%w: %q", ErrUnknownAircraftType, name)
	}
	return build(), nil
}

// ListPresets returns the registered preset names in sorted order
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
