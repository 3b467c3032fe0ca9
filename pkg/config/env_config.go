package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Environment variables read by ApplyEnvironmentOverrides
const (
	EnvAircraft       = "FLIGHTSIM_AIRCRAFT"
	EnvTimeStep       = "FLIGHTSIM_TIME_STEP"
	EnvHTTPAddr       = "FLIGHTSIM_HTTP_ADDR"
	EnvRecorderPath   = "FLIGHTSIM_RECORDER_PATH"
	EnvAxisConvention = "FLIGHTSIM_AXIS_CONVENTION"
	EnvWind           = "FLIGHTSIM_WIND"
)

// ApplyEnvironmentOverrides applies FLIGHTSIM_* environment variables on top
// of config and validates the result. An aircraft override replaces the
// aircraft parameters and coefficients wholesale but keeps the configured
// environment and axis convention.
func ApplyEnvironmentOverrides(config *Config) error {
	if name := os.Getenv(EnvAircraft); name != "" {
		preset, err := Preset(name)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAircraft, err)
		}
		preset.Environment = config.Aircraft.Environment
		preset.Convention = config.Aircraft.Convention
		config.Aircraft = preset
	}

	if v := os.Getenv(EnvTimeStep); v != "" {
		step, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid float %q: %w", EnvTimeStep, v, err)
		}
		config.Simulation.TimeStep = step
	}

	if v := os.Getenv(EnvHTTPAddr); v != "" {
		config.Server.HTTPAddr = v
	}

	if v := os.Getenv(EnvRecorderPath); v != "" {
		config.Telemetry.RecorderPath = v
	}

	if v := os.Getenv(EnvAxisConvention); v != "" {
		config.Aircraft.Convention = AxisConvention(strings.ToLower(v))
	}

	if v := os.Getenv(EnvWind); v != "" {
		wind, err := parseVec3(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWind, err)
		}
		config.Aircraft.Environment.WindVelocity = wind
	}

	return config.Validate()
}

// parseVec3 parses "x,y,z"
func parseVec3(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("invalid component %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}
