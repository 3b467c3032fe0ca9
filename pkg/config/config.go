// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// AxisConvention selects how aerodynamic force and moment components are
// laid onto the body axes
type AxisConvention string

const (
	// ConventionBody maps lift onto body up, drag onto body aft, side force
	// onto body right, and roll/pitch/yaw moments onto the forward/right/up
	// axes so that positive moments roll right, pitch up and yaw right.
	ConventionBody AxisConvention = "body"
	// ConventionLegacy places (-drag, side, -lift) and (roll, pitch, yaw)
	// directly on the body (X, Y, Z) components.
	ConventionLegacy AxisConvention = "legacy"
)

// Valid reports whether c names a known convention
func (c AxisConvention) Valid() bool {
	return c == ConventionBody || c == ConventionLegacy
}

// Config contains configuration for a flight simulation run
type Config struct {
	Aircraft   Aircraft         `json:"aircraft"`
	Simulation SimulationConfig `json:"simulation"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	Server     ServerConfig     `json:"server"`
	Resources  ResourceConfig   `json:"resources"`
}

// Aircraft bundles everything that describes one aircraft type. It is
// treated as immutable once handed to a simulator.
type Aircraft struct {
	Type         string                  `json:"type"`
	Parameters   AircraftParameters      `json:"parameters"`
	Coefficients AerodynamicCoefficients `json:"coefficients"`
	Environment  EnvironmentData         `json:"environment"`
	Convention   AxisConvention          `json:"axisConvention"`
}

// AircraftParameters contains mass and geometry
type AircraftParameters struct {
	Mass          float64    `json:"mass"`          // kg
	InertiaTensor mgl64.Mat3 `json:"inertiaTensor"` // kg*m^2, body frame, principal axes
	WingArea      float64    `json:"wingArea"`      // m^2
	Wingspan      float64    `json:"wingspan"`      // m
	MaxThrust     float64    `json:"maxThrust"`     // N

	AileronEffectiveness  float64 `json:"aileronEffectiveness"`
	ElevatorEffectiveness float64 `json:"elevatorEffectiveness"`
	RudderEffectiveness   float64 `json:"rudderEffectiveness"`
}

// AerodynamicCoefficients describes the aerodynamic response of an airframe.
// Slopes are per radian.
type AerodynamicCoefficients struct {
	CL0   float64 `json:"cl0"`   // lift at zero angle of attack
	CLa   float64 `json:"cla"`   // lift curve slope
	CLmax float64 `json:"clmax"` // stall ceiling
	CD0   float64 `json:"cd0"`   // parasitic drag
	CDi   float64 `json:"cdi"`   // induced drag factor
	Cm0   float64 `json:"cm0"`   // pitching moment at zero angle of attack
	Cma   float64 `json:"cma"`   // pitch stability slope
	CLde  float64 `json:"clde"`  // elevator lift effectiveness
	Cmde  float64 `json:"cmde"`  // elevator moment effectiveness
	Cydr  float64 `json:"cydr"`  // rudder side force effectiveness
	Cndr  float64 `json:"cndr"`  // rudder yaw moment effectiveness
	Clda  float64 `json:"clda"`  // aileron roll moment effectiveness
}

// EnvironmentData describes the atmosphere at sea level.
//
// WindVelocity is carried through to the aerodynamic model but is not
// subtracted from the aircraft velocity there.
type EnvironmentData struct {
	SeaLevelDensity float64    `json:"seaLevelDensity"` // kg/m^3
	WindVelocity    mgl64.Vec3 `json:"windVelocity"`    // world, m/s
	Temperature     float64    `json:"temperature"`     // K
	Pressure        float64    `json:"pressure"`        // Pa
}

// SimulationConfig contains integrator settings
type SimulationConfig struct {
	TimeStep     float64 `json:"timeStep"`     // seconds per fixed step
	MaxDeltaTime float64 `json:"maxDeltaTime"` // real-time frame cap, seconds
}

// TelemetryConfig contains flight data recording settings
type TelemetryConfig struct {
	RecorderPath  string        `json:"recorderPath"`
	RecordEvery   int           `json:"recordEvery"`   // steps between recorded samples
	TrailInterval int           `json:"trailInterval"` // steps between trail points
	TrailLength   int           `json:"trailLength"`   // trail capacity
	Breaker       BreakerConfig `json:"breaker"`
}

// BreakerConfig contains circuit breaker settings for the recorder sink
type BreakerConfig struct {
	MaxRequests            uint32        `json:"maxRequests"`
	Interval               time.Duration `json:"interval"`
	Timeout                time.Duration `json:"timeout"`
	MaxConsecutiveFailures uint32        `json:"maxConsecutiveFailures"`
}

// ServerConfig contains HTTP settings for the telemetry endpoints
type ServerConfig struct {
	HTTPAddr     string        `json:"httpAddr"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
	// RequestsPerMinute limits mutating requests per client; 0 disables
	RequestsPerMinute int `json:"requestsPerMinute"`
}

// ResourceConfig bounds the process while a run is served
type ResourceConfig struct {
	MaxMemoryMB     int64         `json:"maxMemoryMB"`
	MaxGoroutines   int           `json:"maxGoroutines"`
	CheckInterval   time.Duration `json:"checkInterval"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Aircraft: DefaultAircraft(),
		Simulation: SimulationConfig{
			TimeStep:     1.0 / 60.0,
			MaxDeltaTime: 0.1,
		},
		Telemetry: TelemetryConfig{
			RecordEvery:   6,
			TrailInterval: 10,
			TrailLength:   100,
			Breaker: BreakerConfig{
				MaxRequests:            1,
				Interval:               60 * time.Second,
				Timeout:                30 * time.Second,
				MaxConsecutiveFailures: 5,
			},
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,

			RequestsPerMinute: 120,
		},
		Resources: ResourceConfig{
			MaxMemoryMB:     500,
			MaxGoroutines:   16,
			CheckInterval:   10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// DefaultEnvironment returns the standard sea-level atmosphere with no wind
func DefaultEnvironment() EnvironmentData {
	return EnvironmentData{
		SeaLevelDensity: 1.225,
		Temperature:     288.15,
		Pressure:        101325,
	}
}

// Validate checks the configuration for values the simulator cannot run with
func (c *Config) Validate() error {
	if err := c.Aircraft.Validate(); err != nil {
		return err
	}
	if c.Simulation.TimeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %g", ErrInvalidConfig, c.Simulation.TimeStep)
	}
	if c.Simulation.MaxDeltaTime < c.Simulation.TimeStep {
		return fmt.Errorf("%w: max delta time %g is below time step %g",
			ErrInvalidConfig, c.Simulation.MaxDeltaTime, c.Simulation.TimeStep)
	}
	if c.Telemetry.RecordEvery < 1 || c.Telemetry.TrailInterval < 1 || c.Telemetry.TrailLength < 1 {
		return fmt.Errorf("%w: telemetry intervals and trail length must be at least 1", ErrInvalidConfig)
	}
	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests per minute must not be negative, got %d",
			ErrInvalidConfig, c.Server.RequestsPerMinute)
	}
	if c.Resources.MaxMemoryMB <= 0 || c.Resources.MaxGoroutines <= 0 || c.Resources.CheckInterval <= 0 {
		return fmt.Errorf("%w: resource limits and check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate checks the aircraft description
func (a Aircraft) Validate() error {
	p := a.Parameters
	switch {
	case p.Mass <= 0:
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalidConfig, p.Mass)
	case p.WingArea <= 0:
		return fmt.Errorf("%w: wing area must be positive, got %g", ErrInvalidConfig, p.WingArea)
	case p.Wingspan <= 0:
		return fmt.Errorf("%w: wingspan must be positive, got %g", ErrInvalidConfig, p.Wingspan)
	case p.MaxThrust < 0:
		return fmt.Errorf("%w: max thrust must not be negative, got %g", ErrInvalidConfig, p.MaxThrust)
	case p.InertiaTensor.Det() == 0:
		return fmt.Errorf("%w: inertia tensor is singular", ErrInvalidConfig)
	case a.Coefficients.CLmax <= 0:
		return fmt.Errorf("%w: CLmax must be positive, got %g", ErrInvalidConfig, a.Coefficients.CLmax)
	case a.Environment.SeaLevelDensity <= 0:
		return fmt.Errorf("%w: sea level density must be positive, got %g",
			ErrInvalidConfig, a.Environment.SeaLevelDensity)
	case !a.Convention.Valid():
		return fmt.Errorf("%w: unknown axis convention %q", ErrInvalidConfig, a.Convention)
	}
	return nil
}
