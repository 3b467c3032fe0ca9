// Package telemetry exports flight data: Prometheus gauges and counters, a
// JSON-lines flight recorder and a bounded position trail.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/event"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

const namespace = "flightsim"

// Metrics holds the simulator's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	altitude        prometheus.Gauge
	airspeed        prometheus.Gauge
	verticalSpeed   prometheus.Gauge
	heading         prometheus.Gauge
	pitch           prometheus.Gauge
	roll            prometheus.Gauge
	angleOfAttack   prometheus.Gauge
	sideslip        prometheus.Gauge
	dynamicPressure prometheus.Gauge
	airDensity      prometheus.Gauge
	liftCoefficient prometheus.Gauge
	dragCoefficient prometheus.Gauge
	stalled         prometheus.Gauge
	simTime         prometheus.Gauge
	controlInput    *prometheus.GaugeVec

	steps          prometheus.Counter
	events         *prometheus.CounterVec
	recorderErrors prometheus.Counter
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
}

// NewMetrics creates and registers the flight collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:        prometheus.NewRegistry(),
		altitude:        gauge("altitude_meters", "Height above the ground plane"),
		airspeed:        gauge("airspeed_mps", "Magnitude of the world velocity"),
		verticalSpeed:   gauge("vertical_speed_mps", "Vertical velocity, positive climbing"),
		heading:         gauge("heading_degrees", "Heading in [0, 360)"),
		pitch:           gauge("pitch_degrees", "Rotation about the body right axis"),
		roll:            gauge("roll_degrees", "Rotation about the body forward axis"),
		angleOfAttack:   gauge("angle_of_attack_radians", "Angle of attack"),
		sideslip:        gauge("sideslip_radians", "Sideslip angle"),
		dynamicPressure: gauge("dynamic_pressure_pascals", "Dynamic pressure"),
		airDensity:      gauge("air_density_kg_per_m3", "Air density at the current altitude"),
		liftCoefficient: gauge("lift_coefficient", "Lift coefficient after the stall clamp"),
		dragCoefficient: gauge("drag_coefficient", "Drag coefficient"),
		stalled:         gauge("stalled", "1 while the unclamped lift coefficient exceeds CLmax"),
		simTime:         gauge("sim_time_seconds", "Simulated seconds since the last reset"),
		controlInput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_input",
			Help:      "Current control input per axis",
		}, []string{"axis"}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Integration steps taken",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Flight events by type",
		}, []string{"type"}),
		recorderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_errors_total",
			Help:      "Flight recorder samples that failed or were rejected",
		}),
	}

	m.registry.MustRegister(
		m.altitude, m.airspeed, m.verticalSpeed,
		m.heading, m.pitch, m.roll,
		m.angleOfAttack, m.sideslip, m.dynamicPressure, m.airDensity,
		m.liftCoefficient, m.dragCoefficient, m.stalled, m.simTime,
		m.controlInput, m.steps, m.events, m.recorderErrors,
	)
	return m
}

// Registry returns the registry to serve over HTTP
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one integration step
func (m *Metrics) Observe(simTime float64, state physics.AircraftState, analysis aero.Analysis, controls physics.ControlInputs) {
	m.steps.Inc()
	m.simTime.Set(simTime)

	m.altitude.Set(state.Altitude)
	m.airspeed.Set(state.Airspeed)
	m.verticalSpeed.Set(state.VerticalSpeed)
	m.heading.Set(state.Heading)
	m.pitch.Set(state.Pitch)
	m.roll.Set(state.Roll)

	m.angleOfAttack.Set(analysis.AngleOfAttack)
	m.sideslip.Set(analysis.SideslipAngle)
	m.dynamicPressure.Set(analysis.DynamicPressure)
	m.airDensity.Set(analysis.AirDensity)
	m.liftCoefficient.Set(analysis.LiftCoefficient)
	m.dragCoefficient.Set(analysis.DragCoefficient)
	if analysis.Stalled {
		m.stalled.Set(1)
	} else {
		m.stalled.Set(0)
	}

	m.controlInput.WithLabelValues("aileron").Set(controls.Aileron)
	m.controlInput.WithLabelValues("elevator").Set(controls.Elevator)
	m.controlInput.WithLabelValues("rudder").Set(controls.Rudder)
	m.controlInput.WithLabelValues("throttle").Set(controls.Throttle)
}

// RecorderError counts a sample the recorder could not write
func (m *Metrics) RecorderError() {
	m.recorderErrors.Inc()
}

// CountedEvents are the event types Subscribe counts
var CountedEvents = []event.Type{
	event.AircraftReset,
	event.AircraftTypeChanged,
	event.GroundContact,
	event.StallEntered,
	event.StallExited,
	event.RecorderStateChanged,
}

// Subscribe counts flight events published on bus
func (m *Metrics) Subscribe(bus *event.Bus) []*event.Subscription {
	subs := make([]*event.Subscription, 0, len(CountedEvents))
	for _, eventType := range CountedEvents {
		counter := m.events.WithLabelValues(string(eventType))
		subs = append(subs, bus.Subscribe(eventType, func(event.Event) {
			counter.Inc()
		}))
	}
	return subs
}
