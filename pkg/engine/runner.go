// Package engine drives a single aircraft simulator with a fixed time step.
//
// A Runner owns the Simulator. One goroutine steps it, either against the
// wall clock (Run) or as fast as possible (RunFor), and fans every step out
// to metrics, the flight recorder, the position trail and any HUDs. Other
// goroutines only see copies taken under the runner lock.
package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/aircraft"
	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/event"
	"github.com/opd-ai/go-flightsim/pkg/logging"
	"github.com/opd-ai/go-flightsim/pkg/physics"
	"github.com/opd-ai/go-flightsim/pkg/render"
	"github.com/opd-ai/go-flightsim/pkg/telemetry"
)

// DefaultPresentEvery is the number of steps between HUD frames
const DefaultPresentEvery = 6

// ErrAlreadyRunning is returned when a runner is started twice
var ErrAlreadyRunning = errors.New("runner already running")

// ControlSource supplies the controls for the step starting at simTime
type ControlSource interface {
	Next(simTime float64) physics.ControlInputs
}

// Snapshot is a consistent copy of the runner's view of the flight
type Snapshot struct {
	RunID        string                `json:"runId,omitempty"`
	AircraftType string                `json:"aircraftType"`
	Step         uint64                `json:"step"`
	SimTime      float64               `json:"simTime"`
	Running      bool                  `json:"running"`
	State        physics.AircraftState `json:"state"`
	Controls     physics.ControlInputs `json:"controls"`
	Analysis     aero.Analysis         `json:"analysis"`
}

// Runner steps a Simulator and publishes what happens.
//
// Event handlers on EventBus run while the runner lock is held and must not
// call back into the Runner.
type Runner struct {
	Config    *config.Config
	Simulator *aircraft.Simulator
	EventBus  *event.Bus
	Logger    *logging.Logger

	// Optional sinks; nil disables each
	Metrics  *telemetry.Metrics
	Recorder *telemetry.Recorder
	HUD      render.HUD

	PresentEvery int
	// Duration stops Run once simulated time reaches it. Zero runs until
	// the context is cancelled.
	Duration float64

	mu          sync.RWMutex
	source      ControlSource
	controls    physics.ControlInputs
	trail       *telemetry.Trail
	step        uint64
	running     bool
	runID       string
	lastUpdate  time.Time
	accumulator float64
}

// NewRunner creates a runner flying cfg.Aircraft under source. A nil logger
// discards output.
func NewRunner(cfg *config.Config, source ControlSource, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	bus := event.NewEventBus()

	sim := aircraft.New(cfg.Aircraft)
	sim.EventBus = bus
	sim.Logger = logger

	return &Runner{
		Config:       cfg,
		Simulator:    sim,
		EventBus:     bus,
		Logger:       logger,
		PresentEvery: DefaultPresentEvery,
		source:       source,
		trail:        telemetry.NewTrail(cfg.Telemetry.TrailInterval, cfg.Telemetry.TrailLength),
	}
}

// Start marks the runner as running and announces a new run
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.runID = logging.GenerateRunID()
	r.lastUpdate = time.Now()
	r.accumulator = 0
	runID, steps := r.runID, r.step
	ctx = r.runContext(ctx)
	r.mu.Unlock()

	r.Logger.Info(ctx, "simulation run started",
		"time_step", r.Config.Simulation.TimeStep,
		"step", steps,
	)
	r.EventBus.Publish(event.NewRunEvent(event.RunStarted, r, runID, steps))
	return nil
}

// Stop ends the current run. Stopping an idle runner does nothing.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	runID, steps, simTime := r.runID, r.step, r.Simulator.SimTime()
	ctx = r.runContext(ctx)
	r.mu.Unlock()

	r.Logger.Info(ctx, "simulation run stopped", "steps", steps, "sim_time", simTime)
	r.EventBus.Publish(event.NewRunEvent(event.RunStopped, r, runID, steps))
}

// Run steps the simulation against the wall clock until ctx is cancelled or
// Duration is reached.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop(context.Background())

	ticker := time.NewTicker(time.Duration(r.Config.Simulation.TimeStep * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.Update(ctx, now)
			if r.done() {
				return nil
			}
		}
	}
}

// RunFor advances the simulation by seconds of simulated time without
// waiting on the clock and returns the number of steps taken.
func (r *Runner) RunFor(ctx context.Context, seconds float64) (uint64, error) {
	if err := r.Start(ctx); err != nil {
		return 0, err
	}
	defer r.Stop(context.Background())

	total := uint64(math.Round(seconds / r.Config.Simulation.TimeStep))
	for steps := uint64(0); steps < total; steps++ {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		r.Advance(ctx)
	}
	return total, nil
}

// Update consumes the wall time since the previous update in fixed steps and
// returns how many were taken. Time beyond MaxDeltaTime is dropped.
func (r *Runner) Update(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	delta := now.Sub(r.lastUpdate).Seconds()
	r.lastUpdate = now
	if limit := r.Config.Simulation.MaxDeltaTime; limit > 0 && delta > limit {
		delta = limit
	}
	if delta > 0 {
		r.accumulator += delta
	}
	r.mu.Unlock()

	dt := r.Config.Simulation.TimeStep
	steps := 0
	for {
		r.mu.Lock()
		due := r.accumulator >= dt
		if due {
			r.accumulator -= dt
		}
		r.mu.Unlock()
		if !due {
			return steps
		}
		r.Advance(ctx)
		steps++
	}
}

// runContext tags ctx with the current run; callers hold mu
func (r *Runner) runContext(ctx context.Context) context.Context {
	return logging.WithRun(ctx, logging.Run{ID: r.runID, Aircraft: r.Simulator.Aircraft().Type})
}

func (r *Runner) done() bool {
	if r.Duration <= 0 {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Simulator.SimTime() >= r.Duration
}

// Advance takes exactly one fixed step
func (r *Runner) Advance(ctx context.Context) {
	r.mu.Lock()
	controls := physics.ControlInputs{}
	if r.source != nil {
		controls = r.source.Next(r.Simulator.SimTime())
	}
	controls = controls.Clamped()
	r.Simulator.Step(r.Config.Simulation.TimeStep, controls)
	r.controls = controls
	r.step++

	step := r.step
	runID := r.runID
	state := r.Simulator.State()
	analysis := r.Simulator.LastAnalysis()
	simTime := r.Simulator.SimTime()
	r.trail.Observe(step, state.Position)

	present := r.HUD != nil && step%r.presentEvery() == 0
	var frame render.Frame
	if present {
		frame = render.Frame{
			AircraftType: r.Simulator.Aircraft().Type,
			SimTime:      simTime,
			State:        state,
			Controls:     controls,
			Analysis:     analysis,
			Trail:        r.trail.Points(),
		}
	}
	r.mu.Unlock()

	if r.Metrics != nil {
		r.Metrics.Observe(simTime, state, analysis, controls)
	}

	if r.Recorder != nil && r.Recorder.ShouldRecord(step) {
		err := r.Recorder.Record(ctx, telemetry.Sample{
			RunID:    runID,
			Step:     step,
			SimTime:  simTime,
			State:    state,
			Controls: controls,
			Analysis: analysis,
		})
		if err != nil && r.Metrics != nil {
			r.Metrics.RecorderError()
		}
	}

	if present {
		if err := r.HUD.Render(frame); err != nil {
			if runID != "" {
				ctx = logging.WithRun(ctx, logging.Run{ID: runID, Aircraft: frame.AircraftType})
			}
			r.Logger.Warn(ctx, "hud render failed", "error", err.Error(), "step", step)
		}
	}
}

func (r *Runner) presentEvery() uint64 {
	if r.PresentEvery < 1 {
		return 1
	}
	return uint64(r.PresentEvery)
}

// RequestReset puts the aircraft back at its initial state and clears the trail
func (r *Runner) RequestReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Simulator.Reset()
	r.trail.Reset()
	r.controls = physics.ControlInputs{}
}

// RequestAircraftType switches the aircraft preset and resets the flight
func (r *Runner) RequestAircraftType(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Simulator.SetAircraftType(name); err != nil {
		return err
	}
	r.trail.Reset()
	r.controls = physics.ControlInputs{}
	return nil
}

// SetControlSource replaces the control source from the next step on
func (r *Runner) SetControlSource(source ControlSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = source
}

// ControlSource returns the active control source
func (r *Runner) ControlSource() ControlSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// Snapshot returns a copy of the current flight
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		RunID:        r.runID,
		AircraftType: r.Simulator.Aircraft().Type,
		Step:         r.step,
		SimTime:      r.Simulator.SimTime(),
		Running:      r.running,
		State:        r.Simulator.State(),
		Controls:     r.controls,
		Analysis:     r.Simulator.LastAnalysis(),
	}
}

// State returns a copy of the aircraft state
func (r *Runner) State() physics.AircraftState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Simulator.State()
}

// Trail returns the recorded positions, oldest first
func (r *Runner) Trail() []mgl64.Vec3 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trail.Points()
}

// Running reports whether a run is in progress
func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Steps returns the number of steps taken over the runner's lifetime
func (r *Runner) Steps() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.step
}
