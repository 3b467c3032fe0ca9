package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-flightsim/pkg/aero"
	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/event"
	"github.com/opd-ai/go-flightsim/pkg/logging"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

// Sample is one flight recorder line
type Sample struct {
	RunID    string                `json:"runId,omitempty"`
	Step     uint64                `json:"step"`
	SimTime  float64               `json:"simTime"`
	State    physics.AircraftState `json:"state"`
	Controls physics.ControlInputs `json:"controls"`
	Analysis aero.Analysis         `json:"analysis"`
}

// Recorder writes samples as JSON lines. Writes go through a circuit
// breaker so a failing sink is skipped instead of retried every step.
type Recorder struct {
	w       io.Writer
	closer  io.Closer
	every   uint64
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	bus     *event.Bus
	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder creates a recorder writing to w. bus may be nil; when set it
// receives breaker state changes.
func NewRecorder(w io.Writer, cfg config.TelemetryConfig, logger *logging.Logger, bus *event.Bus) *Recorder {
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}
	r := &Recorder{
		w:      w,
		every:  uint64(every),
		logger: logger,
		bus:    bus,
	}

	settings := gobreaker.Settings{
		Name:        "flight-recorder",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if r.bus != nil {
				r.bus.Publish(event.NewBreakerEvent(r, name, from.String(), to.String()))
			}
		},
	}
	r.breaker = gobreaker.NewCircuitBreaker(settings)
	return r
}

// OpenRecorder creates or truncates the file at path and records into it
func OpenRecorder(path string, cfg config.TelemetryConfig, logger *logging.Logger, bus *event.Bus) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder file: %w", err)
	}
	r := NewRecorder(f, cfg, logger, bus)
	r.closer = f
	return r, nil
}

// ShouldRecord reports whether the sample at step is due
func (r *Recorder) ShouldRecord(step uint64) bool {
	return step%r.every == 0
}

// Record writes one sample. When the breaker is open the sample is dropped
// and gobreaker.ErrOpenState is returned wrapped.
func (r *Recorder) Record(ctx context.Context, sample Sample) error {
	line, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to encode sample: %w", err)
	}
	line = append(line, '\n')

	_, err = r.breaker.Execute(func() (interface{}, error) {
		_, err := r.w.Write(line)
		return nil, err
	})
	if err != nil {
		r.dropped.Add(1)
		r.logger.Debug(ctx, "flight recorder write failed",
			"error", err.Error(),
			"state", r.breaker.State().String(),
			"step", sample.Step,
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	r.written.Add(1)
	return nil
}

// State returns the breaker state
func (r *Recorder) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the breaker counts for the current interval
func (r *Recorder) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}

// Written returns the number of samples written
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Dropped returns the number of samples that failed or were rejected
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close closes the underlying file when the recorder opened it
func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
