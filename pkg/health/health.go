// Package health reports whether the flight is stepping and fit to serve.
//
// A Checker pairs the runner's progress (run, step, simulated time) with a
// set of named checks. Readiness only passes once the aircraft has taken a
// step and every check holds; liveness answers as long as the process can
// read the runner.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-flightsim/pkg/engine"
	"github.com/opd-ai/go-flightsim/pkg/physics"
)

// Readiness states
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusStarting  Status = "starting"
	StatusUnhealthy Status = "unhealthy"
)

const (
	// QuaternionTolerance is how far from unit length the orientation may drift
	QuaternionTolerance = 1e-6
	// DefaultStallAfter is how long a running loop may go without a step
	DefaultStallAfter = 2 * time.Second
	// DefaultCheckTimeout bounds one readiness evaluation
	DefaultCheckTimeout = 5 * time.Second
)

// Flight is the view of the runner the checks need
type Flight interface {
	Snapshot() engine.Snapshot
}

// Check is one named condition the flight must satisfy
type Check interface {
	Name() string
	Run(ctx context.Context) error
}

// Progress is how far the current flight has got
type Progress struct {
	RunID        string  `json:"runId,omitempty"`
	AircraftType string  `json:"aircraftType"`
	Step         uint64  `json:"step"`
	SimTime      float64 `json:"simTime"`
	Running      bool    `json:"running"`
}

// Report is the readiness body. Checks maps each name to "ok" or the
// failure message.
type Report struct {
	Status Status            `json:"status"`
	Flight Progress          `json:"flight"`
	Checks map[string]string `json:"checks"`
}

// Failed reports whether the named check failed
func (r Report) Failed(name string) bool {
	msg, ok := r.Checks[name]
	return ok && msg != checkOK
}

const checkOK = "ok"

// Checker evaluates checks against a flight
type Checker struct {
	Timeout time.Duration

	flight Flight
	mu     sync.RWMutex
	checks []Check
}

// NewChecker creates a checker for flight
func NewChecker(flight Flight) *Checker {
	return &Checker{Timeout: DefaultCheckTimeout, flight: flight}
}

// Register adds checks, replacing any with the same name
func (c *Checker) Register(checks ...Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, check := range checks {
		replaced := false
		for i, existing := range c.checks {
			if existing.Name() == check.Name() {
				c.checks[i] = check
				replaced = true
				break
			}
		}
		if !replaced {
			c.checks = append(c.checks, check)
		}
	}
}

func (c *Checker) progress() Progress {
	snap := c.flight.Snapshot()
	return Progress{
		RunID:        snap.RunID,
		AircraftType: snap.AircraftType,
		Step:         snap.Step,
		SimTime:      snap.SimTime,
		Running:      snap.Running,
	}
}

// Evaluate runs every check. A flight that has not stepped yet is starting
// even when all checks pass.
func (c *Checker) Evaluate(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	report := Report{
		Status: StatusHealthy,
		Flight: c.progress(),
		Checks: make(map[string]string, len(checks)),
	}
	for _, check := range checks {
		if err := check.Run(ctx); err != nil {
			report.Status = StatusUnhealthy
			report.Checks[check.Name()] = err.Error()
			continue
		}
		report.Checks[check.Name()] = checkOK
	}
	if report.Status == StatusHealthy && report.Flight.Step == 0 {
		report.Status = StatusStarting
	}
	return report
}

// Liveness answers 200 with the flight's progress
func (c *Checker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeReport(w, http.StatusOK, struct {
		Status string   `json:"status"`
		Flight Progress `json:"flight"`
	}{"alive", c.progress()})
}

// Readiness answers 200 only while the flight is healthy and 503 otherwise
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.Timeout)
	defer cancel()

	report := c.Evaluate(ctx)
	status := http.StatusOK
	if report.Status != StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	writeReport(w, status, report)
}

func writeReport(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"status":"unhealthy"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// checkFunc adapts a function to Check
type checkFunc struct {
	name string
	run  func(ctx context.Context) error
}

func (f checkFunc) Name() string                  { return f.name }
func (f checkFunc) Run(ctx context.Context) error { return f.run(ctx) }

// NewCheck wraps run as a named check
func NewCheck(name string, run func(ctx context.Context) error) Check {
	return checkFunc{name: name, run: run}
}

// NewAircraftCheck fails when the integrated state is non-finite, below
// ground or carries a drifting orientation.
func NewAircraftCheck(flight Flight) Check {
	return NewCheck("aircraft", func(context.Context) error {
		return CheckState(flight.Snapshot().State)
	})
}

// CheckState validates one aircraft state
func CheckState(state physics.AircraftState) error {
	if !state.IsFinite() {
		return errors.New("aircraft state is not finite")
	}
	if y := state.Position.Y(); y < physics.GroundLevel {
		return fmt.Errorf("aircraft is %.2fm below ground", physics.GroundLevel-y)
	}
	if drift := math.Abs(state.Orientation.Len() - 1); drift > QuaternionTolerance {
		return fmt.Errorf("orientation drifted %.3g from unit length", drift)
	}
	return nil
}

// LoopCheck fails when no run is active or when a running loop has not
// stepped for longer than StallAfter.
type LoopCheck struct {
	StallAfter time.Duration

	flight   Flight
	now      func() time.Time
	mu       sync.Mutex
	lastStep uint64
	lastSeen time.Time
}

// NewLoopCheck creates a loop check with DefaultStallAfter
func NewLoopCheck(flight Flight) *LoopCheck {
	return &LoopCheck{StallAfter: DefaultStallAfter, flight: flight, now: time.Now}
}

func (l *LoopCheck) Name() string {
	return "simulation_loop"
}

func (l *LoopCheck) Run(ctx context.Context) error {
	snap := l.flight.Snapshot()
	if !snap.Running {
		return fmt.Errorf("simulation loop is not running (step %d)", snap.Step)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.lastSeen.IsZero() || snap.Step != l.lastStep {
		l.lastStep = snap.Step
		l.lastSeen = now
		return nil
	}
	if idle := now.Sub(l.lastSeen); idle > l.StallAfter {
		return fmt.Errorf("no step for %s at step %d, sim time %.2fs",
			idle.Round(time.Millisecond), snap.Step, snap.SimTime)
	}
	return nil
}

// NewRecorderCheck fails while the flight recorder breaker is open
func NewRecorderCheck(state func() gobreaker.State) Check {
	return NewCheck("flight_recorder", func(context.Context) error {
		if s := state(); s == gobreaker.StateOpen {
			return fmt.Errorf("flight recorder circuit is %s, samples are dropped", s)
		}
		return nil
	})
}

// NewMemoryCheck fails when usage(), in MB, passes limitMB
func NewMemoryCheck(limitMB int64, usage func() int64) Check {
	return NewCheck("memory", func(context.Context) error {
		if mb := usage(); mb > limitMB {
			return fmt.Errorf("memory usage %dMB exceeds limit %dMB", mb, limitMB)
		}
		return nil
	})
}
