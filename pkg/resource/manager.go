// Package resource supervises the goroutines a flight session starts and
// keeps an eye on process memory.
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-flightsim/pkg/config"
	"github.com/opd-ai/go-flightsim/pkg/logging"
)

// ErrGoroutineLimit is returned by Go when the task limit is reached
var ErrGoroutineLimit = errors.New("goroutine limit reached")

// Stats is a point-in-time view of tracked usage
type Stats struct {
	Goroutines    int64     `json:"goroutines"`
	MaxGoroutines int64     `json:"maxGoroutines"`
	MemoryMB      int64     `json:"memoryMB"`
	MaxMemoryMB   int64     `json:"maxMemoryMB"`
	LastCheck     time.Time `json:"lastCheck"`
}

// Manager runs named background tasks and samples heap usage on an interval
type Manager struct {
	limits config.ResourceConfig
	logger *logging.Logger

	active   atomic.Int64
	memoryMB atomic.Int64
	tasks    sync.WaitGroup

	mu        sync.Mutex
	running   bool
	lastCheck time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewManager creates a manager enforcing limits. A nil logger discards output.
func NewManager(limits config.ResourceConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{limits: limits, logger: logger}
}

// Start begins periodic memory sampling
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("resource manager already running")
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.running = true

	go m.monitor(ctx, m.done)

	m.logger.Info(ctx, "Resource manager started",
		"max_memory_mb", m.limits.MaxMemoryMB,
		"max_goroutines", m.limits.MaxGoroutines,
		"check_interval", m.limits.CheckInterval,
	)
	return nil
}

// Go runs fn on a tracked goroutine. A returned error or a panic is logged
// under name; neither stops the other tasks.
func (m *Manager) Go(ctx context.Context, name string, fn func(context.Context) error) error {
	if n := m.active.Add(1); n > int64(m.limits.MaxGoroutines) {
		m.active.Add(-1)
		m.logger.Warn(ctx, "Goroutine limit reached", "name", name, "limit", m.limits.MaxGoroutines)
		return fmt.Errorf("%w: %d tasks running, starting %q", ErrGoroutineLimit, n-1, name)
	}
	m.tasks.Add(1)

	go func() {
		defer m.tasks.Done()
		defer m.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error(ctx, "Task panicked", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()

		if err := fn(ctx); err != nil {
			m.logger.Error(ctx, "Task failed", err, "name", name)
		}
	}()
	return nil
}

// Active returns the number of running tasks
func (m *Manager) Active() int64 {
	return m.active.Load()
}

// MemoryUsage returns the heap size in MB seen by the last check
func (m *Manager) MemoryUsage() int64 {
	return m.memoryMB.Load()
}

// CheckMemory samples the heap and reports whether it is over the limit
func (m *Manager) CheckMemory() error {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	current := int64(stats.Alloc / 1024 / 1024)
	m.memoryMB.Store(current)

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()

	if current > m.limits.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, m.limits.MaxMemoryMB)
	}
	return nil
}

// Stats returns current usage against the limits
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	last := m.lastCheck
	m.mu.Unlock()
	return Stats{
		Goroutines:    m.Active(),
		MaxGoroutines: int64(m.limits.MaxGoroutines),
		MemoryMB:      m.MemoryUsage(),
		MaxMemoryMB:   m.limits.MaxMemoryMB,
		LastCheck:     last,
	}
}

// Shutdown stops sampling and waits up to the shutdown timeout for tracked
// tasks to return. Callers cancel the tasks' context first.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.running = false
		m.cancel()
		done := m.done
		m.mu.Unlock()
		<-done
	} else {
		m.mu.Unlock()
	}

	if m.limits.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.limits.ShutdownTimeout)
		defer cancel()
	}

	finished := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info(ctx, "All tracked goroutines finished")
		return nil
	case <-ctx.Done():
		remaining := m.Active()
		m.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running", "remaining", remaining)
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
}

func (m *Manager) monitor(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := m.limits.CheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.CheckMemory(); err != nil {
				m.logger.Error(ctx, "Memory limit exceeded", err, "limit_mb", m.limits.MaxMemoryMB)
			}
			m.logger.Debug(ctx, "Resource usage check",
				"goroutines", m.Active(),
				"memory_mb", m.MemoryUsage(),
			)
		case <-ctx.Done():
			return
		}
	}
}
