package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-flightsim/pkg/config"
)

func testLimits(maxGoroutines int) config.ResourceConfig {
	return config.ResourceConfig{
		MaxMemoryMB:     10000,
		MaxGoroutines:   maxGoroutines,
		CheckInterval:   10 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	}
}

func TestManager_GoEnforcesLimit(t *testing.T) {
	m := NewManager(testLimits(3), nil)
	defer m.Shutdown(context.Background())

	ctx := context.Background()
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		wg.Add(1)
		err := m.Go(ctx, "worker", func(context.Context) error {
			defer wg.Done()
			<-release
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error for task %d, got: %v", i, err)
		}
	}

	err := m.Go(ctx, "one-too-many", func(context.Context) error { return nil })
	if !errors.Is(err, ErrGoroutineLimit) {
		t.Errorf("Expected ErrGoroutineLimit, got %v", err)
	}
	if m.Active() != 3 {
		t.Errorf("Expected 3 active tasks, got %d", m.Active())
	}

	close(release)
	wg.Wait()

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if m.Active() != 0 {
		t.Errorf("Expected 0 active tasks after shutdown, got %d", m.Active())
	}
}

func TestManager_GoRecoversPanicsAndErrors(t *testing.T) {
	m := NewManager(testLimits(4), nil)
	ctx := context.Background()

	tasks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"panics", func(context.Context) error { panic("stall warning horn stuck") }},
		{"fails", func(context.Context) error { return errors.New("sink closed") }},
		{"succeeds", func(context.Context) error { return nil }},
	}

	for _, task := range tasks {
		if err := m.Go(ctx, task.name, task.fn); err != nil {
			t.Fatalf("Go(%s) failed: %v", task.name, err)
		}
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if m.Active() != 0 {
		t.Errorf("Expected all tasks to be released, got %d active", m.Active())
	}
}

func TestManager_CheckMemory(t *testing.T) {
	tests := []struct {
		name        string
		maxMemoryMB int64
		expectError bool
	}{
		{"generous limit", 10000, false},
		{"impossible limit", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := testLimits(4)
			limits.MaxMemoryMB = tt.maxMemoryMB
			m := NewManager(limits, nil)

			err := m.CheckMemory()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if m.Stats().LastCheck.IsZero() {
				t.Error("Expected the check time to be recorded")
			}
		})
	}
}

func TestManager_StartAndShutdown(t *testing.T) {
	m := NewManager(testLimits(4), nil)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Error("Expected error starting twice")
	}

	deadline := time.Now().Add(time.Second)
	for m.Stats().LastCheck.IsZero() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Stats().LastCheck.IsZero() {
		t.Error("Monitor never sampled memory")
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Second shutdown should be a no-op, got %v", err)
	}
}

func TestManager_ShutdownTimeout(t *testing.T) {
	limits := testLimits(4)
	limits.ShutdownTimeout = 50 * time.Millisecond
	m := NewManager(limits, nil)

	release := make(chan struct{})
	defer close(release)
	if err := m.Go(context.Background(), "stuck", func(context.Context) error {
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	start := time.Now()
	err := m.Shutdown(context.Background())
	if err == nil {
		t.Error("Expected a timeout error with a stuck task")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v, expected about the timeout", elapsed)
	}
}

func TestManager_ShutdownWaitsForCancelledTasks(t *testing.T) {
	m := NewManager(testLimits(4), nil)
	ctx, cancel := context.WithCancel(context.Background())

	var finished bool
	var mu sync.Mutex
	if err := m.Go(ctx, "runner", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	cancel()
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Error("Shutdown returned before the task finished")
	}
}

func BenchmarkManager_Go(b *testing.B) {
	m := NewManager(testLimits(b.N+1), nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Go(ctx, "bench", func(context.Context) error { return nil })
	}
	b.StopTimer()
	m.Shutdown(ctx)
}
