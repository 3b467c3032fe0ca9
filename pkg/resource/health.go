package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports unhealthy once tracked tasks pass 80% of the limit.
// Memory is covered by health.NewMemoryCheck fed from MemoryUsage.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a health check over manager
func NewHealthCheck(manager *Manager) *HealthCheck {
	return &HealthCheck{manager: manager}
}

// Name returns the name of this health check.
func (h *HealthCheck) Name() string {
	return "goroutines"
}

// Run verifies that task usage is within the threshold.
func (h *HealthCheck) Run(ctx context.Context) error {
	stats := h.manager.Stats()
	threshold := stats.MaxGoroutines * 8 / 10
	if stats.Goroutines > threshold {
		return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
			stats.Goroutines, threshold, stats.MaxGoroutines)
	}
	return nil
}
