package telemetry

import (
	"context"
	"sort"
	"sync"
)

// HealthCheck reports nil when the checked dependency is usable.
type HealthCheck func(ctx context.Context) error

type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthTracker aggregates named checks into one report.
type HealthTracker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheck
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{checks: make(map[string]HealthCheck)}
}

func (h *HealthTracker) Register(name string, check HealthCheck) {
	if h == nil || check == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthTracker) Report(ctx context.Context) HealthReport {
	report := HealthReport{Status: "ok"}
	if h == nil {
		return report
	}
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	sort.Strings(names)
	report.Checks = make(map[string]string, len(names))
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}
	return report
}
