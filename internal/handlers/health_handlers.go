package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	checks  map[string]CheckFunc
	version string
	started time.Time
	timeout time.Duration
}

// NewHealthHandlers takes the dependency probes by name, e.g. "database", "redis", "storage".
func NewHealthHandlers(version string, checks map[string]CheckFunc) *HealthHandlers {
	return &HealthHandlers{
		checks:  checks,
		version: version,
		started: time.Now(),
		timeout: 3 * time.Second,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Services   map[string]string `json:"services,omitempty"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Goroutines int               `json:"goroutines,omitempty"`
}

// LivenessCheck answers as long as the process serves HTTP.
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, &HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	})
}

// ReadinessCheck probes every dependency concurrently and answers 503 when any is down.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	services := h.run(ctx)
	status := &HealthStatus{
		Status:     "ready",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Services:   services,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Version:    h.version,
		Goroutines: runtime.NumGoroutine(),
	}
	code := http.StatusOK
	for _, s := range services {
		if s != "healthy" {
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	return c.JSON(code, status)
}

func (h *HealthHandlers) run(ctx context.Context) map[string]string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			state := "healthy"
			if err := check(ctx); err != nil {
				state = "unhealthy"
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
		}(name, h.checks[name])
	}
	wg.Wait()
	return results
}
