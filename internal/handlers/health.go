package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
)

const healthTimeout = 5 * time.Second

type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheck names one dependency probed by /health and /ready.
type HealthCheck struct {
	Name    string
	Checker HealthChecker
}

type HealthHandler struct {
	checks  []HealthCheck
	version string
}

func NewHealthHandler(version string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// run probes every dependency concurrently and returns the failures by name.
func (h *HealthHandler) run(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures = make(map[string]error)
	)
	for _, check := range h.checks {
		wg.Add(1)
		go func(check HealthCheck) {
			defer wg.Done()
			if err := check.Checker.Health(ctx); err != nil {
				mu.Lock()
				failures[check.Name] = err
				mu.Unlock()
			}
		}(check)
	}
	wg.Wait()
	return failures
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	failures := h.run(r.Context())

	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Checks:    make(map[string]string, len(h.checks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, check := range h.checks {
		err, failed := failures[check.Name]
		if !failed {
			response.Checks[check.Name] = "healthy"
			continue
		}
		response.Status = "unhealthy"
		response.Checks[check.Name] = "unhealthy"
		logging.FromContext(r.Context()).Warn("Health check failed", map[string]interface{}{
			"check": check.Name,
			"error": err.Error(),
		})
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if len(h.run(r.Context())) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
