// Package health serves the status, liveness and readiness endpoints.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"schemagate/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Handler provides health check endpoints.
type Handler struct {
	startTime    time.Time
	model        string
	backend      CheckFunc
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// New builds a handler for the given model. backend probes the inference
// server and is also registered as the "inference" readiness check.
func New(model string, backend CheckFunc) *Handler {
	h := &Handler{
		startTime:    time.Now(),
		model:        model,
		backend:      backend,
		checkTimeout: 2 * time.Second,
		checks:       make(map[string]CheckFunc),
	}
	if backend != nil {
		h.checks["inference"] = backend
	}
	return h
}

// RegisterCheck adds a named readiness check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts health check routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// StatusResponse is the public health document.
type StatusResponse struct {
	Status           string `json:"status"`
	Model            string `json:"model"`
	BackendReachable bool   `json:"backend_reachable"`
	Version          string `json:"version"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

// HandleStatus always answers 200; backend_reachable carries the inference probe result.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	reachable := false
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
		reachable = h.backend(ctx) == nil
		cancel()
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:           "ok",
		Model:            h.model,
		BackendReachable: reachable,
		Version:          Version,
		UptimeSeconds:    int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessResponse is the response for the liveness probe.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 while the process runs.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the response for the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check and answers 503 if any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	maps.Copy(checks, h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{
		Status: "ready",
		Checks: make(map[string]string, len(checks)),
	}

	for name, check := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			response.Checks[name] = "down: " + err.Error()
			response.Status = "not_ready"
			continue
		}
		response.Checks[name] = "up"
	}

	if response.Status != "ready" {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}
