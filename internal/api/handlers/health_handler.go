package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and the state of optional dependencies.
type HealthHandler struct {
	service string
	checks  map[string]Pinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service, checks: make(map[string]Pinger)}
}

// AddCheck registers a dependency under name.
func (h *HealthHandler) AddCheck(name string, p Pinger) {
	h.checks[name] = p
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondWithJSON(w, status, map[string]interface{}{
		"status":       overall,
		"service":      h.service,
		"dependencies": deps,
	})
}
