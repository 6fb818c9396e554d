// services/network-svc/internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthResponse ответ проверок живости и готовности
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz GET /healthz, живость процесса без обращения к зависимостям
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz GET /readyz, опрашивает зависимости сервиса
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	ready := true

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	resp := HealthResponse{Status: "ready", Checks: checks}
	if !ready {
		status = http.StatusServiceUnavailable
		resp.Status = "unavailable"
	}

	respondJSON(w, status, resp)
}
