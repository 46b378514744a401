// internal/handler/health_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB and the recipient cache.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	Checks  map[string]Pinger
	Timeout time.Duration
	Logger  *zap.Logger
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"status": "ok"}})
}

// Readyz pings every dependency and reports each result.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	results := make(map[string]string, len(h.Checks))
	ready := true
	for name, check := range h.Checks {
		if err := check.PingContext(ctx); err != nil {
			ready = false
			results[name] = err.Error()
			if h.Logger != nil {
				h.Logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			}
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": ready, "data": results})
}
