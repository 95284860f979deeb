package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/agentforge/agentforge/internal/models"
	"github.com/agentforge/agentforge/internal/registry"
)

const version = "1.0.0"

// HealthChecker is implemented by backends that can report connectivity
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles GET /health with a record-store check
type HealthHandler struct {
	store   HealthChecker
	backend string
	reg     *registry.Registry
}

func NewHealthHandler(store HealthChecker, backend string, reg *registry.Registry) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, reg: reg}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			checks["store"] = h.backend + " unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks["store"] = h.backend + " ok"
		}
	} else {
		checks["store"] = "disabled"
	}

	if h.reg != nil {
		checks["tools"] = strconv.Itoa(len(h.reg.Enumerate()))
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version,
		Checks:  checks,
	})
}
