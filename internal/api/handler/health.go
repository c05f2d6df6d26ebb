package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/treason-stats/internal/api/response"
	"github.com/mcoot/treason-stats/internal/services/readiness"
)

// healthWait bounds how long a health check waits for initialization
const healthWait = 2 * time.Second

// HealthHandler reports whether storage initialization succeeded
type HealthHandler struct {
	gate        *readiness.Gate
	storageType string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gate *readiness.Gate, storageType string) *HealthHandler {
	return &HealthHandler{
		gate:        gate,
		storageType: storageType,
	}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthWait)
	defer cancel()
	_ = h.gate.Wait(ctx)

	resp := response.Health{Status: response.HealthOK, Storage: h.storageType}
	switch {
	case !h.gate.Ready():
		resp.Status = response.HealthStarting
	case h.gate.Err() != nil:
		resp.Status = response.HealthDegraded
		resp.Error = h.gate.Err().Error()
	}

	status := http.StatusOK
	if resp.Status != response.HealthOK {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}
