package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"cumgpa/internal/config"
	"cumgpa/internal/infrastructure"
)

// StatusProvider reports the state of the current run
type StatusProvider interface {
	Status() infrastructure.RunSnapshot
}

// HealthHandler handles health and run status requests
type HealthHandler struct {
	status StatusProvider
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(status StatusProvider, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		status: status,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// LivenessCheck handles GET /healthz
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":  "ok",
		"service": config.AppName,
		"version": config.AppVersion,
	})
}

// RunStatus handles GET /status
func (h *HealthHandler) RunStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.status.Status()
	if snap.State == "failed" {
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, snap)
}
