package systemhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
)

type Handler struct {
	Metrics *metrics.Collector
	Perms   middleware.PermissionStore
}

func NewHandler(m *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{Metrics: m, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermSystemMetrics, h.Perms)).Get("/metrics", h.handleMetrics)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}
