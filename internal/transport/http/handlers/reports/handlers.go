package reportshandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/reports"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/dashboard", h.handleDashboard)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	summary, err := h.Service.Dashboard(r.Context(), user)
	if err != nil {
		if errors.Is(err, reports.ErrUnknownRole) {
			api.Fail(w, http.StatusForbidden, "forbidden", "no dashboard for role", reqID)
			return
		}
		slog.Warn("dashboard failed", "role", user.Role, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to load dashboard", reqID)
		return
	}
	api.Success(w, summary, reqID)
}
