package jobshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Jobs  *jobs.Service
	Perms middleware.PermissionStore
	Audit *audit.Service
}

func NewHandler(jobsSvc *jobs.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Jobs: jobsSvc, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermJobsRun, h.Perms))
		r.Get("/runs", h.handleListRuns)
		r.Post("/close-expired", h.handleCloseExpired)
	})
}

var validStatuses = map[string]bool{
	jobs.StatusRunning:   true,
	jobs.StatusCompleted: true,
	jobs.StatusFailed:    true,
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter := jobs.RunFilter{
		JobType: strings.TrimSpace(r.URL.Query().Get("jobType")),
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !validStatuses[filter.Status] {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "status", Reason: "must be running, completed, or failed"}})
		return
	}

	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	runs, total, err := h.Jobs.ListRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("job runs list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", reqID)
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, runs, reqID)
}

func (h *Handler) handleCloseExpired(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	result, err := h.Jobs.RunNow(r.Context(), jobs.TypeCloseExpired, struct{}{})
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			api.Fail(w, http.StatusNotImplemented, "job_unavailable", "job is not registered", reqID)
			return
		}
		slog.Warn("close expired job failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "failed to close expired evaluations", reqID)
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "jobs.close_expired", "job", jobs.TypeCloseExpired, reqID, shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit job event failed", "err", err)
	}
	api.Success(w, result, reqID)
}
