package resultshandler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/results"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *results.Service
	Perms   middleware.PermissionStore
	Now     func() time.Time
}

func NewHandler(service *results.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/results", func(r chi.Router) {
		readAll := middleware.RequirePermission(auth.PermResultsReadAll, h.Perms)
		r.With(middleware.RequirePermission(auth.PermResultsReadOwn, h.Perms)).Get("/me", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermResultsReadEvaluated, h.Perms)).Get("/my-evaluations", h.handleEvaluated)
		r.With(readAll).Get("/", h.handleList)
		r.With(readAll).Get("/progress", h.handleProgress)
		r.With(readAll).Get("/topic-analysis", h.handleTopicAnalysis)
		r.With(readAll).Get("/export", h.handleExport)
		r.With(middleware.RequirePermission(auth.PermResultsPDF, h.Perms)).Get("/{assignmentID}/pdf", h.handlePDF)
	})
}

// filterFrom reads the result filters and answers 400 for a malformed
// evaluationId.
func filterFrom(w http.ResponseWriter, r *http.Request, requestID string) (results.Filter, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := results.Filter{
		Query:        strings.TrimSpace(q.Get("q")),
		Department:   strings.TrimSpace(q.Get("department")),
		EvaluationID: v.ID("evaluationId", q.Get("evaluationId")),
	}
	return filter, !v.Reject(w, requestID)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.ForEvaluatee(r.Context(), user.UserID)
	if err != nil {
		slog.Warn("own results failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "results_failed", "failed to load results", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleEvaluated(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.ForEvaluator(r.Context(), user.UserID)
	if err != nil {
		slog.Warn("evaluator results failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "results_failed", "failed to load results", reqID)
		return
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := filterFrom(w, r, reqID)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	list, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("list results failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "results_failed", "failed to list results", reqID)
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, list, reqID)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := filterFrom(w, r, reqID)
	if !ok {
		return
	}
	progress, err := h.Service.Progress(r.Context(), filter.EvaluationID)
	if err != nil {
		slog.Warn("progress failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "progress_failed", "failed to compute progress", reqID)
		return
	}
	api.Success(w, progress, reqID)
}

func (h *Handler) handleTopicAnalysis(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := filterFrom(w, r, reqID)
	if !ok {
		return
	}
	analysis, err := h.Service.TopicAnalysis(r.Context(), filter.EvaluationID)
	if err != nil {
		slog.Warn("topic analysis failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "topic_analysis_failed", "failed to compute topic analysis", reqID)
		return
	}
	api.Success(w, analysis, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	filter, ok := filterFrom(w, r, reqID)
	if !ok {
		return
	}
	filter.Query = ""
	list, err := h.Service.All(r.Context(), filter)
	if err != nil {
		slog.Warn("export results failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export results", reqID)
		return
	}
	var buf bytes.Buffer
	if err := results.WriteCSV(&buf, list); err != nil {
		slog.Warn("write results csv failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export results", reqID)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+results.ExportFilename(h.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	assignmentID, ok := shared.IDParam(w, r, reqID, "assignmentID")
	if !ok {
		return
	}
	res, err := h.Service.Get(r.Context(), user, assignmentID)
	if err != nil {
		switch {
		case errors.Is(err, results.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "result not found", reqID)
		case errors.Is(err, results.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), reqID)
		default:
			slog.Warn("load result failed", "err", err)
			api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render report", reqID)
		}
		return
	}

	var buf bytes.Buffer
	if err := results.WritePDF(&buf, res, h.Now()); err != nil {
		slog.Warn("render pdf failed", "assignmentId", assignmentID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render report", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="result-`+assignmentID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
