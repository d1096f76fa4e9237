package assignmentshandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/assignment"
	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/notifications"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service     *assignment.Service
	Perms       middleware.PermissionStore
	Notify      *notifications.Service
	Audit       *audit.Service
	Metrics     *metrics.Collector
	Idempotency middleware.IdempotencyChecker
}

func NewHandler(service *assignment.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, m *metrics.Collector, idem middleware.IdempotencyChecker) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Metrics: m, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manage := middleware.RequirePermission(auth.PermAssignmentsManage, h.Perms)
	r.With(manage).Get("/assignments", h.handleList)
	r.With(manage, middleware.Idempotent(h.Idempotency)).Post("/assignments", h.handleCreate)
	r.With(middleware.RequirePermission(auth.PermAssignmentsReadOwn, h.Perms)).Get("/assignments/my", h.handleMine)
	r.With(middleware.RequirePermission(auth.PermAssignmentsSubmit, h.Perms)).Post("/assignments/{assignmentID}/submit", h.handleSubmit)
	r.With(manage).Post("/assignments/{assignmentID}/reopen", h.handleReopen)
	r.With(manage).Post("/assignments/{assignmentID}/lock", h.handleLock)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMsg string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, assignment.ErrEvaluationNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", reqID)
	case errors.Is(err, assignment.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "assignment not found", reqID)
	case errors.Is(err, assignment.ErrInvalidEvaluator):
		api.Fail(w, http.StatusBadRequest, "invalid_evaluator", err.Error(), reqID)
	case errors.Is(err, assignment.ErrInvalidEvaluatee):
		api.Fail(w, http.StatusBadRequest, "invalid_evaluatee", err.Error(), reqID)
	case errors.Is(err, assignment.ErrAlreadyExists):
		api.Fail(w, http.StatusBadRequest, "assignment_exists", "assignment already exists", reqID)
	case errors.Is(err, assignment.ErrNotAssigned):
		api.Fail(w, http.StatusForbidden, "forbidden", "not the assigned evaluator", reqID)
	case errors.Is(err, assignment.ErrIncomplete):
		api.Fail(w, http.StatusBadRequest, "incomplete_assignment", err.Error(), reqID)
	case errors.Is(err, assignment.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	default:
		slog.Warn(fallbackCode, "err", err)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityID string, before, after any) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, "assignment", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit assignment event failed", "action", action, "err", err)
	}
}

func (h *Handler) notify(r *http.Request, userIDs []string, ntype, title, body string) {
	if h.Notify == nil {
		return
	}
	h.Notify.Notify(r.Context(), userIDs, ntype, title, body)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := assignment.Filter{
		Query:        q.Get("q"),
		EvaluationID: v.ID("evaluationId", q.Get("evaluationId")),
		Status:       q.Get("status"),
	}
	if v.Reject(w, reqID) {
		return
	}
	list, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "assignment_list_failed", "failed to list assignments")
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, list, reqID)
}

type createRequest struct {
	EvaluationID string `json:"evaluationId"`
	EvaluatorID  string `json:"evaluatorId"`
	EvaluateeID  string `json:"evaluateeId"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("evaluationId", payload.EvaluationID, "is required")
	v.Required("evaluatorId", payload.EvaluatorID, "is required")
	v.Required("evaluateeId", payload.EvaluateeID, "is required")
	input := assignment.CreateInput{
		EvaluationID: v.ID("evaluationId", payload.EvaluationID),
		EvaluatorID:  v.ID("evaluatorId", payload.EvaluatorID),
		EvaluateeID:  v.ID("evaluateeId", payload.EvaluateeID),
	}
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, r, err, "assignment_create_failed", "failed to create assignment")
		return
	}
	h.record(r, "assignment.create", created.ID, nil, created)
	h.notify(r, []string{created.EvaluatorID}, notifications.TypeAssignmentCreated,
		"New evaluation assignment",
		fmt.Sprintf("You have been assigned to evaluate %s in %s.", created.EvaluateeName, created.EvaluationName))
	h.notify(r, []string{created.EvaluateeID}, notifications.TypeAssignmentCreated,
		"You are being evaluated",
		fmt.Sprintf("%s will evaluate you in %s. Upload evidence for indicators that require it.", created.EvaluatorName, created.EvaluationName))
	api.Created(w, created, reqID)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.ListMine(r.Context(), user)
	if err != nil {
		h.fail(w, r, err, "assignment_list_failed", "failed to list assignments")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "assignmentID")
	if !ok {
		return
	}
	before, after, err := h.Service.Submit(r.Context(), user, id)
	if err != nil {
		h.fail(w, r, err, "assignment_submit_failed", "failed to submit assignment")
		return
	}
	h.Metrics.Inc(metrics.EventAssignmentSubmit)
	h.record(r, "assignment.submit", after.ID, before, after)
	h.notify(r, []string{after.EvaluateeID}, notifications.TypeAssignmentSubmitted,
		"Evaluation submitted",
		fmt.Sprintf("%s submitted your evaluation for %s.", after.EvaluatorName, after.EvaluationName))
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "assignmentID")
	if !ok {
		return
	}
	before, after, err := h.Service.Reopen(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "assignment_reopen_failed", "failed to reopen assignment")
		return
	}
	h.record(r, "assignment.reopen", after.ID, before, after)
	h.notify(r, []string{after.EvaluatorID}, notifications.TypeAssignmentReopened,
		"Evaluation reopened",
		fmt.Sprintf("Your evaluation of %s in %s was reopened for changes.", after.EvaluateeName, after.EvaluationName))
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "assignmentID")
	if !ok {
		return
	}
	before, after, err := h.Service.Lock(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "assignment_lock_failed", "failed to lock assignment")
		return
	}
	h.record(r, "assignment.lock", after.ID, before, after)
	h.notify(r, []string{after.EvaluateeID}, notifications.TypeAssignmentLocked,
		"Evaluation finalized",
		fmt.Sprintf("Your evaluation in %s is final.", after.EvaluationName))
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}
