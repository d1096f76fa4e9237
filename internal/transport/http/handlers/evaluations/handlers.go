package evaluationshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/evaluation"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *evaluation.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manage := middleware.RequirePermission(auth.PermEvaluationsManage, h.Perms)
	r.Route("/evaluations", func(r chi.Router) {
		r.With(manage).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.With(manage).Post("/import", h.handleImport)
		r.With(manage).Get("/{evaluationID}", h.handleGet)
		r.With(manage).Put("/{evaluationID}", h.handleUpdate)
		r.With(manage).Patch("/{evaluationID}/status", h.handleStatus)
		r.With(manage).Post("/{evaluationID}/topics", h.handleAddTopic)
	})
	r.With(manage).Post("/topics/{topicID}/indicators", h.handleAddIndicator)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMsg string) {
	reqID := middleware.GetRequestID(r.Context())
	var importErr *evaluation.ImportError
	switch {
	case errors.As(err, &importErr):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: importErr.Path, Reason: importErr.Err.Error()}})
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", reqID)
	case errors.Is(err, evaluation.ErrTopicNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "topic not found", reqID)
	case errors.Is(err, evaluation.ErrCancelled):
		api.Fail(w, http.StatusConflict, "evaluation_cancelled", err.Error(), reqID)
	case errors.Is(err, evaluation.ErrNameRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "name", Reason: "is required"}})
	case errors.Is(err, evaluation.ErrInvalidDateRange):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "endDate", Reason: "must be on or after startDate"}})
	case errors.Is(err, evaluation.ErrInvalidIndicatorType):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "indicatorType", Reason: "must be SCALE_1_4 or YES_NO"}})
	case errors.Is(err, evaluation.ErrInvalidWeight):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "weight", Reason: "must be greater than zero"}})
	case errors.Is(err, evaluation.ErrInvalidStatus):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "status", Reason: "must be OPEN, CLOSED or CANCELLED"}})
	default:
		slog.Warn(fallbackCode, "err", err)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit evaluation event failed", "action", action, "err", err)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	filter := evaluation.Filter{Query: r.URL.Query().Get("q"), Status: r.URL.Query().Get("status")}
	list, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "evaluation_list_failed", "failed to list evaluations")
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "evaluationID")
	if !ok {
		return
	}
	detail, err := h.Service.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	IsOpen      bool   `json:"isOpen"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload createRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	start, _ := v.Date("startDate", payload.StartDate, false)
	end, _ := v.Date("endDate", payload.EndDate, true)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), user.UserID, evaluation.CreateInput{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   start,
		EndDate:     end,
		Open:        payload.IsOpen,
	})
	if err != nil {
		h.fail(w, r, err, "evaluation_create_failed", "failed to create evaluation")
		return
	}
	h.record(r, "evaluation.create", "evaluation", created.ID, nil, created)
	api.Created(w, created, reqID)
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.IDParam(w, r, reqID, "evaluationID")
	if !ok {
		return
	}
	var payload updateRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	in := evaluation.UpdateInput{Name: payload.Name, Description: payload.Description}
	v := shared.NewValidator()
	if payload.StartDate != nil {
		if start, ok := v.Date("startDate", *payload.StartDate, false); ok {
			in.StartDate = &start
		}
	}
	if payload.EndDate != nil {
		if end, ok := v.Date("endDate", *payload.EndDate, true); ok {
			in.EndDate = &end
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "evaluation_update_failed", "failed to update evaluation")
		return
	}
	after, err := h.Service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, "evaluation_update_failed", "failed to update evaluation")
		return
	}
	h.record(r, "evaluation.update", "evaluation", id, before, after)
	api.Success(w, after, reqID)
}

type statusRequest struct {
	IsOpen json.RawMessage `json:"isOpen"`
	Status string          `json:"status"`
}

// requestedStatus resolves either form of the status payload.
func requestedStatus(payload statusRequest) (string, bool) {
	if payload.Status != "" {
		return payload.Status, true
	}
	if len(payload.IsOpen) == 0 {
		return "", false
	}
	var open bool
	if err := json.Unmarshal(payload.IsOpen, &open); err != nil {
		return "", false
	}
	return evaluation.StatusFromOpen(open), true
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.IDParam(w, r, reqID, "evaluationID")
	if !ok {
		return
	}
	var payload statusRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	status, ok := requestedStatus(payload)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "isOpen must be a boolean or status must be set", reqID)
		return
	}

	before, after, err := h.Service.SetStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err, "evaluation_status_failed", "failed to update status")
		return
	}
	h.record(r, "evaluation.status", "evaluation", id, before, after)
	api.Success(w, after, reqID)
}

func (h *Handler) handleAddTopic(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	evaluationID, ok := shared.IDParam(w, r, reqID, "evaluationID")
	if !ok {
		return
	}
	var payload struct {
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
	}
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if _, err := h.Service.Get(r.Context(), evaluationID); err != nil {
		h.fail(w, r, err, "topic_create_failed", "failed to create topic")
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if payload.Weight < 0 {
		v.Add("weight", "must be greater than zero")
	}
	if v.Reject(w, reqID) {
		return
	}

	topic, err := h.Service.AddTopic(r.Context(), evaluationID, evaluation.TopicInput{Name: payload.Name, Weight: payload.Weight})
	if err != nil {
		h.fail(w, r, err, "topic_create_failed", "failed to create topic")
		return
	}
	h.record(r, "topic.create", "topic", topic.ID, nil, topic)
	api.Created(w, topic, reqID)
}

type indicatorRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	IndicatorType   string  `json:"indicatorType"`
	Weight          float64 `json:"weight"`
	RequireEvidence bool    `json:"requireEvidence"`
}

func (h *Handler) handleAddIndicator(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	topicID, ok := shared.IDParam(w, r, reqID, "topicID")
	if !ok {
		return
	}
	var payload indicatorRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	indicator, err := h.Service.AddIndicator(r.Context(), topicID, evaluation.IndicatorInput{
		Name:            payload.Name,
		Description:     payload.Description,
		Type:            payload.IndicatorType,
		Weight:          payload.Weight,
		RequireEvidence: payload.RequireEvidence,
	})
	if err != nil {
		h.fail(w, r, err, "indicator_create_failed", "failed to create indicator")
		return
	}
	h.record(r, "indicator.create", "indicator", indicator.ID, nil, indicator)
	api.Created(w, indicator, reqID)
}

// handleImport accepts a YAML evaluation document.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	doc, err := evaluation.ParseImport(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
		return
	}
	detail, err := h.Service.Import(r.Context(), user.UserID, doc)
	if err != nil {
		h.fail(w, r, err, "evaluation_import_failed", "failed to import evaluation")
		return
	}
	h.record(r, "evaluation.import", "evaluation", detail.ID, nil, detail)
	api.Created(w, detail, reqID)
}
