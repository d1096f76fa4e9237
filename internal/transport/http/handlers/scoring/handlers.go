package scoringhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/scoring"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *scoring.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *scoring.Service, perms middleware.PermissionStore, auditSvc *audit.Service, m *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: m}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermScoresWrite, h.Perms)).Post("/assignments/{assignmentID}/score", h.handleSave)
	r.With(middleware.RequirePermission(auth.PermScoresHistory, h.Perms)).Get("/scores/{scoreID}/history", h.handleHistory)
}

// errorStatus maps scoring sentinels to HTTP status and code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, scoring.ErrInvalidScore), errors.Is(err, scoring.ErrScoreOutOfRange):
		return http.StatusBadRequest, "invalid_score"
	case errors.Is(err, scoring.ErrAssignmentNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, scoring.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, scoring.ErrNotEvaluator), errors.Is(err, scoring.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, scoring.ErrEvaluationClosed):
		return http.StatusForbidden, "evaluation_closed"
	case errors.Is(err, scoring.ErrAssignmentLocked):
		return http.StatusConflict, "assignment_locked"
	case errors.Is(err, scoring.ErrIndicatorNotInEvaluation), errors.Is(err, scoring.ErrIndicatorNotFound):
		return http.StatusBadRequest, "indicator_not_in_evaluation"
	case errors.Is(err, scoring.ErrEvidenceRequired):
		return http.StatusBadRequest, "evidence_required"
	}
	return http.StatusInternalServerError, ""
}

type saveRequest struct {
	IndicatorID string          `json:"indicatorId"`
	Score       json.RawMessage `json:"score"`
	Remarks     string          `json:"remarks"`
}

// parseScore accepts only a JSON number.
func parseScore(raw json.RawMessage) (float64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, `"`) {
		return 0, false
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload saveRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	score, ok := parseScore(payload.Score)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_score", scoring.ErrInvalidScore.Error(), reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("indicatorId", payload.IndicatorID, "is required")
	indicatorID := v.ID("indicatorId", payload.IndicatorID)
	if v.Reject(w, reqID) {
		return
	}

	assignmentID, ok := shared.IDParam(w, r, reqID, "assignmentID")
	if !ok {
		return
	}
	res, err := h.Service.Save(r.Context(), user, assignmentID, scoring.SaveInput{
		IndicatorID: indicatorID,
		Score:       score,
		Remarks:     payload.Remarks,
	})
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Warn("score save failed", "assignmentId", assignmentID, "err", err)
			api.Fail(w, status, "score_save_failed", "failed to save score", reqID)
			return
		}
		api.Fail(w, status, code, err.Error(), reqID)
		return
	}

	h.Metrics.Inc(metrics.EventScoreSaved)
	if res.History != nil {
		h.Metrics.Inc(metrics.EventScoreHistory)
	}
	var before any
	if res.Before != nil {
		before = res.Before
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "score.save", "score", res.Score.ID, reqID, shared.ClientIP(r), before, res.Score); err != nil {
		slog.Warn("audit score event failed", "err", err)
	}
	api.Created(w, res.Score, reqID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	scoreID, ok := shared.IDParam(w, r, reqID, "scoreID")
	if !ok {
		return
	}
	history, err := h.Service.History(r.Context(), user, scoreID)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			slog.Warn("score history failed", "err", err)
			api.Fail(w, status, "score_history_failed", "failed to load score history", reqID)
			return
		}
		api.Fail(w, status, code, err.Error(), reqID)
		return
	}
	api.Success(w, history, reqID)
}
