package usershandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/users"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

type Handler struct {
	Service *users.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *users.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	manage := middleware.RequirePermission(auth.PermUsersManage, h.Perms)
	r.Route("/users", func(r chi.Router) {
		r.With(manage).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.With(manage).Get("/{userID}", h.handleGet)
		r.With(manage).Put("/{userID}", h.handleUpdate)
		r.With(manage).Delete("/{userID}", h.handleDelete)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(manage).Get("/", h.handleListDepartments)
		r.With(manage).Post("/", h.handleCreateDepartment)
	})
}

type userPayload struct {
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	Name         *string `json:"name"`
	Role         *string `json:"role"`
	DepartmentID *string `json:"departmentId"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMsg string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, users.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
	case errors.Is(err, users.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", "role must be ADMIN, EVALUATOR or EVALUATEE", reqID)
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
	case errors.Is(err, users.ErrDepartmentNotFound):
		api.Fail(w, http.StatusBadRequest, "department_not_found", "department not found", reqID)
	case errors.Is(err, users.ErrDepartmentExists):
		api.Fail(w, http.StatusConflict, "department_exists", "department already exists", reqID)
	case errors.Is(err, users.ErrSelfDelete):
		api.Fail(w, http.StatusBadRequest, "self_delete", "cannot delete your own account", reqID)
	default:
		slog.Warn(fallbackCode, "err", err)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, before, after any) {
	user, _ := middleware.GetUser(r.Context())
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit user event failed", "action", action, "err", err)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	q := r.URL.Query()
	sort := q.Get("sort")
	desc := strings.HasPrefix(sort, "-")
	filter := users.Filter{Query: q.Get("q"), Role: q.Get("role"), Sort: strings.TrimPrefix(sort, "-"), Desc: desc}

	list, total, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err, "user_list_failed", "failed to list users")
		return
	}
	shared.SetTotalCount(w, total)
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "userID")
	if !ok {
		return
	}
	user, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "user_get_failed", "failed to load user")
		return
	}
	api.Success(w, user, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload userPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("email", deref(payload.Email), "is required")
	v.Required("password", deref(payload.Password), "is required")
	v.Required("name", deref(payload.Name), "is required")
	v.Required("role", deref(payload.Role), "is required")
	departmentID := v.ID("departmentId", deref(payload.DepartmentID))
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), users.CreateInput{
		Email:        deref(payload.Email),
		Password:     deref(payload.Password),
		Name:         deref(payload.Name),
		Role:         deref(payload.Role),
		DepartmentID: departmentID,
	})
	if err != nil {
		h.fail(w, r, err, "user_create_failed", "failed to create user")
		return
	}
	h.record(r, "user.create", "user", created.ID, nil, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.IDParam(w, r, reqID, "userID")
	if !ok {
		return
	}
	var payload userPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	if payload.Email != nil {
		v.Required("email", *payload.Email, "must not be empty")
	}
	if payload.Name != nil {
		v.Required("name", *payload.Name, "must not be empty")
	}
	if payload.DepartmentID != nil {
		departmentID := v.ID("departmentId", *payload.DepartmentID)
		payload.DepartmentID = &departmentID
	}
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "user_update_failed", "failed to update user")
		return
	}
	after, err := h.Service.Update(r.Context(), id, users.UpdateInput{
		Email:        payload.Email,
		Password:     payload.Password,
		Name:         payload.Name,
		Role:         payload.Role,
		DepartmentID: payload.DepartmentID,
	})
	if err != nil {
		h.fail(w, r, err, "user_update_failed", "failed to update user")
		return
	}
	h.record(r, "user.update", "user", id, before, after)
	api.Success(w, after, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.IDParam(w, r, middleware.GetRequestID(r.Context()), "userID")
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "user_delete_failed", "failed to delete user")
		return
	}
	if err := h.Service.Delete(r.Context(), user.UserID, id); err != nil {
		h.fail(w, r, err, "user_delete_failed", "failed to delete user")
		return
	}
	h.record(r, "user.delete", "user", id, before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		h.fail(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload struct {
		Name string `json:"name"`
	}
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	if v.Reject(w, reqID) {
		return
	}
	dep, err := h.Service.CreateDepartment(r.Context(), payload.Name)
	if err != nil {
		h.fail(w, r, err, "department_create_failed", "failed to create department")
		return
	}
	h.record(r, "department.create", "department", dep.ID, nil, dep)
	api.Created(w, dep, reqID)
}
