package authhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/users"
	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/middleware"
	"perfeval/internal/transport/http/shared"
)

const minPasswordLen = 8

type Handler struct {
	Service     *auth.Service
	Users       *users.Service
	Audit       *audit.Service
	AllowSignup bool
}

func NewHandler(service *auth.Service, usersSvc *users.Service, auditSvc *audit.Service, allowSignup bool) *Handler {
	return &Handler{Service: service, Users: usersSvc, Audit: auditSvc, AllowSignup: allowSignup}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/register", h.HandleRegister)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.HandleLogout)
			r.Get("/me", h.HandleMe)
			r.Post("/mfa/setup", h.HandleMFASetup)
			r.Post("/mfa/enable", h.HandleMFAEnable)
			r.Post("/mfa/disable", h.HandleMFADisable)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return errors.New("must be at least 8 characters")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return errors.New("must contain a letter and a number")
	}
	return nil
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "email and password are required", reqID)
		return
	}

	res, err := h.Service.Login(r.Context(), strings.TrimSpace(payload.Email), payload.Password, payload.MFACode)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	case errors.Is(err, auth.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", reqID)
		return
	}

	user, err := h.Users.Get(r.Context(), res.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to load user", reqID)
		return
	}
	api.Success(w, map[string]any{
		"token": res.Token,
		"role":  res.Role,
		"name":  res.Name,
		"user":  user,
	}, reqID)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if !h.AllowSignup {
		api.Fail(w, http.StatusForbidden, "signup_disabled", "self signup is disabled", reqID)
		return
	}
	var payload registerRequest
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	v.Required("name", payload.Name, "is required")
	v.Required("role", payload.Role, "is required")
	if payload.Password != "" {
		if err := validatePassword(payload.Password); err != nil {
			v.Add("password", err.Error())
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	user, err := h.Users.Register(r.Context(), users.CreateInput{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
		Role:     payload.Role,
	})
	switch {
	case errors.Is(err, users.ErrInvalidRole):
		api.Fail(w, http.StatusBadRequest, "invalid_role", "role must be EVALUATOR or EVALUATEE", reqID)
		return
	case errors.Is(err, users.ErrRoleNotAllowed):
		api.Fail(w, http.StatusBadRequest, "invalid_role", "self signup cannot create admins", reqID)
		return
	case errors.Is(err, users.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to register", reqID)
		return
	}

	h.record(r, user.ID, "auth.register", user.ID, nil, user)
	api.Created(w, user, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	if err := h.Service.Logout(r.Context(), user.UserID, user.SessionID); err != nil {
		api.Fail(w, http.StatusInternalServerError, "logout_failed", "failed to end session", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "logged_out"}, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	me, err := h.Users.Get(r.Context(), user.UserID)
	if errors.Is(err, users.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "me_failed", "failed to load user", reqID)
		return
	}
	api.Success(w, map[string]any{
		"user":        me,
		"permissions": auth.RolePermissions[me.Role],
	}, reqID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	me, err := h.Users.Get(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to load user", reqID)
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user.UserID, me.Email)
	if errors.Is(err, auth.ErrMFAUnavailable) {
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to generate mfa secret", reqID)
		return
	}
	api.Success(w, setup, reqID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if err := shared.DecodeJSON(r, &payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "code is required", reqID)
		return
	}

	var err error
	action := "auth.mfa.disable"
	if enable {
		action = "auth.mfa.enable"
		err = h.Service.EnableMFA(r.Context(), user.UserID, strings.TrimSpace(payload.Code))
	} else {
		err = h.Service.DisableMFA(r.Context(), user.UserID, strings.TrimSpace(payload.Code))
	}
	switch {
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa requires encryption key", reqID)
		return
	case errors.Is(err, auth.ErrMFANotConfigured):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", reqID)
		return
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", reqID)
		return
	}

	h.record(r, user.UserID, action, user.UserID, nil, map[string]bool{"mfaEnabled": enable})
	api.Success(w, map[string]bool{"mfaEnabled": enable}, reqID)
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "user", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit auth event failed", "err", err)
	}
}
