package authhandler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "Stronger123"},
		{name: "too short", password: "S1hort", wantErr: true},
		{name: "missing number", password: "LongPassword", wantErr: true},
		{name: "missing letter", password: "1234567890", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestRegisterDisabled(t *testing.T) {
	router := newRouter(&Handler{AllowSignup: false})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@x.org"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "signup_disabled")
}

func TestRegisterMissingFields(t *testing.T) {
	router := newRouter(&Handler{AllowSignup: true})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@x.org"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "validation_error")
	assert.Contains(t, body, `"field":"password"`)
	assert.Contains(t, body, `"field":"role"`)
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	router := newRouter(&Handler{})
	for _, body := range []string{`{`, `{"email":"","password":""}`} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newRouter(&Handler{})
	for _, path := range []string{"/auth/me", "/auth/logout", "/auth/mfa/setup"} {
		method := http.MethodPost
		if path == "/auth/me" {
			method = http.MethodGet
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
