package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/auth"
)

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func asUser(req *http.Request, id, role string) *http.Request {
	return req.WithContext(WithUser(context.Background(), auth.UserContext{UserID: id, Role: role}))
}

func fromIP(req *http.Request, addr string) *http.Request {
	req.RemoteAddr = addr
	return req
}

func jsonPost(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRateLimitFollowsUserAcrossIPs(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(noContent))

	first := fromIP(asUser(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/my", nil), "rater-1", auth.RoleEvaluator), "198.51.100.11:2222")
	require.Equal(t, http.StatusNoContent, serve(h, first).Code)

	second := fromIP(asUser(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/my", nil), "rater-1", auth.RoleEvaluator), "198.51.100.12:3333")
	assert.Equal(t, http.StatusTooManyRequests, serve(h, second).Code)

	other := fromIP(asUser(httptest.NewRequest(http.MethodGet, "/api/v1/assignments/my", nil), "rater-2", auth.RoleEvaluator), "198.51.100.12:3333")
	assert.Equal(t, http.StatusNoContent, serve(h, other).Code)
}

func TestRateLimitAnonymousCallersShareIP(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(noContent))

	require.Equal(t, http.StatusNoContent, serve(h, fromIP(httptest.NewRequest(http.MethodGet, "/healthz", nil), "203.0.113.10:4444")).Code)
	rec := serve(h, fromIP(httptest.NewRequest(http.MethodGet, "/api/v1/results/me", nil), "203.0.113.10:5555"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestWindowCounterResetsAndPrunes(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	c := newWindowCounter(1, time.Minute)
	c.now = func() time.Time { return now }
	c.pruneAt = 1

	assert.True(t, c.take("user:a").allowed)
	d := c.take("user:a")
	assert.False(t, d.allowed)
	assert.Equal(t, time.Minute, d.resetIn)
	assert.True(t, c.take("user:b").allowed)

	now = now.Add(time.Minute)
	assert.True(t, c.take("user:a").allowed)
	assert.Len(t, c.buckets, 1)
}

func TestWriteRateLimitScoresPerAssignment(t *testing.T) {
	h := WriteRateLimit(4, time.Minute)(http.HandlerFunc(noContent))
	score := func(assignmentID string) int {
		req := asUser(jsonPost("/api/v1/assignments/"+assignmentID+"/score", `{"indicatorId":"i1","score":3}`), "rater-1", auth.RoleEvaluator)
		return serve(h, req).Code
	}

	assert.Equal(t, http.StatusNoContent, score("a1"))
	assert.Equal(t, http.StatusNoContent, score("a1"))
	assert.Equal(t, http.StatusTooManyRequests, score("a1"))
	assert.Equal(t, http.StatusNoContent, score("a2"))

	other := asUser(jsonPost("/api/v1/assignments/a1/score", `{"indicatorId":"i1","score":3}`), "rater-2", auth.RoleEvaluator)
	assert.Equal(t, http.StatusNoContent, serve(h, other).Code)
}

func TestWriteRateLimitEvidencePerIndicator(t *testing.T) {
	h := WriteRateLimit(2, time.Minute)(http.HandlerFunc(noContent))
	upload := func(indicatorID string) int {
		req := asUser(jsonPost("/api/v1/indicators/"+indicatorID+"/evidence", `{"fileUrl":"https://x.org/a.pdf"}`), "rated-1", auth.RoleEvaluatee)
		return serve(h, req).Code
	}

	assert.Equal(t, http.StatusNoContent, upload("i1"))
	assert.Equal(t, http.StatusTooManyRequests, upload("i1"))
	assert.Equal(t, http.StatusNoContent, upload("i2"))
}

func TestWriteRateLimitRegisterByEmailAndIP(t *testing.T) {
	h := WriteRateLimit(8, time.Minute)(http.HandlerFunc(noContent))

	register := func(addr, email string) int {
		return serve(h, fromIP(jsonPost("/api/v1/auth/register", `{"email":"`+email+`","password":"Passw0rd!"}`), addr)).Code
	}
	assert.Equal(t, http.StatusNoContent, register("192.0.2.1:1000", "new@example.com"))
	assert.Equal(t, http.StatusNoContent, register("192.0.2.2:1000", "NEW@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, register("192.0.2.3:1000", "new@example.com"))

	assert.Equal(t, http.StatusNoContent, register("192.0.2.9:1000", "a@example.com"))
	assert.Equal(t, http.StatusNoContent, register("192.0.2.9:1000", "b@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, register("192.0.2.9:1000", "c@example.com"))
}

func TestWriteRateLimitKeepsBodyForHandler(t *testing.T) {
	var got string
	h := WriteRateLimit(8, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		got = buf.String()
		w.WriteHeader(http.StatusNoContent)
	}))

	serve(h, jsonPost("/api/v1/auth/login", `{"email":"admin@example.com","password":"x"}`))
	assert.JSONEq(t, `{"email":"admin@example.com","password":"x"}`, got)
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	h := WriteRateLimit(1, time.Minute)(http.HandlerFunc(noContent))
	for i := 0; i < 5; i++ {
		req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/results/progress", nil), "admin", auth.RoleAdmin)
		require.Equal(t, http.StatusNoContent, serve(h, req).Code)
	}
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		params  []string
		ok      bool
	}{
		{"assignments/{}/score", "/api/v1/assignments/a1/score", []string{"a1"}, true},
		{"assignments/{}/score", "/api/v1/assignments/a1/score/", []string{"a1"}, true},
		{"assignments/{}/score", "/api/v1/assignments//score", nil, false},
		{"assignments/{}/score", "/api/v1/assignments/a1/submit", nil, false},
		{"indicators/{}/evidence", "/api/v1/indicators/i9/evidence", []string{"i9"}, true},
		{"auth/login", "/api/v1/auth/login", nil, true},
		{"auth/login", "/auth/login", nil, false},
		{"evaluations/import", "/api/v1/evaluations/import/extra", nil, false},
	}
	for _, tc := range tests {
		params, ok := matchRoute(tc.pattern, tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.params, params, tc.path)
	}
}
