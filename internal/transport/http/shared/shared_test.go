package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
		page   int
	}{
		{query: "", limit: 20, offset: 0, page: 1},
		{query: "page=3&pageSize=10", limit: 10, offset: 20, page: 3},
		{query: "pageSize=1000", limit: 200, offset: 0, page: 1},
		{query: "limit=5&offset=10", limit: 5, offset: 10, page: 3},
		{query: "page=0&pageSize=-1", limit: 20, offset: 0, page: 1},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x?"+tc.query, nil)
		got := ParsePagination(req, DefaultPageSize, MaxPageSize)
		assert.Equal(t, tc.limit, got.Limit, tc.query)
		assert.Equal(t, tc.offset, got.Offset, tc.query)
		assert.Equal(t, tc.page, got.Page, tc.query)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:5555"
	assert.Equal(t, "10.0.0.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "a", dst.Name)
}

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ", "is required")
	start, ok := v.Date("startDate", "2026-02-01", false)
	require.True(t, ok)
	end, ok := v.Date("endDate", "2026-01-01", true)
	require.True(t, ok)
	v.DateOrder("startDate", start, "endDate", end)
	v.Positive("weight", 0)
	v.Enum("indicatorType", "stars", []string{"SCALE_1_4", "YES_NO"}, "unknown indicator type")

	issues := v.Issues()
	require.Len(t, issues, 5)
	assert.Equal(t, "endDate", issues[0].Field)
	assert.Equal(t, "weight", issues[len(issues)-1].Field)

	rec := httptest.NewRecorder()
	assert.True(t, v.Reject(rec, "r1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestIDParamRejectsNonUUID(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("assignmentID", value)
		req := httptest.NewRequest(http.MethodGet, "/assignments/x", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rec := httptest.NewRecorder()
	id, ok := IDParam(rec, withParam("8A1F1C52-6E0B-4C2B-9E55-0E5B1A1C2D3E"), "req-1", "assignmentID")
	require.True(t, ok)
	assert.Equal(t, "8a1f1c52-6e0b-4c2b-9e55-0e5b1a1c2d3e", id)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	_, ok = IDParam(rec, withParam("not-a-uuid"), "req-2", "assignmentID")
	require.False(t, ok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_found"`)
}

func TestValidatorID(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, "", v.ID("departmentId", "  "))
	assert.Equal(t, "8a1f1c52-6e0b-4c2b-9e55-0e5b1a1c2d3e", v.ID("indicatorId", "8a1f1c52-6e0b-4c2b-9e55-0e5b1a1c2d3e"))
	assert.False(t, v.HasIssues())

	v.ID("indicatorId", "42")
	require.Equal(t, []ValidationIssue{{Field: "indicatorId", Reason: "must be a UUID"}}, v.Issues())
}
