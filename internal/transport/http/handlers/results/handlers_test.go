package resultshandler

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/auth"
	"perfeval/internal/domain/results"
	"perfeval/internal/transport/http/middleware"
)

type fakeStore struct {
	rows []results.AssignmentRow
}

func (f fakeStore) Assignments(_ context.Context, filter results.Filter, _, _ int) ([]results.AssignmentRow, error) {
	out := []results.AssignmentRow{}
	for _, row := range f.rows {
		if filter.EvaluationID != "" && row.EvaluationID != filter.EvaluationID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f fakeStore) CountAssignments(ctx context.Context, filter results.Filter) (int, error) {
	rows, _ := f.Assignments(ctx, filter, 0, 0)
	return len(rows), nil
}

func (f fakeStore) Assignment(_ context.Context, id string) (results.AssignmentRow, error) {
	for _, row := range f.rows {
		if row.AssignmentID == id {
			return row, nil
		}
	}
	return results.AssignmentRow{}, results.ErrNotFound
}

func (fakeStore) Scores(context.Context, []string) ([]results.ScoreRow, error) {
	return []results.ScoreRow{{AssignmentID: pdfAssignment, TopicID: "t1", Topic: "Teaching", Indicator: "Plans", RawScore: 4, Weight: 2, CalculatedScore: 2}}, nil
}

func (fakeStore) Topics(context.Context, string) ([]results.TopicRow, error) {
	return nil, nil
}

func (fakeStore) Departments(context.Context) ([]string, error) {
	return []string{"Science", "Support"}, nil
}

const (
	pdfAssignment = "3f2b9c1e-8d4a-4e5f-9b6c-1a2d3e4f5a6b"
	evaluationID  = "5a6b7c8d-1e2f-4a3b-8c4d-5e6f7a8b9c0d"
)

func newHandler() *Handler {
	store := fakeStore{rows: []results.AssignmentRow{{
		AssignmentID: pdfAssignment, EvaluationID: evaluationID, Evaluation: "2026",
		EvaluateeID: "rated", Evaluatee: "Ann", EvaluatorID: "rater", Evaluator: "Eve",
		Department: sql.NullString{String: "Math", Valid: true}, Status: "SUBMITTED", MaxScore: 2,
	}}}
	h := NewHandler(results.NewService(store), nil)
	h.Now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	return h
}

func withUser(req *http.Request, user auth.UserContext) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), user))
}

func withAssignment(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("assignmentID", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestExportWritesCSVAttachment(t *testing.T) {
	h := newHandler()
	rec := httptest.NewRecorder()
	h.handleExport(rec, httptest.NewRequest(http.MethodGet, "/results/export?evaluationId="+evaluationID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="results-2026-10-16.csv"`, rec.Header().Get("Content-Disposition"))
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ann", records[1][0])
}

func TestListSetsTotalCount(t *testing.T) {
	h := newHandler()
	rec := httptest.NewRecorder()
	h.handleList(rec, httptest.NewRequest(http.MethodGet, "/results?page=1&pageSize=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}

func TestPDFAccess(t *testing.T) {
	h := newHandler()

	req := withAssignment(httptest.NewRequest(http.MethodGet, "/results/"+pdfAssignment+"/pdf", nil), pdfAssignment)
	rec := httptest.NewRecorder()
	h.handlePDF(rec, withUser(req, auth.UserContext{UserID: "rated", Role: auth.RoleEvaluatee}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Body.Len() > 0)

	req = withAssignment(httptest.NewRequest(http.MethodGet, "/results/"+pdfAssignment+"/pdf", nil), pdfAssignment)
	rec = httptest.NewRecorder()
	h.handlePDF(rec, withUser(req, auth.UserContext{UserID: "stranger", Role: auth.RoleEvaluator}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = withAssignment(httptest.NewRequest(http.MethodGet, "/results/9d1c2b3a-0000-4000-8000-000000000001/pdf", nil), "9d1c2b3a-0000-4000-8000-000000000001")
	rec = httptest.NewRecorder()
	h.handlePDF(rec, withUser(req, auth.UserContext{UserID: "admin", Role: auth.RoleAdmin}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = withAssignment(httptest.NewRequest(http.MethodGet, "/results/zz/pdf", nil), "zz")
	rec = httptest.NewRecorder()
	h.handlePDF(rec, withUser(req, auth.UserContext{UserID: "admin", Role: auth.RoleAdmin}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressIncludesEmptyDepartments(t *testing.T) {
	h := newHandler()
	rec := httptest.NewRecorder()
	h.handleProgress(rec, httptest.NewRequest(http.MethodGet, "/results/progress?evaluationId="+evaluationID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []results.DepartmentProgress `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []results.DepartmentProgress{
		{Department: "Math", Total: 1, Completed: 1, Percentage: 100},
		{Department: "Science"},
		{Department: "Support"},
		{Department: results.UnassignedDepartment},
	}, body.Data)
}

func TestResultFiltersRejectMalformedEvaluationID(t *testing.T) {
	h := newHandler()
	routes := map[string]http.HandlerFunc{
		"/results":                h.handleList,
		"/results/progress":       h.handleProgress,
		"/results/topic-analysis": h.handleTopicAnalysis,
		"/results/export":         h.handleExport,
	}
	for path, handle := range routes {
		rec := httptest.NewRecorder()
		handle(rec, httptest.NewRequest(http.MethodGet, path+"?evaluationId=ev1", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "evaluationId", path)
	}
}
