package jobshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfeval/internal/domain/auth"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/jobs"
	"perfeval/internal/transport/http/middleware"
)

type memRuns struct {
	mu   sync.Mutex
	runs []jobs.Run
}

func (m *memRuns) StartRun(_ context.Context, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("run-%d", len(m.runs)+1)
	m.runs = append(m.runs, jobs.Run{ID: id, JobType: jobType, Status: jobs.StatusRunning})
	return id, nil
}

func (m *memRuns) FinishRun(_ context.Context, id, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			m.runs[i].Status = status
			m.runs[i].Details = details
		}
	}
	return nil
}

func (m *memRuns) ListRuns(_ context.Context, filter jobs.RunFilter, _, _ int) ([]jobs.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []jobs.Run{}
	for _, run := range m.runs {
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func (m *memRuns) CountRuns(ctx context.Context, filter jobs.RunFilter) (int, error) {
	runs, err := m.ListRuns(ctx, filter, 0, 0)
	return len(runs), err
}

func adminRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "admin", Role: auth.RoleAdmin}))
}

func TestCloseExpiredRunsNowAndIsListed(t *testing.T) {
	runs := &memRuns{}
	svc := jobs.New(runs, config.Config{})
	svc.Register(jobs.TypeCloseExpired, func(context.Context, []byte) (any, error) {
		return jobs.CloseExpiredResult{EvaluationIDs: []string{"ev1"}, Closed: 1}, nil
	})
	h := NewHandler(svc, nil, nil)

	rec := httptest.NewRecorder()
	h.handleCloseExpired(rec, adminRequest(http.MethodPost, "/jobs/close-expired"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data jobs.CloseExpiredResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Closed)

	rec = httptest.NewRecorder()
	h.handleListRuns(rec, adminRequest(http.MethodGet, "/jobs/runs?status=completed"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
}

func TestListRunsRejectsUnknownStatus(t *testing.T) {
	h := NewHandler(jobs.New(&memRuns{}, config.Config{}), nil, nil)
	rec := httptest.NewRecorder()
	h.handleListRuns(rec, adminRequest(http.MethodGet, "/jobs/runs?status=exploded"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCloseExpiredWithoutHandler(t *testing.T) {
	h := NewHandler(jobs.New(&memRuns{}, config.Config{}), nil, nil)
	rec := httptest.NewRecorder()
	h.handleCloseExpired(rec, adminRequest(http.MethodPost, "/jobs/close-expired"))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
