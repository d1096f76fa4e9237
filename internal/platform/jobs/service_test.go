package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"perfeval/internal/platform/config"
	"perfeval/internal/platform/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memRuns struct {
	mu   sync.Mutex
	runs []Run
}

func (m *memRuns) StartRun(_ context.Context, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("r%d", len(m.runs)+1)
	m.runs = append(m.runs, Run{ID: id, JobType: jobType, Status: StatusRunning})
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

func (m *memRuns) ListRuns(_ context.Context, filter RunFilter, _, _ int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Run{}
	for _, r := range m.runs {
		if filter.JobType != "" && r.JobType != filter.JobType {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memRuns) CountRuns(ctx context.Context, filter RunFilter) (int, error) {
	runs, err := m.ListRuns(ctx, filter, 0, 0)
	return len(runs), err
}

func (m *memRuns) snapshot() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Run(nil), m.runs...)
}

type fakeMailer struct {
	sent chan EmailPayload
}

func (f fakeMailer) Send(_ context.Context, from, to, subject, body string) error {
	f.sent <- EmailPayload{From: from, To: to, Subject: subject, Body: body}
	return nil
}

func TestQueuedMailerRunsInProcess(t *testing.T) {
	runs := &memRuns{}
	svc := New(runs, config.Config{})
	mailer := fakeMailer{sent: make(chan EmailPayload, 1)}
	svc.Register(TypeEmail, EmailHandler(mailer))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	require.NoError(t, QueuedMailer{Jobs: svc}.Send(ctx, "noreply@x.org", "a@x.org", "Hi", "Body"))

	select {
	case msg := <-mailer.sent:
		assert.Equal(t, "a@x.org", msg.To)
		assert.Equal(t, "Hi", msg.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("email job did not run")
	}

	assert.Eventually(t, func() bool {
		r := runs.snapshot()
		return len(r) == 1 && r[0].Status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationMailerQueuesOnlyWhenEnabled(t *testing.T) {
	direct := fakeMailer{sent: make(chan EmailPayload, 1)}

	svc := New(&memRuns{}, config.Config{})
	assert.Equal(t, direct, NotificationMailer(svc, direct, false))
	_, ok := svc.handler(TypeEmail)
	assert.True(t, ok)

	queued := NotificationMailer(svc, direct, true)
	require.IsType(t, QueuedMailer{}, queued)
	require.NoError(t, queued.Send(context.Background(), "noreply@x.org", "b@x.org", "Queued", "Body"))
	assert.Len(t, svc.queue, 1)
	assert.Empty(t, direct.sent)
}

func TestEnqueueUnknownJob(t *testing.T) {
	svc := New(&memRuns{}, config.Config{})
	require.ErrorIs(t, svc.Enqueue(context.Background(), "nope", nil), ErrUnknownJob)
}

// memExpiry stages changes per run and applies them only when the run
// succeeds, like a rolled-back transaction.
type memExpiry struct {
	open      []string
	submitted map[string]int64
	closeErr  error
	lockFails int
}

type memExpiryRun struct {
	m      *memExpiry
	closed []string
}

func (r *memExpiryRun) CloseExpired(context.Context, time.Time) ([]string, error) {
	if r.m.closeErr != nil {
		return nil, r.m.closeErr
	}
	r.closed = append([]string(nil), r.m.open...)
	return r.closed, nil
}

func (r *memExpiryRun) LockSubmitted(_ context.Context, ids []string) (int64, error) {
	if r.m.lockFails > 0 {
		r.m.lockFails--
		return 0, errors.New("conn reset")
	}
	var n int64
	for _, id := range ids {
		n += r.m.submitted[id]
	}
	return n, nil
}

func (m *memExpiry) run(_ context.Context, fn func(ExpiryStore) error) error {
	r := &memExpiryRun{m: m}
	if err := fn(r); err != nil {
		return err
	}
	for _, id := range r.closed {
		m.submitted[id] = 0
	}
	m.open = nil
	return nil
}

func TestCloseExpiredRecordsRun(t *testing.T) {
	runs := &memRuns{}
	svc := New(runs, config.Config{})
	store := &memExpiry{open: []string{"e1", "e2"}, submitted: map[string]int64{"e1": 3, "e2": 1}}
	m := metrics.New()
	now := func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	svc.Register(TypeCloseExpired, CloseExpiredHandler(store.run, m, now))

	details, err := svc.RunNow(context.Background(), TypeCloseExpired, struct{}{})
	require.NoError(t, err)
	res, ok := details.(CloseExpiredResult)
	require.True(t, ok)
	assert.Equal(t, 2, res.Closed)
	assert.Equal(t, int64(4), res.LockedAssignments)
	assert.Empty(t, store.open)

	list, total, err := svc.ListRuns(context.Background(), RunFilter{JobType: TypeCloseExpired}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, StatusCompleted, list[0].Status)
	assert.JSONEq(t, `{"evaluationIds":["e1","e2"],"closed":2,"lockedAssignments":4}`, string(list[0].Details))
}

func TestCloseExpiredRollsBackWhenLockFails(t *testing.T) {
	svc := New(&memRuns{}, config.Config{})
	store := &memExpiry{open: []string{"e1"}, submitted: map[string]int64{"e1": 2}, lockFails: 1}
	m := metrics.New()
	svc.Register(TypeCloseExpired, CloseExpiredHandler(store.run, m, time.Now))

	_, err := svc.RunNow(context.Background(), TypeCloseExpired, nil)
	require.EqualError(t, err, "conn reset")
	assert.Equal(t, []string{"e1"}, store.open)
	assert.Equal(t, int64(2), store.submitted["e1"])

	details, err := svc.RunNow(context.Background(), TypeCloseExpired, nil)
	require.NoError(t, err)
	res := details.(CloseExpiredResult)
	assert.Equal(t, []string{"e1"}, res.EvaluationIDs)
	assert.Equal(t, int64(2), res.LockedAssignments)
	assert.Empty(t, store.open)
}

func TestFailedJobIsRecorded(t *testing.T) {
	runs := &memRuns{}
	svc := New(runs, config.Config{})
	store := &memExpiry{closeErr: errors.New("db down"), submitted: map[string]int64{}}
	svc.Register(TypeCloseExpired, CloseExpiredHandler(store.run, nil, time.Now))

	_, err := svc.RunNow(context.Background(), TypeCloseExpired, nil)
	require.Error(t, err)

	r := runs.snapshot()
	require.Len(t, r, 1)
	assert.Equal(t, StatusFailed, r[0].Status)
	assert.JSONEq(t, `{"error":"db down"}`, string(r[0].Details))
}

func TestWorkerRequiresRedis(t *testing.T) {
	svc := New(&memRuns{}, config.Config{})
	require.ErrorIs(t, svc.RunWorker(context.Background()), ErrNoRedis)
	require.ErrorIs(t, svc.RunScheduler(context.Background()), ErrNoRedis)
	require.NoError(t, svc.Close())
}
