package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordRoute("POST", "/api/v1/assignments/{id}/score")
	c.RecordRoute("POST", "/api/v1/assignments/{id}/score")
	c.RecordRoute("GET", "")
	c.Inc(EventScoreSaved)
	c.Add(EventEvaluationsClosed, 3)
	c.Add(EventEvaluationsClosed, 0)

	snap := c.Snapshot()
	assert.EqualValues(t, 3, snap.RequestsTotal)
	assert.EqualValues(t, 1, snap.ErrorsTotal)
	assert.EqualValues(t, 1, snap.RateLimitedTotal)
	assert.InDelta(t, 40.0/3.0, snap.AvgDurationMs, 1e-9)
	assert.EqualValues(t, 1, snap.Events[EventScoreSaved])
	assert.EqualValues(t, 3, snap.Events[EventEvaluationsClosed])
	require.Len(t, snap.Routes, 2)
	assert.Equal(t, "POST /api/v1/assignments/{id}/score", snap.Routes[0].Route)
	assert.Equal(t, "GET unmatched", snap.Routes[1].Route)
}

func TestCollectorConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(200, time.Millisecond)
			c.Inc(EventEvidenceUploaded)
		}()
	}
	wg.Wait()
	snap := c.Snapshot()
	assert.EqualValues(t, 50, snap.RequestsTotal)
	assert.EqualValues(t, 50, snap.Events[EventEvidenceUploaded])
}

func TestNilCollectorAddIsSafe(t *testing.T) {
	var c *Collector
	c.Inc(EventScoreSaved)
}
