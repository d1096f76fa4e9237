package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Business event names counted alongside request totals.
const (
	EventScoreSaved        = "scores_saved"
	EventScoreHistory      = "score_history_written"
	EventEvidenceUploaded  = "evidence_uploaded"
	EventAssignmentSubmit  = "assignments_submitted"
	EventEvaluationsClosed = "evaluations_closed"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu     sync.Mutex
	events map[string]uint64
	routes map[string]uint64
}

func New() *Collector {
	return &Collector{events: map[string]uint64{}, routes: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordRoute counts a request against its route pattern.
func (c *Collector) RecordRoute(method, pattern string) {
	if pattern == "" {
		pattern = "unmatched"
	}
	c.mu.Lock()
	c.routes[method+" "+pattern]++
	c.mu.Unlock()
}

func (c *Collector) Inc(event string) {
	c.Add(event, 1)
}

func (c *Collector) Add(event string, n uint64) {
	if c == nil || n == 0 {
		return
	}
	c.mu.Lock()
	c.events[event] += n
	c.mu.Unlock()
}

type RouteCount struct {
	Route string `json:"route"`
	Count uint64 `json:"count"`
}

type Snapshot struct {
	RequestsTotal    uint64            `json:"requestsTotal"`
	ErrorsTotal      uint64            `json:"errorsTotal"`
	RateLimitedTotal uint64            `json:"rateLimitedTotal"`
	AvgDurationMs    float64           `json:"avgDurationMs"`
	TotalDurationMs  uint64            `json:"totalDurationMs"`
	Events           map[string]uint64 `json:"events"`
	Routes           []RouteCount      `json:"routes"`
}

func (c *Collector) Snapshot() Snapshot {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	snap := Snapshot{
		RequestsTotal:    total,
		ErrorsTotal:      atomic.LoadUint64(&c.errorRequests),
		RateLimitedTotal: atomic.LoadUint64(&c.rateLimited),
		TotalDurationMs:  totalMs,
		Events:           map[string]uint64{},
		Routes:           []RouteCount{},
	}
	if total > 0 {
		snap.AvgDurationMs = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	for k, v := range c.events {
		snap.Events[k] = v
	}
	for k, v := range c.routes {
		snap.Routes = append(snap.Routes, RouteCount{Route: k, Count: v})
	}
	c.mu.Unlock()

	sort.Slice(snap.Routes, func(i, j int) bool {
		if snap.Routes[i].Count != snap.Routes[j].Count {
			return snap.Routes[i].Count > snap.Routes[j].Count
		}
		return snap.Routes[i].Route < snap.Routes[j].Route
	})
	return snap
}
