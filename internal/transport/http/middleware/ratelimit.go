package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"perfeval/internal/transport/http/api"
	"perfeval/internal/transport/http/shared"
)

// pruneAt is the bucket count above which expired buckets are dropped.
const pruneAt = 4096

type windowBucket struct {
	used    int
	resetAt time.Time
}

// windowCounter is a fixed-window request counter keyed by caller.
type windowCounter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	pruneAt int
	buckets map[string]*windowBucket
}

type windowDecision struct {
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func newWindowCounter(limit int, window time.Duration) *windowCounter {
	return &windowCounter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		pruneAt: pruneAt,
		buckets: map[string]*windowBucket{},
	}
}

func (c *windowCounter) take(key string) windowDecision {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buckets) > c.pruneAt {
		for k, b := range c.buckets {
			if !now.Before(b.resetAt) {
				delete(c.buckets, k)
			}
		}
	}
	b, ok := c.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &windowBucket{resetAt: now.Add(c.window)}
		c.buckets[key] = b
	}
	b.used++
	return windowDecision{
		allowed:   b.used <= c.limit,
		remaining: max(c.limit-b.used, 0),
		resetIn:   b.resetAt.Sub(now),
	}
}

// allow charges every key against c and writes the 429 response when any
// of them is over budget.
func (c *windowCounter) allow(w http.ResponseWriter, r *http.Request, keys ...string) bool {
	if c.limit <= 0 {
		return true
	}
	for _, key := range keys {
		d := c.take(key)
		resetSec := ceilSeconds(d.resetIn)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(c.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
		if d.allowed {
			continue
		}
		w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
		slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", c.limit)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// callerKey identifies signed-in users by id and everyone else by IP.
func callerKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

// RateLimit caps requests per caller across the whole API.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	c := newWindowCounter(limit, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.allow(w, r, callerKey(r)) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type writeKeys func(r *http.Request, params []string) []string

type writeRule struct {
	pattern string
	keys    writeKeys
	counter *windowCounter
}

// WriteRateLimit applies tighter budgets to credential and scoring writes.
// Credential routes get a quarter of base, charged per client IP and per
// submitted email. Score saves are charged per evaluator and assignment,
// evidence uploads per evaluatee and indicator, and the remaining
// workflow writes per caller, each with half of base.
func WriteRateLimit(base int, window time.Duration) func(http.Handler) http.Handler {
	credential := max(base/4, 1)
	workflow := max(base/2, 1)
	rule := func(pattern string, limit int, keys writeKeys) writeRule {
		return writeRule{pattern: pattern, keys: keys, counter: newWindowCounter(limit, window)}
	}
	rules := []writeRule{
		rule("auth/login", credential, credentialKeys),
		rule("auth/register", credential, credentialKeys),
		rule("auth/mfa/enable", credential, callerKeys),
		rule("auth/mfa/disable", credential, callerKeys),
		rule("assignments/{}/score", workflow, perTarget),
		rule("assignments/{}/submit", workflow, callerKeys),
		rule("indicators/{}/evidence", workflow, perTarget),
		rule("evaluations/import", workflow, callerKeys),
		rule("jobs/close-expired", workflow, callerKeys),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				for _, rl := range rules {
					params, ok := matchRoute(rl.pattern, r.URL.Path)
					if !ok {
						continue
					}
					if !rl.counter.allow(w, r, rl.keys(r, params)...) {
						return
					}
					break
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKeys(r *http.Request, _ []string) []string {
	return []string{callerKey(r)}
}

func perTarget(r *http.Request, params []string) []string {
	return []string{callerKey(r) + "|" + params[0]}
}

func credentialKeys(r *http.Request, _ []string) []string {
	keys := []string{"ip:" + shared.ClientIP(r)}
	if email := bodyEmail(r); email != "" {
		keys = append(keys, "email:"+email)
	}
	return keys
}

// bodyEmail peeks at the JSON email field and restores the body for the
// handler.
func bodyEmail(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

// matchRoute matches an /api/v1 path against pattern, where "{}" stands for
// one non-empty segment, and returns the captured segments.
func matchRoute(pattern, path string) ([]string, bool) {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return nil, false
	}
	want := strings.Split(pattern, "/")
	got := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if len(want) != len(got) {
		return nil, false
	}
	var params []string
	for i, seg := range want {
		if seg == "{}" {
			if got[i] == "" {
				return nil, false
			}
			params = append(params, got[i])
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}
