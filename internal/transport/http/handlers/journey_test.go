package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"perfeval/internal/app/server"
	"perfeval/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return config.Config{
		DatabaseURL:       dbURL,
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		DataEncryptionKey: "0123456789abcdef0123456789abcdef",
		FrontendDir:       t.TempDir(),
		Environment:       "test",
		SeedAdminEmail:    "admin@test.local",
		SeedAdminPassword: "ChangeMe123!",
		SeedAdminName:     "Admin",
		EmailFrom:         "no-reply@test.local",
		RunMigrations:     true,
		RunSeed:           true,
		MaxBodyBytes:      1 << 20,
		MaxUploadBytes:    10 << 20,
		RateLimitPerMin:   1000,
		StorageDriver:     config.StorageLocal,
		StorageLocalDir:   t.TempDir(),
		MetricsEnabled:    true,
	}
}

func TestEvaluationScoringJourney(t *testing.T) {
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	admin := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	raterEmail := fmt.Sprintf("rater-%d@example.com", suffix)
	ratedEmail := fmt.Sprintf("rated-%d@example.com", suffix)
	raterID := createUser(t, client, ts.URL, admin, raterEmail, "EVALUATOR")
	ratedID := createUser(t, client, ts.URL, admin, ratedEmail, "EVALUATEE")

	today := time.Now().UTC()
	evaluationID := idOf(t, postJSON(t, client, ts.URL+"/api/v1/evaluations", admin, map[string]any{
		"name":      fmt.Sprintf("Cycle %d", suffix),
		"startDate": today.AddDate(0, 0, -1).Format("2006-01-02"),
		"endDate":   today.AddDate(0, 0, 30).Format("2006-01-02"),
		"isOpen":    true,
	}))
	topicID := idOf(t, postJSON(t, client, ts.URL+"/api/v1/evaluations/"+evaluationID+"/topics", admin, map[string]any{
		"name": "Teaching", "weight": 1,
	}))
	scaleID := idOf(t, postJSON(t, client, ts.URL+"/api/v1/topics/"+topicID+"/indicators", admin, map[string]any{
		"name": "Lesson plans", "indicatorType": "SCALE_1_4", "weight": 2,
	}))
	evidenceID := idOf(t, postJSON(t, client, ts.URL+"/api/v1/topics/"+topicID+"/indicators", admin, map[string]any{
		"name": "Certificate", "indicatorType": "YES_NO", "weight": 1, "requireEvidence": true,
	}))

	assignmentID := idOf(t, postJSON(t, client, ts.URL+"/api/v1/assignments", admin, map[string]any{
		"evaluationId": evaluationID, "evaluatorId": raterID, "evaluateeId": ratedID,
	}))

	rater := login(t, client, ts.URL, raterEmail, "Passw0rd!")
	rated := login(t, client, ts.URL, ratedEmail, "Passw0rd!")

	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/assignments/"+assignmentID+"/score", rater, map[string]any{
		"indicatorId": evidenceID, "score": 1,
	}, http.StatusBadRequest)

	postJSON(t, client, ts.URL+"/api/v1/indicators/"+evidenceID+"/evidence", rated, map[string]any{
		"fileUrl": "https://drive.example.org/cert.pdf",
	})

	postJSON(t, client, ts.URL+"/api/v1/assignments/"+assignmentID+"/score", rater, map[string]any{
		"indicatorId": evidenceID, "score": 1,
	})
	postJSON(t, client, ts.URL+"/api/v1/assignments/"+assignmentID+"/score", rater, map[string]any{
		"indicatorId": scaleID, "score": 3,
	})
	scored := postJSON(t, client, ts.URL+"/api/v1/assignments/"+assignmentID+"/score", rater, map[string]any{
		"indicatorId": scaleID, "score": 4, "remarks": "revised",
	})
	scoreID := idOf(t, scored)

	history := getJSON(t, client, ts.URL+"/api/v1/scores/"+scoreID+"/history", admin)
	var changes []map[string]any
	if err := json.Unmarshal(history.Data, &changes); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected one history entry, got %d", len(changes))
	}

	submitted := postJSON(t, client, ts.URL+"/api/v1/assignments/"+assignmentID+"/submit", rater, map[string]any{})
	if status := fieldOf(t, submitted, "status"); status != "SUBMITTED" {
		t.Fatalf("expected SUBMITTED, got %s", status)
	}
	doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/assignments/"+assignmentID+"/score", rater, map[string]any{
		"indicatorId": scaleID, "score": 2,
	}, http.StatusConflict)

	mine := getJSON(t, client, ts.URL+"/api/v1/results/me", rated)
	var results []map[string]any
	if err := json.Unmarshal(mine.Data, &results); err != nil {
		t.Fatalf("failed to decode results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if total, _ := results[0]["totalScore"].(float64); total <= 0 {
		t.Fatalf("expected positive total score, got %v", results[0]["totalScore"])
	}

	getJSONStatus(t, client, ts.URL+"/api/v1/results", rated, http.StatusForbidden)
	getJSON(t, client, ts.URL+"/api/v1/results/progress?evaluationId="+evaluationID, admin)

	resp, err := doRaw(client, http.MethodGet, ts.URL+"/api/v1/results/"+assignmentID+"/pdf", rated, nil)
	if err != nil {
		t.Fatalf("pdf request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("expected pdf, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	notes := getJSON(t, client, ts.URL+"/api/v1/notifications", rated)
	var items []map[string]any
	if err := json.Unmarshal(notes.Data, &items); err != nil {
		t.Fatalf("failed to decode notifications: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected evaluatee notifications")
	}

	events := getJSON(t, client, ts.URL+"/api/v1/audit/events?action=score.save", admin)
	var audit []map[string]any
	if err := json.Unmarshal(events.Data, &audit); err != nil {
		t.Fatalf("failed to decode audit events: %v", err)
	}
	if len(audit) == 0 {
		t.Fatal("expected score audit events")
	}
}

func TestUnauthenticatedAccessIsRejected(t *testing.T) {
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	getJSONStatus(t, ts.Client(), ts.URL+"/api/v1/evaluations", "", http.StatusUnauthorized)
	getJSONStatus(t, ts.Client(), ts.URL+"/api/v1/results/me", "", http.StatusUnauthorized)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	token := fieldOf(t, resp, "token")
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createUser(t *testing.T, client *http.Client, baseURL, token, email, role string) string {
	t.Helper()
	return idOf(t, postJSON(t, client, baseURL+"/api/v1/users", token, map[string]any{
		"email":    email,
		"password": "Passw0rd!",
		"name":     "User " + role,
		"role":     role,
	}))
}

func fieldOf(t *testing.T, env envelope, field string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	value, _ := payload[field].(string)
	return value
}

func idOf(t *testing.T, env envelope) string {
	t.Helper()
	id := fieldOf(t, env, "id")
	if id == "" {
		t.Fatalf("expected id in response: %s", string(env.Data))
	}
	return id
}

func doRaw(client *http.Client, method, url, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return client.Do(req)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	resp, err := doRaw(client, method, url, token, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if want != 0 && resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(raw))
	}
	if want == 0 && resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, 0)
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, 0)
}

func getJSONStatus(t *testing.T, client *http.Client, url, token string, want int) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, want)
}
