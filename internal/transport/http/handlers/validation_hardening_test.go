package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"perfeval/internal/app/server"
)

func TestHighRiskEndpointsReturnValidationErrors(t *testing.T) {
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	evaluationResp := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations", adminToken, map[string]any{
		"name":      "",
		"startDate": "2026-04-10",
		"endDate":   "2026-04-01",
	}, http.StatusBadRequest)
	assertValidationErrorField(t, evaluationResp, "name")
	assertValidationErrorField(t, evaluationResp, "endDate")

	userResp := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/users", adminToken, map[string]any{
		"email": "",
		"name":  "",
	}, http.StatusBadRequest)
	assertValidationErrorField(t, userResp, "email")
	assertValidationErrorField(t, userResp, "password")

	assignmentResp := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/assignments", adminToken, map[string]any{}, http.StatusBadRequest)
	assertValidationErrorField(t, assignmentResp, "evaluationId")
}

func envelopeErrorCode(env envelope) string {
	errMap, ok := env.Error.(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errMap["code"].(string)
	return code
}

func assertValidationErrorField(t *testing.T, env envelope, field string) {
	t.Helper()
	if code := envelopeErrorCode(env); code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	errMap, ok := env.Error.(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %T", env.Error)
	}
	details, ok := errMap["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %+v", errMap["details"])
	}
	fieldsRaw, ok := details["fields"].([]any)
	if !ok {
		t.Fatalf("expected details.fields array, got %+v", details["fields"])
	}
	for _, item := range fieldsRaw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, _ := entry["field"].(string); value == field {
			return
		}
	}
	t.Fatalf("expected validation field %q in %+v", field, fieldsRaw)
}
