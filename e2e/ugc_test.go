package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

func startBody(password string) string {
	return fmt.Sprintf(`{
		"action": "start",
		"password": %q,
		"product": "Glow serum",
		"productPhotoUrl": "https://cdn.example.com/serum.png",
		"icp": "women 25-40, skincare fans",
		"productFeatures": "vitamin c, hyaluronic acid",
		"videoSetting": "bright bathroom on a calm morning",
		"model": "Sora 2"
	}`, password)
}

func TestValidate_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"letmein"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["valid"] != true {
		t.Errorf("expected valid true, got %v", result["valid"])
	}
	if result["isAdmin"] != false {
		t.Errorf("expected isAdmin false, got %v", result["isAdmin"])
	}
	if result["remaining"] != float64(2) {
		t.Errorf("expected remaining 2, got %v", result["remaining"])
	}
	if token, _ := result["token"].(string); token == "" {
		t.Error("expected a session token")
	}
}

func TestValidate_WrongPassword(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"nope"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
	if code := errorCode(t, resp); code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", code)
	}
}

func TestUnknownAction(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"explode"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestStart_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["jobId"] != "job-1" {
		t.Errorf("expected jobId 'job-1', got %v", result["jobId"])
	}
	if result["status"] != "queued" {
		t.Errorf("expected status 'queued', got %v", result["status"])
	}
	if result["remaining"] != float64(1) {
		t.Errorf("expected remaining 1, got %v", result["remaining"])
	}
}

func TestStart_WithSessionToken(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"root"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	token, _ := parseJSON(t, resp)["token"].(string)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(""), map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
	if parseJSON(t, resp)["isAdmin"] != true {
		t.Error("expected the admin session to carry over")
	}
}

func TestUGC_StaleSessionToken(t *testing.T) {
	// issued by a server whose secret has since been rotated
	issuer := setupApp(t, func(o *appOptions) { o.jwtSecret = "rotated" })
	resp, err := doRequest(issuer.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"letmein"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	stale, _ := parseJSON(t, resp)["token"].(string)
	bearer := map[string]string{"Authorization": "Bearer " + stale}

	ta := setupApp(t)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"validate still works", `{"action":"validate","password":"letmein"}`, http.StatusOK, ""},
		{"status still works", `{"action":"status","jobId":"job-1"}`, http.StatusOK, ""},
		{"start falls back to password", startBody(testPassword), http.StatusOK, ""},
		{"start without password", startBody(""), http.StatusUnauthorized, "Invalid or expired token"},
		{"start with wrong password", startBody("nope"), http.StatusUnauthorized, "Wrong password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", tt.body, bearer)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, tt.status)
			if tt.message == "" {
				return
			}
			e, _ := parseJSON(t, resp)["error"].(map[string]interface{})
			if e["message"] != tt.message {
				t.Errorf("expected message %q, got %v", tt.message, e["message"])
			}
		})
	}
}

func TestStart_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing photo", `{"action":"start","password":"letmein","product":"x","model":"Sora 2"}`},
		{"bad model", `{"action":"start","password":"letmein","product":"x","productPhotoUrl":"https://a/b.png","model":"Veo 9"}`},
		{"bad url", `{"action":"start","password":"letmein","product":"x","productPhotoUrl":"not a url","model":"Sora 2"}`},
		{"not json", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", tt.body, nil)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, http.StatusBadRequest)
		})
	}

	if n := ta.workflow.startCount(); n != 0 {
		t.Errorf("expected no workflow calls, got %d", n)
	}
}

func TestStart_WrongPassword(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody("nope"), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
	if n := ta.workflow.startCount(); n != 0 {
		t.Errorf("expected no workflow calls, got %d", n)
	}
}

func TestStart_QuotaExceeded(t *testing.T) {
	ta := setupApp(t)

	for i := 0; i < 2; i++ {
		resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)
	}

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusTooManyRequests)
	if code := errorCode(t, resp); code != "QUOTA_EXCEEDED" {
		t.Errorf("expected QUOTA_EXCEEDED, got %s", code)
	}

	// admins are not metered
	resp, err = doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testAdminPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestStart_UpstreamErrors(t *testing.T) {
	ta := setupApp(t)

	ta.workflow.setDown(true)
	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadGateway)
	if code := errorCode(t, resp); code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("expected UPSTREAM_UNAVAILABLE, got %s", code)
	}
	ta.workflow.setDown(false)

	ta.workflow.setGarbage(true)
	resp, err = doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadGateway)
	if code := errorCode(t, resp); code != "MALFORMED_RESPONSE" {
		t.Errorf("expected MALFORMED_RESPONSE, got %s", code)
	}

	// failed starts do not spend quota
	ta.workflow.setGarbage(false)
	resp, err = doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if parseJSON(t, resp)["remaining"] != float64(1) {
		t.Error("expected quota to be charged once")
	}
}

func TestStart_WorkflowUnreachable(t *testing.T) {
	dead := "http://127.0.0.1:1/webhook"
	ta := setupApp(t, func(o *appOptions) { o.webhookURL = &dead })

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadGateway)

	body := parseJSON(t, resp)
	e := body["error"].(map[string]interface{})
	if e["message"] != "Failed to reach n8n webhook" {
		t.Errorf("unexpected message %v", e["message"])
	}
}

func TestStart_WebhookNotConfigured(t *testing.T) {
	empty := ""
	ta := setupApp(t, func(o *appOptions) { o.webhookURL = &empty })

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", startBody(testPassword), nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusInternalServerError)
	if code := errorCode(t, resp); code != "SERVICE_ERROR" {
		t.Errorf("expected SERVICE_ERROR, got %s", code)
	}
}

func TestStatus(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"status","jobId":"job-1"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	result := parseJSON(t, resp)
	if result["status"] != "Ready" {
		t.Errorf("expected status 'Ready', got %v", result["status"])
	}

	resp, err = doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"status","jobId":"job-1"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	result = parseJSON(t, resp)
	if result["status"] != "Finished" || result["videoUrl"] == "" {
		t.Errorf("expected finished with a video, got %v", result)
	}
}

func TestStatus_MissingJobID(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"status"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRateLimited(t *testing.T) {
	ta := setupApp(t, func(o *appOptions) { o.requestsPerMin = 3 })
	headers := map[string]string{"X-Forwarded-For": "203.0.113.7"}

	for i := 0; i < 3; i++ {
		resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"letmein"}`, headers)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusOK)
	}

	resp, err := doRequest(ta.app, http.MethodPost, "/api/ugc", `{"action":"validate","password":"letmein"}`, headers)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if code := errorCode(t, resp); code != "RATE_LIMITED" {
		t.Errorf("expected RATE_LIMITED, got %s", code)
	}
}
