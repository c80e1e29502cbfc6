package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ugcstudio/api/internal/auth"
	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/config"
	"github.com/ugcstudio/api/internal/handler"
	"github.com/ugcstudio/api/internal/limiter"
	"github.com/ugcstudio/api/internal/middleware"
	"github.com/ugcstudio/api/internal/service"
	ws "github.com/ugcstudio/api/internal/websocket"
)

const (
	testJWTSecret     = "test-secret-for-e2e"
	testPassword      = "letmein"
	testAdminPassword = "root"
	testWebhookSecret = "hook-secret"
)

// fakeWorkflow stands in for the n8n webhook.
type fakeWorkflow struct {
	mu       sync.Mutex
	server   *httptest.Server
	starts   int
	polls    int
	statuses []string // served in order, last one repeats
	videoURL string
	down     bool
	garbage  bool
}

func newFakeWorkflow(t *testing.T) *fakeWorkflow {
	t.Helper()
	f := &fakeWorkflow{
		statuses: []string{"Ready", "Finished"},
		videoURL: "https://cdn.example.com/videos/job-1.mp4",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeWorkflow) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("x-webhook-secret") != testWebhookSecret {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if f.down {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"workflow paused"}`))
		return
	}
	if f.garbage {
		w.Write([]byte(`<html>gateway</html>`))
		return
	}

	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch body["action"] {
	case "start":
		f.starts++
		w.Write([]byte(`{"jobId":"job-1","status":"queued","message":"Video generation started"}`))
	case "status":
		i := min(f.polls, len(f.statuses)-1)
		f.polls++
		status := f.statuses[i]
		url := ""
		if status == "Finished" {
			url = f.videoURL
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status":   status,
			"videoUrl": url,
			"product":  "Glow serum",
			"model":    "Sora 2",
		})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeWorkflow) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeWorkflow) setGarbage(garbage bool) {
	f.mu.Lock()
	f.garbage = garbage
	f.mu.Unlock()
}

func (f *fakeWorkflow) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	workflow *fakeWorkflow
	hub      *ws.Hub
}

type appOptions struct {
	webhookURL     *string
	requestsPerMin int
	quotaPerDay    int
	jwtSecret      string
}

// setupApp creates a Fiber app wired like main.go, backed by memory window
// stores and a fake workflow.
func setupApp(t *testing.T, opts ...func(*appOptions)) *testApp {
	t.Helper()

	o := appOptions{requestsPerMin: 10000, quotaPerDay: 2, jwtSecret: testJWTSecret}
	for _, fn := range opts {
		fn(&o)
	}

	workflow := newFakeWorkflow(t)
	url := workflow.server.URL
	if o.webhookURL != nil {
		url = *o.webhookURL
	}

	windows := limiter.NewMemoryStore()
	rateLimit := limiter.New(windows, "ugc", o.requestsPerMin, time.Minute, nil)
	quota := limiter.New(windows, "quota", o.quotaPerDay, 24*time.Hour, nil)

	hub := ws.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	webhook := client.NewWebhookClient(&config.WebhookConfig{URL: url, Secret: testWebhookSecret}, 5*time.Second, nil)
	ugcService := service.NewUGCService(service.UGCServiceOptions{
		Runner:    webhook,
		Gate:      auth.NewGate([]string{testPassword}, []string{testAdminPassword}),
		Quota:     quota,
		Publisher: hub,
		JWTSecret: o.jwtSecret,
	})

	validate := handler.NewValidator()
	ugcHandler := handler.NewUGCHandler(ugcService, validate, nil)
	insightHandler := handler.NewInsightHandler(validate)
	authMiddleware := middleware.NewAuthMiddleware(o.jwtSecret)
	rateLimiter := middleware.NewRateLimiter(rateLimit, nil)

	app := fiber.New()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"webhook": webhook.Configured(),
				"redis":   false,
				"auth":    true,
			},
		})
	})

	api := app.Group("/api")
	api.Post("/ugc", rateLimiter.PerIP(), authMiddleware.Session(), ugcHandler.Handle)
	api.Post("/score", insightHandler.Score)
	api.Post("/progress", insightHandler.Progress)

	return &testApp{app: app, workflow: workflow, hub: hub}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := parseJSON(t, resp)
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
