package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/config"
	"github.com/ugcstudio/api/internal/model"
)

// ErrWebhookNotConfigured is returned when no workflow URL is set.
var ErrWebhookNotConfigured = errors.New("N8N_WEBHOOK_URL not configured")

// UpstreamError carries a non-2xx reply from the workflow.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("workflow error (status %d): %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return model.ErrUpstreamUnavailable }

// JobRunner starts workflow executions and reports their status
type JobRunner interface {
	StartJob(ctx context.Context, brief *model.Brief) (*model.JobStartResponse, error)
	JobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

// WebhookClient forwards job actions to the external workflow webhook.
type WebhookClient struct {
	httpClient *http.Client
	url        string
	secret     string
	log        *zap.Logger
}

func NewWebhookClient(cfg *config.WebhookConfig, timeout time.Duration, log *zap.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		secret:     cfg.Secret,
		log:        log.Named("webhook"),
	}
}

// Configured reports whether a webhook URL is set.
func (c *WebhookClient) Configured() bool {
	return c.url != ""
}

// StartJob asks the workflow to render a video for brief.
func (c *WebhookClient) StartJob(ctx context.Context, brief *model.Brief) (*model.JobStartResponse, error) {
	body := map[string]interface{}{
		"action":          model.ActionStart,
		"product":         brief.Product,
		"productPhotoUrl": brief.ProductPhotoURL,
		"icp":             brief.TargetAudience,
		"productFeatures": brief.ProductFeatures,
		"videoSetting":    brief.VideoSetting,
		"model":           brief.Model,
	}

	res, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}

	jobID := firstString(res, "jobId", "executionId", "id")
	if jobID == "" {
		return nil, fmt.Errorf("%w: start reply has no job id", model.ErrMalformedResponse)
	}
	status := res.Get("status").String()
	if status == "" {
		status = model.UpstreamStatusQueued
	}
	return &model.JobStartResponse{
		JobID:   jobID,
		Status:  status,
		Message: res.Get("message").String(),
	}, nil
}

// JobStatus fetches the execution status of jobID.
func (c *WebhookClient) JobStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	res, err := c.post(ctx, map[string]interface{}{
		"action": model.ActionStatus,
		"jobId":  jobID,
	})
	if err != nil {
		return nil, err
	}

	status := res.Get("status")
	if !status.Exists() || status.Type != gjson.String {
		return nil, fmt.Errorf("%w: status reply has no status", model.ErrMalformedResponse)
	}
	out := &model.JobStatusResponse{
		JobID:    jobID,
		Status:   status.String(),
		VideoURL: res.Get("videoUrl").String(),
		Product:  res.Get("product").String(),
		Model:    res.Get("model").String(),
	}
	if id := res.Get("jobId").String(); id != "" {
		out.JobID = id
	}
	return out, nil
}

// post sends body to the webhook and returns the parsed JSON reply
func (c *WebhookClient) post(ctx context.Context, body interface{}) (gjson.Result, error) {
	if c.url == "" {
		return gjson.Result{}, ErrWebhookNotConfigured
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-webhook-secret", c.secret)
	req.Header.Set("x-request-id", requestID)

	log := c.log.With(zap.String("request_id", requestID))
	log.Debug("→ POST", zap.ByteString("body", bodyBytes))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("✗ POST request failed", zap.Error(err))
		return gjson.Result{}, fmt.Errorf("%w: failed to reach n8n webhook: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("✗ POST failed to read response", zap.Error(err))
		return gjson.Result{}, fmt.Errorf("%w: failed to read response: %v", model.ErrUpstreamUnavailable, err)
	}

	log.Debug("← POST", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return gjson.Parse("{}"), nil
	}
	if !gjson.ValidBytes(respBody) {
		return gjson.Result{}, fmt.Errorf("%w: %q", model.ErrMalformedResponse, truncate(string(respBody), 120))
	}
	res := gjson.ParseBytes(respBody)
	// some workflows answer with a one-element array
	if res.IsArray() {
		res = res.Get("0")
	}
	if !res.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: expected a JSON object", model.ErrMalformedResponse)
	}
	return res, nil
}

func firstString(res gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
