package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/model"
)

const invalidTokenMessage = "Invalid or expired token"

// APIClient talks to the UGC server's proxy route on behalf of the
// lifecycle controller. It remembers the session token handed out by
// Validate and presents it on later calls.
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	log        *zap.Logger

	mu    sync.RWMutex
	token string
}

func NewAPIClient(baseURL string, timeout time.Duration, log *zap.Logger) *APIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log.Named("api"),
	}
}

// Validate checks credential and caches the session token on success.
func (c *APIClient) Validate(ctx context.Context, credential string) (*model.ValidateResponse, error) {
	var result model.ValidateResponse
	err := c.call(ctx, model.UGCRequest{Action: model.ActionValidate, Password: credential}, &result)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, model.ErrAuthorization
	}
	c.setToken(result.Token)
	return &result, nil
}

// Start submits brief for rendering.
func (c *APIClient) Start(ctx context.Context, brief model.Brief, credential string) (*model.JobStartResponse, error) {
	var result model.JobStartResponse
	err := c.call(ctx, model.UGCRequest{Action: model.ActionStart, Password: credential, Brief: brief}, &result)
	if err != nil {
		return nil, err
	}
	if result.JobID == "" {
		return nil, fmt.Errorf("%w: start reply has no job id", model.ErrMalformedResponse)
	}
	return &result, nil
}

// Status fetches the workflow status of jobID.
func (c *APIClient) Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	var result model.JobStatusResponse
	if err := c.call(ctx, model.UGCRequest{Action: model.ActionStatus, JobID: jobID}, &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		return nil, fmt.Errorf("%w: status reply has no status", model.ErrMalformedResponse)
	}
	return &result, nil
}

// ClearSession forgets the cached session token.
func (c *APIClient) ClearSession() {
	c.setToken("")
}

func (c *APIClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *APIClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// call posts body to /api/ugc and decodes the reply into result. A reply
// rejecting the cached session token drops it and the request is sent once
// more without it.
func (c *APIClient) call(ctx context.Context, body model.UGCRequest, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	token := c.bearer()
	status, respBody, err := c.post(ctx, body.Action, bodyBytes, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && token != "" {
		c.dropToken(token)
		if gjson.GetBytes(respBody, "error.message").String() == invalidTokenMessage {
			c.log.Info("api.session_token_rejected", zap.String("action", body.Action))
			status, respBody, err = c.post(ctx, body.Action, bodyBytes, "")
			if err != nil {
				return err
			}
		}
	}

	if status < 200 || status >= 300 {
		return classify(status, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedResponse, err)
	}
	return nil
}

func (c *APIClient) post(ctx context.Context, action string, bodyBytes []byte, token string) (int, []byte, error) {
	url := c.baseURL + "/api/ugc"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.log.With(zap.String("action", action))
	log.Debug("→ POST " + url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("✗ POST request failed", zap.Error(err))
		return 0, nil, fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", model.ErrUpstreamUnavailable, err)
	}

	log.Debug("← POST "+url, zap.Int("status", resp.StatusCode))
	return resp.StatusCode, respBody, nil
}

// dropToken clears the cached token unless a newer one replaced it.
func (c *APIClient) dropToken(token string) {
	c.mu.Lock()
	if c.token == token {
		c.token = ""
	}
	c.mu.Unlock()
}

// classify maps an error envelope onto the shared error kinds.
func classify(status int, body []byte) error {
	code := gjson.GetBytes(body, "error.code").String()
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		// bare {"error": "..."} replies
		msg = gjson.GetBytes(body, "error").String()
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var kind error
	switch {
	case status == http.StatusUnauthorized:
		kind = model.ErrAuthorization
	case code == "QUOTA_EXCEEDED":
		kind = model.ErrQuotaExceeded
	case code == "MALFORMED_RESPONSE":
		kind = model.ErrMalformedResponse
	case status == http.StatusBadRequest:
		kind = model.ErrValidation
	default:
		kind = model.ErrUpstreamUnavailable
	}
	return &APIError{StatusCode: status, Code: code, Message: msg, kind: kind}
}

// APIError is a non-2xx reply from the UGC server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error { return e.kind }
