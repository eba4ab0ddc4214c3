// Package api is the agent's sole network boundary. It talks the
// pc-insight agent HTTP contract and owns transport policy: URL-scheme
// validation, bearer auth, per-request timeouts and bounded retries.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pc-insight/agent/internal/store"
	"pc-insight/agent/internal/sysinfo"
)

const (
	requestTimeout = 15 * time.Second
	maxRetries     = 2 // 3 attempts total
	retryBaseDelay = 300 * time.Millisecond
	userAgent      = "pc-insight-agent"
)

// Command is a unit of remote work issued by the server. The agent only
// reads it.
type Command struct {
	ID       string
	Type     string
	Params   map[string]any
	IssuedAt string
}

// Status values reported back for a command.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// StatusUpdate is an ephemeral progress report for one command.
type StatusUpdate struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// EnrollResult is the credential set returned by a successful enrollment.
type EnrollResult struct {
	DeviceID    string
	DeviceToken string
	ExpiresIn   int
}

// StatusError is a non-2xx server response. 5xx and 429 are retried by
// the client; every other code surfaces immediately.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NormalizeServerURL validates the server URL and trims a trailing slash.
// Plain http is allowed only toward loopback so device tokens never cross
// the network unencrypted.
func NormalizeServerURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", errors.New("invalid server URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", errors.New("server URL must use http or https")
	}
	if scheme == "http" {
		host := strings.ToLower(parsed.Hostname())
		if host != "localhost" && host != "127.0.0.1" {
			return "", errors.New("insecure HTTP is blocked for non-localhost servers")
		}
	}
	return strings.TrimSuffix(parsed.String(), "/"), nil
}

// Client issues authenticated requests against the agent API.
type Client struct {
	httpc *http.Client
}

func NewClient() *Client {
	// Per-attempt deadlines come from the request context, not the
	// transport, so one slow attempt cannot eat the whole retry budget.
	return &Client{httpc: &http.Client{}}
}

type enrollRequest struct {
	DeviceName        string `json:"device_name"`
	Platform          string `json:"platform"`
	Arch              string `json:"arch"`
	AgentVersion      string `json:"agent_version"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

type enrollResponse struct {
	DeviceID    string `json:"device_id"`
	DeviceToken string `json:"device_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Enroll exchanges a one-time enrollment token for device credentials.
// It is a single attempt: the call is not idempotent-safe and a failure
// must be visible to the person linking the device.
func (c *Client) Enroll(ctx context.Context, serverURL, enrollToken string, info sysinfo.DeviceInfo) (*EnrollResult, error) {
	baseURL, err := NormalizeServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	body := enrollRequest{
		DeviceName:        info.DeviceName,
		Platform:          info.Platform,
		Arch:              info.Arch,
		AgentVersion:      info.AgentVersion,
		DeviceFingerprint: info.Fingerprint,
	}
	data, status, err := c.do(ctx, http.MethodPost, baseURL+"/v1/agent/enroll", enrollToken, body, 0)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, httpError(status, data)
	}
	var resp enrollResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse enroll response: %w", err)
	}
	return &EnrollResult{DeviceID: resp.DeviceID, DeviceToken: resp.DeviceToken, ExpiresIn: resp.ExpiresIn}, nil
}

type commandResponse struct {
	Command *struct {
		ID       string         `json:"id"`
		Type     string         `json:"type"`
		Params   map[string]any `json:"params"`
		IssuedAt string         `json:"issued_at"`
	} `json:"command"`
}

// NextCommand fetches the next queued command. No command queued is a
// normal outcome and returns (nil, nil).
func (c *Client) NextCommand(ctx context.Context, id *store.Identity) (*Command, error) {
	baseURL, err := NormalizeServerURL(id.ServerURL)
	if err != nil {
		return nil, err
	}
	data, status, err := c.do(ctx, http.MethodGet, baseURL+"/v1/agent/commands/next", id.DeviceToken, nil, maxRetries)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, httpError(status, data)
	}
	var resp commandResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse command response: %w", err)
	}
	if resp.Command == nil {
		return nil, nil
	}
	params := resp.Command.Params
	if params == nil {
		params = map[string]any{}
	}
	return &Command{
		ID:       resp.Command.ID,
		Type:     resp.Command.Type,
		Params:   params,
		IssuedAt: resp.Command.IssuedAt,
	}, nil
}

// UpdateStatus posts a progress update for a command. Callers treat it as
// fire-and-forget but still see transport failures so they can fall back.
func (c *Client) UpdateStatus(ctx context.Context, id *store.Identity, commandID string, update StatusUpdate) error {
	baseURL, err := NormalizeServerURL(id.ServerURL)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/v1/agent/commands/%s/status", baseURL, url.PathEscape(commandID))
	data, status, err := c.do(ctx, http.MethodPost, endpoint, id.DeviceToken, update, maxRetries)
	if err != nil {
		return err
	}
	if status >= 300 {
		return httpError(status, data)
	}
	return nil
}

type reportUpload struct {
	CommandID string          `json:"command_id,omitempty"`
	Report    json.RawMessage `json:"report"`
}

// UploadReport ships a sanitized report. commandID may be empty for
// reports not tied to a command.
func (c *Client) UploadReport(ctx context.Context, id *store.Identity, commandID string, report json.RawMessage) error {
	baseURL, err := NormalizeServerURL(id.ServerURL)
	if err != nil {
		return err
	}
	data, status, err := c.do(ctx, http.MethodPost, baseURL+"/v1/agent/reports", id.DeviceToken, reportUpload{CommandID: commandID, Report: report}, maxRetries)
	if err != nil {
		return err
	}
	if status >= 300 {
		return httpError(status, data)
	}
	return nil
}

// do runs one request with up to retries extra attempts. Retry triggers
// are transport errors, 5xx and 429; everything else is returned as-is.
func (c *Client) do(ctx context.Context, method, endpoint, token string, body any, retries int) ([]byte, int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		data, status, err := c.doOnce(ctx, method, endpoint, token, payload)
		if err != nil {
			lastErr = err
			if attempt < retries {
				if werr := backoff(ctx, attempt+1); werr != nil {
					return nil, 0, werr
				}
				continue
			}
			return nil, 0, lastErr
		}
		if (status >= 500 || status == http.StatusTooManyRequests) && attempt < retries {
			if werr := backoff(ctx, attempt+1); werr != nil {
				return nil, 0, werr
			}
			continue
		}
		return data, status, nil
	}
}

func (c *Client) doOnce(ctx context.Context, method, endpoint, token string, payload []byte) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// backoff sleeps attempt x base delay plus a little jitter, honoring
// cancellation.
func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * retryBaseDelay
	delay += time.Duration(rand.Int63n(int64(retryBaseDelay / 2)))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func httpError(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)
	msg := parsed.Message
	if msg == "" {
		msg = parsed.Detail
	}
	return &StatusError{StatusCode: status, Message: msg}
}
