// Package client is the HTTP client for the medialib admin API, used by
// the medctl CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8080/v0"

// ErrProgressNotFound is returned when polling an unknown or expired
// progress key. Not retryable: the job either never existed or was swept.
var ErrProgressNotFound = errors.New("unknown or expired progress key")

// Client is a lightweight API client for the medialib server
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// BulkRequest is the body for a bulk submission.
type BulkRequest struct {
	Type    string  `json:"type"`
	IDs     []int64 `json:"ids"`
	Status  string  `json:"status,omitempty"`
	Confirm bool    `json:"confirm,omitempty"`
	Track   bool    `json:"track,omitempty"`
}

// BulkResponse is the server's answer to a bulk submission. The counts are
// filled in for synchronous batches only.
type BulkResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	ProgressKey string      `json:"progressKey,omitempty"`
	Total       int         `json:"total,omitempty"`
	Succeeded   int         `json:"succeeded,omitempty"`
	Failed      int         `json:"failed,omitempty"`
	Errors      []ItemError `json:"errors,omitempty"`
}

// ItemError is one item's recorded failure.
type ItemError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// Progress is a snapshot of a tracked batch.
type Progress struct {
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Status    string      `json:"status"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Terminal reports whether the batch has finished.
func (p *Progress) Terminal() bool {
	return p.Status == "completed"
}

type progressEnvelope struct {
	Success  bool      `json:"success"`
	Progress *Progress `json:"progress,omitempty"`
}

// NewClient constructs a client with an explicit base URL
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// NewClientFromEnv constructs a client using environment variables
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv("MEDIALIB_API_BASE_URL"))
}

// SubmitBulk submits a bulk action. The action is one of change-status,
// toggle-featured, refresh-metadata or delete.
func (c *Client) SubmitBulk(ctx context.Context, action string, req BulkRequest) (*BulkResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bulk request: %w", err)
	}

	submitURL := fmt.Sprintf("%s/bulk/%s", c.BaseURL, url.PathEscape(action))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var out BulkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	return &out, nil
}

// GetProgress fetches a snapshot of a tracked batch. Returns
// ErrProgressNotFound when the key is unknown or expired.
func (c *Client) GetProgress(ctx context.Context, key string) (*Progress, error) {
	progressURL := fmt.Sprintf("%s/bulk/progress?key=%s", c.BaseURL, url.QueryEscape(key))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, progressURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrProgressNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var envelope progressEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	if !envelope.Success || envelope.Progress == nil {
		return nil, ErrProgressNotFound
	}
	return envelope.Progress, nil
}

// apiError turns a non-200 response into an error, preferring the server's
// problem detail when present.
func apiError(status int, body []byte) error {
	var problem struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil && problem.Detail != "" {
		return fmt.Errorf("API returned status %d: %s", status, problem.Detail)
	}
	return fmt.Errorf("API returned status %d", status)
}
