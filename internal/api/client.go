package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultClientTimeout = 10 * time.Second

// Client provides HTTP access to a running daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client for the daemon at baseURL, typically
// "http://127.0.0.1:7000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

// WithHTTPClient swaps the underlying HTTP client (used in tests).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.http = client
	}
	return c
}

// Status retrieves daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.get(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Enqueue schedules a sync job for the given title.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := c.post(ctx, "/api/queue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue jobs optionally filtered by statuses.
func (c *Client) QueueList(ctx context.Context, statuses ...string) (*QueueListResponse, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		query := url.Values{"status": statuses}
		path += "?" + query.Encode()
	}
	var resp QueueListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueShow returns details for a single queue job.
func (c *Client) QueueShow(ctx context.Context, id int64) (*QueueJobResponse, error) {
	var resp QueueJobResponse
	if err := c.get(ctx, fmt.Sprintf("/api/queue/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStats returns per-status job counts.
func (c *Client) QueueStats(ctx context.Context) (*QueueStatsResponse, error) {
	var resp QueueStatsResponse
	if err := c.get(ctx, "/api/queue/stats", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry resets failed jobs back to pending. With no ids, every failed
// job is retried.
func (c *Client) QueueRetry(ctx context.Context, ids ...int64) (*QueueMutationResponse, error) {
	payload := struct {
		IDs []int64 `json:"ids,omitempty"`
	}{IDs: ids}
	var resp QueueMutationResponse
	if err := c.post(ctx, "/api/queue/retry", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueReset returns jobs stuck in processing states to pending.
func (c *Client) QueueReset(ctx context.Context) (*QueueMutationResponse, error) {
	var resp QueueMutationResponse
	if err := c.post(ctx, "/api/queue/reset", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove deletes a single job from the queue.
func (c *Client) QueueRemove(ctx context.Context, id int64) (*QueueMutationResponse, error) {
	var resp QueueMutationResponse
	if err := c.delete(ctx, fmt.Sprintf("/api/queue/%d", id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes jobs from the queue. Scope is "completed", "failed", or
// "all".
func (c *Client) QueueClear(ctx context.Context, scope string) (*QueueMutationResponse, error) {
	query := url.Values{"scope": {scope}}
	var resp QueueMutationResponse
	if err := c.delete(ctx, "/api/queue?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification asks the daemon to send a test notification.
func (c *Client) TestNotification(ctx context.Context) error {
	return c.post(ctx, "/api/notifications/test", nil, nil)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, payload.Error)
	}
	message := strings.TrimSpace(string(data))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, message)
}
