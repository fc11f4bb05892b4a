package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Client wraps http.Client with the probe's base URL.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and returns status and body.
func (c *Client) Get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return resp.StatusCode, body, nil
}

// Heroes fetches the hero table.
func (c *Client) Heroes(ctx context.Context) ([]heroRow, error) {
	status, body, err := c.Get(ctx, "/heroes")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("GET /heroes: status %d", status)
	}
	var out heroesBody
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode /heroes: %w", err)
	}
	return out.Heroes, nil
}

func recommendPath(j Job, top int) string {
	q := url.Values{}
	q.Set("ally", j.Ally)
	q.Set("enemy", j.Enemy)
	if j.Phase != "" {
		q.Set("phase", j.Phase)
	}
	if top > 0 {
		q.Set("top", strconv.Itoa(top))
	}
	return "/recommend?" + q.Encode()
}
