// Package airtable is a minimal Airtable records client used for filing
// user bug reports against compatibility checks.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.airtable.com"

// Client defines the Airtable operations used by this application.
type Client interface {
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*Record, error)
}

// Record is an Airtable record as returned by the records API.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// ClientOption configures the Airtable client.
type ClientOption func(*client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit overrides the default rate limit (5 req/s per base).
func WithRateLimit(rps float64) ClientOption {
	return func(c *client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an Airtable client with the given API key.
// By default, API calls are throttled to 5 req/s (Airtable's per-base limit).
func NewClient(apiKey string, opts ...ClientOption) Client {
	c := &client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

func (c *client) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "airtable: rate limit")
		}
	}

	body, err := json.Marshal(createRecordRequest{Fields: fields})
	if err != nil {
		return nil, eris.Wrap(err, "airtable: marshal record")
	}

	url := fmt.Sprintf("%s/v0/%s/%s", c.baseURL, baseID, tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "airtable: read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.Errorf("airtable: unexpected status %d (%s): %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), string(respBody))
	}

	var rec Record
	if err := json.Unmarshal(respBody, &rec); err != nil {
		return nil, eris.Wrap(err, "airtable: decode response")
	}
	return &rec, nil
}
