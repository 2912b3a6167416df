// Package upstream is the HTTP client for the transaction-simulation
// provider. It owns the network concerns the core deliberately avoids:
// timeouts, retries with exponential backoff and authentication. Responses
// are handed to the normalizer as raw decoded documents.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tx-forecast-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// Client talks to the simulation provider over HTTP.
type Client struct {
	endpoint    string
	apiKey      string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithAPIKey sets the provider access key sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new simulation-provider client.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Simulate submits a simulation request and returns the provider's raw
// decoded response document for normalization.
func (c *Client) Simulate(ctx context.Context, req *domain.SimulationRequest) (any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.endpoint+"/simulate", body)
}

// ListSimulations fetches the remote simulation listing for the history
// feed. The returned records stay raw; the history reconciler resolves
// their naming dialects.
func (c *Client) ListSimulations(ctx context.Context, limit int) ([]any, error) {
	url := c.endpoint + "/simulations"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	doc, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	switch t := doc.(type) {
	case []any:
		return t, nil
	case map[string]any:
		// Some deployments wrap the listing in an object.
		for _, key := range []string{"simulations", "results", "items"} {
			if arr, ok := t[key].([]any); ok {
				return arr, nil
			}
		}
	}
	return nil, fmt.Errorf("unexpected simulation listing shape")
}

// do performs one HTTP exchange with retries and exponential backoff.
// Client errors (4xx) are terminal; server errors, rate limiting and
// transport failures are retried.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (any, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-Access-Key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		}

		var doc any
		if err := json.Unmarshal(respBody, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return doc, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
