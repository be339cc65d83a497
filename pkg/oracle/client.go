// Package oracle provides a client for the remote fingerprint verification
// service.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/keysearch-cli/internal/resilience"
)

// Client defines the oracle verification operation.
type Client interface {
	// Submit sends one fingerprint to the verification endpoint and returns
	// the parsed response. Transport failures, non-success statuses, and
	// malformed bodies all return an error; the caller decides what a
	// missing response means. Submit never retries.
	Submit(ctx context.Context, checksum string) (*Response, error)
}

// Response is the parsed oracle response body. The key field is optional;
// an oracle that does not recognize the fingerprint returns an empty or
// absent key with a success status.
type Response struct {
	Key string `json:"key"`
}

// HasKey reports whether the oracle returned a non-empty key.
func (r *Response) HasKey() bool {
	return r != nil && r.Key != ""
}

// submitRequest is the wire format of one verification attempt.
type submitRequest struct {
	Checksum string `json:"checksum"`
}

// Option configures the oracle client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client for the verification endpoint.
func NewClient(endpoint string, opts ...Option) Client {
	c := &httpClient{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Submit(ctx context.Context, checksum string) (*Response, error) {
	payload, err := json.Marshal(submitRequest{Checksum: checksum})
	if err != nil {
		return nil, eris.Wrap(err, "oracle: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "oracle: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("oracle: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "oracle: unmarshal response")
	}

	return &result, nil
}
