package remote

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

	"golang.org/x/sync/semaphore"

	"storyflow/internal/config"
	"storyflow/internal/services"
)

const (
	userAgent   = "storyflow/0.1.0"
	apiPrefix   = "/v1/api"
	maxBodySize = 4 << 20
)

// HTTPDoer describes the HTTP client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the task service.
type Client struct {
	baseURL string
	http    HTTPDoer
	sem     *semaphore.Weighted
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithMaxConcurrent caps in-flight requests.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// New constructs a client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		sem:     semaphore.NewWeighted(8),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig constructs a client using the [remote] configuration section.
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.Remote.BaseURL, cfg.RequestTimeout(), WithMaxConcurrent(cfg.Remote.MaxConcurrentRequests))
}

func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(apiPrefix)
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, operation, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, "remote", operation, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return services.Wrap(services.ErrValidation, "remote", operation, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return services.Wrap(services.ErrTransport, "remote", operation, "wait for request slot", err)
	}
	defer c.sem.Release(1)

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "remote", operation, "send request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return services.Wrap(services.ErrTransport, "remote", operation, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransport, "remote", operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, summarize(payload)), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrMalformedResponse, "remote", operation, "decode response", err)
	}
	return nil
}

func summarize(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty body"
	}
	if len(text) > 256 {
		return text[:256] + "..."
	}
	return text
}
