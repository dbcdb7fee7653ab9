// Package api provides the authenticated HTTP client used to talk to a
// module's REST surface. The client owns auth headers, request timeouts,
// response size limits and retry of transient failures; everything above it
// (pagination, response parsing) belongs to the pull engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/gocortexio/gcgit/internal/config"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB).
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent identifies gcgit in request headers.
	UserAgent = "gcgit/1.0"

	// maxRetries bounds the retry loop for transient failures.
	maxRetries = 3
)

// TransportError reports a failed HTTP exchange: either a non-success status
// or a network-level failure (Status 0).
type TransportError struct {
	Status int
	URL    string
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client issues authenticated requests against one module's API surface.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/gocortexio/gcgit/internal/api Client
type Client interface {
	// Get performs a GET request against path (relative to the module base
	// path) and returns the response body.
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)

	// Post performs a POST request with a JSON body and returns the response
	// body. Platform endpoints use POST for reads as well as writes.
	Post(ctx context.Context, path string, body any) ([]byte, error)

	// TestConnectivity checks that the module endpoint is reachable and the
	// credentials are accepted.
	TestConnectivity(ctx context.Context) error
}

// Option configures a defaultClient.
type Option func(*defaultClient)

// WithBaseURL overrides the https://<fqdn> base URL. Used by tests to point
// the client at a local server.
func WithBaseURL(baseURL string) Option {
	return func(c *defaultClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *defaultClient) {
		c.client = hc
	}
}

// defaultClient implements Client over net/http with bounded retries.
type defaultClient struct {
	client   *http.Client
	baseURL  string
	basePath string
	apiKey   string
	apiKeyID string
}

// NewClient creates a client for one module from its resolved credentials
// and the module's base API path.
func NewClient(cfg config.ModuleConfig, basePath string, opts ...Option) Client {
	c := &defaultClient{
		client:   &http.Client{Timeout: DefaultTimeout},
		baseURL:  "https://" + cfg.FQDN,
		basePath: basePath,
		apiKey:   cfg.APIKey,
		apiKeyID: cfg.APIKeyID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request against path relative to the module base path.
func (c *defaultClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post performs a POST request with a JSON body.
func (c *defaultClient) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// TestConnectivity checks reachability and credential acceptance against the
// module base path. Any response other than an auth rejection counts as
// reachable; content-type endpoints are probed separately.
func (c *defaultClient) TestConnectivity(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "", nil, map[string]any{})
	var terr *TransportError
	if err != nil {
		if errors.As(err, &terr) {
			if terr.Status == http.StatusUnauthorized || terr.Status == http.StatusForbidden {
				return fmt.Errorf("authentication failed, check API keys: %w", err)
			}
			if terr.Status != 0 {
				// The base path itself may not serve anything; a routed
				// response still proves the host and credentials work.
				return nil
			}
		}
		return err
	}
	return nil
}

func (c *defaultClient) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	reqURL := c.buildURL(path, query)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	operation := func() ([]byte, error) {
		return c.doOnce(ctx, method, reqURL, payload)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRetries))
}

// doOnce performs a single exchange. Transient failures (network errors,
// 429, 5xx) are returned retryable; everything else is permanent.
func (c *defaultClient) doOnce(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-xdr-auth-id", c.apiKeyID)
	req.Header.Set("Authorization", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		terr := &TransportError{Status: resp.StatusCode, URL: reqURL, Body: string(snippet)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, terr
		}
		return nil, backoff.Permanent(terr)
	}

	// Read with a hard size limit; +1 to detect truncation.
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, backoff.Permanent(fmt.Errorf("response from %s exceeds maximum allowed size of %d bytes",
			reqURL, MaxResponseSize))
	}

	return data, nil
}

// buildURL joins the base URL, the module base path and a relative endpoint
// path, resolving any ".." segments an endpoint may carry (the XQL library
// endpoint sits one level above the module's versioned base path).
func (c *defaultClient) buildURL(path string, query url.Values) string {
	joined := c.basePath
	if path != "" {
		joined = strings.TrimSuffix(c.basePath, "/") + "/" + path
	}
	full := c.baseURL + cleanJoin(joined)
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// cleanJoin normalizes an endpoint path, collapsing ".." segments without
// escaping above the host root.
func cleanJoin(p string) string {
	segments := strings.Split(p, "/")
	var out []string
	for _, s := range segments {
		switch s {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}
