package workboard

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crunchtools/mcp-workboard/internal/config"
)

const (
	// maxResponseSize caps how many body bytes a single response may
	// carry. Enforced against bytes actually received, never against the
	// Content-Length header, which is untrusted and can undercount.
	maxResponseSize = 10 << 20

	// requestTimeout bounds each individual HTTP call. Multi-call
	// handlers can take a multiple of this in the worst case.
	requestTimeout = 30 * time.Second
)

// Client is the single outbound channel to the WorkBoard API.
//
// Its configuration (origin, timeout, TLS policy) is fixed at
// construction and immutable for the process lifetime. The underlying
// http.Client and its connection pool are safe for concurrent reuse across
// invocations.
type Client struct {
	http    *http.Client
	baseURL string
	token   config.Secret
	log     *zap.Logger
}

// NewClient builds the process-wide API client. The origin is the package
// constant config.BaseURL; it is never caller-supplied.
func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	return newClient(config.BaseURL, cfg.Token, log)
}

// newClient exists so tests can point the client at a local server.
// Production code always goes through NewClient.
func newClient(baseURL string, token config.Secret, log *zap.Logger) *Client {
	return &Client{
		// TLS verification is the http.Transport default and there is
		// deliberately no knob to turn it off.
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		log:     log,
	}
}

// Get issues a GET request against path with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body map[string]any) (any, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body map[string]any) (any, error) {
	return c.do(ctx, http.MethodPut, path, nil, body)
}

// Delete issues a DELETE request.
//
// No tool handler calls this; the server exposes no delete surface. The
// capability is kept implemented and tested here so a future tool
// addition is a reviewable wiring change, not a transport change. The
// narrower interface the tool layer consumes does not include it.
func (c *Client) Delete(ctx context.Context, path string) (any, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body map[string]any) (any, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	// The token travels only in this header, never in the URL.
	req.Header.Set("Authorization", "Bearer "+c.token.Reveal())
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	c.log.Debug("api request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.apiError(0, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	// Read at most one byte past the cap; landing there means the body
	// was oversized regardless of what Content-Length claimed.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, c.apiError(resp.StatusCode, fmt.Sprintf("reading response: %v", err))
	}
	if len(data) > maxResponseSize {
		return nil, newResponseTooLargeError(maxResponseSize)
	}

	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, c.apiError(resp.StatusCode, fmt.Sprintf("invalid JSON response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, payload)
	}

	c.log.Debug("api response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
	)
	return payload, nil
}

// statusError maps a non-2xx status onto the error taxonomy.
func (c *Client) statusError(status int, payload any) error {
	message := "Unknown error"
	var body map[string]any
	if m, ok := payload.(map[string]any); ok {
		body = m
		if raw, ok := m["message"]; ok {
			message = c.scrub(fmt.Sprintf("%v", raw))
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return newPermissionDeniedError(status, "Valid API token")
	case http.StatusForbidden:
		return newPermissionDeniedError(status, "Required permission scope")
	case http.StatusNotFound:
		return newNotFoundError("Resource", message)
	case http.StatusTooManyRequests:
		retryAfter := ""
		if raw, ok := body["retry_after"]; ok {
			retryAfter = fmt.Sprintf("%v", raw)
		}
		return newRateLimitError(retryAfter)
	default:
		return c.apiError(status, message)
	}
}
