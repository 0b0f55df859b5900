// Package httpcaller sends the HTTP requests of api call actions, with retries on
// transport errors and 5xx responses.
package httpcaller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/regflow/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

var (
	// ErrHTTPServerError is returned when the server keeps answering with a 5xx status.
	ErrHTTPServerError = errors.New("server error during HTTP request")
	// ErrRelativeEndpoint is returned for relative endpoints without an internal base URL.
	ErrRelativeEndpoint = errors.New("relative endpoint requires an internal base URL")
)

// RetryConfig defines retry behavior for HTTP requests.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type Caller struct {
	client          *http.Client
	logger          *slog.Logger
	retry           RetryConfig
	internalBaseURL string
	internalToken   string
}

type Option func(*Caller)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Caller) {
		c.client.Timeout = timeout
	}
}

func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Caller) {
		if attempts < 1 {
			attempts = 1
		}

		c.retry = RetryConfig{Attempts: attempts, Delay: delay}
	}
}

// WithInternalBaseURL resolves relative endpoints of internal requests against baseURL.
func WithInternalBaseURL(baseURL string) Option {
	return func(c *Caller) {
		c.internalBaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithInternalToken authenticates internal requests that carry no Authorization header.
func WithInternalToken(token string) Option {
	return func(c *Caller) {
		c.internalToken = token
	}
}

func New(logger *slog.Logger, opts ...Option) *Caller {
	c := &Caller{
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.With("module", "http_caller"),
		retry:  RetryConfig{Attempts: 1},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Caller) Call(ctx context.Context, request protocol.HTTPRequest) (*protocol.HTTPResponse, error) {
	target, err := c.resolveURL(request)
	if err != nil {
		return nil, err
	}

	var payload []byte

	if request.Body != nil && request.Method != http.MethodGet {
		payload, err = json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if attempt > 1 {
			c.logger.InfoContext(ctx, "retrying request", "attempt", attempt, "attempts", c.retry.Attempts, "url", target)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retry.Delay):
			}
		}

		req, err := c.buildRequest(ctx, request, target, payload)
		if err != nil {
			return nil, err
		}

		resp, err = c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < c.retry.Attempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error (status %d), retrying: %w", resp.StatusCode, ErrHTTPServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return c.processResponse(ctx, resp)
}

func (c *Caller) resolveURL(request protocol.HTTPRequest) (string, error) {
	endpoint := request.Endpoint

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if !request.Internal || c.internalBaseURL == "" {
			return "", fmt.Errorf("%s: %w", endpoint, ErrRelativeEndpoint)
		}

		endpoint = c.internalBaseURL + "/" + strings.TrimPrefix(endpoint, "/")
	}

	target, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	if len(request.QueryParams) > 0 {
		query := target.Query()
		for key, value := range request.QueryParams {
			query.Set(key, value)
		}

		target.RawQuery = query.Encode()
	}

	return target.String(), nil
}

func (c *Caller) buildRequest(ctx context.Context, request protocol.HTTPRequest, target string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, request.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	for key, value := range request.Headers {
		req.Header.Set(key, value)
	}

	if request.Internal && c.internalToken != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.internalToken)
	}

	return req, nil
}

func (c *Caller) processResponse(ctx context.Context, resp *http.Response) (*protocol.HTTPResponse, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	if len(bodyBytes) > 0 {
		err = json.Unmarshal(bodyBytes, &body)
		if err != nil {
			body = string(bodyBytes)

			c.logger.DebugContext(ctx, "response is not JSON, returning as string", "error", err)
		}
	}

	c.logger.InfoContext(ctx, "request completed", "status_code", resp.StatusCode, "body_length", len(bodyBytes))

	return &protocol.HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
