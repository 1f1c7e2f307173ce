// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package restclient provides a small JSON-over-HTTP client shared by the
// partner API clients.
package restclient

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

	"github.com/bufdev/dxctl/internal/pkg/backoff"
	"golang.org/x/time/rate"
)

// HTTPRequestError is returned when a request completes with a non-2xx status.
type HTTPRequestError struct {
	// Method is the HTTP method.
	Method string
	// URL is the request URL.
	URL string
	// StatusCode is the response status code.
	StatusCode int
	// Body is the response body, possibly empty.
	Body string
}

func (e *HTTPRequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Request is a single HTTP request relative to the client base URL.
type Request struct {
	// Method is the HTTP method.
	Method string
	// Path is the already-escaped path appended to the base URL.
	Path string
	// Query holds the query parameters.
	Query url.Values
	// Header holds additional request headers.
	Header http.Header
	// JSON is encoded as the request body if non-nil.
	JSON any
	// Form is encoded as an application/x-www-form-urlencoded body if non-nil.
	Form url.Values
}

// Response is a completed 2xx response.
type Response struct {
	// StatusCode is the response status code.
	StatusCode int
	// Body is the full response body.
	Body []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// Observer receives the outcome of every request.
type Observer interface {
	ObserveRequest(client string, method string, statusCode int, duration time.Duration, err error)
}

// Client performs requests against a single base URL.
type Client interface {
	// Do performs the request and reads the full response body.
	//
	// Returns a *HTTPRequestError if the response status is not 2xx. Idempotent
	// requests are retried per the client retry policy.
	Do(ctx context.Context, request Request) (*Response, error)
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*client)

// ClientWithHTTPClient sets the HTTP client to use for requests.
func ClientWithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// ClientWithRateLimit paces requests to at most requestsPerSecond.
//
// Zero or negative disables pacing.
func ClientWithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// ClientWithObserver sets an Observer notified after each request.
func ClientWithObserver(observer Observer) ClientOption {
	return func(c *client) {
		c.observer = observer
	}
}

// ClientWithRetry retries idempotent requests that fail with a transport
// error, 429, or 5xx status.
func ClientWithRetry(policy backoff.Policy) ClientOption {
	return func(c *client) {
		c.retryPolicy = policy
	}
}

// NewClient creates a new Client for the base URL.
//
// The name identifies the client to the Observer.
func NewClient(name string, baseURL string, options ...ClientOption) Client {
	c := &client{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// *** PRIVATE ***

type client struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	observer    Observer
	retryPolicy backoff.Policy
}

func (c *client) Do(ctx context.Context, request Request) (*Response, error) {
	if !isIdempotent(request.Method) {
		return c.do(ctx, request)
	}
	return backoff.Retry(
		ctx,
		c.retryPolicy,
		func(ctx context.Context, _ int) (*Response, bool, error) {
			response, err := c.do(ctx, request)
			return response, isRetryable(ctx, err), err
		},
	)
}

func (c *client) do(ctx context.Context, request Request) (_ *Response, retErr error) {
	start := time.Now()
	statusCode := 0
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(c.name, request.Method, statusCode, time.Since(start), retErr)
		}
	}()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	reqURL := c.baseURL + request.Path
	if len(request.Query) > 0 {
		reqURL += "?" + request.Query.Encode()
	}
	var body io.Reader
	var contentType string
	switch {
	case request.JSON != nil:
		data, err := json.Marshal(request.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case request.Form != nil:
		body = strings.NewReader(request.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	req, err := http.NewRequestWithContext(ctx, request.Method, reqURL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPRequestError{
			Method:     request.Method,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	var httpRequestError *HTTPRequestError
	if errors.As(err, &httpRequestError) {
		return httpRequestError.StatusCode == http.StatusTooManyRequests || httpRequestError.StatusCode >= 500
	}
	var urlError *url.Error
	return errors.As(err, &urlError)
}
