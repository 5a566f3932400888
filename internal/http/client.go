package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// TokenManager supplies and refreshes the credentials used to sign requests.
type TokenManager interface {
	// GetToken returns a token for the Authorization header.
	GetToken(ctx context.Context) (string, error)
	// RefreshToken exchanges the refresh token for a new access token and
	// stores it for subsequent GetToken calls.
	RefreshToken(ctx context.Context) error
	// SetToken replaces the stored token.
	SetToken(token string, expiresAt time.Time)
	// HasRefreshCapability reports whether RefreshToken can be attempted
	// at all.
	HasRefreshCapability() bool
}

// Request describes a single API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is the raw result of an API request.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
}

// Client executes requests against the People API. Every request flows
// through the shared rate limiter, rate limited and unauthorized responses
// are resolved in place by waiting or refreshing the token and replaying,
// and remaining failures are classified and retried per the retry policy.
type Client struct {
	baseURL      string
	httpClient   *nethttp.Client
	tokenManager TokenManager
	rateLimiter  *RateLimiter
	retry        *RetryExecutor

	logger    pco.Logger
	debug     bool
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	callbacks pco.Callbacks

	basicAuthID     string
	basicAuthSecret string

	retryPolicy     pco.RetryPolicy
	rateLimitPolicy pco.RateLimitPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger pco.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug toggles request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy pco.RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithRateLimitPolicy overrides the initial rate limit budget.
func WithRateLimitPolicy(policy pco.RateLimitPolicy) Option {
	return func(c *Client) {
		c.rateLimitPolicy = policy
	}
}

// WithBasicAuth authenticates requests with an application ID and secret.
// A configured token manager takes precedence.
func WithBasicAuth(appID, secret string) Option {
	return func(c *Client) {
		c.basicAuthID = appID
		c.basicAuthSecret = secret
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithHeaders sets default headers applied to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithTimeout sets the per-attempt timeout. The clock runs only around the
// network call, so time spent waiting for rate limit capacity or backing
// off between retries never counts against it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithCallbacks installs observability callbacks.
func WithCallbacks(callbacks pco.Callbacks) Option {
	return func(c *Client) {
		c.callbacks = callbacks
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *nethttp.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the given API base URL. tokenManager may
// be nil when requests are signed with basic auth or not at all.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		tokenManager:    tokenManager,
		timeout:         constants.DefaultHTTPTimeout,
		userAgent:       constants.DefaultUserAgent,
		retryPolicy:     pco.DefaultRetryPolicy(),
		rateLimitPolicy: pco.DefaultRateLimitPolicy(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// Per-attempt timeouts are applied via context in send, so the
		// transport itself carries none.
		client.httpClient = &nethttp.Client{}
	}

	client.rateLimiter = NewRateLimiter(client.rateLimitPolicy)
	client.retry = NewRetryExecutor(client.retryPolicy, client.callbacks.OnRetry, client.logger)

	return client
}

// Do executes the request. The response is returned alongside the error for
// non-2xx statuses so callers can inspect the raw body. Errors are always
// classified and carry the request context.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, constants.ErrNilRequest
	}

	reqCtx := pco.NewRequestContext(req.Method, req.Path)

	var resp *Response

	err := c.retry.Execute(ctx, func() error {
		var attemptErr error
		resp, attemptErr = c.attempt(ctx, req)

		return attemptErr
	})
	if err != nil {
		return resp, pco.Classify(err).WithContext(reqCtx)
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPost, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: nethttp.MethodDelete, Path: path})
}

// RateLimitInfo returns a snapshot of the shared rate limiter.
func (c *Client) RateLimitInfo() pco.RateLimitInfo {
	return c.rateLimiter.Info()
}

// attempt performs one logical attempt: build, wait for capacity, send,
// account. Rate limited responses are replayed after waiting out the
// server's barrier, and the first unauthorized response triggers a token
// refresh and a single replay. The retry executor above sees whatever this
// resolves to as one attempt.
//
//nolint:funlen // The branch ladder reads best in one place
func (c *Client) attempt(ctx context.Context, req *Request) (*Response, error) {
	refreshed := false

	for rateLimitWaits := 0; ; {
		// Building before the wait means a build failure cannot strand a
		// reserved permit, and a replay after a refresh signs with the
		// current token.
		httpReq, err := c.buildRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		err = c.rateLimiter.WaitForAvailability(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.send(httpReq)

		// Every attempt that reached send counts against the window, even
		// when the transport failed after the request went out.
		c.rateLimiter.RecordRequest()

		if err != nil {
			return nil, err
		}

		c.rateLimiter.UpdateFromHeaders(resp.Headers)

		switch {
		case resp.StatusCode == nethttp.StatusTooManyRequests:
			if rateLimitWaits >= constants.DefaultMaxRateLimitRetries {
				return resp, pco.ClassifyResponse(resp.StatusCode, resp.Body)
			}

			rateLimitWaits++

			if c.logger != nil {
				c.logger.Warn("Rate limited, waiting before replay", map[string]interface{}{
					"method": req.Method,
					"path":   req.Path,
					"wait":   rateLimitWaits,
				})
			}

			continue

		case resp.StatusCode == nethttp.StatusUnauthorized && !refreshed && c.canRefresh():
			refreshErr := c.tokenManager.RefreshToken(ctx)
			if refreshErr != nil {
				return resp, refreshFailureError(resp, refreshErr)
			}

			refreshed = true

			continue

		case resp.StatusCode >= nethttp.StatusBadRequest:
			return resp, pco.ClassifyResponse(resp.StatusCode, resp.Body)

		default:
			return resp, nil
		}
	}
}

// send performs one wire request with the per-attempt timeout applied
// strictly around the network call.
func (c *Client) send(httpReq *nethttp.Request) (*Response, error) {
	sendCtx, cancel := context.WithTimeout(httpReq.Context(), c.timeout)
	defer cancel()

	httpReq = httpReq.WithContext(sendCtx)

	method := httpReq.Method
	fullURL := httpReq.URL.String()

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": method,
			"url":    fullURL,
		})
	}

	c.notifyRequest(method, fullURL)

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, pco.NewNetworkError(fmt.Errorf("reading response body: %w", err))
	}

	duration := time.Since(start)

	c.notifyResponse(method, fullURL, httpResp.StatusCode, duration)

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":   method,
			"url":      fullURL,
			"status":   httpResp.StatusCode,
			"duration": duration.String(),
		})
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// transportError classifies a failure from the HTTP transport. A deadline
// here is the per-attempt timeout, reported with the configured duration;
// caller cancellation passes through for upstream classification.
func (c *Client) transportError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pco.NewTimeoutError(c.timeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return pco.NewNetworkError(err)
	}
}

// buildRequest assembles the wire request, signing it last so neither
// default nor per-request headers can override the credentials.
func (c *Client) buildRequest(ctx context.Context, req *Request) (*nethttp.Request, error) {
	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader

	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	err = c.applyAuth(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	return httpReq, nil
}

// applyAuth signs the request. A token manager wins over basic auth; with
// neither, the request goes out unsigned.
func (c *Client) applyAuth(ctx context.Context, httpReq *nethttp.Request) error {
	header, err := c.AuthorizationHeader(ctx)
	if err != nil {
		return err
	}

	if header != "" {
		httpReq.Header.Set("Authorization", header)
	}

	return nil
}

// AuthorizationHeader returns the Authorization value the client signs
// requests with, for collaborators that talk to auxiliary services (the
// file upload transport) and must authenticate the same way.
func (c *Client) AuthorizationHeader(ctx context.Context) (string, error) {
	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return "", fmt.Errorf("getting access token: %w", err)
		}

		return "Bearer " + token, nil
	}

	if c.basicAuthID != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(c.basicAuthID + ":" + c.basicAuthSecret))

		return "Basic " + credentials, nil
	}

	return "", nil
}

// buildURL resolves path against the base URL. Absolute URLs, such as the
// next links returned by list endpoints, pass through untouched.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	if path == "" {
		return "", constants.ErrEmptyEndpoint
	}

	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		full = c.baseURL + path
	}

	if len(query) == 0 {
		return full, nil
	}

	parsed, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("parsing request URL %q: %w", full, err)
	}

	merged := parsed.Query()

	for key, values := range query {
		for _, value := range values {
			merged.Add(key, value)
		}
	}

	parsed.RawQuery = merged.Encode()

	return parsed.String(), nil
}

func (c *Client) canRefresh() bool {
	return c.tokenManager != nil && c.tokenManager.HasRefreshCapability()
}

// refreshFailureError reports an unauthorized response whose automatic
// token refresh also failed. The classified error keeps the original
// response's error objects while the message carries the refresh failure,
// which includes the token endpoint's status and body.
func refreshFailureError(resp *Response, refreshErr error) *pco.TypedError {
	typed := pco.ClassifyResponse(resp.StatusCode, resp.Body)
	typed.Message = refreshErr.Error()
	typed.Cause = refreshErr

	return typed
}

func (c *Client) notifyRequest(method, fullURL string) {
	if c.callbacks.OnRequest == nil {
		return
	}

	defer c.recoverCallback("request")

	c.callbacks.OnRequest(method, fullURL)
}

func (c *Client) notifyResponse(method, fullURL string, status int, duration time.Duration) {
	if c.callbacks.OnResponse == nil {
		return
	}

	defer c.recoverCallback("response")

	c.callbacks.OnResponse(method, fullURL, status, duration)
}

// recoverCallback keeps a panicking observability callback from aborting
// the request flow.
func (c *Client) recoverCallback(name string) {
	if recovered := recover(); recovered != nil && c.logger != nil {
		c.logger.Error("Callback panicked", map[string]interface{}{
			"callback": name,
			"panic":    fmt.Sprintf("%v", recovered),
		})
	}
}
