// Package client implements the pco.Client interface on top of the
// internal request pipeline. It owns credential wiring: choosing between
// bearer and basic authentication, building the token manager that renews
// access tokens on 401, and installing the default file transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steeplehq/pco-go/internal/auth"
	"github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
)

// Client implements the pco.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager http.TokenManager
	baseURL      string
	logger       pco.Logger

	// Resource clients
	people     pco.PeopleClient
	households pco.HouseholdsClient
}

// New creates a People API client from the given configuration.
func New(config *pco.Config) (*Client, error) {
	if config == nil {
		return nil, pco.ErrConfigRequired
	}

	if config.AccessToken == "" && (config.AppID == "" || config.AppSecret == "") {
		return nil, pco.ErrNoAuthConfigured
	}

	tokenManager := createTokenManager(config)

	return newWith(config, tokenManager), nil
}

// NewWithTokenManager creates a People API client around a caller-supplied
// token manager, bypassing the credential wiring in New. The CLI uses this
// to plug in a token manager that persists refreshed credentials.
func NewWithTokenManager(config *pco.Config, tokenManager http.TokenManager) (*Client, error) {
	if config == nil {
		return nil, pco.ErrConfigRequired
	}

	return newWith(config, tokenManager), nil
}

func newWith(config *pco.Config, tokenManager http.TokenManager) *Client {
	baseURL := resolveBaseURL(config)
	httpClient := http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config)...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       config.Logger,
	}

	client.initializeResourceClients(config)

	return client
}

// createTokenManager creates the appropriate token manager based on config.
// Refreshable bearer auth needs a refresh token and at least one
// refresh-outcome callback; anything less gets a static token manager that
// never refreshes. Basic credentials carry no token manager at all.
func createTokenManager(config *pco.Config) http.TokenManager {
	if config.AccessToken == "" {
		return nil // Basic credentials are attached by the HTTP client.
	}

	if config.RefreshToken != "" && config.Callbacks.HasRefreshOutcomeCallback() {
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:         tokenURL(config),
			AccessToken:      config.AccessToken,
			RefreshToken:     config.RefreshToken,
			ClientID:         config.AppID,
			ClientSecret:     config.AppSecret,
			OnRefresh:        config.Callbacks.OnTokenRefresh,
			OnRefreshFailure: config.Callbacks.OnTokenRefreshFailure,
			Logger:           config.Logger,
		})
	}

	return &staticTokenManager{token: config.AccessToken}
}

// tokenURL returns the token endpoint from config or the default derived
// from the base URL.
func tokenURL(config *pco.Config) string {
	if config.TokenURL != "" {
		return config.TokenURL
	}

	return resolveBaseURL(config) + "/oauth/token"
}

// resolveBaseURL applies the default base URL and trims a trailing slash.
func resolveBaseURL(config *pco.Config) string {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = pco.DefaultBaseURL
	}

	return baseURL
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *pco.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Timeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.Timeout))
	}

	if len(config.Headers) > 0 {
		httpOpts = append(httpOpts, http.WithHeaders(config.Headers))
	}

	if config.Retry != nil {
		httpOpts = append(httpOpts, http.WithRetryPolicy(*config.Retry))
	}

	if config.RateLimit != nil {
		httpOpts = append(httpOpts, http.WithRateLimitPolicy(*config.RateLimit))
	}

	if config.AccessToken == "" && config.AppID != "" && config.AppSecret != "" {
		httpOpts = append(httpOpts, http.WithBasicAuth(config.AppID, config.AppSecret))
	}

	httpOpts = append(httpOpts, http.WithCallbacks(config.Callbacks))

	return httpOpts
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients(config *pco.Config) {
	fileTransport := config.FileTransport
	if fileTransport == nil {
		fileTransport = NewUploadTransport("", nil, c.httpClient.AuthorizationHeader)
	}

	c.people = NewPeopleClient(c.httpClient, fileTransport)
	c.households = NewHouseholdsClient(c.httpClient)
}

// People implements pco.Client.People.
func (c *Client) People() pco.PeopleClient {
	return c.people
}

// Households implements pco.Client.Households.
func (c *Client) Households() pco.HouseholdsClient {
	return c.households
}

// RateLimit implements pco.Client.RateLimit.
func (c *Client) RateLimit() pco.RateLimitInfo {
	return c.httpClient.RateLimitInfo()
}

// GetToken returns the current access token from the token manager.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", ErrNoTokenManagerConfigured
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}

	return token, nil
}

// staticTokenManager provides a fixed token with no refresh capability, so
// an unauthorized response surfaces to the caller instead of triggering a
// refresh nobody would observe.
type staticTokenManager struct {
	token string
}

func (m *staticTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, nil
}

func (m *staticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

func (m *staticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.token = token
}

func (m *staticTokenManager) HasRefreshCapability() bool {
	return false
}
