// Package pcoclient provides the main entry point for creating Planning
// Center People API clients.
package pcoclient

import (
	"fmt"
	"strings"

	"github.com/steeplehq/pco-go/internal/client"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// New creates a new People API client from the given configuration.
func New(config *pco.Config) (pco.Client, error) {
	if config == nil {
		return nil, pco.ErrConfigRequired
	}

	if config.BaseURL != "" {
		config.BaseURL = normalizeBaseURL(config.BaseURL)
	}

	apiClient, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return apiClient, nil
}

// normalizeBaseURL trims a trailing slash and defaults the scheme to https.
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	return baseURL
}

// NewWithAccessToken creates a client that sends the given OAuth2 access
// token as a bearer credential. The token is never refreshed; use New with
// a refresh token and a refresh callback for that.
func NewWithAccessToken(token string) (pco.Client, error) {
	return New(&pco.Config{
		AccessToken: token,
	})
}

// NewWithAppCredentials creates a client that authenticates with a personal
// access token pair sent as HTTP Basic credentials.
func NewWithAppCredentials(appID, appSecret string) (pco.Client, error) {
	return New(&pco.Config{
		AppID:     appID,
		AppSecret: appSecret,
	})
}

// NewWithRefreshToken creates a client that renews its access token on 401
// responses. onRefresh observes the rotated credentials after each
// successful refresh so the application can persist them; refreshing stays
// disabled without it.
func NewWithRefreshToken(accessToken, refreshToken string, onRefresh func(pco.TokenPayload)) (pco.Client, error) {
	return New(&pco.Config{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Callbacks: pco.Callbacks{
			OnTokenRefresh: onRefresh,
		},
	})
}
