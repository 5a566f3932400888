// Package auth manages People API credentials: token storage, the OAuth
// refresh token exchange, and persistence hooks for CLI configuration.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/steeplehq/pco-go/internal/constants"
	"github.com/steeplehq/pco-go/pkg/pco"
)

// Static errors for err113 compliance. ErrTokenRefresh deliberately carries
// the capitalized message callers are documented to match against.
var (
	ErrTokenRefresh       = errors.New("Token refresh failed") //nolint:staticcheck // message format is part of the API
	ErrEmptyTokenResponse = errors.New("token response did not include an access token")
)

// OAuth2Config holds credential material and refresh wiring for a client.
type OAuth2Config struct {
	// TokenURL is the absolute token endpoint URL.
	TokenURL string
	// AccessToken seeds the store when set.
	AccessToken string
	// RefreshToken enables the refresh_token grant.
	RefreshToken string
	// ClientID and ClientSecret are sent as client credentials in the
	// refresh form when present.
	ClientID     string
	ClientSecret string
	// OnRefresh is invoked with the new payload after a successful refresh.
	OnRefresh func(token pco.TokenPayload)
	// OnRefreshFailure is invoked after a failed refresh, before the error
	// is returned to the caller.
	OnRefreshFailure func(failure pco.TokenRefreshFailure)
	// Logger records swallowed callback panics. May be nil.
	Logger pco.Logger
}

// OAuth2TokenManager stores the current token and exchanges the refresh
// token for new credentials on demand. Refresh requires capability: a
// refresh token plus at least one refresh-outcome callback, so that the
// application always has a way to observe and persist credential changes.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	client *retryablehttp.Client

	// mu serializes refreshes; attempts counts them for failure context.
	mu       sync.Mutex
	attempts int
}

// NewOAuth2TokenManager creates a token manager from the given config.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	store := NewTokenStore()
	if config.AccessToken != "" {
		store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
		})
	}

	client := retryablehttp.NewClient()
	client.RetryMax = constants.TokenEndpointRetryMax
	client.RetryWaitMin = constants.TokenEndpointRetryWaitMin
	client.RetryWaitMax = constants.TokenEndpointRetryWaitMax
	client.HTTPClient.Timeout = constants.TokenEndpointTimeout
	client.Logger = nil
	// Hand back the final non-2xx response instead of a giving-up error so
	// the failure can embed the endpoint's status and body.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &OAuth2TokenManager{
		config: config,
		store:  store,
		client: client,
	}
}

// GetToken returns the access token to present, refreshing proactively when
// the stored token is expiring and refresh capability exists.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return token.AccessToken, nil
	}

	if m.HasRefreshCapability() {
		err := m.RefreshToken(ctx)
		if err != nil {
			return "", err
		}

		return m.store.Get().AccessToken, nil
	}

	if token != nil && token.AccessToken != "" {
		// An expiring token without refresh capability is still presented;
		// the server has the final say.
		return token.AccessToken, nil
	}

	return "", constants.ErrNoAccessToken
}

// SetToken replaces the stored access token, preserving the refresh token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: m.currentRefreshToken(),
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

// HasRefreshCapability reports whether a refresh can be attempted: a
// refresh token must be available and at least one refresh-outcome callback
// configured.
func (m *OAuth2TokenManager) HasRefreshCapability() bool {
	return m.currentRefreshToken() != "" && m.hasOutcomeCallback()
}

// RefreshToken exchanges the refresh token for new credentials and stores
// them. The success callback observes the new payload; on failure the
// failure callback is invoked and the refresh error is returned. Callback
// panics are logged and swallowed.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refreshToken := m.currentRefreshToken()
	if refreshToken == "" {
		return constants.ErrNoRefreshToken
	}

	if !m.hasOutcomeCallback() {
		return constants.ErrRefreshNotEnabled
	}

	m.attempts++

	payload, err := m.requestToken(ctx, refreshToken)
	if err != nil {
		m.notifyFailure(pco.TokenRefreshFailure{
			Err:          err,
			RefreshToken: refreshToken,
			Attempts:     m.attempts,
		})

		return err
	}

	token := &Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: refreshToken,
		TokenType:    payload.TokenType,
		ExpiresIn:    payload.ExpiresIn,
		Scope:        payload.Scope,
	}

	// The endpoint may rotate the refresh token; keep the old one when it
	// does not.
	if payload.RefreshToken != "" {
		token.RefreshToken = payload.RefreshToken
	}

	if payload.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}

	m.store.Set(token)
	m.notifySuccess(*payload)

	return nil
}

// requestToken performs the refresh_token grant against the token endpoint.
func (m *OAuth2TokenManager) requestToken(ctx context.Context, refreshToken string) (*pco.TokenPayload, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	if m.config.ClientID != "" {
		form.Set("client_id", m.config.ClientID)
	}

	if m.config.ClientSecret != "" {
		form.Set("client_secret", m.config.ClientSecret)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, refreshFailure(resp.StatusCode, resp.Status, body)
	}

	var payload pco.TokenPayload

	err = json.Unmarshal(body, &payload)
	if err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	if payload.AccessToken == "" {
		return nil, ErrEmptyTokenResponse
	}

	return &payload, nil
}

// refreshFailure formats a failed token exchange with the HTTP status,
// status text, and the raw error body, collapsed to {} when the body is not
// valid JSON.
func refreshFailure(statusCode int, status string, body []byte) error {
	raw := "{}"

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		raw = string(trimmed)
	}

	statusText := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(statusCode)))

	return fmt.Errorf("%w: %d %s %s", ErrTokenRefresh, statusCode, statusText, raw)
}

func (m *OAuth2TokenManager) currentRefreshToken() string {
	if token := m.store.Get(); token != nil && token.RefreshToken != "" {
		return token.RefreshToken
	}

	return m.config.RefreshToken
}

func (m *OAuth2TokenManager) hasOutcomeCallback() bool {
	return m.config.OnRefresh != nil || m.config.OnRefreshFailure != nil
}

func (m *OAuth2TokenManager) notifySuccess(payload pco.TokenPayload) {
	if m.config.OnRefresh == nil {
		return
	}

	defer m.recoverCallback("token refresh")

	m.config.OnRefresh(payload)
}

func (m *OAuth2TokenManager) notifyFailure(failure pco.TokenRefreshFailure) {
	if m.config.OnRefreshFailure == nil {
		return
	}

	defer m.recoverCallback("token refresh failure")

	m.config.OnRefreshFailure(failure)
}

// recoverCallback keeps a panicking refresh callback from replacing the
// refresh outcome.
func (m *OAuth2TokenManager) recoverCallback(name string) {
	if recovered := recover(); recovered != nil && m.config.Logger != nil {
		m.config.Logger.Error("Callback panicked", map[string]interface{}{
			"callback": name,
			"panic":    fmt.Sprintf("%v", recovered),
		})
	}
}
