package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/steeplehq/pco-go/pkg/pco"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister saves refreshed credentials, typically to the CLI config
// file, so a rotated refresh token survives the process.
type ConfigPersister interface {
	UpdateToken(accessToken string, expiresAt time.Time, refreshToken string) error
}

// ConfigTokenManager wraps OAuth2TokenManager and persists every credential
// change through the configured persister.
type ConfigTokenManager struct {
	oauth2Manager *OAuth2TokenManager
	persister     ConfigPersister

	mu          sync.Mutex
	savedToken  string
	savedExpiry time.Time
}

// NewConfigTokenManager creates a persisting token manager. The initial
// token from config is considered already saved.
//
// The persister is installed as a refresh outcome observer, so refresh is
// enabled even when the caller provides no callbacks of its own.
func NewConfigTokenManager(config *OAuth2Config, persister ConfigPersister) *ConfigTokenManager {
	manager := &ConfigTokenManager{
		persister:  persister,
		savedToken: config.AccessToken,
	}

	onRefresh := config.OnRefresh
	config.OnRefresh = func(payload pco.TokenPayload) {
		manager.persistIfChanged()

		if onRefresh != nil {
			onRefresh(payload)
		}
	}

	manager.oauth2Manager = NewOAuth2TokenManager(config)

	return manager
}

// GetToken returns a valid access token, refreshing if necessary. A token
// rotated by a proactive refresh is persisted before it is returned.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.oauth2Manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a refresh and persists the outcome.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	err := m.oauth2Manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken replaces the stored token and persists it.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.oauth2Manager.SetToken(token, expiresAt)
	m.persistIfChanged()
}

// HasRefreshCapability reports whether the wrapped manager can refresh.
func (m *ConfigTokenManager) HasRefreshCapability() bool {
	return m.oauth2Manager.HasRefreshCapability()
}

// IsTokenExpiringSoon reports whether the token expires within the given
// duration. A missing token counts as expiring.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.oauth2Manager.store.Get()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}

// TokenExpiry returns the current token's expiration time, zero when no
// token or no expiry is known.
func (m *ConfigTokenManager) TokenExpiry() time.Time {
	token := m.oauth2Manager.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

// persistIfChanged writes the current token through the persister when it
// differs from the last saved one. Persist failures are warnings: the
// in-memory token is still good for this process.
func (m *ConfigTokenManager) persistIfChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := m.oauth2Manager.store.Get()
	if token == nil {
		return
	}

	if token.AccessToken == m.savedToken && token.ExpiresAt.Equal(m.savedExpiry) {
		return
	}

	err := m.persist(token)
	if err != nil {
		if logger := m.oauth2Manager.config.Logger; logger != nil {
			logger.Warn("Failed to persist refreshed token", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to persist refreshed token: %v\n", err)
		}

		return
	}

	m.savedToken = token.AccessToken
	m.savedExpiry = token.ExpiresAt
}

func (m *ConfigTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.UpdateToken(token.AccessToken, token.ExpiresAt, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("updating stored token: %w", err)
	}

	return nil
}
