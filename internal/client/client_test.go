package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steeplehq/pco-go/internal/auth"
	"github.com/steeplehq/pco-go/pkg/pco"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()
	t.Run("requires a config", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil)
		require.ErrorIs(t, err, pco.ErrConfigRequired)
	})

	t.Run("requires credentials", func(t *testing.T) {
		t.Parallel()

		_, err := New(&pco.Config{})
		require.ErrorIs(t, err, pco.ErrNoAuthConfigured)
	})

	t.Run("app id alone is not enough", func(t *testing.T) {
		t.Parallel()

		_, err := New(&pco.Config{AppID: "app-id"})
		require.ErrorIs(t, err, pco.ErrNoAuthConfigured)
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		client, err := New(&pco.Config{AccessToken: "test-token"})
		require.NoError(t, err)
		assert.NotNil(t, client.People())
		assert.NotNil(t, client.Households())
		assert.Equal(t, pco.DefaultBaseURL, client.baseURL)
	})

	t.Run("creates client with app credentials", func(t *testing.T) {
		t.Parallel()

		client, err := New(&pco.Config{AppID: "app-id", AppSecret: "app-secret"})
		require.NoError(t, err)
		assert.NotNil(t, client)
		assert.Nil(t, client.tokenManager)
	})

	t.Run("trims trailing slash from base URL", func(t *testing.T) {
		t.Parallel()

		client, err := New(&pco.Config{
			BaseURL:     "https://pco.example.com/people/v2/",
			AccessToken: "test-token",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://pco.example.com/people/v2", client.baseURL)
	})
}

func TestCreateTokenManager(t *testing.T) {
	t.Parallel()
	t.Run("no access token means no manager", func(t *testing.T) {
		t.Parallel()

		manager := createTokenManager(&pco.Config{AppID: "id", AppSecret: "secret"})
		assert.Nil(t, manager)
	})

	t.Run("access token alone is static", func(t *testing.T) {
		t.Parallel()

		manager := createTokenManager(&pco.Config{AccessToken: "token"})
		require.NotNil(t, manager)
		assert.False(t, manager.HasRefreshCapability())

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token", token)
	})

	t.Run("refresh token without outcome callback stays static", func(t *testing.T) {
		t.Parallel()

		manager := createTokenManager(&pco.Config{
			AccessToken:  "token",
			RefreshToken: "refresh",
		})
		require.NotNil(t, manager)
		assert.False(t, manager.HasRefreshCapability())
	})

	t.Run("refresh token with outcome callback refreshes", func(t *testing.T) {
		t.Parallel()

		manager := createTokenManager(&pco.Config{
			AccessToken:  "token",
			RefreshToken: "refresh",
			Callbacks: pco.Callbacks{
				OnTokenRefresh: func(pco.TokenPayload) {},
			},
		})
		require.NotNil(t, manager)
		assert.True(t, manager.HasRefreshCapability())
		assert.IsType(t, &auth.OAuth2TokenManager{}, manager)
	})
}

func TestTokenURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *pco.Config
		expected string
	}{
		{
			name:     "explicit token URL wins",
			config:   &pco.Config{TokenURL: "https://auth.example.com/oauth/token"},
			expected: "https://auth.example.com/oauth/token",
		},
		{
			name:     "derived from base URL",
			config:   &pco.Config{BaseURL: "https://pco.example.com/people/v2"},
			expected: "https://pco.example.com/people/v2/oauth/token",
		},
		{
			name:     "derived from default base URL",
			config:   &pco.Config{},
			expected: pco.DefaultBaseURL + "/oauth/token",
		},
	}

	for _, testCase := range tests {
		testCase := testCase

		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, tokenURL(testCase.config))
		})
	}
}

func TestClient_BearerAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))

		writeJSON(writer, http.StatusOK, pco.PersonDocument{
			Data: personResource("me-1", "Jean", "Valjean"),
		})
	}))
	defer server.Close()

	client, err := New(&pco.Config{
		BaseURL:     server.URL,
		AccessToken: "test-token",
	})
	require.NoError(t, err)

	person, err := client.People().Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me-1", person.Data.ID)
}

func TestClient_BasicAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		appID, appSecret, ok := request.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-id", appID)
		assert.Equal(t, "app-secret", appSecret)

		writeJSON(writer, http.StatusOK, pco.PersonDocument{
			Data: personResource("me-1", "Jean", "Valjean"),
		})
	}))
	defer server.Close()

	client, err := New(&pco.Config{
		BaseURL:   server.URL,
		AppID:     "app-id",
		AppSecret: "app-secret",
	})
	require.NoError(t, err)

	_, err = client.People().Me(context.Background())
	require.NoError(t, err)
}

func TestClient_RateLimitSnapshot(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("X-PCO-API-Request-Rate-Limit", "70")
		writer.Header().Set("X-PCO-API-Request-Rate-Period", "20")
		writer.Header().Set("X-PCO-API-Request-Rate-Count", "1")

		writeJSON(writer, http.StatusOK, pco.PersonDocument{
			Data: personResource("me-1", "Jean", "Valjean"),
		})
	}))
	defer server.Close()

	client, err := New(&pco.Config{BaseURL: server.URL, AccessToken: "test-token"})
	require.NoError(t, err)

	_, err = client.People().Me(context.Background())
	require.NoError(t, err)

	info := client.RateLimit()
	assert.Equal(t, 70, info.Max)
	assert.Equal(t, 69, info.Remaining)
}

// TestClient_RefreshFlow exercises the full 401 recovery path through real
// config wiring: the expired bearer is rejected once, the token endpoint
// issues rotated credentials, the request replays with the new bearer, and
// the refresh callback observes the new payload.
func TestClient_RefreshFlow(t *testing.T) {
	t.Parallel()

	var refreshCalls int

	tokenServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		assert.Equal(t, "refresh_token", request.PostForm.Get("grant_type"))
		assert.Equal(t, "old2", request.PostForm.Get("refresh_token"))

		refreshCalls++

		writeJSON(writer, http.StatusOK, map[string]interface{}{
			"access_token":  "new",
			"refresh_token": "new2",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer tokenServer.Close()

	apiServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer new" {
			writeJSON(writer, http.StatusUnauthorized, map[string]interface{}{
				"errors": []map[string]interface{}{{"detail": "Invalid access token"}},
			})

			return
		}

		writeJSON(writer, http.StatusOK, pco.PersonDocument{
			Data: personResource("me-1", "Jean", "Valjean"),
		})
	}))
	defer apiServer.Close()

	var payloads []pco.TokenPayload

	client, err := New(&pco.Config{
		BaseURL:      apiServer.URL,
		AccessToken:  "old",
		RefreshToken: "old2",
		TokenURL:     tokenServer.URL,
		Callbacks: pco.Callbacks{
			OnTokenRefresh: func(payload pco.TokenPayload) {
				payloads = append(payloads, payload)
			},
		},
	})
	require.NoError(t, err)

	person, err := client.People().Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me-1", person.Data.ID)

	assert.Equal(t, 1, refreshCalls)
	require.Len(t, payloads, 1)
	assert.Equal(t, "new", payloads[0].AccessToken)
	assert.Equal(t, "new2", payloads[0].RefreshToken)

	// The manager now serves the rotated token.
	token, err := client.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestClient_GetToken(t *testing.T) {
	t.Parallel()

	t.Run("returns the configured token", func(t *testing.T) {
		t.Parallel()

		client, err := New(&pco.Config{AccessToken: "test-token"})
		require.NoError(t, err)

		token, err := client.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "test-token", token)
	})

	t.Run("fails without a token manager", func(t *testing.T) {
		t.Parallel()

		client, err := New(&pco.Config{AppID: "id", AppSecret: "secret"})
		require.NoError(t, err)

		_, err = client.GetToken(context.Background())
		require.ErrorIs(t, err, ErrNoTokenManagerConfigured)
	})
}
