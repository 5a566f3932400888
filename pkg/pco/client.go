package pco

import (
	"context"
	"errors"
	"time"

	"github.com/steeplehq/pco-go/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrNoAuthConfigured = errors.New("no authentication configured: provide an access token or an app ID and secret")
)

// Default endpoints used when Config leaves them unset.
const (
	// DefaultBaseURL is the People API base URL.
	DefaultBaseURL = "https://api.planningcenteronline.com/people/v2"
	// DefaultUploadEndpoint is the auxiliary file upload service.
	DefaultUploadEndpoint = "https://upload.planningcenteronline.com/v2/files"
)

// PeopleClient provides access to Person resources.
type PeopleClient interface {
	Create(ctx context.Context, request *PersonCreateRequest) (*PersonDocument, error)
	Get(ctx context.Context, personID string, params *QueryParams) (*PersonDocument, error)
	List(ctx context.Context, params *QueryParams) (*PersonCollection, error)
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*PersonCollection, error)
	ListAll(ctx context.Context, params *QueryParams) ([]Person, error)
	Update(ctx context.Context, personID string, request *PersonUpdateRequest) (*PersonDocument, error)
	Delete(ctx context.Context, personID string) error
	Me(ctx context.Context) (*PersonDocument, error)
	ListEmails(ctx context.Context, personID string, params *QueryParams) (*EmailCollection, error)
	SetFieldValue(ctx context.Context, personID, fieldDefinitionID, value string) (*FieldDatumDocument, error)
	SetFileFieldValue(ctx context.Context, personID, fieldDefinitionID, sourceURL string) (*FieldDatumDocument, error)
}

// HouseholdsClient provides access to Household resources.
type HouseholdsClient interface {
	Get(ctx context.Context, householdID string, params *QueryParams) (*HouseholdDocument, error)
	List(ctx context.Context, params *QueryParams) (*HouseholdCollection, error)
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*HouseholdCollection, error)
	ListAll(ctx context.Context, params *QueryParams) ([]Household, error)
	ListPeople(ctx context.Context, householdID string, params *QueryParams) (*PersonCollection, error)
}

// Client provides access to the People API.
type Client interface {
	People() PeopleClient
	Households() HouseholdsClient

	// RateLimit returns a snapshot of the shared rate limiter state.
	RateLimit() RateLimitInfo
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// RetryPolicy configures the retry behavior wrapped around every request.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// operation runs at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64
	// RetryableStatuses, when set, replaces the classifier's judgment of
	// which HTTP statuses are worth retrying.
	RetryableStatuses []int
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    constants.DefaultRetryMax,
		BaseDelay:     constants.DefaultRetryBaseDelay,
		MaxDelay:      constants.DefaultRetryMaxDelay,
		BackoffFactor: constants.ExponentialBackoffBase,
	}
}

// RateLimitPolicy configures the local rolling-window request budget. The
// limiter adapts to server-reported values at runtime; this policy is the
// starting point before the first response arrives.
type RateLimitPolicy struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int
	// Window is the length of the rolling window.
	Window time.Duration
}

// DefaultRateLimitPolicy returns the rate limit policy used when none is
// configured.
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		MaxRequests: constants.DefaultRateLimitMax,
		Window:      constants.DefaultRateLimitWindow,
	}
}

// RateLimitInfo is a read-only snapshot of the limiter state.
type RateLimitInfo struct {
	Max       int       `json:"max"       yaml:"max"`
	Remaining int       `json:"remaining" yaml:"remaining"`
	Reset     time.Time `json:"reset"     yaml:"reset"`
}

// TokenPayload carries the fields of a successful token endpoint response.
type TokenPayload struct {
	AccessToken  string `json:"access_token"            yaml:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"    yaml:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"    yaml:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"         yaml:"scope,omitempty"`
}

// TokenRefreshFailure describes a failed refresh attempt for the failure
// callback.
type TokenRefreshFailure struct {
	// Err is the refresh failure that will be reported to the caller.
	Err error
	// RefreshToken is the token that was presented to the token endpoint.
	RefreshToken string
	// Attempts is the number of refresh attempts made for this failure event.
	Attempts int
}

// Callbacks are optional observation hooks. Each invocation is isolated: a
// panic or error inside a callback is logged and never replaces the primary
// result or aborts the request flow.
type Callbacks struct {
	// OnRetry is invoked after the backoff sleep and immediately before the
	// retry, with the classified error and the 1-based attempt number that
	// failed.
	OnRetry func(err *TypedError, attempt int)
	// OnTokenRefresh is invoked after a successful token refresh with the
	// new token payload.
	OnTokenRefresh func(token TokenPayload)
	// OnTokenRefreshFailure is invoked after a failed token refresh.
	OnTokenRefreshFailure func(failure TokenRefreshFailure)
	// OnRequest is invoked before each attempt is sent.
	OnRequest func(method, url string)
	// OnResponse is invoked after each attempt that produced a response.
	OnResponse func(method, url string, status int, duration time.Duration)
}

// HasRefreshOutcomeCallback reports whether at least one refresh-outcome
// callback is configured. Token refresh requires one so that the application
// can observe and persist credential changes.
func (c Callbacks) HasRefreshOutcomeCallback() bool {
	return c.OnTokenRefresh != nil || c.OnTokenRefreshFailure != nil
}

// UploadRequest describes a file to move to the upload service.
type UploadRequest struct {
	// SourceURL is where the file bytes are downloaded from.
	SourceURL string
	// FileName overrides the name derived from the source URL.
	FileName string
}

// UploadResult carries the identifier assigned by the upload service.
type UploadResult struct {
	ID   string `json:"id"             yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// FileTransport moves file bytes from a source URL to the upload service and
// returns the assigned file identifier. The request pipeline does not touch
// multipart encoding itself; a default transport is installed by the client
// constructor and can be replaced for testing.
type FileTransport interface {
	Upload(ctx context.Context, request *UploadRequest) (*UploadResult, error)
}

// Config represents client configuration for building a pco.Client.
//
// # Authentication precedence
//
// The following precedence is applied by the client implementation (see
// pkg/pcoclient and internal/client):
//  1. AccessToken: if set, it is sent as a Bearer token. When RefreshToken
//     and a refresh-outcome callback are also configured, a 401 response
//     triggers a token refresh and a single replay of the failed request.
//  2. AppID/AppSecret: sent as HTTP Basic credentials (a personal access
//     token pair). Basic credentials are static and never refreshed.
//  3. Neither: client construction fails with ErrNoAuthConfigured.
//
// # Token refresh
//
// Refresh requires both a RefreshToken and at least one of the
// Callbacks.OnTokenRefresh / Callbacks.OnTokenRefreshFailure hooks, so the
// application always has a way to observe rotated credentials. TokenURL
// defaults to "<BaseURL>/oauth/token" when empty.
//
// # Timeouts and resilience
//
// Timeout bounds each HTTP send, not the time spent waiting for rate limit
// capacity. Retry and RateLimit default to DefaultRetryPolicy and
// DefaultRateLimitPolicy when nil; the limiter additionally adapts to
// server-reported rate limit headers on every response.
type Config struct {
	// BaseURL: base URL for the People API. Defaults to DefaultBaseURL.
	// A trailing slash is trimmed.
	BaseURL string

	// AccessToken: OAuth2 access token sent as a Bearer credential.
	AccessToken string
	// RefreshToken: optional refresh token used to renew AccessToken on 401.
	RefreshToken string
	// AppID: application ID for HTTP Basic authentication.
	AppID string
	// AppSecret: application secret paired with AppID.
	AppSecret string
	// TokenURL: full OAuth2 token endpoint. Defaults to BaseURL + "/oauth/token".
	TokenURL string

	// Headers: extra headers attached to every request. Authorization set
	// here is ignored; credentials always come from the fields above.
	Headers map[string]string
	// Timeout: per-attempt HTTP timeout. Defaults to 30 seconds.
	Timeout time.Duration
	// RateLimit: local request budget. Defaults to DefaultRateLimitPolicy.
	RateLimit *RateLimitPolicy
	// Retry: retry behavior. Defaults to DefaultRetryPolicy.
	Retry *RetryPolicy
	// Callbacks: optional observation hooks.
	Callbacks Callbacks
	// Logger: optional structured logger used by the request pipeline.
	Logger Logger
	// Debug: enables verbose request/response logging when a Logger is set.
	Debug bool
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// FileTransport: overrides the default upload service transport used by
	// file-valued field writes.
	FileTransport FileTransport
}
