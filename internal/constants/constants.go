package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// TokenEndpointTimeout is the timeout for token endpoint exchanges.
	TokenEndpointTimeout = 15 * time.Second

	// FileDownloadTimeout is the timeout for fetching file bytes from a
	// source URL during an upload.
	FileDownloadTimeout = 60 * time.Second

	// DefaultUserAgent identifies this library in request headers.
	DefaultUserAgent = "pco-go/1.0"
)

// Rate limit defaults. The People API advertises its budget through
// X-PCO-API-Request-Rate-* headers; these values only apply until the
// first response teaches the limiter the server's actual numbers.
const (
	// DefaultRateLimitMax is the default number of requests per window.
	DefaultRateLimitMax = 100

	// DefaultRateLimitWindow is the default rolling window length.
	DefaultRateLimitWindow = 60 * time.Second

	// DefaultMaxRateLimitRetries caps consecutive 429 replays of a single
	// logical call. Each replay waits for limiter availability first, so
	// reaching the cap means the server and the local window persistently
	// disagree and the caller should see the rate_limit error.
	DefaultMaxRateLimitRetries = 5

	// RateLimitPollInterval is how often a blocked caller re-checks the
	// window for capacity.
	RateLimitPollInterval = 50 * time.Millisecond
)

// Retry and backoff defaults.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryBaseDelay is the first backoff delay.
	DefaultRetryBaseDelay = 1 * time.Second

	// DefaultRetryMaxDelay caps any single backoff delay.
	DefaultRetryMaxDelay = 30 * time.Second

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2

	// RetryJitterFraction is the maximum fraction of the exponential
	// delay added as random jitter.
	RetryJitterFraction = 0.1

	// TokenEndpointRetryMax is the retry count for token endpoint calls.
	TokenEndpointRetryMax = 2

	// TokenEndpointRetryWaitMin is the minimum wait between token
	// endpoint retries.
	TokenEndpointRetryWaitMin = 500 * time.Millisecond

	// TokenEndpointRetryWaitMax is the maximum wait between token
	// endpoint retries.
	TokenEndpointRetryWaitMax = 5 * time.Second
)

// Concurrency and batching limits.
const (
	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 3

	// StreamBufferSize is the channel buffer for streamed pages.
	StreamBufferSize = 10
)

// Pagination limits.
const (
	// DefaultPerPage is the default number of resources per page.
	DefaultPerPage = 25

	// MaxPages bounds pagination loops against malformed next links.
	MaxPages = 1000
)

// Token refresh.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)
