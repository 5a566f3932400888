package constants

import "errors"

// Credential errors.
var (
	ErrNoRefreshToken    = errors.New("no refresh token available")
	ErrRefreshNotEnabled = errors.New("token refresh unavailable: a refresh token and at least one refresh callback are required")
	ErrNoAccessToken     = errors.New("no access token available")
)

// Request errors.
var (
	ErrNilRequest    = errors.New("request must not be nil")
	ErrEmptyEndpoint = errors.New("endpoint must not be empty")
)

// Upload errors.
var (
	ErrNoFileTransport  = errors.New("no file transport configured")
	ErrEmptySourceURL   = errors.New("file source URL must not be empty")
	ErrNoFileIdentifier = errors.New("upload response did not contain a file identifier")
)
