package pco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorCategory identifies the broad class of a request failure.
type ErrorCategory string

// Error categories assigned by the classifier.
const (
	CategoryNetwork        ErrorCategory = "network"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryValidation     ErrorCategory = "validation"
	CategoryRateLimit      ErrorCategory = "rate_limit"
	CategoryServer         ErrorCategory = "server"
	CategoryExternalAPI    ErrorCategory = "external_api"
	CategoryUnknown        ErrorCategory = "unknown"
)

// ErrorSeverity grades how serious a failure is, independent of its category.
type ErrorSeverity string

// Error severities, from least to most serious.
const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorObject represents a single entry of the JSON:API errors array.
type ErrorObject struct {
	Status string                 `json:"status,omitempty" yaml:"status,omitempty"`
	Title  string                 `json:"title,omitempty"  yaml:"title,omitempty"`
	Detail string                 `json:"detail,omitempty" yaml:"detail,omitempty"`
	Code   string                 `json:"code,omitempty"   yaml:"code,omitempty"`
	Meta   map[string]interface{} `json:"meta,omitempty"   yaml:"meta,omitempty"`
}

// ResponseError represents the JSON:API error envelope returned by the API.
type ResponseError struct {
	Errors []ErrorObject `json:"errors"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if len(e.Errors) == 0 {
		return "unknown error"
	}

	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %s", e.Errors[0].Title, e.Errors[0].Detail)
	}

	return fmt.Sprintf("multiple errors: %v", e.Errors)
}

// FirstError returns the first error object or nil.
func (e *ResponseError) FirstError() *ErrorObject {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// ParseResponseError parses a JSON:API error envelope from a response body.
func ParseResponseError(data []byte) (*ResponseError, error) {
	var errResp ResponseError

	err := json.Unmarshal(data, &errResp)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal response error: %w", err)
	}

	return &errResp, nil
}

// RequestContext describes the API call a failure originated from. It is
// created once per call and attached to typed errors for attribution; layers
// extend it by merging rather than mutating it in place.
type RequestContext struct {
	Endpoint  string
	Method    string
	Metadata  map[string]string
	Timestamp time.Time
}

// NewRequestContext creates a RequestContext for a method and endpoint.
func NewRequestContext(method, endpoint string) *RequestContext {
	return &RequestContext{
		Endpoint:  endpoint,
		Method:    method,
		Timestamp: time.Now(),
	}
}

// WithMetadata returns a copy of the context with an extra metadata entry.
func (c *RequestContext) WithMetadata(key, value string) *RequestContext {
	merged := c.clone()
	if merged.Metadata == nil {
		merged.Metadata = make(map[string]string)
	}

	merged.Metadata[key] = value

	return merged
}

func (c *RequestContext) clone() *RequestContext {
	if c == nil {
		return &RequestContext{}
	}

	clone := &RequestContext{
		Endpoint:  c.Endpoint,
		Method:    c.Method,
		Timestamp: c.Timestamp,
	}

	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}

	return clone
}

// merge fills empty fields of c from other and combines metadata. Fields
// already set on c win, so the innermost layer's attribution is preserved.
func (c *RequestContext) merge(other *RequestContext) *RequestContext {
	merged := c.clone()

	if other == nil {
		return merged
	}

	if merged.Endpoint == "" {
		merged.Endpoint = other.Endpoint
	}

	if merged.Method == "" {
		merged.Method = other.Method
	}

	if merged.Timestamp.IsZero() {
		merged.Timestamp = other.Timestamp
	}

	for k, v := range other.Metadata {
		if merged.Metadata == nil {
			merged.Metadata = make(map[string]string)
		}

		if _, ok := merged.Metadata[k]; !ok {
			merged.Metadata[k] = v
		}
	}

	return merged
}

// TypedError is the classified form of every failure raised by the client.
// Callers branch on Category, Status, and Retryable instead of matching
// message text. A TypedError is a value object: it is never mutated after
// creation, and WithContext returns an extended copy.
type TypedError struct {
	Category  ErrorCategory
	Severity  ErrorSeverity
	Message   string
	Status    int
	Retryable bool
	Timeout   bool
	Cause     error
	Context   *RequestContext
	Errors    []ErrorObject
}

// Error implements the error interface.
func (e *TypedError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Category, e.Message, e.Status)
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the original cause, if any.
func (e *TypedError) Unwrap() error {
	return e.Cause
}

// WithContext returns a copy of the error carrying the given request context.
// If the error already has a context, the existing fields win and the new
// context only fills in what is missing.
func (e *TypedError) WithContext(reqCtx *RequestContext) *TypedError {
	clone := *e

	if clone.Context == nil {
		clone.Context = reqCtx.clone()
	} else {
		clone.Context = clone.Context.merge(reqCtx)
	}

	return &clone
}

// NewNetworkError wraps a transport-level failure as a retryable network error.
func NewNetworkError(cause error) *TypedError {
	message := "Network request failed"
	if cause != nil {
		message = fmt.Sprintf("Network request failed: %v", cause)
	}

	return &TypedError{
		Category:  CategoryNetwork,
		Severity:  SeverityMedium,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewTimeoutError wraps a request abort as a retryable timeout error. The
// timeout value is included in the message when known.
func NewTimeoutError(timeout time.Duration, cause error) *TypedError {
	message := "Request timed out"
	if timeout > 0 {
		message = fmt.Sprintf("Request timed out after %s", timeout)
	}

	return &TypedError{
		Category:  CategoryNetwork,
		Severity:  SeverityMedium,
		Message:   message,
		Retryable: true,
		Timeout:   true,
		Cause:     cause,
	}
}

// NewExternalAPIError wraps a failure from an auxiliary service, such as the
// file upload endpoint, that is not part of the primary API.
func NewExternalAPIError(message string, cause error) *TypedError {
	return &TypedError{
		Category:  CategoryExternalAPI,
		Severity:  SeverityHigh,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// Classify converts an arbitrary error into a TypedError. A TypedError passes
// through unchanged; context deadline and transport timeouts become timeout
// errors; other transport failures become network errors; anything else is
// reported as unknown and not retryable. Classify never panics.
func Classify(err error) *TypedError {
	if err == nil {
		return nil
	}

	var typed *TypedError
	if errors.As(err, &typed) {
		return typed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(0, err)
	}

	if errors.Is(err, context.Canceled) {
		return &TypedError{
			Category:  CategoryNetwork,
			Severity:  SeverityMedium,
			Message:   "Request canceled",
			Retryable: false,
			Cause:     err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewTimeoutError(0, err)
		}

		return NewNetworkError(err)
	}

	return &TypedError{
		Category:  CategoryUnknown,
		Severity:  SeverityMedium,
		Message:   err.Error(),
		Retryable: false,
		Cause:     err,
	}
}

// ClassifyResponse converts a non-2xx HTTP response into a TypedError. The
// body is parsed as a JSON:API error envelope on a best-effort basis; an
// unparseable body still yields a fully classified error.
func ClassifyResponse(status int, body []byte) *TypedError {
	var apiErrors []ErrorObject

	if respErr, err := ParseResponseError(body); err == nil {
		apiErrors = respErr.Errors
	}

	switch {
	case status == 429:
		return &TypedError{
			Category:  CategoryRateLimit,
			Severity:  SeverityMedium,
			Message:   summarizeErrors(apiErrors, "Rate limit exceeded"),
			Status:    status,
			Retryable: true,
			Errors:    apiErrors,
		}
	case status == 401:
		return &TypedError{
			Category:  CategoryAuthentication,
			Severity:  SeverityHigh,
			Message:   summarizeErrors(apiErrors, "Authentication failed"),
			Status:    status,
			Retryable: false,
			Errors:    apiErrors,
		}
	case status == 403:
		return &TypedError{
			Category:  CategoryAuthorization,
			Severity:  SeverityHigh,
			Message:   summarizeErrors(apiErrors, "Access forbidden"),
			Status:    status,
			Retryable: false,
			Errors:    apiErrors,
		}
	case status == 422:
		return &TypedError{
			Category:  CategoryValidation,
			Severity:  SeverityMedium,
			Message:   summarizeErrors(apiErrors, "Validation failed"),
			Status:    status,
			Retryable: false,
			Errors:    apiErrors,
		}
	case status == 404:
		return &TypedError{
			Category:  CategoryValidation,
			Severity:  SeverityMedium,
			Message:   summarizeErrors(apiErrors, "Resource not found"),
			Status:    status,
			Retryable: false,
			Errors:    apiErrors,
		}
	case status >= 500:
		return &TypedError{
			Category:  CategoryServer,
			Severity:  SeverityHigh,
			Message:   summarizeErrors(apiErrors, "Server error"),
			Status:    status,
			Retryable: true,
			Errors:    apiErrors,
		}
	default:
		return &TypedError{
			Category:  CategoryUnknown,
			Severity:  SeverityMedium,
			Message:   summarizeErrors(apiErrors, "Unexpected response"),
			Status:    status,
			Retryable: false,
			Errors:    apiErrors,
		}
	}
}

// summarizeErrors joins the detail of every API error object into a single
// human-readable line, preferring detail over title.
func summarizeErrors(apiErrors []ErrorObject, fallback string) string {
	details := make([]string, 0, len(apiErrors))

	for _, apiErr := range apiErrors {
		switch {
		case apiErr.Detail != "":
			details = append(details, apiErr.Detail)
		case apiErr.Title != "":
			details = append(details, apiErr.Title)
		}
	}

	if len(details) == 0 {
		return fallback
	}

	return strings.Join(details, "; ")
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var typed *TypedError
	if errors.As(err, &typed) {
		return typed.Status == 404
	}

	return false
}

// IsUnauthorized checks if the error is an authentication error.
func IsUnauthorized(err error) bool {
	var typed *TypedError
	if errors.As(err, &typed) {
		return typed.Category == CategoryAuthentication
	}

	return false
}

// IsForbidden checks if the error is an authorization error.
func IsForbidden(err error) bool {
	var typed *TypedError
	if errors.As(err, &typed) {
		return typed.Category == CategoryAuthorization
	}

	return false
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	var typed *TypedError
	if errors.As(err, &typed) {
		return typed.Category == CategoryRateLimit
	}

	return false
}

// IsTimeout checks if the error was caused by a request timeout.
func IsTimeout(err error) bool {
	var typed *TypedError
	if errors.As(err, &typed) {
		return typed.Timeout
	}

	return false
}

// IsRetryable reports whether a retry of the failed operation could succeed.
func IsRetryable(err error) bool {
	typed := Classify(err)
	if typed == nil {
		return false
	}

	return typed.Retryable
}
