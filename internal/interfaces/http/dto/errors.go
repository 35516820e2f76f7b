package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// OAuth flow error codes
const (
	// ErrCodeInvalidProvider is used for providers outside the supported set
	ErrCodeInvalidProvider = "ERR_INVALID_PROVIDER"
	// ErrCodeProviderNotConfigured is used when a provider's OAuth settings are absent
	ErrCodeProviderNotConfigured = "ERR_PROVIDER_NOT_CONFIGURED"
	// ErrCodeCsrfMismatch is used when the OAuth state does not match the cookie
	ErrCodeCsrfMismatch = "ERR_CSRF_MISMATCH"
	// ErrCodeStateFormat is used when the OAuth state token cannot be decoded
	ErrCodeStateFormat = "ERR_STATE_FORMAT"
	// ErrCodeStateExpired is used when the OAuth state token is too old
	ErrCodeStateExpired = "ERR_STATE_EXPIRED"
	// ErrCodeUserMismatch is used when the state belongs to a different user
	ErrCodeUserMismatch = "ERR_USER_MISMATCH"
	// ErrCodeProvider is used when the provider itself reported an OAuth error
	ErrCodeProvider = "ERR_PROVIDER"
	// ErrCodeExchangeFailed is used when the authorization-code exchange fails
	ErrCodeExchangeFailed = "ERR_EXCHANGE_FAILED"
	// ErrCodeOAuthUnsupported is used when OAuth is requested on a key-based provider
	ErrCodeOAuthUnsupported = "ERR_OAUTH_UNSUPPORTED"
	// ErrCodeAPIKeyUnsupported is used when key auth is requested on an OAuth provider
	ErrCodeAPIKeyUnsupported = "ERR_API_KEY_UNSUPPORTED"
)

// Sync error codes
const (
	// ErrCodeNoIntegrations is used when sync selection yields no integrations
	ErrCodeNoIntegrations = "ERR_NO_INTEGRATIONS"
	// ErrCodeTransient is used when a retryable infrastructure failure exhausted its retries
	ErrCodeTransient = "ERR_TRANSIENT"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// OAuth flow errors
	ErrCodeInvalidProvider:       http.StatusBadRequest,
	ErrCodeProviderNotConfigured: http.StatusServiceUnavailable,
	ErrCodeCsrfMismatch:          http.StatusForbidden,
	ErrCodeStateFormat:           http.StatusBadRequest,
	ErrCodeStateExpired:          http.StatusUnauthorized,
	ErrCodeUserMismatch:          http.StatusForbidden,
	ErrCodeProvider:              http.StatusBadGateway,
	ErrCodeExchangeFailed:        http.StatusBadGateway,
	ErrCodeOAuthUnsupported:      http.StatusBadRequest,
	ErrCodeAPIKeyUnsupported:     http.StatusBadRequest,

	// Sync errors
	ErrCodeNoIntegrations: http.StatusNotFound,
	ErrCodeTransient:      http.StatusServiceUnavailable,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
