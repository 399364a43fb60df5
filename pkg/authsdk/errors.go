package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

// Error codes used in the "error" member of every error body.
const (
	ErrorCodeValidation   = "validation_error"
	ErrorCodeConflict     = "conflict"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeForbidden    = "forbidden"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeInternal     = "internal_error"
	ErrorCodeRateLimited  = "rate_limit_exceeded"
	ErrorCodeBadGateway   = "bad_gateway"
)

// APIError is the error envelope shared by server and client:
//
//	{"error": "...", "error_description": "...", "details": {...}}
//
// Handlers write it with WriteError; the SDK returns it for non-2xx
// responses.
type APIError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	Code        string            `json:"error"`
	Description string            `json:"error_description,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on status and code so callers can write
// errors.Is(err, authsdk.ErrForbidden).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// Predefined errors. Handlers copy these (or use NewAPIError) rather than
// mutating them.
var (
	ErrUnauthorized = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "invalid credentials",
	}

	ErrAuthenticationRequired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthorized,
		Description: "authentication required",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "refresh token is invalid, expired or revoked",
	}

	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "username or email already registered",
	}

	ErrInternal = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeInternal,
		Description: "internal server error",
	}

	ErrNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
	}

	ErrBadGateway = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeBadGateway,
		Description: "upstream unavailable",
	}
)

// NewAPIError creates a new APIError with the given status code, error code, and description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// NewValidationError builds a 400 validation_error with per-field details.
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeValidation,
		Description: "request validation failed",
		Details:     details,
	}
}

// parseErrorResponse turns a non-2xx response into an *APIError, falling
// back to a status-derived one when the body isn't our envelope.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	code := ErrorCodeInternal
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeUnauthorized
	case http.StatusForbidden:
		code = ErrorCodeForbidden
	case http.StatusNotFound:
		code = ErrorCodeNotFound
	case http.StatusTooManyRequests:
		code = ErrorCodeRateLimited
	case http.StatusBadGateway:
		code = ErrorCodeBadGateway
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
