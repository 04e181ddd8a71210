package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure taxonomy returned to callers of the Qeem client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// Request errors
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrNetwork    = errors.New("network error")
	ErrServer     = errors.New("server error")

	// Credential storage errors
	ErrNoCredential = errors.New("no credential stored")
)

// APIError is the normalised error body returned by the API: {message, code, details?}.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// NormalisedAPIError fills in message and code when the body did not carry them.
func NormalisedAPIError(status int, body *APIError) *APIError {
	out := &APIError{Status: status}
	if body != nil {
		out.Message = body.Message
		out.Code = body.Code
		out.Details = body.Details
	}
	if out.Message == "" {
		out.Message = "API Error: " + http.StatusText(status)
	}
	if out.Code == "" {
		out.Code = fmt.Sprintf("HTTP_%d", status)
	}
	return out
}

// ValidationError is a field-level rejection. Field is empty for form-wide errors.
type ValidationError struct {
	Field   string
	Message string
	API     *APIError
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a client-side ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ServerError is a 5xx response.
type ServerError struct {
	Status int
	Code   string
	API    *APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d (%s)", e.Status, e.Code)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// NetworkError is a failure to obtain any response at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// FromResponse maps a non-2xx, non-auth status onto the taxonomy.
// 401 and 403 are handled by the session layer and are not mapped here.
func FromResponse(apiErr *APIError) error {
	switch status := apiErr.Status; {
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	case status >= 500:
		return &ServerError{Status: status, Code: apiErr.Code, API: apiErr}
	case status >= 400:
		field, message := fieldFromDetails(apiErr)
		return &ValidationError{Field: field, Message: message, API: apiErr}
	default:
		return apiErr
	}
}

// fieldFromDetails extracts the offending field from details. The API uses either
// {"field": "...", "message": "..."} or {"<field>": "<message>"}.
func fieldFromDetails(apiErr *APIError) (string, string) {
	if len(apiErr.Details) == 0 {
		return "", apiErr.Message
	}
	if f, ok := apiErr.Details["field"].(string); ok {
		if m, ok := apiErr.Details["message"].(string); ok && m != "" {
			return f, m
		}
		return f, apiErr.Message
	}
	if len(apiErr.Details) == 1 {
		for k, v := range apiErr.Details {
			if m, ok := v.(string); ok {
				return k, m
			}
			if ms, ok := v.([]any); ok && len(ms) > 0 {
				parts := make([]string, 0, len(ms))
				for _, m := range ms {
					parts = append(parts, fmt.Sprint(m))
				}
				return k, strings.Join(parts, "; ")
			}
			return k, apiErr.Message
		}
	}
	return "", apiErr.Message
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
