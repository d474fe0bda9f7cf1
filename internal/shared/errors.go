package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("login required")
	ErrTokenExpired     = errors.New("id token expired")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrTimeout          = errors.New("operation timed out")

	// Backend errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrLookupFailed       = errors.New("failed to fetch product details")
	ErrTrackingFailed     = errors.New("failed to add product to cart")
	ErrFetchFailed        = errors.New("failed to fetch cart data")
	ErrRemovalFailed      = errors.New("failed to remove product")
	ErrProfileFailed      = errors.New("failed to update profile")
	ErrStatsFailed        = errors.New("failed to fetch stats")

	// Local state errors
	ErrNoRecord          = errors.New("record not found")
	ErrUnsupportedSchema = errors.New("unsupported record schema version")
	ErrBusy              = errors.New("operation already in progress")

	// Input validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingArgument    = errors.New("missing required argument")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrEmptyProductURL    = errors.New("please enter a valid Amazon URL")
	ErrInvalidTargetPrice = errors.New("invalid target price")
	ErrTargetTooHigh      = errors.New("target price too high")
)

// ValidationError reports input rejected locally, before any network call.
//
// It matches both [ErrInvalidInput] and its specific Reason with [errors.Is].
type ValidationError struct {
	Field  string
	Reason error
	Detail string
}

func NewValidationError(field string, reason error, detail string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Reason}
}

// AuthError carries an identity provider failure. Message is the provider's text, forwarded verbatim.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return ErrAuthFailed.Error()
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthFailed}
	}
	return []error{ErrAuthFailed, e.Err}
}

// APIError is a non-success backend response.
//
// Kind is one of the backend sentinels (e.g. [ErrLookupFailed]) and Detail is the backend's "detail" field when present.
type APIError struct {
	Kind       error
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() []error {
	return []error{e.Kind, ErrAPIRequest}
}

// UserMessage returns the text shown to a user for err: validation and backend messages are surfaced as-is,
// everything else falls back to the error string.
func UserMessage(err error) string {
	var apiErr *APIError
	var valErr *ValidationError
	var authErr *AuthError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.As(err, &authErr):
		return authErr.Error()
	case errors.Is(err, ErrNotAuthenticated):
		return "Please login to add products to your cart"
	default:
		return err.Error()
	}
}
