package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error carrying the HTTP status and stable error code
// exposed to API clients. Errors constructed here pass through the response
// layer unchanged; anything else is wrapped into a SERVER_ERROR.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured details to a copy of the error.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// WithCause attaches an underlying cause to a copy of the error.
func (e *Error) WithCause(cause error) *Error {
	clone := *e
	clone.cause = cause
	return &clone
}

// NewError constructs a domain error.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// AsError extracts a *Error when err carries one.
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// ValidationError builds a 400 VALIDATION_ERROR with per-field details.
func ValidationError(details any) *Error {
	return NewError(http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed").WithDetails(details)
}

var (
	// ErrInvalidEmail rejects malformed email addresses.
	ErrInvalidEmail = NewError(http.StatusBadRequest, "INVALID_EMAIL", "Please enter a valid email address")
	// ErrWeakPassword rejects passwords failing the strength rules.
	ErrWeakPassword = NewError(http.StatusBadRequest, "WEAK_PASSWORD", "Password does not meet security requirements")
	// ErrInvalidCredentials covers both unknown email and wrong password so the
	// response carries no enumeration signal.
	ErrInvalidCredentials = NewError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	// ErrMissingToken indicates no bearer token on a protected endpoint.
	ErrMissingToken = NewError(http.StatusUnauthorized, "MISSING_TOKEN", "Authentication token required")
	// ErrInvalidToken indicates a malformed or tampered token.
	ErrInvalidToken = NewError(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid authentication token")
	// ErrExpiredToken indicates an expired access token.
	ErrExpiredToken = NewError(http.StatusUnauthorized, "EXPIRED_TOKEN", "Authentication token has expired")
	// ErrInvalidRefreshToken indicates a bad refresh token.
	ErrInvalidRefreshToken = NewError(http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid refresh token")
	// ErrExpiredRefreshToken indicates an expired refresh token.
	ErrExpiredRefreshToken = NewError(http.StatusUnauthorized, "EXPIRED_REFRESH_TOKEN", "Refresh token has expired")
	// ErrUserNotFound indicates the token subject no longer exists.
	ErrUserNotFound = NewError(http.StatusUnauthorized, "USER_NOT_FOUND", "User not found")
	// ErrAccountInactive rejects deactivated accounts.
	ErrAccountInactive = NewError(http.StatusForbidden, "ACCOUNT_INACTIVE", "Your account has been deactivated. Please contact support.")
	// ErrNotFound indicates resource not found.
	ErrNotFound = NewError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	// ErrResetUserNotFound hides whether the email or the token was wrong
	// during password reset.
	ErrResetUserNotFound = NewError(http.StatusNotFound, "USER_NOT_FOUND", "Invalid reset token or email")
	// ErrEmailExists rejects duplicate registrations.
	ErrEmailExists = NewError(http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists")
	// ErrRecentResetRequest throttles repeated reset requests while an
	// unexpired token is outstanding.
	ErrRecentResetRequest = NewError(http.StatusTooManyRequests, "RECENT_RESET_REQUEST", "A password reset link was recently sent. Please check your email or wait before requesting another.")
	// ErrNoResetRequest indicates no outstanding reset token for the account.
	ErrNoResetRequest = NewError(http.StatusBadRequest, "NO_RESET_REQUEST", "No password reset request found for this account")
	// ErrExpiredResetToken indicates the stored reset token is past its expiry.
	ErrExpiredResetToken = NewError(http.StatusBadRequest, "EXPIRED_TOKEN", "Password reset token has expired. Please request a new one.")
	// ErrInvalidResetToken indicates the supplied token does not match the stored hash.
	ErrInvalidResetToken = NewError(http.StatusBadRequest, "INVALID_TOKEN", "Invalid password reset token")
	// ErrRateLimited is returned when a client exceeds a per-IP rate limit.
	ErrRateLimited = NewError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please slow down.")
	// ErrServiceUnavailable indicates database or broker connectivity problems.
	ErrServiceUnavailable = NewError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable. Please try again later.")
)

// ServerError wraps an unexpected error into the generic 500 shape. The cause
// is kept for server-side logging and never serialized to clients.
func ServerError(code string, cause error) *Error {
	if code == "" {
		code = "SERVER_ERROR"
	}
	return NewError(http.StatusInternalServerError, code, "An unexpected error occurred. Please try again.").WithCause(cause)
}
