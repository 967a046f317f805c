package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client
var (
	// Token errors
	ErrMalformedToken = errors.New("malformed token")
	ErrNoValidToken   = errors.New("no valid token available")

	// Refresh errors
	ErrNoRefreshToken        = errors.New("no refresh token available")
	ErrRefreshNetworkFailure = errors.New("refresh request failed")
	ErrRefreshRejected       = errors.New("refresh rejected")

	// Authentication / authorization errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUnauthorizedRole     = errors.New("role not authorized")
	ErrLoginRejected        = errors.New("login rejected")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrRequestFailed  = errors.New("request failed")
)

// RemoteError carries the message returned by the backend in a
// {success:false, message} envelope.
type RemoteError struct {
	Kind    error
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Join wraps a sentinel kind around a cause so both match errors.Is.
func Join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is re-exported so callers do not need both errors packages.
func New(text string) error {
	return errors.New(text)
}
