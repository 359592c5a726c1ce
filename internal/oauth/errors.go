package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConfiguration is wrapped by every ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingCode is returned when an authorization-code exchange is
	// attempted before a code was supplied.
	ErrMissingCode = errors.New("authorization code is missing")

	// ErrNoBearerToken is returned when a destination lookup yields no bearer token.
	ErrNoBearerToken = errors.New("destination did not return a bearer token")

	// ErrNoAccessToken is returned when no token has been obtained yet.
	ErrNoAccessToken = errors.New("no access token available")
)

// ConfigurationError reports missing or invalid settings for a route or broker.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError is a shorthand for &ConfigurationError{...}.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError is a non-success response from a token endpoint or the
// destination service. Body is kept verbatim.
type AuthorizationError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *AuthorizationError) Error() string {
	source := e.Source
	if source == "" {
		source = "authorization failure"
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", source, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d\n%s", source, e.StatusCode, e.Body)
}

// TransportError is a network failure talking to a token endpoint, the
// destination service or an upstream backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is a TransportError caused by a deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout reports true so callers matching on net.Error-like interfaces see it.
func (e *TimeoutError) Timeout() bool { return true }

// NotAuthorizedError is returned when an authorization header is requested
// from a source that holds no token.
type NotAuthorizedError struct {
	Cause error
}

func (e *NotAuthorizedError) Error() string {
	if e.Cause == nil {
		return "not authorized"
	}
	return "not authorized: " + e.Cause.Error()
}

func (e *NotAuthorizedError) Unwrap() error { return e.Cause }

// TokenError is an error entry returned by the destination service in place
// of a token.
type TokenError struct {
	Message string
}

func (e *TokenError) Error() string {
	return "destination token error: " + e.Message
}

// ClassifyTransport wraps a failed round trip as a TimeoutError when it was
// caused by a deadline, and as a TransportError otherwise. Errors that are
// already classified are returned unchanged.
func ClassifyTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TimeoutError
	var tr *TransportError
	if errors.As(err, &te) || errors.As(err, &tr) {
		return err
	}
	if IsTimeout(err) {
		return &TimeoutError{Op: op, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// IsTimeout reports whether err was caused by a deadline or a net timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
