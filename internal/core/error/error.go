package errx

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between retrying, falling
// back and surfacing it to the student.
type Kind string

const (
	// ConfigurationMismatch: a command issued for the wrong experiment kind or
	// a missing remote credential. Never retried.
	ConfigurationMismatch Kind = "configuration_mismatch"
	// ModelUnavailable: the backend does not serve the requested model id.
	ModelUnavailable Kind = "model_unavailable"
	// QuotaExhausted: rate limit or quota reported by the remote service.
	QuotaExhausted Kind = "quota_exhausted"
	// RemoteTimeout: a candidate call ran past its deadline.
	RemoteTimeout Kind = "remote_timeout"
	// RemoteFailure: any other remote error.
	RemoteFailure Kind = "remote_failure"
	// InvalidCommand: an out-of-range or malformed apparatus parameter.
	InvalidCommand Kind = "invalid_command"
	// Storage: a persistence backend (Redis, SQLite) failed.
	Storage Kind = "storage"
)

const (
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes SQLite related failures.
	StoreErrorMessage = "profile store operation failed"
)

// AppError wraps an underlying error with a Kind and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(kind Kind, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Message: message,
	}
}

// Newf creates an AppError without an underlying cause.
func Newf(kind Kind, format string, args ...any) *AppError {
	return &AppError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether the target matches the underlying error, or is an
// AppError of the same Kind.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// KindOf returns the Kind of the first AppError in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Sentinel returns a bare AppError usable as an errors.Is target for kind.
func Sentinel(kind Kind) error {
	return &AppError{Kind: kind}
}
