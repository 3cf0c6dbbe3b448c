package errs

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden           = errors.New("forbidden")
	ErrStateMismatch       = errors.New("oauth state mismatch")
	ErrReauthRequired      = errors.New("connection expired, reconnect required")
	ErrNoConnection        = errors.New("no active connection")
	ErrIntegrity           = errors.New("ciphertext integrity check failed")
	ErrTimeout             = errors.New("operation timed out")
	ErrSyncInProgress      = errors.New("sync already in progress")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// ConfigurationError is returned at startup when a required setting is missing or malformed.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// UpstreamError carries a non-success response from a CRM provider.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream error: %s", e.Body)
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.StatusCode, e.Body)
}

// Invalid wraps ErrInvalidInput with a message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
