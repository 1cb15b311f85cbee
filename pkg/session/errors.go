package session

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates conflicting or missing connection settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication is matched by every *AuthenticationError.
	ErrAuthentication = errors.New("authentication failed")
)

// AuthenticationError describes a failed token request.
type AuthenticationError struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	Status     string
	Err        error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("authentication failed (status %s): %v", e.Status, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("authentication failed (status %s)", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	default:
		return "authentication failed"
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is reports ErrAuthentication as matching.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}
