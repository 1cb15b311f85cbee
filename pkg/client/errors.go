package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrEmptyOperation is returned when a descriptor expands into no requests.
	ErrEmptyOperation = errors.New("operation has no sub-requests")

	// ErrRequest is matched by every *RequestError.
	ErrRequest = errors.New("request failed")
)

// ErrorClass represents a classification of sub-request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than auth.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassAuth represents 401/403, usually a token that expired mid-batch.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNetwork represents transport errors.
	ErrorClassNetwork ErrorClass = "network"
)

// RequestError describes one failed sub-request.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int // 0 for transport errors
	Status     string
	Class      ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return e.Err.Error()
	case e.Class == ErrorClassAuth:
		return fmt.Sprintf("%s for %s (token rejected, it may have expired during the batch)", e.Status, e.Path)
	default:
		return fmt.Sprintf("%s for %s", e.Status, e.Path)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is reports ErrRequest as matching.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequest
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorClassAuth
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
