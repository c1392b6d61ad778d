package client

import (
	"errors"
	"fmt"
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassConnectivity represents a missing connection: the host could
	// not be resolved or the network is unreachable.
	ErrorClassConnectivity ErrorClass = "connectivity"

	// ErrorClassNetwork represents other transport errors (timeouts, resets).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassMapping represents bodies that could not be decoded.
	ErrorClassMapping ErrorClass = "mapping"
)

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("invalid page number")

// TransportError is returned when no HTTP response was received.
type TransportError struct {
	Class    ErrorClass
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s error requesting %s: %v", e.Class, e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnclassifiedError is returned for a non-2xx HTTP status.
type UnclassifiedError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
}

// Error implements the error interface.
func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("unexpected %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// IsConnectivity reports whether err is caused by missing connectivity.
func IsConnectivity(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Class == ErrorClassConnectivity
}
