package opendota

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream marks any failure talking to the stats source.
	ErrUpstream = errors.New("opendota: upstream error")
	// ErrDecode marks a response body that could not be decoded.
	ErrDecode = errors.New("opendota: decode failed")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("opendota: circuit open")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("opendota %s: HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("opendota %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Unwrap makes StatusError match ErrUpstream.
func (e *StatusError) Unwrap() error { return ErrUpstream }

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.Status == 429 || e.Status >= 500
}
