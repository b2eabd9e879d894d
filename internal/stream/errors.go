package stream

import (
	"errors"
	"fmt"
)

// ErrNoTerminalEvent means the body ended before a complete or error record arrived.
var ErrNoTerminalEvent = errors.New("no terminal event received")

const GenericErrorDetail = "processing failed"

// ApplicationError is an error record reported by the producer.
type ApplicationError struct {
	Detail string
}

func (e *ApplicationError) Error() string {
	return e.Detail
}

// TransportError wraps a failure reading the body itself.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
