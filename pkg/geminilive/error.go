package geminilive

import (
	"errors"
	"fmt"
)

// ErrSessionClosed reports an operation on a closed session.
var ErrSessionClosed = errors.New("geminilive: session closed")

// ErrSendBackpressure reports that the outbound queue is full. The frame
// was not enqueued; callers decide whether to drop, retry or abort.
var ErrSendBackpressure = errors.New("geminilive: send queue full")

// Error represents a transport or protocol error from the live session.
type Error struct {
	// Code is a short machine-readable code (e.g. "connection_failed").
	Code string `json:"code,omitzero"`

	// Message is the human-readable error message.
	Message string `json:"message,omitzero"`

	// HTTPStatus is the handshake HTTP status code, if applicable.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("geminilive: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("geminilive: %s", e.Message)
}
