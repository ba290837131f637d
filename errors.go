package wsconsole

import (
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrConnectionClosed = errors.New("connection has been closed")
	ErrCannotConnect    = errors.New("connection cannot be established")
	ErrTerminated       = errors.New("connection terminated")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrSendQueueFull    = errors.New("send queue is full")
	ErrInvalidConfig    = errors.New("invalid config")

	ErrEmptyAddress     = errors.New("no address filled")
	ErrMalformedAddress = errors.New("not a valid websocket address")
)

type ValidationErrorKind byte

const (
	ValidationEmpty ValidationErrorKind = iota + 1
	ValidationMalformedScheme
)

// ValidationError is returned by ValidateAddress. Its message is meant to be shown inline next to the address
// input.
type ValidationError struct {
	Kind ValidationErrorKind
}

func (e *ValidationError) Error() string {
	return e.sentinel().Error()
}

// Is lets callers match against ErrEmptyAddress or ErrMalformedAddress.
func (e *ValidationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ValidationError) sentinel() error {
	if e.Kind == ValidationEmpty {
		return ErrEmptyAddress
	}
	return ErrMalformedAddress
}

// ErrUnrecoverableConnection describes a dial that failed for a given URL.
type ErrUnrecoverableConnection struct {
	err error
	url url.URL
}

func (e ErrUnrecoverableConnection) Error() string {
	return fmt.Sprintf("unrecoverable connection error: %s to %s", e.err, e.url.String())
}

func (e ErrUnrecoverableConnection) Unwrap() error { return e.err }

func WrapErrorUnrecoverableConnection(err error, u url.URL) error {
	if err == nil {
		return nil
	}
	return ErrUnrecoverableConnection{
		err: err,
		url: u,
	}
}
