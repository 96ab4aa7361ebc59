package e164

import (
	"errors"
	"fmt"
)

// ErrorKind tags the failure category of a Result.
type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindInput     ErrorKind = "input"
	KindNotFound  ErrorKind = "not_found"
	KindUpstream  ErrorKind = "upstream"
	KindFormat    ErrorKind = "format"
	KindTransport ErrorKind = "transport"
)

// Sentinels matched by LookupError via errors.Is.
var (
	ErrInvalidInput = errors.New("e164: invalid input")
	ErrNotFound     = errors.New("e164: not found")
	ErrUpstream     = errors.New("e164: upstream error")
	ErrFormat       = errors.New("e164: unexpected payload format")
	ErrTransport    = errors.New("e164: transport failure")
)

// LookupError is the error form of a failed Result.
type LookupError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("e164 lookup failed (%d): %s", e.StatusCode, e.Message)
}

// Is reports whether target is the sentinel for e.Kind.
func (e *LookupError) Is(target error) bool {
	return target == sentinelFor(e.Kind)
}

func sentinelFor(kind ErrorKind) error {
	switch kind {
	case KindInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindUpstream:
		return ErrUpstream
	case KindFormat:
		return ErrFormat
	case KindTransport:
		return ErrTransport
	default:
		return nil
	}
}

// TransportError is the failure variant produced by the transport wrapper.
// Response is set when the collaborator obtained a response before failing.
type TransportError struct {
	Message  string
	Response *RawResponse
	cause    error
}

// NewTransportError wraps cause, optionally attaching the response that was obtained.
func NewTransportError(cause error, resp *RawResponse) *TransportError {
	te := &TransportError{Response: resp, cause: cause}
	if cause != nil {
		te.Message = cause.Error()
	}
	return te
}

func (e *TransportError) Error() string {
	if e.Message == "" {
		return msgUnexpectedError
	}
	return e.Message
}

func (e *TransportError) Unwrap() error { return e.cause }
