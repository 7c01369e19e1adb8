package inference

import (
	"errors"
	"fmt"
)

// ErrorKind classifies inference failures so callers can map them to
// responses without inspecting messages.
type ErrorKind string

const (
	// KindTimeout means the backend did not answer within the configured bound.
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable covers refused connections, a model that is not loaded
	// (404), 5xx responses and an open circuit.
	KindUnavailable ErrorKind = "unavailable"
	// KindEmptyCompletion means the backend answered without any text.
	KindEmptyCompletion ErrorKind = "empty_completion"
	// KindBadResponse means an undecodable body or an unexpected 4xx.
	KindBadResponse ErrorKind = "bad_response"
	// KindCanceled means the caller went away and the request was abandoned.
	KindCanceled ErrorKind = "canceled"
)

// Error is returned by every Client method that talks to the backend.
type Error struct {
	Kind       ErrorKind
	Op         string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("inference %s [%s]: %s", e.Op, e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of an inference error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsKind reports whether err is an inference error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
