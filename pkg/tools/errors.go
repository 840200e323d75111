package tools

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a tool failure. Every error crossing the RPC boundary
// carries exactly one kind.
type Kind string

const (
	KindPreconditionViolation Kind = "PreconditionViolation" // no active session or tab
	KindUnknownTab            Kind = "UnknownTab"
	KindElementNotFound       Kind = "ElementNotFound"
	KindTimeout               Kind = "Timeout"
	KindAlreadyLaunched       Kind = "AlreadyLaunched"
	KindSessionClosed         Kind = "SessionClosed" // tab or browser went away mid-call
	KindInvalidArgument       Kind = "InvalidArgument"
	KindOperationFailed       Kind = "OperationFailed" // anything unrecognised
)

// Error is a classified tool failure.
type Error struct {
	Kind    Kind
	Message string
	// Details is attached to the error envelope, e.g. partial progress of a
	// compound tool.
	Details any
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind, so errors.Is(err,
// tools.ErrTimeout) works for any timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrPreconditionViolation = &Error{Kind: KindPreconditionViolation}
	ErrUnknownTab            = &Error{Kind: KindUnknownTab}
	ErrElementNotFound       = &Error{Kind: KindElementNotFound}
	ErrTimeout               = &Error{Kind: KindTimeout}
	ErrAlreadyLaunched       = &Error{Kind: KindAlreadyLaunched}
	ErrSessionClosed         = &Error{Kind: KindSessionClosed}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrOperationFailed       = &Error{Kind: KindOperationFailed}
)

// Errorf builds a classified error.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind, keeping its message.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// AsError returns err as a classified error. Context cancellation and
// deadlines are recognised; everything else becomes OperationFailed with the
// original message preserved.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: err.Error(), Cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindSessionClosed, Message: "call cancelled: " + err.Error(), Cause: err}
	}
	return &Error{Kind: KindOperationFailed, Message: err.Error(), Cause: err}
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
