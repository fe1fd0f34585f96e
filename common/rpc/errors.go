package rpc

import (
	"errors"
	"fmt"
	"time"
)

// Code classifies a failure carried in a Reply.
type Code string

const (
	CodeNotFound        Code = "not-found"
	CodeInvalidArgument Code = "invalid-argument"
	CodeAlreadyExists   Code = "already-exists"
	CodeUnauthenticated Code = "unauthenticated"
	CodeUnimplemented   Code = "unimplemented"
	CodeInternal        Code = "internal"
)

// internalMessage replaces the text of unclassified handler errors.
const internalMessage = "internal error"

var (
	// ErrInternal matches any RemoteError with CodeInternal.
	ErrInternal = errors.New(internalMessage)

	// ErrClientClosed is returned for calls pending when the client closes.
	ErrClientClosed = errors.New("rpc client closed")

	// ErrServerStopped is returned to the broker for deliveries that race Stop.
	ErrServerStopped = errors.New("rpc server stopped")
)

// Error is a domain failure raised by a handler. The server copies its code
// and message into the reply verbatim. Any other error becomes an internal
// error whose message is not sent to the caller.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errorf creates a domain error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found domain error.
func NotFound(format string, args ...any) *Error {
	return Errorf(CodeNotFound, format, args...)
}

// InvalidArgument creates an invalid-argument domain error.
func InvalidArgument(format string, args ...any) *Error {
	return Errorf(CodeInvalidArgument, format, args...)
}

// AlreadyExists creates an already-exists domain error.
func AlreadyExists(format string, args ...any) *Error {
	return Errorf(CodeAlreadyExists, format, args...)
}

// RemoteError is returned by Client.Call when the reply carries an error.
type RemoteError struct {
	Pattern Pattern
	Code    Code
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc %s failed (%s): %s", e.Pattern, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrInternal) match internal remote failures.
func (e *RemoteError) Is(target error) bool {
	return target == ErrInternal && e.Code == CodeInternal
}

// TimeoutError is returned when no reply arrives in time. The remote side may
// still complete the operation.
type TimeoutError struct {
	Pattern Pattern
	Queue   string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rpc %s on %s: no reply after %s", e.Pattern, e.Queue, e.After)
}

// CodeOf extracts the failure code from a RemoteError or a domain Error.
// Timeouts report an empty code; everything else is internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Code
	}
	var domain *Error
	if errors.As(err, &domain) {
		return domain.Code
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return ""
	}
	return CodeInternal
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsTimeout reports whether err is a TimeoutError.
func IsTimeout(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}

// toErrorBody maps a handler error onto a reply error. The second return
// value is false for unclassified errors whose text was suppressed.
func toErrorBody(err error) (*ErrorBody, bool) {
	var domain *Error
	if errors.As(err, &domain) {
		return &ErrorBody{Message: domain.Message, Code: domain.Code}, true
	}
	return &ErrorBody{Message: internalMessage, Code: CodeInternal}, false
}
