// Package apperr defines the error kinds shared by services, repositories and
// the HTTP layer. Lower layers attach a Kind; pkg/response maps it to a status.
//
//	if order.UserID != userID {
//	    return apperr.Forbidden("order belongs to another user")
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidArgument
	KindPaymentIncomplete
	KindUpstreamUnavailable
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindPaymentIncomplete:
		return "payment_incomplete"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the concrete error type carried through the application.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for KindInvalidArgument.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrNotFound)
// works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
	ErrPaymentIncomplete   = &Error{Kind: KindPaymentIncomplete}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrConflict            = &Error{Kind: KindConflict}
)

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches kind and msg to err. A nil err yields nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) *Error   { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func InvalidArgument(msg string) *Error   { return New(KindInvalidArgument, msg) }
func PaymentIncomplete(msg string) *Error { return New(KindPaymentIncomplete, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }

func Upstream(err error, msg string) error { return Wrap(err, KindUpstreamUnavailable, msg) }

// Invalid builds an InvalidArgument error with field-level detail.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: "Validation failed", Fields: fields}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the public message for err. Internal errors are masked.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal Server Error"
}
