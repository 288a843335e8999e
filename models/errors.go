package models

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of an error returned at the request boundary.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindSelfRequest   Kind = "self_request"
	KindNotPending    Kind = "not_pending"
	KindConflict      Kind = "conflict"
	KindRateLimited   Kind = "rate_limited"
	KindInternal      Kind = "internal"
)

// Error carries a Kind and a human-readable message. Two Errors match under errors.Is
// when their kinds are equal, so callers can test against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrInvalidCoordinates = &Error{Kind: KindValidation, Message: "invalid or missing lat/lon parameters"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "identity not found"}
	ErrForbidden          = &Error{Kind: KindAuthorization, Message: "acting identity may not act for this user"}
	ErrQuotaExceeded      = &Error{Kind: KindQuotaExceeded, Message: "request limit reached"}
	ErrSelfRequest        = &Error{Kind: KindSelfRequest, Message: "you cannot follow yourself"}
	ErrNotPending         = &Error{Kind: KindNotPending, Message: "this user is not in pending requests"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflicting state"}
)

// NewError builds an Error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
