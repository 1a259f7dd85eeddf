package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react differently
// (retry, re-fetch, show a conflict) without parsing messages.
type Kind string

const (
	Validation    Kind = "validation"
	Conflict      Kind = "conflict"
	NotFound      Kind = "not_found"
	Expired       Kind = "expired"
	RuleViolation Kind = "rule_violation"
	Gateway       Kind = "gateway"
	Internal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and message, so package-level
// sentinels work with errors.Is even when wrapped.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithDetails returns a copy of e carrying structured details for the client.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// DetailsOf returns the details of the first *Error in err's chain.
func DetailsOf(err error) any {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Details
	}
	return nil
}

var (
	ErrSessionNotFound  = New(NotFound, "session not found")
	ErrShowtimeNotFound = New(NotFound, "showtime not found")
	ErrSessionExpired   = New(Expired, "session expired")
	ErrSessionClosed    = New(Conflict, "session is no longer active")
	ErrVersionMismatch  = New(Conflict, "session version mismatch")
	ErrLockMismatch     = New(Conflict, "seat lock not held by session")
	ErrLockExpired      = New(Expired, "seat lock expired")
	ErrInvalidSignature = New(Validation, "invalid webhook signature")
	ErrNoSeats          = New(Validation, "no seats specified")
)
