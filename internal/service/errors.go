// Package service implements the business operations of the counseling
// office: slots, bookings, user administration, sessions and reporting.
// Every operation receives the caller's model.Identity explicitly and
// reports rule violations as *Error or *TransitionError; any other
// error is an infrastructure failure.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/counseling-booking/internal/model"
)

// Kind classifies a business rule violation.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a rule violation with a message safe to show the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }
func notFound(msg string) *Error  { return &Error{Kind: KindNotFound, Message: msg} }
func conflict(msg string) *Error  { return &Error{Kind: KindConflict, Message: msg} }

// TransitionError reports a booking status change that the transition
// table does not allow for the caller.
type TransitionError struct {
	From model.BookingStatus
	To   model.BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ErrInvalidCredentials is returned by Authenticate when the email is
// unknown or the password does not match.  Both cases look the same to
// the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
