// Package failure defines the tagged error kinds returned by the scheduling core.
//
// Routine outcomes (bad input, missing records, lost reservations, illegal status
// transitions) are returned as *Error values so callers can switch on Kind and
// render a message without string matching.
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindUnknown         Kind = ""
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindSlotNotFound    Kind = "slot_not_found"
	KindSlotUnavailable Kind = "slot_unavailable"
	KindConflict        Kind = "conflict"
	KindIDCollision     Kind = "id_collision"
	KindRateLimited     Kind = "rate_limited"
	KindPersistence     Kind = "persistence_error"
	KindInternal        Kind = "internal_error"
)

// Error is a failure tagged with its kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Category()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, failure.SlotUnavailable) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Message == "" && other.Err == nil && other.Kind == e.Kind
}

// Kind-only sentinels for errors.Is checks.
var (
	InvalidInput    = &Error{Kind: KindInvalidInput}
	NotFound        = &Error{Kind: KindNotFound}
	SlotNotFound    = &Error{Kind: KindSlotNotFound}
	SlotUnavailable = &Error{Kind: KindSlotUnavailable}
	Conflict        = &Error{Kind: KindConflict}
	IDCollision     = &Error{Kind: KindIDCollision}
	RateLimited     = &Error{Kind: KindRateLimited}
	Persistence     = &Error{Kind: KindPersistence}
	Internal        = &Error{Kind: KindInternal}
)

// New builds a failure of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the kind of err. Untagged errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		return fe.Kind
	}
	return KindInternal
}

// Detail returns the message of the outermost tagged error, without the
// wrapped cause. It is safe to show for client errors.
func Detail(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		if fe.Message != "" {
			return fe.Message
		}
		return fe.Kind.Category()
	}
	return ""
}

// Category is a human-readable message category suitable for a toast.
func (k Kind) Category() string {
	switch k {
	case KindInvalidInput:
		return "the request is missing or has invalid information"
	case KindNotFound:
		return "the requested record was not found"
	case KindSlotNotFound:
		return "the selected time slot does not exist"
	case KindSlotUnavailable:
		return "the selected time slot is already booked"
	case KindConflict:
		return "the action is not allowed in the current state"
	case KindIDCollision:
		return "could not allocate a unique identifier, try again"
	case KindRateLimited:
		return "too many booking attempts, try again later"
	case KindPersistence:
		return "the change could not be saved, try again"
	default:
		return "something went wrong"
	}
}

// HTTPStatus maps a kind to the status code the API responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound, KindSlotNotFound:
		return http.StatusNotFound
	case KindSlotUnavailable, KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
