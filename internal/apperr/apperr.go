// Package apperr defines the categorized error taxonomy mutating engine
// and session operations raise, so the edge layer can map a single
// failure shape to a user-facing status without string-matching errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure the way the edge protocol needs to report it.
type Kind int

const (
	// NotFound: unknown table/user.
	NotFound Kind = iota
	// Forbidden: not a member; not owner.
	Forbidden
	// Conflict: seat taken, already seated, open session exists.
	Conflict
	// InvalidArgument: non-positive blinds, bad ratio, unknown action,
	// short raise, action-out-of-turn, wrong street.
	InvalidArgument
	// IllegalState: cannot act (folded/all-in); no hand in progress or a
	// hand already running; betting not closed; not an all-in spot.
	IllegalState
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Forbidden:
		return "Forbidden"
	case Conflict:
		return "Conflict"
	case InvalidArgument:
		return "InvalidArgument"
	case IllegalState:
		return "IllegalState"
	default:
		return "Unknown"
	}
}

// Error is a single categorized failure. Engine and session operations
// never return anything else for expected failure modes.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New constructs a categorized error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf constructs a categorized error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, returning ok=false if err is not an
// *Error (the caller should treat that case as an unexpected/server error).
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}
