// Package apperr categorizes failures so handlers can map them to HTTP
// status codes without string matching. Classification outcomes (unknown
// face, mismatched OCR field) are values, not errors, and never live here.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Bad input from the caller: unsupported image, future date, empty roster.
	Input Kind = iota
	// Referenced class/student/record does not exist.
	NotFound
	// An external capability (face service, OCR service) is unreachable.
	Unavailable
	// Storage transaction failure; the enclosing unit was rolled back.
	Persistence
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a categorized error with a plain message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a category and message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the category of err, or ok=false for uncategorized errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is lets errors.Is match two categorized errors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}
