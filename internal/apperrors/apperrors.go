// Package apperrors defines the error taxonomy surfaced by the booking
// lifecycle service. Business rejections carry a message safe to return to
// the caller; infrastructure errors wrap the underlying cause, which is
// logged but never exposed in responses.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
	KindForbidden
	KindInvalidTransition
	KindInfrastructure
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Message returns the caller-facing description of the error.
func (e *Error) Message() string { return e.msg }

func NotFound(msg string) error {
	return &Error{kind: KindNotFound, msg: msg}
}

func Conflict(msg string) error {
	return &Error{kind: KindConflict, msg: msg}
}

func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

func Unauthorized(msg string) error {
	return &Error{kind: KindUnauthorized, msg: msg}
}

func Forbidden(msg string) error {
	return &Error{kind: KindForbidden, msg: msg}
}

func InvalidTransition(msg string) error {
	return &Error{kind: KindInvalidTransition, msg: msg}
}

func Infrastructure(msg string, err error) error {
	return &Error{kind: KindInfrastructure, msg: msg, err: err}
}

// KindOf extracts the taxonomy kind from err, or KindUnknown when err was
// not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindUnknown
}
