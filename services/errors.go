package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable category of a workflow failure.
type ErrorKind string

const (
	KindInvalidTransition      ErrorKind = "InvalidTransition"
	KindNotAuthorized          ErrorKind = "NotAuthorized"
	KindPrecursorNotApproved   ErrorKind = "PrecursorNotApproved"
	KindAssignmentConflict     ErrorKind = "AssignmentConflict"
	KindConcurrentModification ErrorKind = "ConcurrentModification"
	KindValidation             ErrorKind = "ValidationError"
	KindAlreadySubmitted       ErrorKind = "AlreadySubmitted"
	KindNotFound               ErrorKind = "NotFound"
)

// AssignmentConflict names a village that is already held by another verifier.
type AssignmentConflict struct {
	DesaID       uint   `json:"desa_id"`
	DesaNama     string `json:"desa_nama"`
	VerifierID   uint   `json:"verifier_id"`
	VerifierNama string `json:"verifier_nama"`
}

// Error is returned by every workflow operation that fails for a domain reason.
type Error struct {
	Kind      ErrorKind
	Message   string
	Conflicts []AssignmentConflict
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on kind so callers can compare against the Err* sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidTransition      = &Error{Kind: KindInvalidTransition}
	ErrNotAuthorized          = &Error{Kind: KindNotAuthorized}
	ErrPrecursorNotApproved   = &Error{Kind: KindPrecursorNotApproved}
	ErrAssignmentConflict     = &Error{Kind: KindAssignmentConflict}
	ErrConcurrentModification = &Error{Kind: KindConcurrentModification}
	ErrValidation             = &Error{Kind: KindValidation}
	ErrAlreadySubmitted       = &Error{Kind: KindAlreadySubmitted}
	ErrNotFound               = &Error{Kind: KindNotFound}
)

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition(format string, args ...interface{}) *Error {
	return newError(KindInvalidTransition, format, args...)
}

func notAuthorized(format string, args ...interface{}) *Error {
	return newError(KindNotAuthorized, format, args...)
}

func validationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// KindOf returns the workflow kind of err, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
