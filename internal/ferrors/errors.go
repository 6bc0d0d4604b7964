// Package ferrors defines Filigree's closed error taxonomy and the
// helpers boundary adapters use to classify and translate engine
// failures into their own envelopes.
package ferrors

import (
	"errors"
	"fmt"
)

// Code is one of the closed set of error codes boundary adapters translate.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeNotFound          Code = "not_found"
	CodeInvalid           Code = "invalid"
	CodeInvalidTransition Code = "invalid_transition"
	CodeAlreadyClaimed    Code = "already_claimed"
	CodeWouldCreateCycle  Code = "would_create_cycle"
	CodeInvalidPath       Code = "invalid_path"
	CodeConflict          Code = "conflict"
	CodeInternal          Code = "internal"
)

// Error is a typed failure carrying a classification code and, for
// invalid_transition, a hint of valid alternatives and missing fields.
type Error struct {
	Code             Code
	Message          string
	ValidTransitions []string
	MissingFields    []string
	Err              error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed Error with the given code and message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed Error that wraps an underlying error.
func Wrap(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound builds a not_found error for the given entity kind and id.
func NotFound(kind, id string) *Error {
	return New(CodeNotFound, "%s %q not found", kind, id)
}

// InvalidTransition builds an invalid_transition error with hints.
func InvalidTransition(from, to string, valid []string, missing []string) *Error {
	e := New(CodeInvalidTransition, "cannot transition from %q to %q", from, to)
	e.ValidTransitions = valid
	e.MissingFields = missing
	return e
}

// CodeOf extracts the classification code from any error, defaulting to
// "internal" for errors not raised through this package.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}

// Warning is a non-fatal advisory attached to an otherwise successful
// mutation response. Warnings never fail the call they're attached to.
type Warning struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}
