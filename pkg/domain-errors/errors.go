// Package domainerrors carries the SDK's error taxonomy.
//
// Every failure surfaced by the SDK maps onto exactly one Code:
//   - CodeInvalidInput: malformed or missing input, raised locally before any network call
//   - CodeServerError: non-success HTTP outcome, unparsable response, unverifiable
//     response signature or an exhausted polling budget
//   - CodeVerificationFailed: the service processed the request but rejected the identity
//   - CodeInternal: programming or environment faults inside the SDK
//
// Callers branch with HasCode rather than string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an Error.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeServerError        Code = "server_error"
	CodeVerificationFailed Code = "verification_failed"
	CodeInternal           Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. A nil err yields a plain Error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the code of the outermost Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
