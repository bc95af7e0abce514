package runtime

import (
	"errors"
	"fmt"

	"github.com/roach88/msglog/internal/ir"
	"github.com/roach88/msglog/internal/messages"
)

// ErrorCode identifies why an invocation aborted. Store rejections reuse the
// messages package codes.
type ErrorCode string

const (
	// ErrCodeUnknownMethod indicates a method name outside the interface.
	ErrCodeUnknownMethod ErrorCode = "UNKNOWN_METHOD"

	// ErrCodeInvalidArgs indicates arguments that could not be decoded.
	ErrCodeInvalidArgs ErrorCode = "INVALID_ARGS"
)

// InvocationError is an invocation abort. The whole invocation is discarded:
// state is untouched and the completion records Code as its outcome.
//
// Infrastructure failures (database, filesystem) are never InvocationErrors.
type InvocationError struct {
	Method  string
	Code    ErrorCode
	Message string // Human-readable abort text
	Cause   error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s aborted: %s: %s", e.Method, e.Code, e.Message)
}

// Unwrap exposes the store rejection, if any.
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Outcome returns the completion outcome recorded for this abort.
func (e *InvocationError) Outcome() ir.Outcome {
	return ir.Outcome(e.Code)
}

// IsAbort reports whether err is an invocation abort.
// Uses errors.As to handle wrapped errors.
func IsAbort(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

func newInvalidArgs(method, format string, args ...any) *InvocationError {
	return &InvocationError{
		Method:  method,
		Code:    ErrCodeInvalidArgs,
		Message: fmt.Sprintf(format, args...),
	}
}

func newUnknownMethod(method string) *InvocationError {
	return &InvocationError{
		Method:  method,
		Code:    ErrCodeUnknownMethod,
		Message: fmt.Sprintf("unknown method %q", method),
	}
}

// abortFromStore converts a store rejection into an invocation abort.
func abortFromStore(method string, err error) *InvocationError {
	var se *messages.Error
	if !errors.As(err, &se) {
		return nil
	}
	return &InvocationError{
		Method:  method,
		Code:    ErrorCode(se.Code),
		Message: se.Message,
		Cause:   err,
	}
}
