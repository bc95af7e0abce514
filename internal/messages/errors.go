package messages

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store rejections.
type ErrorCode string

const (
	// ErrCodeMessageTooLarge indicates an append with more than MaxMessageSizeBytes.
	ErrCodeMessageTooLarge ErrorCode = "MESSAGE_TOO_LARGE"

	// ErrCodeIndexOutOfBounds indicates a get at or past the end of the store.
	ErrCodeIndexOutOfBounds ErrorCode = "INDEX_OUT_OF_BOUNDS"

	// ErrCodeStartIndexOutOfBounds indicates a get_multiple starting at or past the end.
	ErrCodeStartIndexOutOfBounds ErrorCode = "START_INDEX_OUT_OF_BOUNDS"
)

// Abort messages surfaced to the caller of an aborted invocation.
const (
	msgTooLarge         = "Message exceeds the 1KB size limit"
	msgIndexOutOfBounds = "Message index out of bounds"
	msgStartOutOfBounds = "Start index out of bounds"
)

// Error is a fatal store rejection.
//
// Message is the human-readable abort text. Size, Index and Length carry the
// values that triggered the rejection for diagnostics.
type Error struct {
	Code    ErrorCode
	Message string

	// Size is the rejected message length (MessageTooLarge only).
	Size int

	// Index is the rejected index or start index.
	Index uint64

	// Length is the store length at the time of the rejection.
	Length uint64
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMessageTooLarge:
		return fmt.Sprintf("%s: %s (size=%d, max=%d)", e.Code, e.Message, e.Size, MaxMessageSizeBytes)
	case ErrCodeIndexOutOfBounds, ErrCodeStartIndexOutOfBounds:
		return fmt.Sprintf("%s: %s (index=%d, length=%d)", e.Code, e.Message, e.Index, e.Length)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf returns the store error code carried by err, or "" if err is not a
// store rejection. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsMessageTooLarge reports whether err is a MessageTooLarge rejection.
func IsMessageTooLarge(err error) bool {
	return CodeOf(err) == ErrCodeMessageTooLarge
}

// IsIndexOutOfBounds reports whether err is an IndexOutOfBounds rejection.
func IsIndexOutOfBounds(err error) bool {
	return CodeOf(err) == ErrCodeIndexOutOfBounds
}

// IsStartIndexOutOfBounds reports whether err is a StartIndexOutOfBounds rejection.
func IsStartIndexOutOfBounds(err error) bool {
	return CodeOf(err) == ErrCodeStartIndexOutOfBounds
}

func newTooLargeError(size int) *Error {
	return &Error{
		Code:    ErrCodeMessageTooLarge,
		Message: msgTooLarge,
		Size:    size,
	}
}

func newIndexError(index, length uint64) *Error {
	return &Error{
		Code:    ErrCodeIndexOutOfBounds,
		Message: msgIndexOutOfBounds,
		Index:   index,
		Length:  length,
	}
}

func newStartIndexError(start, length uint64) *Error {
	return &Error{
		Code:    ErrCodeStartIndexOutOfBounds,
		Message: msgStartOutOfBounds,
		Index:   start,
		Length:  length,
	}
}
