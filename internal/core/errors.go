package core

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrDuplicate  = errors.New("duplicate")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrThrottled  = errors.New("too many attempts")
)

// Error pairs an error kind with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool { return errors.Is(e.Kind, target) }
func (e *Error) Unwrap() error        { return e.Cause }

func Validation(msg string, cause error) error {
	return &Error{Kind: ErrValidation, Message: msg, Cause: cause}
}

func Duplicate(msg string) error {
	return &Error{Kind: ErrDuplicate, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func AuthFailed(msg string) error {
	return &Error{Kind: ErrAuth, Message: msg}
}

func Throttled(msg string) error {
	return &Error{Kind: ErrThrottled, Message: msg}
}

// PublicMessage returns the user-safe message of err, or "" when err carries none.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
