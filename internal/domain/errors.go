package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidData = errors.New("invalid data")
	ErrConflict    = errors.New("conflict")

	// ErrConcurrentModification возвращается хранилищем, когда условное
	// обновление не затронуло ни одной строки.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Error carries a user-visible message and unwraps to one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidDataf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidData, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}
