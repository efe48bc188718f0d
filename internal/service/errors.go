package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: empty title, weekday out of range, bad id or date.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced habit that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a failure of the underlying database. The operation may be retried,
	// except ToggleHabit which should re-query state first.
	ErrStorage = errors.New("storage error")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
