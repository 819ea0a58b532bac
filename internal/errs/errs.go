// Package errs defines the error kinds shared by the store and the evaluator.
// Callers test for a kind with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input: empty names, bad enums, bad tag lists.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateName marks a unique-name violation.
	ErrDuplicateName = errors.New("name already exists")
	// ErrNotFound marks an id or name lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable marks a connection or query failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Validation returns an ErrValidation carrying a user-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Duplicate returns an ErrDuplicateName for the given kind of record.
func Duplicate(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrDuplicateName, kind, name)
}

// NotFound returns an ErrNotFound for the given kind of record and key.
func NotFound(kind string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, kind, key)
}

// Storage wraps a driver error as ErrStorageUnavailable. The driver error
// stays reachable through errors.As.
func Storage(op string, err error) error {
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.op, e.err)
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.err}
}

// Message strips the kind prefix so views can show the detail inline.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var se *storageError
	if errors.As(err, &se) {
		return se.op + " failed"
	}
	msg := err.Error()
	for _, kind := range []error{ErrValidation, ErrDuplicateName, ErrNotFound} {
		msg = strings.TrimPrefix(msg, kind.Error()+": ")
	}
	return msg
}
