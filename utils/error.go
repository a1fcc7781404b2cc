package utils

import (
	"errors"
	"fmt"
)

// ResolutionError means a customer or catalog lookup/creation failed.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution error: %s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ValidationError means the input (or a row derived from it) is malformed.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StorageError wraps constraint violations and connection failures.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewResolutionError(op string, err error) error {
	return &ResolutionError{Op: op, Err: err}
}

func NewValidationError(op string, format string, args ...any) error {
	return &ValidationError{Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapStorage wraps err as a StorageError unless it is nil or already typed.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var re *ResolutionError
	var se *StorageError
	if errors.As(err, &ve) || errors.As(err, &re) || errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
