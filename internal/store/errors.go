package store

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed indicates the accounts file could not be
	// decrypted with the given key: wrong password or tampered file
	ErrAuthenticationFailed = errors.New("authentication failed: wrong password or corrupted accounts file")

	// ErrMalformedData indicates the file decrypted but did not hold an account list
	ErrMalformedData = errors.New("accounts file is malformed")
)

// Error wraps store I/O errors with the failing operation
type Error struct {
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store operation '%s' failed: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(operation string, err error) *Error {
	return &Error{
		Operation: operation,
		Err:       err,
	}
}
