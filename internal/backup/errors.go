package backup

import (
	"errors"

	"github.com/virex/go/internal/crypto"
)

var (
	// ErrWrongPassword indicates the backup password does not open the backup
	ErrWrongPassword = errors.New("wrong backup password or corrupted backup")

	// ErrMalformedBackup indicates the backup decrypted but did not hold an account list
	ErrMalformedBackup = errors.New("backup is malformed")

	// ErrNoAccounts is returned when exporting an empty account list
	ErrNoAccounts = errors.New("no accounts to export")

	// ErrEmptyPassword is returned when no backup password was entered
	ErrEmptyPassword = errors.New("backup password is empty")
)

// wrongPassword keeps crypto.ErrAuthenticationFailed in the chain
type wrongPassword struct {
	cause error
}

func (e *wrongPassword) Error() string {
	return ErrWrongPassword.Error()
}

func (e *wrongPassword) Is(target error) bool {
	return target == ErrWrongPassword || target == crypto.ErrAuthenticationFailed
}

func (e *wrongPassword) Unwrap() error {
	return e.cause
}
