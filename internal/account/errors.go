package account

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the root of every account validation failure
	ErrValidation = errors.New("invalid account")

	// ErrEmptyName indicates the account name is blank after trimming
	ErrEmptyName = fmt.Errorf("%w: name is empty", ErrValidation)

	// ErrInvalidSecret indicates the secret is not Base32
	ErrInvalidSecret = fmt.Errorf("%w: secret must be valid Base32", ErrValidation)

	// ErrInvalidKeyURI indicates the key URI is not a usable otpauth URI
	ErrInvalidKeyURI = fmt.Errorf("%w: key URI is not valid", ErrValidation)

	// ErrMalformed indicates a stored account object has neither a secret nor a key URI
	ErrMalformed = errors.New("account has neither secret nor key_uri")
)
