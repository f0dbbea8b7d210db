package crypto

import "errors"

var (
	// ErrAuthenticationFailed indicates a wrong key or a tampered ciphertext.
	// The two cannot be told apart.
	ErrAuthenticationFailed = errors.New("authentication failed: wrong password or corrupted data")

	// ErrInvalidKey indicates a key of the wrong size
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrUnknownFormat indicates an unsupported ciphertext format name
	ErrUnknownFormat = errors.New("unknown ciphertext format")
)
