package keyring

import "errors"

var (
	// ErrKeyringNotSupported is returned when keyring is not supported on the system
	ErrKeyringNotSupported = errors.New("keyring is not supported on this system")
)
