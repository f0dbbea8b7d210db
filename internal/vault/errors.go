package vault

import "errors"

var (
	// ErrNotInitialized indicates no master password has been set
	ErrNotInitialized = errors.New("master password has not been set")

	// ErrEmptyPassword indicates an empty master password was supplied
	ErrEmptyPassword = errors.New("master password is empty")

	// ErrUnknownBackend indicates an unsupported master_store setting
	ErrUnknownBackend = errors.New("unknown master password store")
)
