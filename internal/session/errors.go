package session

import "errors"

var (
	// ErrLocked indicates an operation that needs an unlocked session
	ErrLocked = errors.New("session is locked")

	// ErrSessionExpired indicates the session auto-locked after inactivity
	ErrSessionExpired = errors.New("session locked after inactivity")

	// ErrWrongPassword indicates the master password did not match the commitment
	ErrWrongPassword = errors.New("incorrect master password")

	// ErrAlreadyInitialized indicates a master password is already set
	ErrAlreadyInitialized = errors.New("master password is already set")
)
