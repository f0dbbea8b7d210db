package otp

import "errors"

var (
	// ErrInvalidCredential indicates no code can be generated from the account
	ErrInvalidCredential = errors.New("invalid secret or key URI")

	// ErrUnsupportedType indicates a key URI for something other than TOTP
	ErrUnsupportedType = errors.New("only totp key URIs are supported")
)
