package crypto

import (
	"fmt"
	"strings"
)

// Format names an on-disk ciphertext layout
type Format string

const (
	// FormatFernet is the legacy layout: a Fernet token keyed directly by the storage key
	FormatFernet Format = "fernet"

	// FormatSealed is the versioned layout: PBKDF2 with a per-file salt feeding AES-256-GCM
	FormatSealed Format = "sealed"
)

// DefaultFormat keeps files readable by older releases
const DefaultFormat = FormatFernet

// ParseFormat parses a format name, case-insensitively. Empty means DefaultFormat.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "":
		return DefaultFormat, nil
	case FormatFernet:
		return FormatFernet, nil
	case FormatSealed:
		return FormatSealed, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// DetectFormat inspects ciphertext and reports which layout produced it
func DetectFormat(data []byte) Format {
	if isSealed(data) {
		return FormatSealed
	}
	return FormatFernet
}

// Seal encrypts plaintext with the given layout
func Seal(format Format, key StorageKey, plaintext []byte) ([]byte, error) {
	switch format {
	case FormatFernet, "":
		return fernetEncrypt(key, plaintext)
	case FormatSealed:
		return sealedEncrypt(key, plaintext)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Open decrypts ciphertext produced by Seal in any supported layout.
// Any tag mismatch or structural damage yields ErrAuthenticationFailed.
func Open(key StorageKey, data []byte) ([]byte, error) {
	if DetectFormat(data) == FormatSealed {
		return sealedDecrypt(key, data)
	}
	return fernetDecrypt(key, data)
}
