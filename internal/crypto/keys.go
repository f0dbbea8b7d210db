package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// KeySize is the size of the storage key in bytes (32 bytes = 256 bits)
	KeySize = 32
)

// StorageKey is the symmetric key protecting an accounts file or a backup.
// It lives only in memory for the duration of an unlocked session.
type StorageKey []byte

// DeriveKey turns a password into a storage key.
//
// The derivation is SHA-256 over the UTF-8 password bytes with no salt and no
// iteration count. Files written by earlier releases depend on it, so it must
// stay deterministic. Use FormatSealed to add a per-file salt and PBKDF2 on top.
func DeriveKey(password string) StorageKey {
	sum := sha256.Sum256([]byte(password))
	return StorageKey(sum[:])
}

// HashForVerification returns the hex-encoded SHA-256 commitment of a password.
// It is only ever compared against a stored commitment, never used as key material.
func HashForVerification(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Validate reports whether the key has the expected size
func (k StorageKey) Validate() error {
	if len(k) != KeySize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(k))
	}
	return nil
}

// FernetKey returns the key in the url-safe base64 form Fernet implementations expect
func (k StorageKey) FernetKey() string {
	return base64.URLEncoding.EncodeToString(k)
}

// Equal compares two keys in constant time
func (k StorageKey) Equal(other StorageKey) bool {
	return subtle.ConstantTimeCompare(k, other) == 1
}

// Clone returns an independent copy so the caller may zeroize its own
func (k StorageKey) Clone() StorageKey {
	if k == nil {
		return nil
	}
	out := make(StorageKey, len(k))
	copy(out, k)
	return out
}

// String returns a safe string representation (not the actual key)
func (k StorageKey) String() string {
	return fmt.Sprintf("StorageKey[%d bytes]", len(k))
}

// Zeroize securely clears the key from memory
func (k StorageKey) Zeroize() {
	for i := range k {
		k[i] = 0
	}
}
