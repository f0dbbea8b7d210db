package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the per-file salt in bytes
	SaltSize = 16

	// NonceSize is the size of the nonce for AES-GCM
	NonceSize = 12

	// PBKDF2Iterations is the number of iterations for PBKDF2
	PBKDF2Iterations = 100000

	sealedVersion byte = 2
)

// sealedMagic prefixes every sealed envelope. Fernet tokens are base64 text
// starting with "gAAAAA", so the two formats never collide.
var sealedMagic = []byte("VRX")

// sealedHeaderLen covers magic, version, salt and nonce
const sealedHeaderLen = 3 + 1 + SaltSize + NonceSize

// isSealed reports whether data carries the sealed envelope header
func isSealed(data []byte) bool {
	return len(data) > len(sealedMagic) && bytes.HasPrefix(data, sealedMagic)
}

// sealedEncrypt encrypts plaintext under a key stretched with a random salt.
// Returns: magic + version + salt + nonce + ciphertext
func sealedEncrypt(key StorageKey, plaintext []byte) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	// Generate random salt
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := sealedAEAD(key, salt)
	if err != nil {
		return nil, err
	}

	// Generate random nonce
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := make([]byte, 0, sealedHeaderLen)
	header = append(header, sealedMagic...)
	header = append(header, sealedVersion)
	header = append(header, salt...)
	header = append(header, nonce...)

	// The header is authenticated as additional data so the salt and version
	// cannot be swapped without failing the tag check.
	return gcm.Seal(header, nonce, plaintext, header), nil
}

// sealedDecrypt reverses sealedEncrypt
func sealedDecrypt(key StorageKey, data []byte) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	// Check minimum length: header plus at least the GCM tag
	if len(data) < sealedHeaderLen+16 {
		return nil, fmt.Errorf("%w: envelope too short", ErrAuthenticationFailed)
	}
	if !isSealed(data) {
		return nil, fmt.Errorf("%w: missing envelope header", ErrAuthenticationFailed)
	}
	if version := data[len(sealedMagic)]; version != sealedVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version %d", ErrUnknownFormat, version)
	}

	header := data[:sealedHeaderLen]
	salt := header[len(sealedMagic)+1 : len(sealedMagic)+1+SaltSize]
	nonce := header[len(sealedMagic)+1+SaltSize:]

	gcm, err := sealedAEAD(key, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, data[sealedHeaderLen:], header)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// sealedAEAD derives the per-file AES-256-GCM cipher from the storage key and salt
func sealedAEAD(key StorageKey, salt []byte) (cipher.AEAD, error) {
	derivedKey := pbkdf2.Key(key, salt, PBKDF2Iterations, KeySize, sha256.New)
	defer StorageKey(derivedKey).Zeroize()

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
