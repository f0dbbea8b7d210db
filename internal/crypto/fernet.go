package crypto

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Fernet tokens carry a timestamp, but accounts files and backups are kept
// for years. A negative TTL disables the expiry check.
const fernetNoTTL = -1 * time.Second

func fernetKey(key StorageKey) (*fernet.Key, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	k := new(fernet.Key)
	copy(k[:], key)
	return k, nil
}

// fernetEncrypt encrypts plaintext into a url-safe base64 Fernet token
func fernetEncrypt(key StorageKey, plaintext []byte) ([]byte, error) {
	k, err := fernetKey(key)
	if err != nil {
		return nil, err
	}
	token, err := fernet.EncryptAndSign(plaintext, k)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return token, nil
}

// fernetDecrypt verifies and decrypts a Fernet token. Tokens never expire.
func fernetDecrypt(key StorageKey, token []byte) ([]byte, error) {
	k, err := fernetKey(key)
	if err != nil {
		return nil, err
	}
	plaintext := fernet.VerifyAndDecrypt(bytes.TrimSpace(token), fernetNoTTL, []*fernet.Key{k})
	if plaintext == nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
