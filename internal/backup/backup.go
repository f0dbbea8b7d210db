// Package backup moves account lists in and out of the vault: encrypted
// backups under their own password, and plaintext two-column CSV.
package backup

import (
	"errors"
	"fmt"
	"os"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/crypto"
	"github.com/virex/go/internal/fsutil"
	"github.com/virex/go/internal/store"
)

// FileMode is applied to encrypted backups and CSV exports
const FileMode os.FileMode = 0o600

// Export encrypts accounts under a key derived from the backup password. The
// backup password is independent of the master password.
func Export(accounts []account.Account, password string, format crypto.Format) ([]byte, error) {
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	plaintext, err := store.Encode(accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	key := crypto.DeriveKey(password)
	defer key.Zeroize()

	return crypto.Seal(format, key, plaintext)
}

// Import decrypts a backup. A password that does not open it yields
// ErrWrongPassword; a payload that is not an account list yields
// ErrMalformedBackup and no accounts.
func Import(data []byte, password string) ([]account.Account, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}

	key := crypto.DeriveKey(password)
	defer key.Zeroize()

	plaintext, err := crypto.Open(key, data)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) || errors.Is(err, crypto.ErrUnknownFormat) {
			return nil, &wrongPassword{cause: err}
		}
		return nil, err
	}

	accounts, err := store.Decode(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	return accounts, nil
}

// ExportFile writes an encrypted backup to path
func ExportFile(path string, accounts []account.Account, password string, format crypto.Format) error {
	data, err := Export(accounts, password, format)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, FileMode); err != nil {
		return store.NewError("export", err)
	}
	return nil
}

// ImportFile reads an encrypted backup from path
func ImportFile(path, password string) ([]account.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, store.NewError("import", err)
	}
	return Import(data, password)
}
