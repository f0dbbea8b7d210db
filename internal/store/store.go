// Package store persists the ordered account list as a single encrypted file.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/crypto"
	"github.com/virex/go/internal/fsutil"
)

// DefaultFileName is the accounts file used when no path is configured
const DefaultFileName = "accounts.json"

// FileMode is applied to every accounts file written
const FileMode os.FileMode = 0o600

// SecureStore reads and writes one encrypted accounts file
type SecureStore struct {
	path   string
	format crypto.Format
	logger *logrus.Logger
}

// Option configures a SecureStore
type Option func(*SecureStore)

// WithFormat selects the ciphertext layout used on save. Loading always
// accepts every supported layout.
func WithFormat(format crypto.Format) Option {
	return func(s *SecureStore) {
		s.format = format
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *SecureStore) {
		s.logger = logger
	}
}

// New creates a SecureStore for the file at path
func New(path string, opts ...Option) *SecureStore {
	if path == "" {
		path = DefaultFileName
	}
	s := &SecureStore{
		path:   path,
		format: crypto.DefaultFormat,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	return s
}

// Path returns the accounts file path
func (s *SecureStore) Path() string {
	return s.path
}

// Format returns the layout used on save
func (s *SecureStore) Format() crypto.Format {
	return s.format
}

// Exists reports whether the accounts file is present
func (s *SecureStore) Exists() bool {
	return fsutil.Exists(s.path)
}

// Load decrypts and decodes the account list.
//
// A missing file and an empty file both load as an empty list. A key that does
// not authenticate the file yields ErrAuthenticationFailed; a file that
// decrypts but is not an account list yields ErrMalformedData.
func (s *SecureStore) Load(key crypto.StorageKey) ([]account.Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.WithField("path", s.path).Debug("accounts file not found, starting empty")
		return []account.Account{}, nil
	}
	if err != nil {
		return nil, NewError("read", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		s.logger.WithField("path", s.path).Debug("accounts file is empty")
		return []account.Account{}, nil
	}

	plaintext, err := crypto.Open(key, data)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) || errors.Is(err, crypto.ErrUnknownFormat) {
			s.logger.WithFields(logrus.Fields{
				"path":   s.path,
				"format": crypto.DetectFormat(data),
			}).Warn("accounts file failed authentication")
			return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
		}
		return nil, NewError("decrypt", err)
	}

	accounts, err := Decode(plaintext)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"path":     s.path,
		"accounts": len(accounts),
	}).Debug("accounts loaded")
	return accounts, nil
}

// Save encodes, encrypts and atomically replaces the accounts file
func (s *SecureStore) Save(accounts []account.Account, key crypto.StorageKey) error {
	plaintext, err := Encode(accounts)
	if err != nil {
		return NewError("encode", err)
	}

	data, err := crypto.Seal(s.format, key, plaintext)
	if err != nil {
		return NewError("encrypt", err)
	}

	if err := fsutil.WriteFileAtomic(s.path, data, FileMode); err != nil {
		return NewError("write", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":     s.path,
		"accounts": len(accounts),
		"format":   s.format,
	}).Debug("accounts saved")
	return nil
}

// Remove deletes the accounts file. A missing file is not an error.
func (s *SecureStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewError("remove", err)
	}
	return nil
}

// Encode renders the account list as the JSON array stored inside the ciphertext
func Encode(accounts []account.Account) ([]byte, error) {
	if accounts == nil {
		accounts = []account.Account{}
	}
	return json.Marshal(accounts)
}

// Decode parses the JSON array stored inside the ciphertext
func Decode(plaintext []byte) ([]account.Account, error) {
	var accounts []account.Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	if accounts == nil {
		// "null" decodes without error
		return nil, fmt.Errorf("%w: not a JSON array", ErrMalformedData)
	}
	return accounts, nil
}
