// Package vault verifies the master password against a stored commitment.
// The commitment lives outside the accounts file, in the OS keyring or a
// per-user settings file.
package vault

import (
	"crypto/subtle"

	"github.com/sirupsen/logrus"

	"github.com/virex/go/internal/crypto"
)

// CommitmentStore persists the master password commitment
type CommitmentStore interface {
	// Load returns the commitment, with found false when none is stored
	Load() (commitment string, found bool, err error)
	Store(commitment string) error
	Clear() error
	Name() string
}

// Vault checks and sets the master password
type Vault struct {
	store  CommitmentStore
	logger *logrus.Logger
}

// New creates a Vault on top of a commitment store
func New(store CommitmentStore, logger *logrus.Logger) *Vault {
	if logger == nil {
		logger = logrus.New()
	}
	return &Vault{store: store, logger: logger}
}

// Backend names the commitment store in use
func (v *Vault) Backend() string {
	return v.store.Name()
}

// IsInitialized reports whether a master password has been set
func (v *Vault) IsInitialized() (bool, error) {
	_, found, err := v.store.Load()
	if err != nil {
		return false, err
	}
	return found, nil
}

// SetMasterPassword stores the commitment of pw, replacing any previous one
func (v *Vault) SetMasterPassword(pw string) error {
	if pw == "" {
		return ErrEmptyPassword
	}
	if err := v.store.Store(crypto.HashForVerification(pw)); err != nil {
		return err
	}
	v.logger.WithField("backend", v.store.Name()).Info("master password set")
	return nil
}

// CheckMasterPassword reports whether pw matches the stored commitment. It is
// false when nothing is stored or the store cannot be read, and never changes
// any state.
func (v *Vault) CheckMasterPassword(pw string) bool {
	stored, found, err := v.store.Load()
	if err != nil {
		v.logger.WithError(err).WithField("backend", v.store.Name()).Warn("failed to read master password commitment")
		return false
	}
	if !found {
		return false
	}
	candidate := crypto.HashForVerification(pw)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// Clear forgets the master password
func (v *Vault) Clear() error {
	if err := v.store.Clear(); err != nil {
		return err
	}
	v.logger.WithField("backend", v.store.Name()).Info("master password cleared")
	return nil
}
