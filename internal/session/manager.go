// Package session owns the storage key of an unlocked vault. The key is
// derived from the master password on unlock, never persisted, and zeroed on
// lock or after the auto-lock timeout.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/crypto"
	"github.com/virex/go/internal/registry"
	"github.com/virex/go/internal/store"
	"github.com/virex/go/internal/vault"
)

// Manager drives the lock/unlock lifecycle
type Manager struct {
	mu           sync.Mutex
	vault        *vault.Vault
	store        *store.SecureStore
	logger       *logrus.Logger
	autoLock     time.Duration
	now          func() time.Time
	key          crypto.StorageKey
	registry     *registry.Registry
	unlockedAt   time.Time
	lastActivity time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithAutoLock locks the session after d of inactivity. Zero disables it.
func WithAutoLock(d time.Duration) Option {
	return func(m *Manager) {
		m.autoLock = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a locked session manager
func NewManager(v *vault.Vault, s *store.SecureStore, opts ...Option) *Manager {
	m := &Manager{
		vault: v,
		store: s,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logrus.New()
	}
	return m
}

// IsInitialized reports whether a master password has been set
func (m *Manager) IsInitialized() (bool, error) {
	return m.vault.IsInitialized()
}

// Initialize sets the first master password and unlocks. An existing accounts
// file must open under the new password, otherwise nothing is changed.
func (m *Manager) Initialize(password string) error {
	initialized, err := m.vault.IsInitialized()
	if err != nil {
		return err
	}
	if initialized {
		return ErrAlreadyInitialized
	}
	if password == "" {
		return vault.ErrEmptyPassword
	}

	key := crypto.DeriveKey(password)
	accounts, err := m.store.Load(key)
	if err != nil {
		key.Zeroize()
		return err
	}

	if err := m.vault.SetMasterPassword(password); err != nil {
		key.Zeroize()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(key, accounts)
	m.logger.WithField("accounts", len(accounts)).Info("vault initialized")
	return nil
}

// Unlock verifies the master password and loads the accounts. A password that
// does not match the commitment yields ErrWrongPassword and can be retried;
// store failures such as store.ErrAuthenticationFailed are fatal.
func (m *Manager) Unlock(password string) error {
	initialized, err := m.vault.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		return vault.ErrNotInitialized
	}
	if !m.vault.CheckMasterPassword(password) {
		m.logger.Warn("master password rejected")
		return ErrWrongPassword
	}

	key := crypto.DeriveKey(password)
	accounts, err := m.store.Load(key)
	if err != nil {
		key.Zeroize()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.open(key, accounts)
	m.logger.WithField("accounts", len(accounts)).Debug("session unlocked")
	return nil
}

// open installs a key and account list. Callers hold m.mu.
func (m *Manager) open(key crypto.StorageKey, accounts []account.Account) {
	m.closeLocked()
	m.key = key
	m.registry = registry.New(accounts, registry.PersisterFunc(m.persist), m.logger)
	m.unlockedAt = m.now()
	m.lastActivity = m.unlockedAt
}

// persist saves under the current key. The registry calls it on every mutation.
func (m *Manager) persist(accounts []account.Account) error {
	m.mu.Lock()
	if m.key == nil {
		m.mu.Unlock()
		return ErrLocked
	}
	key := m.key.Clone()
	m.mu.Unlock()
	defer key.Zeroize()

	return m.store.Save(accounts, key)
}

// Lock zeroes the key and drops the account list
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key != nil {
		m.logger.Debug("session locked")
	}
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.key != nil {
		m.key.Zeroize()
	}
	m.key = nil
	m.registry = nil
}

// IsUnlocked reports whether a key is held
func (m *Manager) IsUnlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key != nil
}

// Touch records user activity
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key != nil {
		m.lastActivity = m.now()
	}
}

// Expired reports whether the session is unlocked but idle past the auto-lock timeout
func (m *Manager) Expired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

func (m *Manager) expiredLocked() bool {
	if m.key == nil || m.autoLock <= 0 {
		return false
	}
	return m.now().Sub(m.lastActivity) >= m.autoLock
}

// LockIfExpired locks an idle session and reports whether it did
func (m *Manager) LockIfExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.expiredLocked() {
		return false
	}
	m.logger.WithField("idle", m.now().Sub(m.lastActivity).Round(time.Second)).Info("auto-lock after inactivity")
	m.closeLocked()
	return true
}

// Registry returns the account registry of the unlocked session and counts
// as activity
func (m *Manager) Registry() (*registry.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key == nil {
		return nil, ErrLocked
	}
	if m.expiredLocked() {
		m.closeLocked()
		return nil, ErrSessionExpired
	}
	m.lastActivity = m.now()
	return m.registry, nil
}

// ChangeMasterPassword re-encrypts the accounts under a new password and then
// replaces the commitment. If the commitment cannot be written the file is
// re-encrypted under the old key so both stay consistent.
//
// The registry write lock is held for the whole change and m.mu is taken
// inside it, the same order a registry commit uses through persist.
func (m *Manager) ChangeMasterPassword(oldPassword, newPassword string) error {
	if newPassword == "" {
		return vault.ErrEmptyPassword
	}

	reg, err := m.Registry()
	if err != nil {
		return err
	}
	if !m.vault.CheckMasterPassword(oldPassword) {
		return ErrWrongPassword
	}

	return reg.Rekey(func(accounts []account.Account) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.key == nil || m.registry != reg {
			return ErrLocked
		}

		newKey := crypto.DeriveKey(newPassword)
		if err := m.store.Save(accounts, newKey); err != nil {
			newKey.Zeroize()
			return fmt.Errorf("failed to re-encrypt accounts: %w", err)
		}

		if err := m.vault.SetMasterPassword(newPassword); err != nil {
			newKey.Zeroize()
			if rbErr := m.store.Save(accounts, m.key); rbErr != nil {
				m.logger.WithError(rbErr).Error("failed to restore accounts file under the old password")
				return errors.Join(err, rbErr)
			}
			return err
		}

		m.key.Zeroize()
		m.key = newKey
		m.lastActivity = m.now()
		m.logger.Info("master password changed")
		return nil
	})
}

// Reset removes every account. With forgetMaster the commitment is cleared too
// and the session locks, so the next start asks for a new master password.
func (m *Manager) Reset(forgetMaster bool) error {
	reg, err := m.Registry()
	if err != nil {
		return err
	}
	if err := reg.ResetAll(); err != nil {
		return err
	}
	if !forgetMaster {
		return nil
	}
	if err := m.vault.Clear(); err != nil {
		return err
	}
	m.Lock()
	// the emptied file is still sealed under the old key
	return m.store.Remove()
}

// Info describes the session for status output
type Info struct {
	Unlocked      bool
	UnlockedAt    time.Time
	LastActivity  time.Time
	AutoLock      time.Duration
	TimeRemaining time.Duration
}

// Info returns the current session state
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key == nil {
		return Info{AutoLock: m.autoLock}
	}

	info := Info{
		Unlocked:     true,
		UnlockedAt:   m.unlockedAt,
		LastActivity: m.lastActivity,
		AutoLock:     m.autoLock,
	}
	if m.autoLock > 0 {
		remaining := m.autoLock - m.now().Sub(m.lastActivity)
		if remaining < 0 {
			remaining = 0
		}
		info.TimeRemaining = remaining
	}
	return info
}
