// Package registry holds the ordered account list of an unlocked session.
// Every mutation is persisted before it becomes visible; a failed save leaves
// the list as it was.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/virex/go/internal/account"
)

// ErrIndexOutOfRange indicates an account index outside the list
var ErrIndexOutOfRange = errors.New("account index out of range")

// Persister saves the full account list. The session binds it to the store
// and the storage key.
type Persister interface {
	Persist(accounts []account.Account) error
}

// PersisterFunc adapts a function to Persister
type PersisterFunc func(accounts []account.Account) error

// Persist calls f
func (f PersisterFunc) Persist(accounts []account.Account) error {
	return f(accounts)
}

// ImportResult counts the outcome of ImportMany
type ImportResult struct {
	Added   int
	Skipped int
}

// Registry is the in-memory, ordered account list
type Registry struct {
	mu        sync.RWMutex
	accounts  []account.Account
	persister Persister
	logger    *logrus.Logger
}

// New creates a registry seeded with already loaded accounts
func New(accounts []account.Account, persister Persister, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		accounts:  clone(accounts),
		persister: persister,
		logger:    logger,
	}
}

// Accounts returns a copy of the list in display order
func (r *Registry) Accounts() []account.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.accounts)
}

// Len returns the number of accounts
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Get returns the account at index i
func (r *Registry) Get(i int) (account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkIndex(i); err != nil {
		return account.Account{}, err
	}
	return r.accounts[i], nil
}

// Add validates and appends one account
func (r *Registry) Add(acc account.Account) error {
	acc.Name = strings.TrimSpace(acc.Name)
	if err := acc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(clone(r.accounts), acc)
	if err := r.commit(next, "add"); err != nil {
		return err
	}
	r.logger.WithField("accounts", len(next)).Debug("account added")
	return nil
}

// Rename changes the name of the account at index i
func (r *Registry) Rename(i int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return account.ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(i); err != nil {
		return err
	}

	next := clone(r.accounts)
	next[i] = next[i].Renamed(name)
	if err := r.commit(next, "rename"); err != nil {
		return err
	}
	r.logger.WithField("index", i).Debug("account renamed")
	return nil
}

// Delete removes the account at index i
func (r *Registry) Delete(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkIndex(i); err != nil {
		return err
	}

	next := make([]account.Account, 0, len(r.accounts)-1)
	next = append(next, r.accounts[:i]...)
	next = append(next, r.accounts[i+1:]...)
	if err := r.commit(next, "delete"); err != nil {
		return err
	}
	r.logger.WithField("index", i).Debug("account deleted")
	return nil
}

// ResetAll removes every account
func (r *Registry) ResetAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.commit([]account.Account{}, "reset"); err != nil {
		return err
	}
	r.logger.Debug("all accounts removed")
	return nil
}

// ImportMany appends accounts in order without de-duplication. Structurally
// invalid entries are skipped and counted.
func (r *Registry) ImportMany(accs []account.Account) (ImportResult, error) {
	var result ImportResult
	valid := make([]account.Account, 0, len(accs))
	for _, acc := range accs {
		acc.Name = strings.TrimSpace(acc.Name)
		if err := acc.Validate(); err != nil {
			r.logger.WithError(err).WithField("name", acc.Name).Debug("skipping invalid account")
			result.Skipped++
			continue
		}
		valid = append(valid, acc)
	}

	if len(valid) == 0 {
		return result, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(clone(r.accounts), valid...)
	if err := r.commit(next, "import"); err != nil {
		return ImportResult{}, err
	}

	result.Added = len(valid)
	r.logger.WithFields(logrus.Fields{
		"added":   result.Added,
		"skipped": result.Skipped,
	}).Info("accounts imported")
	return result, nil
}

// Rekey hands a copy of the list to fn while holding the write lock, so no
// mutation is persisted until fn returns. Used to re-encrypt under a new key.
func (r *Registry) Rekey(fn func(accounts []account.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(clone(r.accounts))
}

// commit persists next and only then swaps it in. Callers hold the write lock.
func (r *Registry) commit(next []account.Account, operation string) error {
	if r.persister != nil {
		if err := r.persister.Persist(next); err != nil {
			r.logger.WithError(err).WithField("operation", operation).Warn("persist failed, changes discarded")
			return err
		}
	}
	r.accounts = next
	return nil
}

func (r *Registry) checkIndex(i int) error {
	if i < 0 || i >= len(r.accounts) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(r.accounts))
	}
	return nil
}

func clone(accounts []account.Account) []account.Account {
	out := make([]account.Account, len(accounts))
	copy(out, accounts)
	return out
}
