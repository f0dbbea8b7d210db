// Package keyring keeps the master password commitment in the OS keyring.
package keyring

import (
	"errors"
	"fmt"
	"io"

	"github.com/zalando/go-keyring"
)

const (
	// DefaultOrganization and DefaultApplication namespace the keyring service
	DefaultOrganization = "virex"
	DefaultApplication  = "virex"

	// CommitmentUser is the keyring account holding the commitment
	CommitmentUser = "master_hash"
)

// ServiceName builds the "<organization>/<application>" keyring service
func ServiceName(organization, application string) string {
	return organization + "/" + application
}

// Manager stores one value, the commitment, under a service and user
type Manager struct {
	serviceName string
	username    string
}

// NewManager creates a keyring manager for the given namespace
func NewManager(organization, application string) *Manager {
	if organization == "" {
		organization = DefaultOrganization
	}
	if application == "" {
		application = DefaultApplication
	}
	return &Manager{
		serviceName: ServiceName(organization, application),
		username:    CommitmentUser,
	}
}

// Name identifies the backend in status output
func (m *Manager) Name() string {
	return "keyring"
}

// Load returns the stored commitment. found is false when nothing is stored.
func (m *Manager) Load() (string, bool, error) {
	value, err := keyring.Get(m.serviceName, m.username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return value, true, nil
}

// Store overwrites the stored commitment
func (m *Manager) Store(commitment string) error {
	if err := keyring.Set(m.serviceName, m.username, commitment); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Clear removes the stored commitment. Nothing stored is not an error.
func (m *Manager) Clear() error {
	err := keyring.Delete(m.serviceName, m.username)
	if err != nil {
		// Ignore "not found" errors when deleting
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Has reports whether a commitment is stored
func (m *Manager) Has() bool {
	_, found, err := m.Load()
	return err == nil && found
}

// IsSupported checks if keyring is supported on the current system
func IsSupported() bool {
	// The zalando/go-keyring library supports macOS, Windows, and Linux
	// with a secret service. A set and delete round trip tells us it works.
	testService := "virex-probe"
	testUser := "probe"

	if err := keyring.Set(testService, testUser, "probe"); err != nil {
		return false
	}

	// Clean up the test value
	keyring.Delete(testService, testUser)

	return true
}

// WriteDebugInfo prints keyring status for `virex status --verbose`
func (m *Manager) WriteDebugInfo(w io.Writer) {
	fmt.Fprintf(w, "Keyring Status:\n")
	fmt.Fprintf(w, "  Service: %s\n", m.serviceName)
	fmt.Fprintf(w, "  Username: %s\n", m.username)
	fmt.Fprintf(w, "  Has Commitment: %t\n", m.Has())
	fmt.Fprintf(w, "  Supported: %t\n", IsSupported())
}
