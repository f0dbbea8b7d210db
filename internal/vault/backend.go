package vault

import (
	"fmt"
	"strings"

	"github.com/virex/go/internal/keyring"
)

// Backend names accepted by the master_store setting
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// OpenStore picks the commitment store for a master_store setting. "auto"
// prefers the OS keyring and falls back to the settings file when the keyring
// is not usable.
func OpenStore(backend, organization, application, settingsPath string) (CommitmentStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		if keyring.IsSupported() {
			return keyring.NewManager(organization, application), nil
		}
		return NewFileStore(settingsPath), nil
	case BackendKeyring:
		if !keyring.IsSupported() {
			return nil, keyring.ErrKeyringNotSupported
		}
		return keyring.NewManager(organization, application), nil
	case BackendFile:
		return NewFileStore(settingsPath), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
