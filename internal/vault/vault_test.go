package vault

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zkeyring "github.com/zalando/go-keyring"

	"github.com/virex/go/internal/keyring"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// stores returns every backend so each behaviour is checked against both
func stores(t *testing.T) map[string]CommitmentStore {
	zkeyring.MockInit()
	return map[string]CommitmentStore{
		"file":    NewFileStore(filepath.Join(t.TempDir(), "settings.yml")),
		"keyring": keyring.NewManager("virex-test", t.Name()),
	}
}

func TestSecret123Scenario(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v := New(store, quietLogger())

			initialized, err := v.IsInitialized()
			require.NoError(t, err)
			assert.False(t, initialized)
			assert.False(t, v.CheckMasterPassword("Secret123"))

			require.NoError(t, v.SetMasterPassword("Secret123"))

			initialized, err = v.IsInitialized()
			require.NoError(t, err)
			assert.True(t, initialized)

			stored, found, err := store.Load()
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "2ed06766795d58a4f22d511a672f20a6b096d3fe5b56af3a744678a9a356fd82", stored)

			assert.True(t, v.CheckMasterPassword("Secret123"))
			assert.False(t, v.CheckMasterPassword("secret123"))
			assert.False(t, v.CheckMasterPassword(""))
		})
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v := New(store, quietLogger())
			require.NoError(t, v.SetMasterPassword("pw"))

			before, _, err := store.Load()
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				assert.True(t, v.CheckMasterPassword("pw"))
				assert.False(t, v.CheckMasterPassword("wrong"))
			}

			after, _, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestSetOverwritesAndClear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			v := New(store, quietLogger())

			require.NoError(t, v.SetMasterPassword("old"))
			require.NoError(t, v.SetMasterPassword("new"))
			assert.False(t, v.CheckMasterPassword("old"))
			assert.True(t, v.CheckMasterPassword("new"))

			require.NoError(t, v.Clear())
			initialized, err := v.IsInitialized()
			require.NoError(t, err)
			assert.False(t, initialized)
			assert.False(t, v.CheckMasterPassword("new"))
		})
	}
}

func TestSetEmptyPassword(t *testing.T) {
	v := New(NewFileStore(filepath.Join(t.TempDir(), "settings.yml")), quietLogger())
	assert.ErrorIs(t, v.SetMasterPassword(""), ErrEmptyPassword)
}

type brokenStore struct{}

func (brokenStore) Load() (string, bool, error) { return "", false, errors.New("unreadable") }
func (brokenStore) Store(string) error          { return errors.New("unwritable") }
func (brokenStore) Clear() error                { return errors.New("unwritable") }
func (brokenStore) Name() string                { return "broken" }

func TestUnreadableStore(t *testing.T) {
	v := New(brokenStore{}, quietLogger())

	assert.False(t, v.CheckMasterPassword("anything"))
	_, err := v.IsInitialized()
	assert.Error(t, err)
	assert.Error(t, v.SetMasterPassword("pw"))
	assert.Error(t, v.Clear())
	assert.Equal(t, "broken", v.Backend())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("master_hash: [unclosed"), 0o600))

	v := New(NewFileStore(path), quietLogger())
	assert.False(t, v.CheckMasterPassword("pw"))
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	initialized, err := New(NewFileStore(path), quietLogger()).IsInitialized()
	require.NoError(t, err)
	assert.False(t, initialized)
}

func TestOpenStore(t *testing.T) {
	zkeyring.MockInit()
	settings := filepath.Join(t.TempDir(), "settings.yml")

	testCases := []struct {
		backend  string
		expected string
	}{
		{"", "keyring"},
		{"auto", "keyring"},
		{"keyring", "keyring"},
		{"FILE", "file"},
	}

	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			store, err := OpenStore(tc.backend, "org", "app", settings)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, store.Name())
		})
	}

	_, err := OpenStore("vault9000", "org", "app", settings)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestOpenStoreWithoutKeyring(t *testing.T) {
	zkeyring.MockInitWithError(errors.New("no secret service"))
	defer zkeyring.MockInit()

	settings := filepath.Join(t.TempDir(), "settings.yml")

	store, err := OpenStore(BackendAuto, "org", "app", settings)
	require.NoError(t, err)
	assert.Equal(t, "file", store.Name())

	_, err = OpenStore(BackendKeyring, "org", "app", settings)
	assert.ErrorIs(t, err, keyring.ErrKeyringNotSupported)
}
