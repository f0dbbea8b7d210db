package keyring

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newMockManager(t *testing.T) *Manager {
	t.Helper()
	keyring.MockInit()
	m := NewManager("virex-test", t.Name())
	return m
}

func TestNewManager(t *testing.T) {
	m := NewManager("", "")
	assert.NotNil(t, m)
	assert.Equal(t, "virex/virex", m.serviceName)
	assert.Equal(t, CommitmentUser, m.username)
	assert.Equal(t, "keyring", m.Name())

	m = NewManager("YourOrg", "OTPApp")
	assert.Equal(t, "YourOrg/OTPApp", m.serviceName)
}

func TestStoreAndLoad(t *testing.T) {
	m := newMockManager(t)

	_, found, err := m.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, m.Has())

	commitment := "2ed06766795d58a4f22d511a672f20a6b096d3fe5b56af3a744678a9a356fd82"
	require.NoError(t, m.Store(commitment))

	value, found, err := m.Load()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, commitment, value)
	assert.True(t, m.Has())
}

func TestStoreOverwrites(t *testing.T) {
	m := newMockManager(t)

	require.NoError(t, m.Store("first"))
	require.NoError(t, m.Store("second"))

	value, _, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestClear(t *testing.T) {
	m := newMockManager(t)

	// Clearing nothing is fine
	require.NoError(t, m.Clear())

	require.NoError(t, m.Store("value"))
	require.NoError(t, m.Clear())
	assert.False(t, m.Has())
}

func TestNamespacesAreIsolated(t *testing.T) {
	keyring.MockInit()
	a := NewManager("org", "app-a")
	b := NewManager("org", "app-b")

	require.NoError(t, a.Store("a"))
	assert.False(t, b.Has())
}

func TestKeyringFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus unavailable"))
	defer keyring.MockInit()

	m := NewManager("virex-test", t.Name())

	_, _, err := m.Load()
	assert.Error(t, err)
	assert.Error(t, m.Store("value"))
	assert.False(t, IsSupported())
}

func TestIsSupportedWithMock(t *testing.T) {
	keyring.MockInit()
	assert.True(t, IsSupported())
}

func TestWriteDebugInfo(t *testing.T) {
	m := newMockManager(t)
	require.NoError(t, m.Store("value"))

	var buf bytes.Buffer
	m.WriteDebugInfo(&buf)

	out := buf.String()
	assert.Contains(t, out, "virex-test/")
	assert.Contains(t, out, "Has Commitment: true")
	assert.NotContains(t, out, "value")
}
