package cli

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/config"
	"github.com/virex/go/internal/registry"
	"github.com/virex/go/internal/session"
	"github.com/virex/go/internal/store"
)

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"store authentication", fmt.Errorf("%w: tag mismatch", store.ErrAuthenticationFailed), 2},
		{"wrong master password", session.ErrWrongPassword, 2},
		{"malformed accounts file", store.ErrMalformedData, 3},
		{"bad index", fmt.Errorf("%w: 9", registry.ErrIndexOutOfRange), 4},
		{"no match", errNoMatch, 4},
		{"expired session", session.ErrSessionExpired, 5},
		{"anything else", errors.New("boom"), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, exitCode(tc.err))
		})
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return registry.New([]account.Account{
		account.NewKeyURI("GitHub", "otpauth://totp/GitHub:alice?secret=JBSWY3DPEHPK3PXP"),
		account.NewSecret("Bank", "JBSWY3DPEHPK3PXP"),
		account.NewKeyURI("Work", "otpauth://totp/Google:bob@work.io?secret=JBSWY3DPEHPK3PXP"),
	}, nil, logger)
}

func TestResolveAccount(t *testing.T) {
	reg := testRegistry(t)

	index, acc, err := resolveAccount(reg, "2")
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, "Bank", acc.Name)

	index, acc, err = resolveAccount(reg, "goog")
	require.NoError(t, err)
	assert.Equal(t, 2, index)
	assert.Equal(t, "Work", acc.Name)

	_, _, err = resolveAccount(reg, "0")
	assert.ErrorIs(t, err, registry.ErrIndexOutOfRange)

	_, _, err = resolveAccount(reg, "4")
	assert.ErrorIs(t, err, registry.ErrIndexOutOfRange)

	_, _, err = resolveAccount(reg, "zzz")
	assert.ErrorIs(t, err, errNoMatch)
}

func TestConfirm(t *testing.T) {
	defer func(r *bufio.Reader, f bool) { stdin, force = r, f }(stdin, force)

	testCases := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	force = false
	for _, tc := range testCases {
		t.Run(strings.TrimSpace(tc.input), func(t *testing.T) {
			stdin = bufio.NewReader(strings.NewReader(tc.input))
			assert.Equal(t, tc.expected, confirm("Proceed?"))
		})
	}

	force = true
	stdin = bufio.NewReader(strings.NewReader(""))
	assert.True(t, confirm("Proceed?"))
}

func TestReadLine(t *testing.T) {
	defer func(r *bufio.Reader) { stdin = r }(stdin)

	stdin = bufio.NewReader(strings.NewReader("first\r\nsecond"))

	line, err := readLine()
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = readLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = readLine()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, newLogger("warn", false).GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("info", false).GetLevel())
	assert.Equal(t, logrus.WarnLevel, newLogger("nonsense", false).GetLevel())
	assert.Equal(t, logrus.DebugLevel, newLogger("error", true).GetLevel())
}

func TestUpdateConfigFile(t *testing.T) {
	defer func(p string) { configPath = p }(configPath)
	configPath = filepath.Join(t.TempDir(), "config.yml")

	require.NoError(t, updateConfigFile(func(c *config.Config) error {
		return c.Set("clipboard_clear_timeout", "30")
	}))

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.ClipboardClearTimeout)

	// Rejected values leave the file alone
	err = updateConfigFile(func(c *config.Config) error {
		return c.Set("clipboard_clear_timeout", "500")
	})
	assert.ErrorIs(t, err, config.ErrInvalid)

	loaded, err = config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.ClipboardClearTimeout)

	require.NoError(t, updateConfigFile(func(c *config.Config) error {
		c.ResetPreferences()
		return nil
	}))
	loaded, err = config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPreferences(), loaded.Preferences)

	// Environment overrides are not written back
	t.Setenv(config.EnvPrefix+"AUTO_LOCK_TIMEOUT", "5")
	require.NoError(t, updateConfigFile(func(c *config.Config) error {
		return c.Set("theme", "dark")
	}))
	fileOnly, err := config.LoadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, 0, fileOnly.AutoLockTimeout)
	assert.Equal(t, config.ThemeDark, fileOnly.Theme)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ключ...", truncateString("ключключключ", 7))

	assert.Equal(t, 1, secondsLeft(300*time.Millisecond))
	assert.Equal(t, 30, secondsLeft(30*time.Second))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"init"}, {"status"}, {"version"}, {"passwd"}, {"reset"},
		{"config", "show"}, {"config", "set"}, {"config", "reset"},
		{"keyring", "status"}, {"keyring", "clear"},
		{"add", "secret"}, {"add", "uri"}, {"add", "qr-text"},
		{"list"}, {"code"}, {"pick"}, {"rename"}, {"delete"}, {"qr"},
		{"backup", "export"}, {"backup", "import"},
		{"csv", "export"}, {"csv", "import"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
