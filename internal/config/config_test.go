package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virex/go/internal/crypto"
)

// loadWithEnv loads path with a fake environment instead of the process one
func loadWithEnv(path string, environment map[string]string) (Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix, Environment: environment})
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0, cfg.AutoLockTimeout)
	assert.Equal(t, 0, cfg.ClipboardClearTimeout)
	assert.Equal(t, DisplayShow, cfg.OTPDisplayMode)
	assert.Equal(t, ThemeSystem, cfg.Theme)
	assert.Equal(t, "accounts.json", cfg.AccountsFile)
	assert.Equal(t, crypto.FormatFernet, cfg.Format())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := loadWithEnv(filepath.Join(t.TempDir(), "missing.yml"), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences(), cfg.Preferences)
	assert.Equal(t, DefaultSettingsPath(), cfg.SettingsFile)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
auto_lock_timeout: 5
clipboard_clear_timeout: 30
otp_display_mode: hide
theme: dark
storage_format: sealed
`), 0o600))

	cfg, err := loadWithEnv(path, map[string]string{
		"VIREX_CLIPBOARD_CLEAR_TIMEOUT": "10",
		"VIREX_ACCOUNTS_FILE":           "/tmp/otp.json",
		"CLIPBOARD_CLEAR_TIMEOUT":       "99",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.AutoLockTimeout)
	assert.Equal(t, 10, cfg.ClipboardClearTimeout)
	assert.True(t, cfg.HideCodes())
	assert.Equal(t, ThemeDark, cfg.Theme)
	assert.Equal(t, "/tmp/otp.json", cfg.AccountsFile)
	assert.Equal(t, crypto.FormatSealed, cfg.Format())
	assert.Equal(t, 5*time.Minute, cfg.AutoLock())
	assert.Equal(t, 10*time.Second, cfg.ClipboardClear())
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"auto lock too large", "auto_lock_timeout: 121", nil},
		{"negative clipboard", "clipboard_clear_timeout: -1", nil},
		{"display mode", "otp_display_mode: blink", nil},
		{"theme", "theme: solarized", nil},
		{"storage format", "storage_format: rot13", nil},
		{"master store", "master_store: cloud", nil},
		{"log level", "log_level: chatty", nil},
		{"bad yaml", "theme: [", nil},
		{"env not a number", "", map[string]string{"VIREX_AUTO_LOCK_TIMEOUT": "soon"}},
		{"env out of range", "", map[string]string{"VIREX_AUTO_LOCK_TIMEOUT": "500"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o600))

			environment := tc.env
			if environment == nil {
				environment = map[string]string{}
			}
			_, err := loadWithEnv(path, environment)
			assert.Error(t, err)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := Defaults()
	cfg.AutoLockTimeout = 15
	cfg.Theme = ThemeLight
	require.NoError(t, cfg.Save(path))

	loaded, err := loadWithEnv(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.AutoLockTimeout)
	assert.Equal(t, ThemeLight, loaded.Theme)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_lock_timeout: 15")
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("theme: light\n"), 0o600))
	t.Setenv(EnvPrefix+"AUTO_LOCK_TIMEOUT", "5")

	withEnv, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, withEnv.AutoLockTimeout)

	fileOnly, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, fileOnly.AutoLockTimeout)
	assert.Equal(t, ThemeLight, fileOnly.Theme)
	assert.Empty(t, fileOnly.SettingsFile)

	fileOnly.Theme = ThemeDark
	require.NoError(t, fileOnly.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_lock_timeout: 0")
	assert.Contains(t, string(data), "theme: dark")
	assert.NotContains(t, string(data), "settings_file")
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Defaults()
	cfg.Theme = "neon"
	assert.ErrorIs(t, cfg.Save(filepath.Join(t.TempDir(), "config.yml")), ErrInvalid)
}

func TestSet(t *testing.T) {
	cfg := Defaults()

	require.NoError(t, cfg.Set("auto_lock_timeout", "10"))
	require.NoError(t, cfg.Set("clipboard_clear_timeout", " 20 "))
	require.NoError(t, cfg.Set("otp_display_mode", "HIDE"))
	require.NoError(t, cfg.Set("theme", "Dark"))
	require.NoError(t, cfg.Set("storage_format", "sealed"))

	assert.Equal(t, 10, cfg.AutoLockTimeout)
	assert.Equal(t, 20, cfg.ClipboardClearTimeout)
	assert.Equal(t, DisplayHide, cfg.OTPDisplayMode)
	assert.Equal(t, ThemeDark, cfg.Theme)
	assert.Equal(t, crypto.FormatSealed, cfg.Format())
}

func TestSetRejectsAndKeepsValue(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Set("auto_lock_timeout", "10"))

	assert.ErrorIs(t, cfg.Set("auto_lock_timeout", "121"), ErrInvalid)
	assert.ErrorIs(t, cfg.Set("auto_lock_timeout", "ten"), ErrInvalid)
	assert.ErrorIs(t, cfg.Set("color", "red"), ErrUnknownKey)
	assert.Equal(t, 10, cfg.AutoLockTimeout)
}

func TestResetPreferences(t *testing.T) {
	cfg := Defaults()
	cfg.AccountsFile = "/data/otp.json"
	cfg.AutoLockTimeout = 30
	cfg.Theme = ThemeDark

	cfg.ResetPreferences()
	assert.Equal(t, DefaultPreferences(), cfg.Preferences)
	assert.Equal(t, "/data/otp.json", cfg.AccountsFile)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "auto_lock_timeout")
	assert.Contains(t, keys, "theme")
	assert.IsIncreasing(t, keys)
}
