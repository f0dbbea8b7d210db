// Package config loads user preferences and paths. Values come from the YAML
// config file, then VIREX_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/virex/go/internal/crypto"
	"github.com/virex/go/internal/fsutil"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VIREX_"

// MaxTimeout bounds both timeouts, in their own units
const MaxTimeout = 120

// Display modes
const (
	DisplayShow = "show"
	DisplayHide = "hide"
)

// Themes
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// ErrUnknownKey is returned by Set for keys that do not exist
var ErrUnknownKey = errors.New("unknown configuration key")

// Preferences are the user-facing settings
type Preferences struct {
	// AutoLockTimeout in minutes, 0 disables auto-lock
	AutoLockTimeout int `yaml:"auto_lock_timeout" env:"AUTO_LOCK_TIMEOUT"`
	// ClipboardClearTimeout in seconds, 0 disables clearing
	ClipboardClearTimeout int    `yaml:"clipboard_clear_timeout" env:"CLIPBOARD_CLEAR_TIMEOUT"`
	OTPDisplayMode        string `yaml:"otp_display_mode" env:"OTP_DISPLAY_MODE"`
	Theme                 string `yaml:"theme" env:"THEME"`
}

// Config is the full application configuration
type Config struct {
	Preferences `yaml:",inline"`

	AccountsFile  string `yaml:"accounts_file" env:"ACCOUNTS_FILE"`
	StorageFormat string `yaml:"storage_format" env:"STORAGE_FORMAT"`
	MasterStore   string `yaml:"master_store" env:"MASTER_STORE"`
	SettingsFile  string `yaml:"settings_file,omitempty" env:"SETTINGS_FILE"`
	Organization  string `yaml:"organization" env:"ORGANIZATION"`
	Application   string `yaml:"application" env:"APPLICATION"`
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL"`
}

// DefaultPreferences mirrors a freshly installed application
func DefaultPreferences() Preferences {
	return Preferences{
		AutoLockTimeout:       0,
		ClipboardClearTimeout: 0,
		OTPDisplayMode:        DisplayShow,
		Theme:                 ThemeSystem,
	}
}

// Defaults returns the configuration used when nothing is configured
func Defaults() Config {
	return Config{
		Preferences:   DefaultPreferences(),
		AccountsFile:  "accounts.json",
		StorageFormat: string(crypto.DefaultFormat),
		MasterStore:   "auto",
		Organization:  "virex",
		Application:   "virex",
		LogLevel:      "warn",
	}
}

// DefaultDir returns ~/.virex
func DefaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".virex"
	}
	return filepath.Join(homeDir, ".virex")
}

// DefaultPath returns the default path for the configuration file
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yml")
}

// DefaultSettingsPath returns the default path of the file commitment store
func DefaultSettingsPath() string {
	return filepath.Join(DefaultDir(), "settings.yml")
}

// Load reads path on top of Defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

func load(path string, opts env.Options) (Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.SettingsFile == "" {
		cfg.SettingsFile = DefaultSettingsPath()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads only the file on top of Defaults. It is the base for
// read-modify-write, so environment overrides never end up saved.
func LoadFile(path string) (Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Save writes the configuration atomically
func (c Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	if err := c.Preferences.Validate(); err != nil {
		return err
	}
	if _, err := crypto.ParseFormat(c.StorageFormat); err != nil {
		return fmt.Errorf("%w: storage_format: %v", ErrInvalid, err)
	}
	switch strings.ToLower(c.MasterStore) {
	case "", "auto", "keyring", "file":
	default:
		return fmt.Errorf("%w: master_store must be auto, keyring or file, got %q", ErrInvalid, c.MasterStore)
	}
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Validate checks ranges and enumerations
func (p Preferences) Validate() error {
	if p.AutoLockTimeout < 0 || p.AutoLockTimeout > MaxTimeout {
		return fmt.Errorf("%w: auto_lock_timeout must be between 0 and %d minutes", ErrInvalid, MaxTimeout)
	}
	if p.ClipboardClearTimeout < 0 || p.ClipboardClearTimeout > MaxTimeout {
		return fmt.Errorf("%w: clipboard_clear_timeout must be between 0 and %d seconds", ErrInvalid, MaxTimeout)
	}
	switch p.OTPDisplayMode {
	case DisplayShow, DisplayHide:
	default:
		return fmt.Errorf("%w: otp_display_mode must be show or hide, got %q", ErrInvalid, p.OTPDisplayMode)
	}
	switch p.Theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: theme must be system, light or dark, got %q", ErrInvalid, p.Theme)
	}
	return nil
}

// AutoLock returns the auto-lock timeout as a duration
func (p Preferences) AutoLock() time.Duration {
	return time.Duration(p.AutoLockTimeout) * time.Minute
}

// ClipboardClear returns the clipboard clear timeout as a duration
func (p Preferences) ClipboardClear() time.Duration {
	return time.Duration(p.ClipboardClearTimeout) * time.Second
}

// HideCodes reports whether codes start hidden
func (p Preferences) HideCodes() bool {
	return p.OTPDisplayMode == DisplayHide
}

// Format returns the parsed storage format
func (c Config) Format() crypto.Format {
	format, err := crypto.ParseFormat(c.StorageFormat)
	if err != nil {
		return crypto.DefaultFormat
	}
	return format
}

// setters maps config keys to parsers
var setters = map[string]func(c *Config, value string) error{
	"auto_lock_timeout": func(c *Config, v string) error {
		return setInt(&c.AutoLockTimeout, v)
	},
	"clipboard_clear_timeout": func(c *Config, v string) error {
		return setInt(&c.ClipboardClearTimeout, v)
	},
	"otp_display_mode": func(c *Config, v string) error {
		c.OTPDisplayMode = strings.ToLower(v)
		return nil
	},
	"theme": func(c *Config, v string) error {
		c.Theme = strings.ToLower(v)
		return nil
	},
	"accounts_file": func(c *Config, v string) error {
		c.AccountsFile = v
		return nil
	},
	"storage_format": func(c *Config, v string) error {
		c.StorageFormat = strings.ToLower(v)
		return nil
	},
	"master_store": func(c *Config, v string) error {
		c.MasterStore = strings.ToLower(v)
		return nil
	},
	"log_level": func(c *Config, v string) error {
		c.LogLevel = strings.ToLower(v)
		return nil
	},
}

// Keys lists the keys accepted by Set
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses and assigns one key, then validates the result. On error the
// config is left unchanged.
func (c *Config) Set(key, value string) error {
	setter, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	next := *c
	if err := setter(&next, strings.TrimSpace(value)); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ResetPreferences restores the preferences to their defaults, leaving paths alone
func (c *Config) ResetPreferences() {
	c.Preferences = DefaultPreferences()
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrInvalid, value)
	}
	*dst = n
	return nil
}
