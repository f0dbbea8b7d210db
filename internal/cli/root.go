package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/virex/go/internal/clipboard"
	"github.com/virex/go/internal/config"
	"github.com/virex/go/internal/registry"
	"github.com/virex/go/internal/session"
	"github.com/virex/go/internal/store"
	"github.com/virex/go/internal/vault"
)

var (
	// Global flags
	configPath    string
	accountsPath  string
	storageFormat string
	verbose       bool
	force         bool
	attempts      int

	// Global instances
	cfg          config.Config
	logger       *logrus.Logger
	sessionMgr   *session.Manager
	commitStore  vault.CommitmentStore
	masterVault  *vault.Vault
	accountStore *store.SecureStore
	clipboardMgr *clipboard.Manager

	stdin = bufio.NewReader(os.Stdin)
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "virex",
	Short: "A master-password protected vault for TOTP accounts",
	Long: `Virex keeps TOTP accounts in an encrypted file unlocked by a master
password, shows their current codes and moves them in and out through
encrypted backups or plain CSV.

Features:
- Fernet or salted AES-GCM encrypted storage
- Master password commitment in the OS keyring or a settings file
- Live codes with interactive fuzzy search
- Automatic clipboard clearing and idle auto-lock
- Encrypted backup and CSV import/export

Examples:
  virex init                         # Choose a master password
  virex add secret GitHub            # Add an account from a Base32 secret
  virex add uri Work                 # Add an account from an otpauth:// URI
  virex code github                  # Copy the code of the best match
  virex pick                         # Interactive picker with live codes
  virex backup export vault.bak      # Encrypted backup with its own password
  virex config set theme dark        # Change a preference`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := initializeGlobals(cmd); err != nil {
			handleError(err, "Failed to load configuration")
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Cleanup
		if sessionMgr != nil {
			sessionMgr.Lock()
		}
	},
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion sets the version information for the CLI
func SetVersion(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&accountsPath, "accounts", "a", "", "Path to the encrypted accounts file (overrides accounts_file)")
	rootCmd.PersistentFlags().StringVar(&storageFormat, "format", "", "Storage format for writes: fernet or sealed (overrides storage_format)")
	rootCmd.PersistentFlags().IntVar(&attempts, "attempts", 3, "Master password prompts before giving up")
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "Force operation without confirmation")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")

	// Define command groups
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "account", Title: "Account Operations:"})
	rootCmd.AddGroup(&cobra.Group{ID: "transfer", Title: "Import and Export:"})

	// Account operations
	addCmd.GroupID = "account"
	listCmd.GroupID = "account"
	codeCmd.GroupID = "account"
	pickCmd.GroupID = "account"
	renameCmd.GroupID = "account"
	deleteCmd.GroupID = "account"
	qrCmd.GroupID = "account"

	// Management commands
	initCmd.GroupID = "management"
	statusCmd.GroupID = "management"
	versionCmd.GroupID = "management"
	passwdCmd.GroupID = "management"
	resetCmd.GroupID = "management"
	configCmd.GroupID = "management"
	keyringCmd.GroupID = "management"

	// Transfer commands
	backupCmd.GroupID = "transfer"
	csvCmd.GroupID = "transfer"

	// Add subcommands
	rootCmd.AddCommand(addCmd, listCmd, codeCmd, pickCmd, renameCmd, deleteCmd, qrCmd)
	rootCmd.AddCommand(initCmd, statusCmd, versionCmd, passwdCmd, resetCmd, configCmd, keyringCmd)
	rootCmd.AddCommand(backupCmd, csvCmd)
}

// initializeGlobals loads the configuration, applies flag overrides and sets
// up logging and the clipboard. The session is built on first use.
func initializeGlobals(cmd *cobra.Command) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("accounts") {
		loaded.AccountsFile = accountsPath
	}
	if cmd.Flags().Changed("format") {
		loaded.StorageFormat = strings.ToLower(storageFormat)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger = newLogger(cfg.LogLevel, verbose)

	if clipboard.IsSupported() {
		clipboardMgr = clipboard.NewManager(clipboard.SystemBackend{}, cfg.ClipboardClear(), logger)
	}

	printVerbose("Config path: %s", configPath)
	printVerbose("Accounts file: %s", cfg.AccountsFile)
	printVerbose("Clipboard enabled: %t", clipboardMgr != nil)
	return nil
}

// newLogger builds the process logger. Output goes to stderr so codes on
// stdout stay pipeable.
func newLogger(level string, debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.WarnLevel
	}
	if debug {
		parsed = logrus.DebugLevel
	}
	l.SetLevel(parsed)
	return l
}

// openSession wires the commitment store, vault, accounts file and session
func openSession() (*session.Manager, error) {
	if sessionMgr != nil {
		return sessionMgr, nil
	}

	cs, err := vault.OpenStore(cfg.MasterStore, cfg.Organization, cfg.Application, cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	commitStore = cs

	masterVault = vault.New(cs, logger)
	accountStore = store.New(cfg.AccountsFile,
		store.WithFormat(cfg.Format()),
		store.WithLogger(logger),
	)

	sessionMgr = session.NewManager(masterVault, accountStore,
		session.WithAutoLock(cfg.AutoLock()),
		session.WithLogger(logger),
	)
	printVerbose("Master password store: %s", masterVault.Backend())
	return sessionMgr, nil
}

// ensureUnlocked returns the account registry, prompting for the master
// password if needed. On first run the user chooses one.
func ensureUnlocked() (*registry.Registry, error) {
	mgr, err := openSession()
	if err != nil {
		return nil, err
	}
	if reg, err := mgr.Registry(); err == nil {
		return reg, nil
	}

	initialized, err := mgr.IsInitialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		fmt.Fprintln(os.Stderr, "No master password is set yet.")
		password, err := promptNewPassword("Choose a master password: ")
		if err != nil {
			return nil, err
		}
		if err := mgr.Initialize(password); err != nil {
			return nil, err
		}
		return mgr.Registry()
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		password, err := promptPassword("Enter master password: ")
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}

		err = mgr.Unlock(password)
		if err == nil {
			return mgr.Registry()
		}
		if !errors.Is(err, session.ErrWrongPassword) {
			return nil, err
		}
		if left := attempts - attempt; left > 0 {
			fmt.Fprintf(os.Stderr, "Incorrect password, %d attempt(s) left\n", left)
		}
	}
	return nil, session.ErrWrongPassword
}

// promptPassword prompts the user for a password with hidden input. Piped
// input is read line by line.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine()
	}

	// Read password without echoing to terminal
	passwordBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Print newline after password input

	if err != nil {
		return "", err
	}

	return string(passwordBytes), nil
}

// promptNewPassword asks twice and requires both entries to match
func promptNewPassword(prompt string) (string, error) {
	password, err := promptPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", vault.ErrEmptyPassword
	}

	confirmation, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if confirmation != password {
		return "", errPasswordMismatch
	}
	return password, nil
}

var errPasswordMismatch = errors.New("passwords do not match")

// readLine reads one line from stdin without the line ending
func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question; anything but y/yes is no. --force answers yes.
func confirm(prompt string) bool {
	if force {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s (y/N): ", prompt)
	response, err := readLine()
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	switch {
	case errors.Is(err, store.ErrAuthenticationFailed), errors.Is(err, session.ErrWrongPassword):
		return 2
	case errors.Is(err, store.ErrMalformedData):
		return 3
	case errors.Is(err, registry.ErrIndexOutOfRange), errors.Is(err, errNoMatch):
		return 4
	case errors.Is(err, session.ErrSessionExpired):
		return 5
	default:
		return 1
	}
}

// handleError handles errors with appropriate output and exit codes
func handleError(err error, message string) {
	if err == nil {
		return
	}

	if message != "" {
		fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	if sessionMgr != nil {
		sessionMgr.Lock()
	}
	os.Exit(exitCode(err))
}

// printVerbose prints verbose output if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if logger != nil {
		logger.Debugf(format, args...)
	}
}

