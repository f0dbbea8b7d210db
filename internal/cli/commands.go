package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/clipboard"
	"github.com/virex/go/internal/config"
	"github.com/virex/go/internal/fsutil"
	"github.com/virex/go/internal/keyring"
	"github.com/virex/go/internal/otp"
	"github.com/virex/go/internal/registry"
	"github.com/virex/go/internal/search"
	"github.com/virex/go/internal/store"
)

// errNoMatch is returned when no account matches a pattern
var errNoMatch = errors.New("no account matches")

// initCmd represents the init command for choosing the master password
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set the master password",
	Long: `Choose the master password on first run. If an accounts file already
exists it must open with the password you choose.

Examples:
  virex init
  virex init --format sealed     # Write the accounts file in the salted format`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		mgr, err := openSession()
		if err != nil {
			handleError(err, "Failed to open vault")
			return
		}

		initialized, err := mgr.IsInitialized()
		if err != nil {
			handleError(err, "Failed to read master password store")
			return
		}
		if initialized {
			fmt.Println("Master password is already set. Use 'virex passwd' to change it.")
			return
		}

		password, err := promptNewPassword("Enter new master password: ")
		if err != nil {
			handleError(err, "")
			return
		}

		if err := mgr.Initialize(password); err != nil {
			if errors.Is(err, store.ErrAuthenticationFailed) {
				handleError(err, fmt.Sprintf("The existing file %s does not open with this password", cfg.AccountsFile))
				return
			}
			handleError(err, "Failed to initialize vault")
			return
		}

		reg, _ := mgr.Registry()
		count := 0
		if reg != nil {
			count = reg.Len()
		}
		fmt.Printf("Master password set (%d accounts in %s)\n", count, cfg.AccountsFile)
	},
}

// passwdCmd re-encrypts the accounts under a new master password
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	Long: `Verify the current master password, re-encrypt the accounts file under
the new one and then replace the stored commitment.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		mgr, err := openSession()
		if err != nil {
			handleError(err, "Failed to open vault")
			return
		}

		current, err := promptPassword("Current master password: ")
		if err != nil {
			handleError(err, "Failed to read password")
			return
		}
		if err := mgr.Unlock(current); err != nil {
			handleError(err, "Authentication failed")
			return
		}

		next, err := promptNewPassword("New master password: ")
		if err != nil {
			handleError(err, "")
			return
		}

		if err := mgr.ChangeMasterPassword(current, next); err != nil {
			handleError(err, "Failed to change master password")
			return
		}
		fmt.Println("Master password changed")
	},
}

// resetCmd removes every account and restores default preferences
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all accounts and restore default preferences",
	Long: `Remove every account from the vault and restore the default preferences.
With --forget-master the master password is cleared as well and the next run
asks for a new one.

Examples:
  virex reset
  virex reset --forget-master -f`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := ensureUnlocked(); err != nil {
			handleError(err, "Authentication failed")
			return
		}

		if !confirm("Delete ALL accounts and restore default preferences?") {
			fmt.Println("Cancelled")
			return
		}

		forgetMaster, _ := cmd.Flags().GetBool("forget-master")
		if err := sessionMgr.Reset(forgetMaster); err != nil {
			handleError(err, "Failed to reset accounts")
			return
		}

		if err := updateConfigFile(func(c *config.Config) error {
			c.ResetPreferences()
			return nil
		}); err != nil {
			handleError(err, "Failed to reset preferences")
			return
		}

		fmt.Println("All accounts deleted and preferences restored")
		if forgetMaster {
			fmt.Println("Master password cleared")
		}
	},
}

// listCmd represents the list/search command for showing accounts
var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List accounts with their current codes",
	Long: `List all accounts, or only those whose account or user label contains
the pattern. Codes follow the otp_display_mode preference unless --show is given.

Examples:
  virex list
  virex list github
  virex list --show`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		entries := search.Entries(reg.Accounts())
		if len(entries) == 0 {
			fmt.Println("No accounts stored in vault")
			return
		}

		if len(args) > 0 {
			entries = search.Filter(args[0], entries)
			if len(entries) == 0 {
				fmt.Printf("No accounts match '%s'\n", args[0])
				return
			}
		}

		show, _ := cmd.Flags().GetBool("show")
		printAccounts(entries, !show && cfg.HideCodes(), time.Now())
	},
}

// codeCmd copies or prints the current code of one account
var codeCmd = &cobra.Command{
	Use:   "code [index|pattern]",
	Short: "Copy the current code of an account",
	Long: `Generate the current code of an account, chosen by its list index or by
the best fuzzy match, and copy it to the clipboard. Without an argument the
interactive picker opens.

The command waits until the clipboard is cleared when clipboard_clear_timeout
is set; Ctrl-C or --no-wait skip the wait.

Examples:
  virex code 2
  virex code github
  virex code github --print     # Print instead of copying`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			runPicker(cmd)
			return
		}

		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		index, acc, err := resolveAccount(reg, args[0])
		if err != nil {
			handleError(err, "")
			return
		}

		code, err := otp.Generate(acc, time.Now())
		if err != nil {
			handleError(err, fmt.Sprintf("Account %d (%s)", index+1, acc.Name))
			return
		}

		printOnly, _ := cmd.Flags().GetBool("print")
		if printOnly || clipboardMgr == nil {
			fmt.Println(code.Value)
			return
		}

		if err := clipboardMgr.Copy(code.Value); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			fmt.Println(code.Value)
			return
		}

		label, _ := acc.Labels()
		fmt.Printf("Copied code for %s (valid for %ds)\n", label, secondsLeft(code.Remaining))
		waitForClipboard(cmd)
	},
}

// pickCmd runs the interactive picker
var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Browse accounts with live codes",
	Long: `Open an interactive list of accounts with live codes. Type to search,
Enter copies the selected code, Tab shows or hides codes, Esc quits.
The picker locks after auto_lock_timeout minutes without a key press.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runPicker(cmd)
	},
}

// runPicker shows the picker until the user quits, unlocking again after an
// idle lock
func runPicker(cmd *cobra.Command) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		handleError(errors.New("the picker needs a terminal; pass an index or pattern"), "")
		return
	}

	copied := false
	for {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		result, err := search.RunPicker(search.PickerOptions{
			Accounts:  reg.Accounts,
			Copy:      copyToClipboard,
			Touch:     sessionMgr.Touch,
			Expired:   sessionMgr.LockIfExpired,
			HideCodes: cfg.HideCodes(),
			Theme:     cfg.Theme,
		})
		if err != nil {
			handleError(err, "Picker failed")
			return
		}
		copied = copied || result.Copied

		if !result.Locked {
			break
		}
		fmt.Fprintln(os.Stderr, "Locked after inactivity.")
	}

	if copied {
		waitForClipboard(cmd)
	}
}

func copyToClipboard(code string) error {
	if clipboardMgr == nil {
		return errors.New("clipboard not available")
	}
	return clipboardMgr.Copy(code)
}

// waitForClipboard blocks until the scheduled clear ran, unless --no-wait
func waitForClipboard(cmd *cobra.Command) {
	if clipboardMgr == nil || !clipboardMgr.Pending() {
		return
	}

	noWait, _ := cmd.Flags().GetBool("no-wait")
	if noWait {
		fmt.Fprintln(os.Stderr, "Warning: the clipboard will not be cleared after this process exits")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Clearing clipboard in %v (Ctrl-C to skip)...\n", clipboardMgr.ClearDelay())
	if err := clipboardMgr.WaitForClear(ctx); err != nil {
		// Interrupted: clear now rather than leave the code behind
		if err := clipboardMgr.Clear(); err != nil {
			printVerbose("Failed to clear clipboard: %v", err)
		}
		return
	}
	fmt.Fprintln(os.Stderr, "Clipboard cleared")
}

// renameCmd changes an account's display name
var renameCmd = &cobra.Command{
	Use:   "rename <index|pattern> <new-name>",
	Short: "Rename an account",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		index, acc, err := resolveAccount(reg, args[0])
		if err != nil {
			handleError(err, "")
			return
		}

		if err := reg.Rename(index, args[1]); err != nil {
			handleError(err, fmt.Sprintf("Failed to rename account '%s'", acc.Name))
			return
		}
		fmt.Printf("Account '%s' renamed to '%s'\n", acc.Name, strings.TrimSpace(args[1]))
	},
}

// deleteCmd represents the delete command for removing accounts
var deleteCmd = &cobra.Command{
	Use:   "delete <index|pattern>",
	Short: "Delete an account",
	Long: `Permanently delete an account from the vault.

Examples:
  virex delete 3
  virex delete -f github    # Force delete without confirmation`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		index, acc, err := resolveAccount(reg, args[0])
		if err != nil {
			handleError(err, "")
			return
		}

		if !confirm(fmt.Sprintf("Are you sure you want to delete account '%s'?", acc.Name)) {
			fmt.Println("Cancelled")
			return
		}

		if err := reg.Delete(index); err != nil {
			handleError(err, fmt.Sprintf("Failed to delete account '%s'", acc.Name))
			return
		}
		fmt.Printf("Account '%s' deleted successfully\n", acc.Name)
	},
}

// qrCmd renders an account as a QR code for a phone authenticator
var qrCmd = &cobra.Command{
	Use:   "qr <index|pattern>",
	Short: "Show an account as a QR code",
	Long: `Render the account's otpauth:// URI as a QR code in the terminal, or as a
PNG file with --png. Secret accounts get a URI built from their name.

Examples:
  virex qr 1
  virex qr github --png github.png`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		_, acc, err := resolveAccount(reg, args[0])
		if err != nil {
			handleError(err, "")
			return
		}

		pngPath, _ := cmd.Flags().GetString("png")
		if pngPath == "" {
			text, err := otp.QRText(acc)
			if err != nil {
				handleError(err, "Failed to render QR code")
				return
			}
			fmt.Print(text)
			return
		}

		if fsutil.Exists(pngPath) && !confirm(fmt.Sprintf("%s exists. Overwrite?", pngPath)) {
			fmt.Println("Cancelled")
			return
		}

		size, _ := cmd.Flags().GetInt("size")
		png, err := otp.QRPNG(acc, size)
		if err != nil {
			handleError(err, "Failed to render QR code")
			return
		}
		if err := fsutil.WriteFileAtomic(pngPath, png, 0o600); err != nil {
			handleError(store.NewError("write_qr", err), "")
			return
		}
		fmt.Printf("QR code for '%s' written to %s\n", acc.Name, pngPath)
	},
}

// statusCmd represents the status command for showing vault info
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault and session status",
	Long: `Display information about the accounts file, the master password store,
the preferences and system capabilities. Does not ask for the master password.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		mgr, err := openSession()
		if err != nil {
			handleError(err, "Failed to open vault")
			return
		}

		fmt.Printf("Vault Status:\n")
		fmt.Printf("  Accounts file: %s\n", accountStore.Path())
		if accountStore.Exists() {
			fmt.Printf("  File: Present\n")
		} else {
			fmt.Printf("  File: Not created yet\n")
		}
		fmt.Printf("  Storage format: %s\n", accountStore.Format())
		fmt.Printf("  Master password store: %s\n", masterVault.Backend())

		initialized, err := mgr.IsInitialized()
		switch {
		case err != nil:
			fmt.Printf("  Master password: unknown (%v)\n", err)
		case initialized:
			fmt.Printf("  Master password: Set\n")
		default:
			fmt.Printf("  Master password: Not set (run 'virex init')\n")
		}

		fmt.Printf("\nSession:\n")
		if info := mgr.Info(); info.AutoLock > 0 {
			fmt.Printf("  Auto-lock: after %v idle\n", info.AutoLock)
		} else {
			fmt.Printf("  Auto-lock: disabled\n")
		}
		fmt.Printf("  Code display: %s\n", cfg.OTPDisplayMode)
		fmt.Printf("  Theme: %s\n", cfg.Theme)

		// Clipboard status
		fmt.Printf("\nClipboard Status:\n")
		if clipboardMgr != nil {
			status := clipboardMgr.GetStatus()
			fmt.Printf("  Supported: %v\n", status.Supported)
			fmt.Printf("  Backend: %s\n", status.Backend)
			fmt.Printf("  Auto-clear: %v\n", status.AutoClear)
			fmt.Printf("  Clear delay: %v\n", status.ClearDelay)
		} else {
			fmt.Printf("  Supported: %v\n", clipboard.IsSupported())
		}

		// System info
		fmt.Printf("\nSystem Info:\n")
		fmt.Printf("  Verbose mode: %v\n", verbose)
		fmt.Printf("  Config path: %s\n", configPath)

		if verbose {
			if km, ok := commitStore.(*keyring.Manager); ok {
				fmt.Println()
				km.WriteDebugInfo(os.Stdout)
			}
		}
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version information for the Virex CLI.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("virex version %s\n", getVersion())
		if getCommit() != "unknown" {
			fmt.Printf("commit: %s\n", getCommit())
		}
		if getBuildTime() != "unknown" {
			fmt.Printf("built: %s\n", getBuildTime())
		}
	},
}

// Command flag initialization
func init() {
	resetCmd.Flags().Bool("forget-master", false, "Also clear the master password")

	listCmd.Flags().Bool("show", false, "Show codes even when otp_display_mode is hide")

	codeCmd.Flags().Bool("print", false, "Print the code instead of copying it")
	codeCmd.Flags().Bool("no-wait", false, "Exit without waiting for the clipboard to be cleared")
	pickCmd.Flags().Bool("no-wait", false, "Exit without waiting for the clipboard to be cleared")

	qrCmd.Flags().String("png", "", "Write a PNG image to this path instead of printing")
	qrCmd.Flags().Int("size", otp.DefaultQRSize, "PNG size in pixels")
}

// resolveAccount finds an account by 1-based list index or best fuzzy match
func resolveAccount(reg *registry.Registry, arg string) (int, account.Account, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		acc, err := reg.Get(n - 1)
		if err != nil {
			return 0, account.Account{}, fmt.Errorf("no account #%d (have %d): %w", n, reg.Len(), registry.ErrIndexOutOfRange)
		}
		return n - 1, acc, nil
	}

	match, ok := search.NewEngine().Best(arg, search.Entries(reg.Accounts()))
	if !ok {
		return 0, account.Account{}, fmt.Errorf("%w '%s'", errNoMatch, arg)
	}
	printVerbose("Matched '%s' to %s (score %.1f)", arg, match.Entry.Label, match.Score)
	return match.Entry.Index, match.Entry.Account, nil
}

// printAccounts prints one line per account: index, labels, code, countdown
func printAccounts(entries []search.Entry, hidden bool, now time.Time) {
	fmt.Printf("%-4s %-24s %-28s %-9s %s\n", "#", "ACCOUNT", "USER", "CODE", "LEFT")
	for _, entry := range entries {
		code, err := otp.Generate(entry.Account, now)

		var value, left string
		switch {
		case err != nil:
			value = search.InvalidCodeText
		case hidden:
			value = code.Masked()
		default:
			value = code.Grouped()
			left = fmt.Sprintf("%ds", secondsLeft(code.Remaining))
		}

		fmt.Printf("%-4d %-24s %-28s %-9s %s\n",
			entry.Index+1,
			truncateString(entry.Label, 24),
			truncateString(entry.User, 28),
			value,
			left)
	}
	fmt.Printf("\nTotal: %d accounts\n", len(entries))
}

// secondsLeft rounds a validity window up to whole seconds
func secondsLeft(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length-3]) + "..."
}

// Version information functions (these would be set by build flags)
var (
	versionInfo = struct {
		version string
		commit  string
		date    string
	}{
		version: "dev",
		commit:  "unknown",
		date:    "unknown",
	}
)

func getVersion() string {
	return versionInfo.version
}

func getBuildTime() string {
	return versionInfo.date
}

func getCommit() string {
	return versionInfo.commit
}

