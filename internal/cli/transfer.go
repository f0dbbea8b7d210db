package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/backup"
	"github.com/virex/go/internal/fsutil"
	"github.com/virex/go/internal/registry"
)

// backupCmd groups encrypted backup operations
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import an encrypted backup",
	Long: `Encrypted backups hold every account under a backup password that is
independent of the master password. The file format follows --format.`,
}

var backupExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all accounts to an encrypted backup",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		accounts := reg.Accounts()
		if len(accounts) == 0 {
			handleError(backup.ErrNoAccounts, "")
			return
		}
		if !confirmOverwrite(args[0]) {
			return
		}

		password, err := promptNewPassword("Backup password: ")
		if err != nil {
			handleError(err, "")
			return
		}

		if err := backup.ExportFile(args[0], accounts, password, cfg.Format()); err != nil {
			handleError(err, "Failed to export backup")
			return
		}
		fmt.Printf("Exported %d accounts to %s\n", len(accounts), args[0])
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the accounts of an encrypted backup",
	Long: `Decrypt a backup and append its accounts. Entries that fail validation
are skipped and counted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		password, err := promptPassword("Backup password: ")
		if err != nil {
			handleError(err, "Failed to read password")
			return
		}

		accounts, err := backup.ImportFile(args[0], password)
		if err != nil {
			handleError(err, "Failed to import backup")
			return
		}
		importAccounts(reg, accounts, args[0])
	},
}

// csvCmd groups plaintext CSV operations
var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export or import plaintext CSV",
	Long: `CSV files have two columns, name and secret or otpauth:// URI, and no
header. They are NOT encrypted.`,
}

var csvExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all accounts to a plaintext CSV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		accounts := reg.Accounts()
		if len(accounts) == 0 {
			handleError(backup.ErrNoAccounts, "")
			return
		}
		if !confirm("CSV exports contain every secret in plain text. Continue?") {
			fmt.Println("Cancelled")
			return
		}
		if !confirmOverwrite(args[0]) {
			return
		}

		if err := backup.ExportCSVFile(args[0], accounts); err != nil {
			handleError(err, "Failed to export CSV")
			return
		}
		fmt.Printf("Exported %d accounts to %s\n", len(accounts), args[0])
	},
}

var csvImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the accounts of a plaintext CSV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := ensureUnlocked()
		if err != nil {
			handleError(err, "Authentication failed")
			return
		}

		accounts, err := backup.ImportCSVFile(args[0])
		if err != nil {
			handleError(err, "Failed to import CSV")
			return
		}
		importAccounts(reg, accounts, args[0])
	},
}

func init() {
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
	csvCmd.AddCommand(csvExportCmd, csvImportCmd)
}

// importAccounts appends accounts and reports the counts
func importAccounts(reg *registry.Registry, accounts []account.Account, source string) {
	if len(accounts) == 0 {
		fmt.Printf("No accounts found in %s\n", source)
		return
	}

	result, err := reg.ImportMany(accounts)
	if err != nil {
		handleError(err, "Failed to save imported accounts")
		return
	}

	fmt.Printf("Imported %d accounts from %s", result.Added, source)
	if result.Skipped > 0 {
		fmt.Printf(" (%d invalid entries skipped)", result.Skipped)
	}
	fmt.Println()
}

// confirmOverwrite asks before replacing an existing file
func confirmOverwrite(path string) bool {
	if !fsutil.Exists(path) {
		return true
	}
	if confirm(fmt.Sprintf("%s exists. Overwrite?", path)) {
		return true
	}
	fmt.Fprintln(os.Stderr, "Cancelled")
	return false
}
