package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virex/go/internal/keyring"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Inspect keyring integration",
	Long: `Inspect the system keyring that holds the master password commitment
when master_store is auto or keyring.`,
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show keyring status",
	Long:  `Display the keyring service and whether a commitment is stored there.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		km := keyring.NewManager(cfg.Organization, cfg.Application)
		km.WriteDebugInfo(os.Stdout)
		fmt.Printf("  Configured store: %s\n", cfg.MasterStore)
	},
}

var keyringClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the master password commitment from the keyring",
	Long: `Remove the stored commitment from the system keyring. The accounts file
is kept; the next run asks for a master password, which must be the one the
file was encrypted with.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		km := keyring.NewManager(cfg.Organization, cfg.Application)

		if !km.Has() {
			fmt.Println("No commitment stored in keyring")
			return
		}

		if !confirm("Remove the master password commitment from the keyring?") {
			fmt.Println("Cancelled")
			return
		}

		if err := km.Clear(); err != nil {
			handleError(err, "Failed to remove commitment from keyring")
			return
		}

		fmt.Println("Commitment removed from keyring")
	},
}

func init() {
	keyringCmd.AddCommand(keyringStatusCmd, keyringClearCmd)
}
