package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/virex/go/internal/config"
)

// configCmd manages the preferences file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change preferences",
	Long: `Show or change the settings in the configuration file.

Keys:
  auto_lock_timeout         minutes without activity before locking, 0-120 (0 = never)
  clipboard_clear_timeout   seconds before a copied code is cleared, 0-120 (0 = never)
  otp_display_mode          show or hide
  theme                     system, light or dark
  accounts_file             path of the encrypted accounts file
  storage_format            fernet or sealed
  master_store              auto, keyring or file
  log_level                 logrus level name

Environment variables VIREX_<KEY> override the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			handleError(err, "Failed to render configuration")
			return
		}
		fmt.Printf("# %s\n%s", configPath, out)
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change one setting",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	Run: func(cmd *cobra.Command, args []string) {
		key := strings.ToLower(args[0])
		if err := updateConfigFile(func(c *config.Config) error {
			return c.Set(key, args[1])
		}); err != nil {
			handleError(err, fmt.Sprintf("Failed to set %s", key))
			return
		}
		fmt.Printf("%s = %s\n", key, strings.TrimSpace(args[1]))
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default preferences",
	Long:  `Restore the four preferences to their defaults. Paths and backends are kept.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := updateConfigFile(func(c *config.Config) error {
			c.ResetPreferences()
			return nil
		}); err != nil {
			handleError(err, "Failed to reset preferences")
			return
		}
		fmt.Println("Preferences restored to defaults")
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
}

// updateConfigFile applies change to the file at configPath and writes it
// back. Environment and flag overrides are not part of what is saved.
func updateConfigFile(change func(c *config.Config) error) error {
	fileCfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := change(&fileCfg); err != nil {
		return err
	}
	if err := fileCfg.Save(configPath); err != nil {
		return err
	}
	printVerbose("Configuration written to %s", configPath)
	return nil
}
