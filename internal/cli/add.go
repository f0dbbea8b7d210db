package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/virex/go/internal/account"
	"github.com/virex/go/internal/otp"
)

// addCmd groups the ways of adding an account
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	Long: `Add an account from a Base32 secret, an otpauth:// key URI, or the text
decoded from a QR code. When the value is not given as an argument it is read
with hidden input.

Examples:
  virex add secret GitHub                      # Prompt for the secret
  virex add uri Work 'otpauth://totp/...'      # URI on the command line
  virex add qr-text Bank                       # Paste what a QR scanner decoded`,
}

var addSecretCmd = &cobra.Command{
	Use:   "secret <name> [secret]",
	Short: "Add an account from a Base32 secret",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runAdd(args, "Enter Base32 secret: ", account.NewSecret)
	},
}

var addURICmd = &cobra.Command{
	Use:   "uri <name> [otpauth-uri]",
	Short: "Add an account from an otpauth:// key URI",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runAdd(args, "Enter otpauth:// URI: ", account.NewKeyURI)
	},
}

var addQRTextCmd = &cobra.Command{
	Use:   "qr-text <name> [text]",
	Short: "Add an account from decoded QR code text",
	Long: `Add an account from the text a QR scanner decoded. Text starting with
otpauth:// is stored as a key URI, anything else as a Base32 secret.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		runAdd(args, "Enter decoded QR text: ", account.FromText)
	},
}

func init() {
	addCmd.AddCommand(addSecretCmd, addURICmd, addQRTextCmd)
}

// runAdd builds, validates and stores one account
func runAdd(args []string, prompt string, build func(name, value string) account.Account) {
	reg, err := ensureUnlocked()
	if err != nil {
		handleError(err, "Authentication failed")
		return
	}

	var value string
	if len(args) > 1 {
		value = args[1]
	} else {
		value, err = promptPassword(prompt)
		if err != nil {
			handleError(err, "Failed to read value")
			return
		}
	}

	acc := build(args[0], strings.TrimSpace(value))

	// Key URIs must also be usable for code generation
	if acc.Credential.Kind() == account.KindKeyURI {
		if err := otp.ValidateKeyURI(acc.KeyURI()); err != nil {
			handleError(err, "Invalid key URI")
			return
		}
	}

	if err := reg.Add(acc); err != nil {
		handleError(err, "Failed to add account")
		return
	}

	label, user := acc.Labels()
	if user != "" {
		label = fmt.Sprintf("%s (%s)", label, user)
	}
	fmt.Printf("Account '%s' added as #%d: %s\n", strings.TrimSpace(acc.Name), reg.Len(), label)
}
