package clipboard

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Backend reads and writes the clipboard
type Backend interface {
	Write(text string) error
	Read() (string, error)
	Name() string
}

// SystemBackend drives the platform clipboard through pbcopy/pbpaste, xclip
// or xsel, and PowerShell
type SystemBackend struct{}

// Name returns the platform tool in use
func (SystemBackend) Name() string {
	switch runtime.GOOS {
	case "darwin":
		return "pbcopy"
	case "linux":
		if isCommandAvailable("xclip") {
			return "xclip"
		}
		return "xsel"
	case "windows":
		return "powershell"
	default:
		return "unsupported"
	}
}

// Write copies text to the system clipboard (platform-specific)
func (SystemBackend) Write(text string) error {
	switch runtime.GOOS {
	case "darwin":
		return pipeTo(text, "pbcopy")
	case "linux":
		// Try xclip first
		if err := pipeTo(text, "xclip", "-selection", "clipboard"); err == nil {
			return nil
		}
		return pipeTo(text, "xsel", "--clipboard", "--input")
	case "windows":
		return exec.Command("powershell", "-command", "Set-Clipboard", "-Value", text).Run()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Read gets text from the system clipboard (platform-specific)
func (SystemBackend) Read() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return output("pbpaste")
	case "linux":
		// Try xclip first
		if out, err := output("xclip", "-selection", "clipboard", "-output"); err == nil {
			return out, nil
		}
		return output("xsel", "--clipboard", "--output")
	case "windows":
		out, err := output("powershell", "-command", "Get-Clipboard")
		// Get-Clipboard appends a line break
		return strings.TrimRight(out, "\r\n"), err
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// pipeTo runs a command with text on its stdin
func pipeTo(text, name string, args ...string) error {
	cmd := exec.Command(name, args...)

	// Use a pipe to send the text
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return err
	}

	_, err = stdin.Write([]byte(text))
	stdin.Close()

	if err != nil {
		cmd.Wait()
		return err
	}

	return cmd.Wait()
}

func output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsSupported returns true if clipboard operations are supported on this platform
func IsSupported() bool {
	switch runtime.GOOS {
	case "darwin":
		return isCommandAvailable("pbcopy") && isCommandAvailable("pbpaste")
	case "linux":
		return isCommandAvailable("xclip") || isCommandAvailable("xsel")
	case "windows":
		return isCommandAvailable("powershell")
	default:
		return false
	}
}

// isCommandAvailable checks if a command is available in PATH
func isCommandAvailable(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
