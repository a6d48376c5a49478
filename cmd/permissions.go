package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// PermissionResult is the output of the permissions command.
type PermissionResult struct {
	Granted  bool   `yaml:"granted"        json:"granted"`
	Prompted bool   `yaml:"prompted"       json:"prompted"`
	Hint     string `yaml:"hint,omitempty" json:"hint,omitempty"`
}

const permissionHint = "System Settings > Privacy & Security > Accessibility: enable the terminal or binary running desktop-switch"

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Check the accessibility permission",
	Long: `Report whether the process holds the accessibility permission required to
read window titles, raise windows and intercept the hotkey.`,
	RunE: runPermissions,
}

func init() {
	rootCmd.AddCommand(permissionsCmd)
	permissionsCmd.Flags().Bool("prompt", false, "Show the system permission prompt when missing")
}

func runPermissions(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	prompt, _ := cmd.Flags().GetBool("prompt")
	return output.Print(checkPermission(provider.Permission, prompt))
}

func checkPermission(gate platform.PermissionGate, prompt bool) PermissionResult {
	var result PermissionResult
	if gate == nil {
		result.Hint = platform.ErrUnsupported.Error()
		return result
	}
	result.Granted = gate.HasPermission()
	if !result.Granted && prompt {
		result.Prompted = true
		result.Granted = gate.RequestPermission()
	}
	if !result.Granted {
		result.Hint = permissionHint
	}
	return result
}
