package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List switchable windows front to back",
	Long: `Enumerate windows exactly as the switcher does when it opens: on-screen
windows of regular apps, matched to their accessibility titles, deduplicated
and ordered front to back.

Examples:
  desktop-switch list
  desktop-switch list --format json --pretty
  desktop-switch list --png layout.png`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("png", "", "Also render the window layout to this PNG file")
	listCmd.Flags().Int("width", 0, "Width in pixels of the PNG layout (default 1600)")
	listCmd.Flags().Bool("pretty", false, "Pretty-print output (no-op for YAML)")
	addExcludeFlag(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	c, err := newCore(currentConfig(), excludedPIDs(cmd)...)
	if err != nil {
		return err
	}
	if err := requirePermission(c.provider); err != nil {
		return err
	}

	windows := c.enumerator.Snapshot()

	if path, _ := cmd.Flags().GetString("png"); path != "" {
		width, _ := cmd.Flags().GetInt("width")
		if err := writeLayout(path, windows, width); err != nil {
			return err
		}
	}
	return output.Print(output.NewListResult(time.Now().Unix(), windows))
}

func writeLayout(path string, windows []model.WindowRecord, width int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := output.EncodePNG(f, windows, width); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
