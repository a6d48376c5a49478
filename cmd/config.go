package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/config"
	"github.com/mj1618/desktop-switch/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration as TOML",
	Long: `Write the default configuration to the config file (or --config) so it can
be edited. An existing file is kept unless --force is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Print(currentConfig())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	path := configPath()
	if err := initConfig(path, force); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func initConfig(path string, force bool) error {
	if ext := filepath.Ext(path); ext != ".toml" {
		return fmt.Errorf("config init writes TOML; %s has extension %q", path, ext)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return config.Save(config.DefaultConfig(), path)
}
