package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/config"
	"github.com/mj1618/desktop-switch/internal/logging"
	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "desktop-switch",
	Short: "Keyboard-driven window switcher for macOS",
	Long: `A window switcher that cycles through individual windows, not apps,
in front-to-back order while a modifier is held.

Run "desktop-switch run" to install the global hotkey. The other commands
inspect what the switcher sees and are useful for diagnosing permissions
and window matching.`,
	SilenceUsage: true,
}

// appConfig is the configuration loaded by the root command before any
// subcommand runs.
var appConfig *config.Config

var appLogger *logging.Logger

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().String("config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return fmt.Errorf("%w (use yaml or json)", err)
		}
		output.OutputFormat = f
		if prettyFlag := cmd.Flags().Lookup("pretty"); prettyFlag != nil {
			if pretty, err := cmd.Flags().GetBool("pretty"); err == nil && pretty {
				output.PrettyOutput = true
			}
		}

		cfg, err := config.Load(configPath())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			if _, err := logging.ParseLevel(level); err != nil {
				return err
			}
			cfg.Logging.Level = level
		}
		appConfig = cfg

		logger, err := logging.New(cfg.LoggerConfig())
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		logging.SetDefault(logger)
		appLogger = logger
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if appLogger != nil {
			return appLogger.Close()
		}
		return nil
	}
}

// configPath returns the --config value, or the default location.
func configPath() string {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	if path == "" {
		path = config.Path()
	}
	return path
}
