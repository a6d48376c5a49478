package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/activation"
	"github.com/mj1618/desktop-switch/internal/config"
	"github.com/mj1618/desktop-switch/internal/logging"
	"github.com/mj1618/desktop-switch/internal/matcher"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// core is the platform provider plus the components built on it.
type core struct {
	provider   *platform.Provider
	enumerator *matcher.Enumerator
	engine     *activation.Engine
	// exclude holds PIDs removed from enumeration on top of the config.
	exclude []int
}

// currentConfig returns the configuration loaded by the root command, or the
// defaults when a command runs without it (tests).
func currentConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return config.DefaultConfig()
}

// logger returns the process logger tagged with component.
func logger(component string) *slog.Logger {
	return logging.Default().WithComponent(component)
}

// newCore creates the platform provider and wires the enumerator and the
// activation engine to cfg. Windows of the exclude PIDs are never listed.
func newCore(cfg *config.Config, exclude ...int) (*core, error) {
	provider, err := platform.NewProvider()
	if err != nil {
		return nil, err
	}
	return newCoreWith(provider, cfg, exclude...), nil
}

func newCoreWith(provider *platform.Provider, cfg *config.Config, exclude ...int) *core {
	return &core{
		provider:   provider,
		enumerator: matcher.NewEnumerator(provider, cfg.MatcherOptions(os.Getpid(), exclude...), logger("matcher")),
		engine:     activation.NewEngine(provider, cfg.ActivationOptions(), logger("activation")),
		exclude:    exclude,
	}
}

func addExcludeFlag(cmd *cobra.Command) {
	cmd.Flags().IntSlice("exclude-pid", nil, "Hide the windows of these process IDs (repeatable or comma-separated)")
}

func excludedPIDs(cmd *cobra.Command) []int {
	pids, _ := cmd.Flags().GetIntSlice("exclude-pid")
	return pids
}

// requirePermission fails fast with instructions when accessibility permission
// is missing.
func requirePermission(p *platform.Provider) error {
	if p.Permission == nil || p.Permission.HasPermission() {
		return nil
	}
	return fmt.Errorf("accessibility permission required: grant it in System Settings > Privacy & Security > Accessibility, or run `desktop-switch permissions --prompt`")
}
