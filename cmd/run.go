package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/config"
	"github.com/mj1618/desktop-switch/internal/hotkey"
	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Install the global hotkey and run the switcher",
	Long: `Install the global keyboard hook and run the switcher until interrupted.

Press the open chord (alt+tab by default) to snapshot the windows, keep
pressing it to move through them, and release the modifier to switch.
Escape cancels. The config file is watched and bindings are reloaded
without a restart.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("print-state", false, "Print every session state change to stdout")
	runCmd.Flags().Bool("no-watch", false, "Do not reload the config file when it changes")
	addExcludeFlag(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger("run")

	cfg := currentConfig()
	bindings, err := cfg.ResolveBindings()
	if err != nil {
		return err
	}
	c, err := newCore(cfg, excludedPIDs(cmd)...)
	if err != nil {
		return err
	}

	owner := session.NewOwner(c.enumerator, c.engine,
		session.WithLogger(logger("session")),
		session.WithCommitHook(func(r session.CommitResult) {
			log.Info("switched",
				"session", r.SessionID,
				"pid", r.Record.PID,
				"title", r.Record.Title,
				"outcome", r.Outcome.String())
		}),
	)
	interceptor := hotkey.NewInterceptor(c.provider.EventTap, bindings, owner, logger("hotkey"))

	if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
		loader := config.NewLoader(configPath())
		loader.OnChange(func(next *config.Config) {
			applyConfig(next, interceptor, owner, c, log)
		})
		if err := loader.Watch(); err != nil {
			log.Warn("config reload disabled", "path", loader.Path(), "error", err)
		} else {
			defer loader.Close()
			go logErrors(ctx, loader.Errors(), log)
		}
	}
	if printState, _ := cmd.Flags().GetBool("print-state"); printState {
		go printStates(ctx, owner)
	}

	errc := make(chan error, 2)
	go func() { errc <- owner.Run(ctx) }()

	if err := waitForPermission(ctx, c.provider.Permission, cfg.PollInterval(), log); err != nil {
		return nil
	}
	go func() { errc <- interceptor.Run(ctx) }()
	log.Info("switcher running", "open", bindings.Open.String())

	select {
	case <-ctx.Done():
		log.Info("shutting down", "dropped_commands", owner.Dropped())
		return nil
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("switcher stopped: %w", err)
		}
		return nil
	}
}

// applyConfig installs a reloaded configuration. Bindings swap immediately;
// matcher and activation settings are applied on the owner goroutine, in
// order with session commands.
func applyConfig(next *config.Config, i *hotkey.Interceptor, owner *session.Owner, c *core, log *slog.Logger) {
	b, err := next.ResolveBindings()
	if err != nil {
		log.Error("config reload: bindings rejected", "error", err)
		return
	}
	i.SetBindings(b)

	opts := next.MatcherOptions(os.Getpid(), c.exclude...)
	act := next.ActivationOptions()
	if !owner.Exec(func() {
		c.enumerator.SetOptions(opts)
		c.engine.SetConfig(act)
	}) {
		log.Warn("config reload: session queue full, matcher and activation settings unchanged")
	}
}

// waitForPermission prompts once and then polls until the accessibility
// permission is granted or ctx is done.
func waitForPermission(ctx context.Context, gate platform.PermissionGate, interval time.Duration, log *slog.Logger) error {
	if gate == nil || gate.HasPermission() {
		return nil
	}
	log.Warn("accessibility permission missing, waiting for it to be granted", "hint", permissionHint)
	gate.RequestPermission()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if gate.HasPermission() {
				log.Info("accessibility permission granted")
				return nil
			}
		}
	}
}

func logErrors(ctx context.Context, errs <-chan error, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			log.Warn("config reload failed", "error", err)
		}
	}
}

func printStates(ctx context.Context, owner *session.Owner) {
	states, cancel := owner.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-states:
			if err := output.Print(s); err != nil {
				return
			}
		}
	}
}
