// Package activation raises a chosen window through an escalating chain of
// OS focus primitives.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// Step names, used in logs and errors.
const (
	StepResolveProcess = "resolve_process"
	StepResolveWindow  = "resolve_window"
	StepActivateApp    = "activate_app"
	StepForceFront     = "force_front"
	StepRaise          = "raise"
	StepClickTitleBar  = "click_title_bar"
)

// Config tunes the activation chain.
type Config struct {
	// Budget bounds the whole chain. A step that would start after the
	// budget is spent is skipped. Steps 1 and 2 always run.
	Budget time.Duration
	// SettleDelay is the minimum time between app activation and the
	// synthetic click.
	SettleDelay time.Duration
	// ForceFront enables the low-level front-process primitive.
	ForceFront bool
	// SyntheticClick enables the title-bar click fallback.
	SyntheticClick bool
}

// DefaultConfig returns the chain used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Budget:         50 * time.Millisecond,
		SettleDelay:    20 * time.Millisecond,
		ForceFront:     true,
		SyntheticClick: false,
	}
}

var errProcessGone = errors.New("process is gone")

// Engine runs the activation chain. It keeps no reference to any OS object
// between calls.
type Engine struct {
	focuser platform.Focuser
	gate    platform.PermissionGate
	cfg     Config
	log     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine creates an engine over the provider's focuser and permission gate.
// A nil logger uses slog.Default().
func NewEngine(p *platform.Provider, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:   cfg,
		log:   logger,
		now:   time.Now,
		sleep: sleepContext,
	}
	if p != nil {
		e.focuser = p.Focuser
		e.gate = p.Permission
	}
	return e
}

// Config returns the chain configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SetConfig replaces the chain configuration. It must not race with Activate.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg
}

// Activate raises rec's window. It returns nil when at least one raising
// step reported success; success is optimistic because final focus is not
// verified. Otherwise it returns a *Failure. It never panics.
func (e *Engine) Activate(ctx context.Context, rec model.WindowRecord) error {
	if e.focuser == nil {
		return &Failure{Reason: Unsupported, PID: rec.PID, Title: rec.Title}
	}
	if e.gate != nil && !e.gate.HasPermission() {
		return &Failure{Reason: PermissionDenied, PID: rec.PID, Title: rec.Title}
	}

	a := &attempt{engine: e, rec: rec, start: e.now()}
	a.deadline = a.start.Add(e.cfg.Budget)
	log := e.log.With("pid", rec.PID, "title", rec.Title)
	a.log = log

	if err := a.run(StepResolveProcess, func() error {
		if !e.focuser.ResolveProcess(rec.PID) {
			return errProcessGone
		}
		return nil
	}); err != nil {
		return &Failure{Reason: ProcessGone, PID: rec.PID, Title: rec.Title, Err: err}
	}

	var ref platform.WindowRef
	if err := a.run(StepResolveWindow, func() error {
		r, err := e.focuser.ResolveWindow(rec.PID, rec.Title)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("no window titled %q", rec.Title)
		}
		ref = r
		return nil
	}); err != nil {
		a.fail(StepResolveWindow, err)
	}
	if ref != nil {
		defer ref.Release()
	}

	activatedAt := e.now()
	a.raiseStep(StepActivateApp, func() error {
		return e.focuser.ActivateApp(rec.PID)
	})

	if e.cfg.ForceFront && a.withinBudget(StepForceFront) {
		available := true
		err := a.run(StepForceFront, func() error {
			ok, err := e.focuser.ForceFront(rec.PID, rec.Identity.WindowID)
			available = ok
			return err
		})
		switch {
		case !available:
			log.Debug("activation step skipped", "step", StepForceFront, "reason", "primitive unavailable")
		case err != nil:
			a.fail(StepForceFront, err)
		default:
			a.succeeded = true
		}
	}

	if ref != nil && a.withinBudget(StepRaise) {
		a.raiseStep(StepRaise, func() error {
			return e.focuser.Raise(ref)
		})
	}

	if e.cfg.SyntheticClick && a.withinBudget(StepClickTitleBar) {
		a.click(ctx, ref, activatedAt)
	}

	log.Debug("activation finished", "succeeded", a.succeeded, "elapsed", e.now().Sub(a.start))
	if a.succeeded {
		return nil
	}
	return &Failure{Reason: Exhausted, PID: rec.PID, Title: rec.Title, Err: a.errs.ErrorOrNil()}
}

// click posts the synthetic title-bar click at the window's current frame,
// read through ref after the settle delay.
func (a *attempt) click(ctx context.Context, ref platform.WindowRef, activatedAt time.Time) {
	e := a.engine
	if ref == nil {
		a.log.Debug("activation step skipped", "step", StepClickTitleBar, "reason", "window not resolved")
		return
	}
	if wait := e.cfg.SettleDelay - e.now().Sub(activatedAt); wait > 0 {
		if remaining := a.deadline.Sub(e.now()); wait > remaining {
			wait = remaining
		}
		e.sleep(ctx, wait)
	}
	if ctx.Err() != nil {
		return
	}
	var frame model.Geometry
	if err := a.run("read_frame", func() error {
		var err error
		frame, err = ref.Frame()
		return err
	}); err != nil {
		a.fail(StepClickTitleBar, err)
		return
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		a.log.Debug("activation step skipped", "step", StepClickTitleBar, "reason", "empty frame")
		return
	}
	x, y := frame.TitleBar()
	a.raiseStep(StepClickTitleBar, func() error {
		return e.focuser.ClickTitleBar(x, y)
	})
}

// attempt carries the bookkeeping of one Activate call.
type attempt struct {
	engine    *Engine
	rec       model.WindowRecord
	log       *slog.Logger
	start     time.Time
	deadline  time.Time
	errs      *multierror.Error
	succeeded bool
}

// run executes one step, converting panics into errors, and logs the outcome.
func (a *attempt) run(step string, fn func() error) (err error) {
	begin := a.engine.now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		a.log.Debug("activation step", "step", step, "ok", err == nil, "elapsed", a.engine.now().Sub(begin))
	}()
	return fn()
}

// raiseStep runs a step whose success counts toward the overall result.
func (a *attempt) raiseStep(step string, fn func() error) {
	if err := a.run(step, fn); err != nil {
		a.fail(step, err)
		return
	}
	a.succeeded = true
}

func (a *attempt) fail(step string, err error) {
	a.errs = multierror.Append(a.errs, fmt.Errorf("%s: %w", step, err))
}

func (a *attempt) withinBudget(step string) bool {
	if a.engine.now().Before(a.deadline) {
		return true
	}
	a.log.Debug("activation step skipped", "step", step, "reason", "budget exhausted")
	return false
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
