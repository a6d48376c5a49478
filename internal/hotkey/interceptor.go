package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

// DefaultHealthInterval is how often the interceptor checks the tap.
const DefaultHealthInterval = time.Second

// Stats is a point-in-time view of interceptor counters.
type Stats struct {
	Events      int64 `yaml:"events"      json:"events"`
	Swallowed   int64 `yaml:"swallowed"   json:"swallowed"`
	Posted      int64 `yaml:"posted"      json:"posted"`
	Rejected    int64 `yaml:"rejected"    json:"rejected"`
	Detachments int64 `yaml:"detachments" json:"detachments"`
	Rearms      int64 `yaml:"rearms"      json:"rearms"`
	Holding     bool  `yaml:"holding"     json:"holding"`
	Enabled     bool  `yaml:"enabled"     json:"enabled"`
}

// Interceptor owns the global event tap and keeps it healthy.
type Interceptor struct {
	tap        platform.EventTap
	classifier *Classifier
	post       Poster
	log        *slog.Logger
	interval   time.Duration

	detachments atomic.Int64
	rearms      atomic.Int64
}

// NewInterceptor creates an interceptor that classifies tap events with b and
// posts the resulting commands to p. A nil logger uses slog.Default().
func NewInterceptor(tap platform.EventTap, b *Bindings, p Poster, logger *slog.Logger) *Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		tap:        tap,
		classifier: NewClassifier(b, p),
		post:       p,
		log:        logger,
		interval:   DefaultHealthInterval,
	}
}

// SetHealthInterval changes the tap check period. Call before Run.
func (i *Interceptor) SetHealthInterval(d time.Duration) {
	if d > 0 {
		i.interval = d
	}
}

// SetBindings swaps the bindings used by the live tap.
func (i *Interceptor) SetBindings(b *Bindings) {
	i.classifier.SetBindings(b)
	i.log.Info("bindings updated", "open", b.Open.String())
}

// Bindings returns the bindings in use.
func (i *Interceptor) Bindings() *Bindings {
	return i.classifier.Bindings()
}

// Run installs the tap and supervises it until ctx is done.
func (i *Interceptor) Run(ctx context.Context) error {
	if i.tap == nil {
		return fmt.Errorf("event tap: %w", platform.ErrUnsupported)
	}
	if err := i.tap.Start(ctx, i.classifier.Handle); err != nil {
		return fmt.Errorf("start event tap: %w", err)
	}
	i.log.Info("event tap installed", "open", i.classifier.Bindings().Open.String())

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := i.tap.Stop(); err != nil {
				i.log.Warn("stop event tap", "error", err)
			}
			return nil
		case <-ticker.C:
			i.checkHealth()
		}
	}
}

func (i *Interceptor) checkHealth() {
	if n := i.tap.Detachments(); n > 0 {
		i.detachments.Add(int64(n))
		i.log.Warn("event tap was disabled by the system", "count", n)
		// Key releases may have been lost while detached.
		if i.classifier.Reset() && i.post != nil {
			i.post.Post(session.CmdCancel)
		}
	}
	if i.tap.Enabled() {
		return
	}
	if i.tap.Rearm() {
		i.rearms.Add(1)
		i.log.Info("event tap re-armed")
		return
	}
	i.log.Error("event tap could not be re-armed")
}

// Stats returns the current counters.
func (i *Interceptor) Stats() Stats {
	c := i.classifier
	return Stats{
		Events:      c.events.Load(),
		Swallowed:   c.swallowed.Load(),
		Posted:      c.posted.Load(),
		Rejected:    c.rejected.Load(),
		Detachments: i.detachments.Load(),
		Rearms:      i.rearms.Load(),
		Holding:     c.Holding(),
		Enabled:     i.tap != nil && i.tap.Enabled(),
	}
}
