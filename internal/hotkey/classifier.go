package hotkey

import (
	"sync/atomic"

	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

// Poster accepts commands without blocking.
type Poster interface {
	Post(cmd session.Command) bool
}

// Classifier decides, per raw key event, whether to swallow it and which
// command to post. Handle runs on the input delivery thread: it only touches
// atomics and calls Post.
type Classifier struct {
	bindings atomic.Pointer[Bindings]
	post     Poster
	holding  atomic.Bool

	events    atomic.Int64
	swallowed atomic.Int64
	posted    atomic.Int64
	rejected  atomic.Int64
}

// NewClassifier creates a classifier posting to p.
func NewClassifier(b *Bindings, p Poster) *Classifier {
	c := &Classifier{post: p}
	c.bindings.Store(b)
	return c
}

// SetBindings replaces the bindings. Safe to call from any goroutine.
func (c *Classifier) SetBindings(b *Bindings) {
	c.bindings.Store(b)
}

// Bindings returns the active bindings.
func (c *Classifier) Bindings() *Bindings {
	return c.bindings.Load()
}

// Holding reports whether a session chord is currently held.
func (c *Classifier) Holding() bool {
	return c.holding.Load()
}

// Reset forgets a held chord and reports whether one was held.
func (c *Classifier) Reset() bool {
	return c.holding.Swap(false)
}

// Handle classifies ev and returns true to swallow it.
func (c *Classifier) Handle(ev platform.KeyEvent) bool {
	c.events.Add(1)
	b := c.bindings.Load()
	if b == nil {
		return false
	}
	swallow := c.classify(b, ev)
	if swallow {
		c.swallowed.Add(1)
	}
	return swallow
}

func (c *Classifier) classify(b *Bindings, ev platform.KeyEvent) bool {
	switch ev.Type {
	case platform.FlagsChanged:
		if c.holding.Load() && !ev.Modifiers.Has(b.Hold()) {
			c.holding.Store(false)
			c.send(session.CmdCommit)
		}
		return false

	case platform.KeyDown:
		if c.holding.Load() && !ev.Modifiers.Has(b.Hold()) {
			// The release was missed; commit before treating the press as new.
			c.holding.Store(false)
			c.send(session.CmdCommit)
		}
		if !c.holding.Load() {
			if !b.MatchOpen(ev.Code, ev.Modifiers) {
				return false
			}
			c.holding.Store(true)
			c.send(session.CmdOpen)
			return true
		}
		cmd, ok := b.MatchHeld(ev.Code, ev.Modifiers)
		if !ok {
			return false
		}
		if cmd == session.CmdCommit || cmd == session.CmdCancel {
			c.holding.Store(false)
		}
		c.send(cmd)
		return true

	case platform.KeyUp:
		if b.MatchOpen(ev.Code, ev.Modifiers) {
			return true
		}
		_, ok := b.MatchHeld(ev.Code, ev.Modifiers)
		return ok && ev.Modifiers.Has(b.Hold())
	}
	return false
}

func (c *Classifier) send(cmd session.Command) {
	if c.post == nil {
		return
	}
	if c.post.Post(cmd) {
		c.posted.Add(1)
		return
	}
	c.rejected.Add(1)
}
