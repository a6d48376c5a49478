// Package hotkey turns raw keyboard events into switcher commands.
package hotkey

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

// ErrNoHoldModifier is returned when the open chord has no modifier. The
// session commits when the open chord's modifiers are released, so at least
// one is required.
var ErrNoHoldModifier = errors.New("open chord needs at least one modifier")

// Bindings maps key chords to commands. Open starts a session; the other
// chords apply only while the open chord's modifiers are held, and are
// matched ignoring those held modifiers.
type Bindings struct {
	Open platform.Chord
	held map[platform.Chord]session.Command
}

// Binding is one resolved chord to command entry.
type Binding struct {
	Chord   platform.Chord
	Command session.Command
}

// NewBindings creates bindings for open plus the given holding chords. The
// open chord is always bound to Next while holding.
func NewBindings(open platform.Chord, holding []Binding) (*Bindings, error) {
	hold := open.Modifiers & platform.ModMask
	if hold == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHoldModifier, open)
	}
	b := &Bindings{
		Open: platform.Chord{Code: open.Code, Modifiers: hold},
		held: make(map[platform.Chord]session.Command, len(holding)+1),
	}
	b.held[b.normalize(open)] = session.CmdNext
	for _, h := range holding {
		key := b.normalize(h.Chord)
		if prev, ok := b.held[key]; ok && prev != h.Command {
			return nil, fmt.Errorf("chord %s bound to both %s and %s", h.Chord, prev, h.Command)
		}
		b.held[key] = h.Command
	}
	return b, nil
}

// Hold returns the modifiers whose release commits the session.
func (b *Bindings) Hold() platform.Modifiers {
	return b.Open.Modifiers
}

// normalize strips the hold modifiers from c.
func (b *Bindings) normalize(c platform.Chord) platform.Chord {
	return platform.Chord{Code: c.Code, Modifiers: c.Modifiers & platform.ModMask &^ b.Hold()}
}

// MatchOpen reports whether a key press starts a session.
func (b *Bindings) MatchOpen(code platform.KeyCode, mods platform.Modifiers) bool {
	return code == b.Open.Code && mods&platform.ModMask == b.Open.Modifiers
}

// MatchHeld returns the command bound to a key press made while holding.
func (b *Bindings) MatchHeld(code platform.KeyCode, mods platform.Modifiers) (session.Command, bool) {
	cmd, ok := b.held[b.normalize(platform.Chord{Code: code, Modifiers: mods})]
	return cmd, ok
}

// List returns every binding, the open chord first, then sorted by chord.
func (b *Bindings) List() []Binding {
	out := make([]Binding, 0, len(b.held)+1)
	for c, cmd := range b.held {
		out = append(out, Binding{
			Chord:   platform.Chord{Code: c.Code, Modifiers: c.Modifiers | b.Hold()},
			Command: cmd,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Chord.String() < out[j].Chord.String()
	})
	return append([]Binding{{Chord: b.Open, Command: session.CmdOpen}}, out...)
}
