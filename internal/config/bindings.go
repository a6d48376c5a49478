package config

import (
	"fmt"

	"github.com/mj1618/desktop-switch/internal/hotkey"
	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

// ResolveBindings parses the chord strings into hotkey bindings.
func (c *Config) ResolveBindings() (*hotkey.Bindings, error) {
	b := c.Bindings
	open, err := parseChord("open", b.Open)
	if err != nil {
		return nil, err
	}

	var held []hotkey.Binding
	addOne := func(field, s string, cmd session.Command) error {
		if s == "" {
			return nil
		}
		ch, err := parseChord(field, s)
		if err != nil {
			return err
		}
		held = append(held, hotkey.Binding{Chord: ch, Command: cmd})
		return nil
	}
	addAll := func(field string, list []string, cmd session.Command) error {
		for i, s := range list {
			if err := addOne(fmt.Sprintf("%s[%d]", field, i), s, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	if err := addOne("previous", b.Previous, session.CmdPrevious); err != nil {
		return nil, err
	}
	if err := addOne("cancel", b.Cancel, session.CmdCancel); err != nil {
		return nil, err
	}
	if err := addAll("next_alt", b.NextAlt, session.CmdNext); err != nil {
		return nil, err
	}
	if err := addAll("previous_alt", b.PreviousAlt, session.CmdPrevious); err != nil {
		return nil, err
	}
	if err := addAll("commit_alt", b.CommitAlt, session.CmdCommit); err != nil {
		return nil, err
	}
	return hotkey.NewBindings(open, held)
}

func parseChord(field, s string) (platform.Chord, error) {
	ch, err := platform.ParseChord(s)
	if err != nil {
		return platform.Chord{}, fmt.Errorf("%s: %w: %v", field, ErrInvalidChord, err)
	}
	return ch, nil
}
