// Package session implements the switcher's state machine and the owner
// actor that serializes every mutation of it.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/mj1618/desktop-switch/internal/model"
)

// Command is an input to the state machine.
type Command int

const (
	CmdOpen Command = iota + 1
	CmdNext
	CmdPrevious
	CmdCommit
	CmdCancel
)

var commandNames = map[Command]string{
	CmdOpen:     "open",
	CmdNext:     "next",
	CmdPrevious: "previous",
	CmdCommit:   "commit",
	CmdCancel:   "cancel",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCommand converts a command name to a Command.
func ParseCommand(s string) (Command, bool) {
	for c, name := range commandNames {
		if name == s {
			return c, true
		}
	}
	return 0, false
}

// State is an immutable view of the session. Windows must not be modified
// by readers.
type State struct {
	Visible   bool                 `yaml:"visible"              json:"visible"`
	Windows   []model.WindowRecord `yaml:"windows"              json:"windows"`
	Selected  int                  `yaml:"selected"             json:"selected"`
	SessionID string               `yaml:"session_id,omitempty" json:"session_id,omitempty"`
}

// Current returns the selected window of a visible session.
func (s State) Current() (model.WindowRecord, bool) {
	if !s.Visible || s.Selected < 0 || s.Selected >= len(s.Windows) {
		return model.WindowRecord{}, false
	}
	return s.Windows[s.Selected], true
}

// SnapshotFunc enumerates the switchable windows.
type SnapshotFunc func() []model.WindowRecord

// Machine is the pure transition core. It is not safe for concurrent use;
// Owner confines it to a single goroutine.
type Machine struct {
	snapshot SnapshotFunc
	visible  bool
	windows  []model.WindowRecord
	selected int
	id       string
	openedAt time.Time
}

// NewMachine creates an idle machine that enumerates with snapshot.
func NewMachine(snapshot SnapshotFunc) *Machine {
	return &Machine{snapshot: snapshot}
}

// Visible reports whether the machine is in the Open state.
func (m *Machine) Visible() bool {
	return m.visible
}

// OpenedAt returns when the current session opened.
func (m *Machine) OpenedAt() time.Time {
	return m.openedAt
}

// Apply runs one transition. changed reports whether observable state
// changed. On a commit from Open, target is the selected record and the
// machine is already Idle with its list cleared.
func (m *Machine) Apply(cmd Command) (target *model.WindowRecord, changed bool) {
	switch cmd {
	case CmdOpen:
		if m.visible {
			return nil, m.step(1)
		}
		return nil, m.open()
	case CmdNext:
		return nil, m.step(1)
	case CmdPrevious:
		return nil, m.step(-1)
	case CmdCommit:
		if !m.visible {
			return nil, false
		}
		rec := m.windows[m.selected]
		m.reset()
		return &rec, true
	case CmdCancel:
		if !m.visible {
			return nil, false
		}
		m.reset()
		return nil, true
	}
	return nil, false
}

func (m *Machine) open() bool {
	var windows []model.WindowRecord
	if m.snapshot != nil {
		windows = m.snapshot()
	}
	if len(windows) == 0 {
		return false
	}
	m.windows = windows
	m.selected = min(1, len(windows)-1)
	m.visible = true
	m.id = uuid.NewString()
	m.openedAt = time.Now()
	return true
}

func (m *Machine) step(delta int) bool {
	if !m.visible {
		return false
	}
	n := len(m.windows)
	m.selected = ((m.selected+delta)%n + n) % n
	return true
}

func (m *Machine) reset() {
	m.visible = false
	m.windows = nil
	m.selected = 0
	m.id = ""
	m.openedAt = time.Time{}
}

// State returns the current state. The windows slice is shared with the
// machine but never mutated after open, so it is safe to publish.
func (m *Machine) State() State {
	return State{
		Visible:   m.visible,
		Windows:   m.windows,
		Selected:  m.selected,
		SessionID: m.id,
	}
}
