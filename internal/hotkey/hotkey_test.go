package hotkey

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/platform/fake"
	"github.com/mj1618/desktop-switch/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	cmds   []session.Command
	reject bool
}

func (r *recorder) Post(cmd session.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.cmds = append(r.cmds, cmd)
	return true
}

func (r *recorder) got() []session.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Command(nil), r.cmds...)
}

func chord(t *testing.T, s string) platform.Chord {
	t.Helper()
	c, err := platform.ParseChord(s)
	if err != nil {
		t.Fatalf("ParseChord(%q): %v", s, err)
	}
	return c
}

func testBindings(t *testing.T) *Bindings {
	t.Helper()
	b, err := NewBindings(chord(t, "alt+tab"), []Binding{
		{Chord: chord(t, "alt+shift+tab"), Command: session.CmdPrevious},
		{Chord: chord(t, "escape"), Command: session.CmdCancel},
		{Chord: chord(t, "right"), Command: session.CmdNext},
		{Chord: chord(t, "left"), Command: session.CmdPrevious},
		{Chord: chord(t, "return"), Command: session.CmdCommit},
	})
	if err != nil {
		t.Fatalf("NewBindings: %v", err)
	}
	return b
}

func key(t *testing.T, name string) platform.KeyCode {
	t.Helper()
	code, ok := platform.LookupKey(name)
	if !ok {
		t.Fatalf("unknown key %q", name)
	}
	return code
}

func down(t *testing.T, name string, mods platform.Modifiers) platform.KeyEvent {
	return platform.KeyEvent{Type: platform.KeyDown, Code: key(t, name), Modifiers: mods}
}

func up(t *testing.T, name string, mods platform.Modifiers) platform.KeyEvent {
	return platform.KeyEvent{Type: platform.KeyUp, Code: key(t, name), Modifiers: mods}
}

func flags(mods platform.Modifiers) platform.KeyEvent {
	return platform.KeyEvent{Type: platform.FlagsChanged, Modifiers: mods}
}

const (
	alt      = platform.ModOption
	altShift = platform.ModOption | platform.ModShift
)

func TestNewBindingsRequiresModifier(t *testing.T) {
	_, err := NewBindings(chord(t, "tab"), nil)
	if !errors.Is(err, ErrNoHoldModifier) {
		t.Errorf("NewBindings(tab) error = %v, want ErrNoHoldModifier", err)
	}
}

func TestNewBindingsConflict(t *testing.T) {
	_, err := NewBindings(chord(t, "alt+tab"), []Binding{
		{Chord: chord(t, "escape"), Command: session.CmdCancel},
		{Chord: chord(t, "alt+escape"), Command: session.CmdCommit},
	})
	if err == nil {
		t.Errorf("conflicting bindings accepted")
	}
}

func TestBindingsList(t *testing.T) {
	b := testBindings(t)
	list := b.List()
	if list[0].Command != session.CmdOpen || list[0].Chord.String() != "alt+tab" {
		t.Errorf("first binding = %s -> %s, want alt+tab -> open", list[0].Chord, list[0].Command)
	}
	if len(list) != 7 {
		t.Errorf("got %d bindings, want 7", len(list))
	}
	found := false
	for _, e := range list {
		if e.Chord.String() == "alt+escape" && e.Command == session.CmdCancel {
			found = true
		}
	}
	if !found {
		t.Errorf("alt+escape -> cancel missing from %v", list)
	}
}

func TestClassifierSequences(t *testing.T) {
	tests := []struct {
		name    string
		events  func(t *testing.T) []platform.KeyEvent
		want    []session.Command
		swallow []bool
	}{
		{
			name: "tap and release",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{flags(alt), down(t, "tab", alt), up(t, "tab", alt), flags(0)}
			},
			want:    []session.Command{session.CmdOpen, session.CmdCommit},
			swallow: []bool{false, true, true, false},
		},
		{
			name: "cycle forward and back",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{
					down(t, "tab", alt), down(t, "tab", alt),
					flags(altShift), down(t, "tab", altShift), flags(alt),
					flags(0),
				}
			},
			want:    []session.Command{session.CmdOpen, session.CmdNext, session.CmdPrevious, session.CmdCommit},
			swallow: []bool{true, true, false, true, false, false},
		},
		{
			name: "cancel then release",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{down(t, "tab", alt), down(t, "escape", alt), flags(0)}
			},
			want:    []session.Command{session.CmdOpen, session.CmdCancel},
			swallow: []bool{true, true, false},
		},
		{
			name: "alternate keys",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{
					down(t, "tab", alt), down(t, "right", alt), down(t, "left", alt), down(t, "return", alt), flags(0),
				}
			},
			want:    []session.Command{session.CmdOpen, session.CmdNext, session.CmdPrevious, session.CmdCommit},
			swallow: []bool{true, true, true, true, false},
		},
		{
			name: "unrelated keys pass through",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{down(t, "a", alt), down(t, "tab", 0), down(t, "tab", platform.ModCommand), down(t, "escape", 0)}
			},
			want:    nil,
			swallow: []bool{false, false, false, false},
		},
		{
			name: "unbound key while holding passes through",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{down(t, "tab", alt), down(t, "a", alt), flags(0)}
			},
			want:    []session.Command{session.CmdOpen, session.CmdCommit},
			swallow: []bool{true, false, false},
		},
		{
			name: "missed release commits before next press",
			events: func(t *testing.T) []platform.KeyEvent {
				return []platform.KeyEvent{down(t, "tab", alt), down(t, "a", 0)}
			},
			want:    []session.Command{session.CmdOpen, session.CmdCommit},
			swallow: []bool{true, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			c := NewClassifier(testBindings(t), r)
			events := tt.events(t)
			for i, ev := range events {
				if got := c.Handle(ev); got != tt.swallow[i] {
					t.Errorf("event %d (%+v): swallow = %v, want %v", i, ev, got, tt.swallow[i])
				}
			}
			if got := r.got(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("commands = %v, want %v", got, tt.want)
			}
			if c.Holding() {
				t.Errorf("still holding at end of sequence")
			}
		})
	}
}

func TestClassifierCountsRejectedPosts(t *testing.T) {
	r := &recorder{reject: true}
	c := NewClassifier(testBindings(t), r)
	c.Handle(down(t, "tab", alt))
	if c.rejected.Load() != 1 || c.posted.Load() != 0 {
		t.Errorf("rejected=%d posted=%d, want 1 0", c.rejected.Load(), c.posted.Load())
	}
}

func TestClassifierNilBindings(t *testing.T) {
	c := NewClassifier(nil, &recorder{})
	if c.Handle(down(t, "tab", alt)) {
		t.Errorf("swallowed without bindings")
	}
}

func TestClassifierSetBindings(t *testing.T) {
	r := &recorder{}
	c := NewClassifier(testBindings(t), r)
	b, err := NewBindings(chord(t, "cmd+grave"), nil)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBindings(b)
	if c.Handle(down(t, "tab", alt)) {
		t.Errorf("old open chord still active")
	}
	if !c.Handle(down(t, "grave", platform.ModCommand)) {
		t.Errorf("new open chord not swallowed")
	}
}

func TestInterceptorDrivesOwner(t *testing.T) {
	tap := &fake.Tap{}
	o := session.NewOwner(staticSnapshot(3), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	i := NewInterceptor(tap, testBindings(t), o, nil)
	errc := make(chan error, 1)
	go func() { errc <- i.Run(ctx) }()
	waitFor(t, tap.Enabled)

	tap.Send(down(t, "tab", alt))
	tap.Send(down(t, "tab", alt))
	waitFor(t, func() bool {
		s := o.State()
		return s.Visible && s.Selected == 2
	})
	tap.Send(flags(0))
	waitFor(t, func() bool { return !o.State().Visible })

	st := i.Stats()
	if st.Events != 3 || st.Swallowed != 2 || st.Posted != 3 {
		t.Errorf("stats = %+v, want 3 events 2 swallowed 3 posted", st)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run() = %v", err)
	}
	if tap.Enabled() {
		t.Errorf("tap still enabled after Run returned")
	}
}

func TestInterceptorRearmsDetachedTap(t *testing.T) {
	tap := &fake.Tap{}
	r := &recorder{}
	i := NewInterceptor(tap, testBindings(t), r, nil)
	i.SetHealthInterval(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go i.Run(ctx)
	waitFor(t, tap.Enabled)

	tap.Send(down(t, "tab", alt))
	tap.Detach()
	waitFor(t, func() bool { return i.Stats().Rearms == 1 })

	st := i.Stats()
	if st.Detachments != 1 || !st.Enabled || st.Holding {
		t.Errorf("stats = %+v, want 1 detachment, enabled, not holding", st)
	}
	waitFor(t, func() bool {
		return reflect.DeepEqual(r.got(), []session.Command{session.CmdOpen, session.CmdCancel})
	})
}

func TestInterceptorStartError(t *testing.T) {
	tap := &fake.Tap{StartErr: errors.New("not trusted")}
	i := NewInterceptor(tap, testBindings(t), &recorder{}, nil)
	if err := i.Run(context.Background()); err == nil {
		t.Errorf("Run() succeeded with failing tap")
	}
}

func TestInterceptorNoTap(t *testing.T) {
	i := NewInterceptor(nil, testBindings(t), &recorder{}, nil)
	if err := i.Run(context.Background()); !errors.Is(err, platform.ErrUnsupported) {
		t.Errorf("Run() = %v, want ErrUnsupported", err)
	}
}

type staticSnapshot int

func (n staticSnapshot) Snapshot() []model.WindowRecord {
	out := make([]model.WindowRecord, n)
	for i := range out {
		out[i] = model.WindowRecord{PID: 100 + i, Title: fmt.Sprintf("Window %d", i)}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
