// Package fake provides in-memory implementations of the platform
// interfaces for tests and for running the core off macOS.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// Windows is a scripted window system serving as ZSource, TitleSource and
// AppDirectory.
type Windows struct {
	mu         sync.Mutex
	Z          []model.ZEntry
	Titles     map[int][]model.TitleEntry
	Apps       map[int]model.AppInfo
	titleCalls map[int]int
}

// NewWindows returns an empty window system.
func NewWindows() *Windows {
	return &Windows{
		Titles:     make(map[int][]model.TitleEntry),
		Apps:       make(map[int]model.AppInfo),
		titleCalls: make(map[int]int),
	}
}

// AddApp registers a regular app named name for pid.
func (w *Windows) AddApp(pid int, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Apps[pid] = model.AppInfo{PID: pid, Name: name, Regular: true}
}

// AddWindow appends a layer-0 window to the front-to-back list and a matching
// titled standard window to pid's accessibility list.
func (w *Windows) AddWindow(pid int, title string, g model.Geometry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Z = append(w.Z, model.ZEntry{PID: pid, Layer: 0, Geometry: g})
	w.Titles[pid] = append(w.Titles[pid], model.TitleEntry{
		Geometry: g,
		Title:    title,
		Role:     model.WindowRole,
		Subrole:  "AXStandardWindow",
	})
}

// MoveWindow changes the frame of pid's window titled title in both lists.
func (w *Windows) MoveWindow(pid int, title string, g model.Geometry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, t := range w.Titles[pid] {
		if t.Title != title {
			continue
		}
		old := t.Geometry
		w.Titles[pid][i].Geometry = g
		for j, e := range w.Z {
			if e.PID == pid && e.Geometry == old {
				w.Z[j].Geometry = g
				break
			}
		}
		return
	}
}

// frame returns the current geometry of pid's window titled title.
func (w *Windows) frame(pid int, title string) (model.Geometry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.Titles[pid] {
		if t.Title == title {
			return t.Geometry, true
		}
	}
	return model.Geometry{}, false
}

// RemoveProcess drops every window and the app entry of pid.
func (w *Windows) RemoveProcess(pid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.Z[:0]
	for _, e := range w.Z {
		if e.PID != pid {
			kept = append(kept, e)
		}
	}
	w.Z = kept
	delete(w.Titles, pid)
	delete(w.Apps, pid)
}

func (w *Windows) QueryZ() []model.ZEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.ZEntry(nil), w.Z...)
}

func (w *Windows) QueryTitles(pid int) []model.TitleEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.titleCalls[pid]++
	return append([]model.TitleEntry(nil), w.Titles[pid]...)
}

// TitleCalls returns how many times QueryTitles was called for pid.
func (w *Windows) TitleCalls(pid int) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.titleCalls[pid]
}

func (w *Windows) Lookup(pid int) (model.AppInfo, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info, ok := w.Apps[pid]
	return info, ok
}

// Gate is a settable permission gate.
type Gate struct {
	mu       sync.Mutex
	granted  bool
	requests int
}

// NewGate returns a gate in the given state.
func NewGate(granted bool) *Gate {
	return &Gate{granted: granted}
}

func (g *Gate) Set(granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = granted
}

func (g *Gate) HasPermission() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

func (g *Gate) RequestPermission() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	return g.granted
}

// Requests returns how many times RequestPermission was called.
func (g *Gate) Requests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

// ref is a window reference handed out by Focuser.
type ref struct {
	f     *Focuser
	pid   int
	title string
}

func (r *ref) Title() string { return r.title }

func (r *ref) Frame() (model.Geometry, error) {
	if r.f.FrameErr != nil {
		return model.Geometry{}, r.f.FrameErr
	}
	g, ok := r.f.windows.frame(r.pid, r.title)
	if !ok {
		return model.Geometry{}, fmt.Errorf("window %q of pid %d is gone", r.title, r.pid)
	}
	return g, nil
}

func (r *ref) Release() {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.released++
}

// Focuser records the activation primitives invoked against a Windows
// system. Each step can be scripted to fail.
type Focuser struct {
	mu       sync.Mutex
	windows  *Windows
	calls    []string
	released int

	ActivateErr error
	// ForceFrontAvailable controls whether ForceFront reports the primitive.
	ForceFrontAvailable bool
	ForceFrontErr       error
	RaiseErr            error
	ClickErr            error
	FrameErr            error
	// Panic makes ActivateApp panic, to exercise recovery.
	Panic bool
}

// NewFocuser returns a focuser resolving processes and windows in w.
func NewFocuser(w *Windows) *Focuser {
	return &Focuser{windows: w}
}

func (f *Focuser) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the primitives invoked so far, in order.
func (f *Focuser) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Released returns how many window references were released.
func (f *Focuser) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *Focuser) ResolveProcess(pid int) bool {
	f.record("resolve_process")
	_, ok := f.windows.Lookup(pid)
	return ok
}

func (f *Focuser) ResolveWindow(pid int, title string) (platform.WindowRef, error) {
	f.record("resolve_window")
	for _, t := range f.windows.QueryTitles(pid) {
		if t.Title == title {
			return &ref{f: f, pid: pid, title: t.Title}, nil
		}
	}
	return nil, fmt.Errorf("no window titled %q for pid %d", title, pid)
}

func (f *Focuser) ActivateApp(pid int) error {
	f.record("activate_app")
	if f.Panic {
		panic("activate exploded")
	}
	return f.ActivateErr
}

func (f *Focuser) ForceFront(pid int, windowID uint32) (bool, error) {
	f.record("force_front")
	if !f.ForceFrontAvailable {
		return false, nil
	}
	return true, f.ForceFrontErr
}

func (f *Focuser) Raise(r platform.WindowRef) error {
	f.record("raise")
	return f.RaiseErr
}

func (f *Focuser) ClickTitleBar(x, y float64) error {
	f.record(fmt.Sprintf("click %.0f,%.0f", x, y))
	return f.ClickErr
}

// Tap is a scriptable event tap. Send delivers events synchronously to the
// installed handler, the way the OS calls a tap callback.
type Tap struct {
	mu          sync.Mutex
	handler     platform.KeyEventHandler
	enabled     bool
	detachments int
	rearms      int
	StartErr    error
}

func (t *Tap) Start(ctx context.Context, h platform.KeyEventHandler) error {
	if t.StartErr != nil {
		return t.StartErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
	t.enabled = true
	return nil
}

func (t *Tap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = nil
	t.enabled = false
	return nil
}

func (t *Tap) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Tap) Rearm() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handler == nil {
		return false
	}
	t.rearms++
	t.enabled = true
	return true
}

func (t *Tap) Detachments() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.detachments
	t.detachments = 0
	return n
}

// Detach simulates the OS disabling the tap.
func (t *Tap) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
	t.detachments++
}

// Rearms returns how many times Rearm re-enabled the tap.
func (t *Tap) Rearms() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rearms
}

// Send delivers ev to the handler and returns whether it was swallowed.
func (t *Tap) Send(ev platform.KeyEvent) bool {
	t.mu.Lock()
	h, enabled := t.handler, t.enabled
	t.mu.Unlock()
	if h == nil || !enabled {
		return false
	}
	return h(ev)
}

// Provider assembles a platform.Provider from fakes.
func Provider(w *Windows, gate *Gate, f *Focuser, tap *Tap) *platform.Provider {
	p := &platform.Provider{}
	if w != nil {
		p.ZSource = w
		p.TitleSource = w
		p.AppDirectory = w
	}
	if gate != nil {
		p.Permission = gate
	}
	if f != nil {
		p.Focuser = f
	}
	if tap != nil {
		p.EventTap = tap
	}
	return p
}
