package platform

import (
	"context"

	"github.com/mj1618/desktop-switch/internal/model"
)

// ZSource enumerates on-screen windows in front-to-back order.
type ZSource interface {
	// QueryZ returns windows ordered front to back. It never fails: an OS
	// error yields an empty result.
	QueryZ() []model.ZEntry
}

// TitleSource enumerates one process's windows through the accessibility layer.
type TitleSource interface {
	// QueryTitles returns the titled windows of pid in no particular order.
	// An OS error yields an empty result.
	QueryTitles(pid int) []model.TitleEntry
}

// AppDirectory resolves process metadata.
type AppDirectory interface {
	Lookup(pid int) (model.AppInfo, bool)
}

// PermissionGate reports whether the process holds accessibility permission.
type PermissionGate interface {
	HasPermission() bool
	// RequestPermission asks the OS to show its permission prompt. It returns
	// the permission state at the time of the call.
	RequestPermission() bool
}

// WindowRef is a live reference to a window element, valid only for the
// activation attempt that resolved it.
type WindowRef interface {
	Title() string
	// Frame reads the window's current position and size.
	Frame() (model.Geometry, error)
	Release()
}

// Focuser exposes the OS primitives the activation engine escalates through.
type Focuser interface {
	// ResolveProcess reports whether pid still belongs to a running app.
	ResolveProcess(pid int) bool
	// ResolveWindow re-queries pid's windows and returns a fresh reference to
	// the one titled title.
	ResolveWindow(pid int, title string) (WindowRef, error)
	// ActivateApp requests app-level foreground activation via the public API.
	ActivateApp(pid int) error
	// ForceFront uses a low-level front-process primitive when the OS offers
	// one. ok is false when the primitive is unavailable.
	ForceFront(pid int, windowID uint32) (ok bool, err error)
	// Raise performs the raise action on ref and makes it the main window.
	Raise(ref WindowRef) error
	// ClickTitleBar posts a synthetic left click at the given point.
	ClickTitleBar(x, y float64) error
}

// KeyEventHandler classifies one raw key event. It runs on the OS input
// delivery thread and returns true to swallow the event.
type KeyEventHandler func(ev KeyEvent) (swallow bool)

// EventTap is a global keyboard hook.
type EventTap interface {
	// Start installs the hook and begins delivering events to h.
	Start(ctx context.Context, h KeyEventHandler) error
	Stop() error
	// Enabled reports whether the hook is currently armed.
	Enabled() bool
	// Rearm re-enables a hook the OS detached.
	Rearm() bool
	// Detachments returns the number of OS-forced detachments seen since the
	// previous call.
	Detachments() int
}
