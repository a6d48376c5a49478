//go:build darwin && cgo

package darwin

/*
#include <ApplicationServices/ApplicationServices.h>
*/
import "C"

import (
	"log/slog"

	"github.com/mj1618/desktop-switch/internal/platform"
)

//export dsKeyEvent
func dsKeyEvent(kind C.int, code C.int, flags C.ulonglong, repeat C.int) (swallow C.int) {
	h := activeHandler.Load()
	if h == nil {
		return 0
	}
	// A panic must never unwind into the OS input thread.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("key event handler panicked", "panic", r)
			swallow = 0
		}
	}()

	ev := platform.KeyEvent{
		Type:      platform.KeyEventType(kind),
		Code:      platform.KeyCode(code),
		Modifiers: platform.Modifiers(flags) & platform.ModMask,
		Repeat:    repeat != 0,
	}
	if (*h)(ev) {
		return 1
	}
	return 0
}
