//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework CoreFoundation -framework Foundation -framework Carbon
#include <ApplicationServices/ApplicationServices.h>
#include <Carbon/Carbon.h>
#import <AppKit/AppKit.h>
#include <dlfcn.h>
#include <pthread.h>
#include <stdlib.h>

// Finds the window of pid titled title: exact match first, then
// case-insensitive. The returned ref is retained; the caller releases it.
static AXUIElementRef ax_find_window(pid_t pid, const char *title) {
    AXUIElementRef app = AXUIElementCreateApplication(pid);
    if (app == NULL) return NULL;
    AXUIElementSetMessagingTimeout(app, 0.25);

    CFArrayRef windows = NULL;
    if (AXUIElementCopyAttributeValue(app, kAXWindowsAttribute, (CFTypeRef *)&windows) != kAXErrorSuccess || windows == NULL) {
        CFRelease(app);
        return NULL;
    }
    CFStringRef want = CFStringCreateWithCString(NULL, title, kCFStringEncodingUTF8);
    AXUIElementRef found = NULL;
    CFIndex n = CFArrayGetCount(windows);
    for (int pass = 0; pass < 2 && found == NULL && want != NULL; pass++) {
        CFStringCompareFlags flags = pass == 0 ? 0 : kCFCompareCaseInsensitive;
        for (CFIndex i = 0; i < n; i++) {
            AXUIElementRef w = (AXUIElementRef)CFArrayGetValueAtIndex(windows, i);
            CFTypeRef t = NULL;
            if (AXUIElementCopyAttributeValue(w, kAXTitleAttribute, &t) != kAXErrorSuccess || t == NULL) continue;
            int match = CFGetTypeID(t) == CFStringGetTypeID() &&
                CFStringCompare((CFStringRef)t, want, flags) == kCFCompareEqualTo;
            CFRelease(t);
            if (match) {
                found = (AXUIElementRef)CFRetain(w);
                break;
            }
        }
    }
    if (want != NULL) CFRelease(want);
    CFRelease(windows);
    CFRelease(app);
    return found;
}

static void ax_release(AXUIElementRef ref) {
    if (ref != NULL) CFRelease(ref);
}

static int ns_app_running(pid_t pid) {
    @autoreleasepool {
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        return app != nil && !app.terminated;
    }
}

static int ns_activate_app(pid_t pid) {
    @autoreleasepool {
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        if (app == nil) return -1;
        return [app activateWithOptions:NSApplicationActivateIgnoringOtherApps] ? 0 : -2;
    }
}

// _SLPSSetFrontProcessWithOptions lives in the private SkyLight framework and
// is looked up at runtime.
typedef CGError (*set_front_fn)(ProcessSerialNumber *psn, CGWindowID wid, uint32_t mode);
static set_front_fn set_front = NULL;
static pthread_once_t set_front_once = PTHREAD_ONCE_INIT;

static void load_set_front(void) {
    void *h = dlopen("/System/Library/PrivateFrameworks/SkyLight.framework/SkyLight", RTLD_LAZY);
    if (h != NULL) set_front = (set_front_fn)dlsym(h, "_SLPSSetFrontProcessWithOptions");
}

// Returns 1 when the primitive is unavailable, 0 on success, <0 on failure.
static int sl_force_front(pid_t pid, CGWindowID wid) {
    pthread_once(&set_front_once, load_set_front);
    if (set_front == NULL) return 1;
    ProcessSerialNumber psn;
#pragma clang diagnostic push
#pragma clang diagnostic ignored "-Wdeprecated-declarations"
    if (GetProcessForPID(pid, &psn) != noErr) return -1;
#pragma clang diagnostic pop
    const uint32_t userGenerated = 0x200;
    return set_front(&psn, wid, userGenerated) == kCGErrorSuccess ? 0 : -2;
}

static int ax_raise(AXUIElementRef w) {
    AXError err = AXUIElementPerformAction(w, kAXRaiseAction);
    AXUIElementSetAttributeValue(w, kAXMainAttribute, kCFBooleanTrue);
    AXUIElementSetAttributeValue(w, kAXFocusedAttribute, kCFBooleanTrue);
    return err == kAXErrorSuccess ? 0 : (int)err;
}

// Reads the live frame of w. Returns 0 on success.
static int ax_frame(AXUIElementRef w, double *x, double *y, double *width, double *height) {
    CFTypeRef pos = NULL, size = NULL;
    int rc = -1;
    if (AXUIElementCopyAttributeValue(w, kAXPositionAttribute, &pos) == kAXErrorSuccess && pos != NULL &&
        AXUIElementCopyAttributeValue(w, kAXSizeAttribute, &size) == kAXErrorSuccess && size != NULL) {
        CGPoint p;
        CGSize s;
        if (AXValueGetValue((AXValueRef)pos, kAXValueCGPointType, &p) &&
            AXValueGetValue((AXValueRef)size, kAXValueCGSizeType, &s)) {
            *x = p.x;
            *y = p.y;
            *width = s.width;
            *height = s.height;
            rc = 0;
        }
    }
    if (pos != NULL) CFRelease(pos);
    if (size != NULL) CFRelease(size);
    return rc;
}

static int cg_click(double x, double y) {
    CGPoint point = CGPointMake(x, y);
    CGEventRef down = CGEventCreateMouseEvent(NULL, kCGEventLeftMouseDown, point, kCGMouseButtonLeft);
    CGEventRef up = CGEventCreateMouseEvent(NULL, kCGEventLeftMouseUp, point, kCGMouseButtonLeft);
    if (!down || !up) {
        if (down) CFRelease(down);
        if (up) CFRelease(up);
        return -1;
    }
    CGEventSetIntegerValueField(down, kCGMouseEventClickState, 1);
    CGEventSetIntegerValueField(up, kCGMouseEventClickState, 1);
    CGEventPost(kCGHIDEventTap, down);
    CGEventPost(kCGHIDEventTap, up);
    CFRelease(down);
    CFRelease(up);
    return 0;
}
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
)

// Focuser implements platform.Focuser with AppKit, Accessibility and
// CoreGraphics primitives.
type Focuser struct{}

// NewFocuser creates a focuser.
func NewFocuser() *Focuser {
	return &Focuser{}
}

// axWindow is a retained accessibility window reference.
type axWindow struct {
	ref   C.AXUIElementRef
	title string
	once  sync.Once
}

func (w *axWindow) Title() string { return w.title }

func (w *axWindow) Frame() (model.Geometry, error) {
	var x, y, width, height C.double
	if C.ax_frame(w.ref, &x, &y, &width, &height) != 0 {
		return model.Geometry{}, fmt.Errorf("read frame of %q", w.title)
	}
	return model.Geometry{X: float64(x), Y: float64(y), Width: float64(width), Height: float64(height)}, nil
}

func (w *axWindow) Release() {
	w.once.Do(func() {
		C.ax_release(w.ref)
	})
}

// ResolveProcess reports whether pid is alive and still a running app.
func (f *Focuser) ResolveProcess(pid int) bool {
	if !platform.ProcessAlive(pid) {
		return false
	}
	return C.ns_app_running(C.pid_t(pid)) != 0
}

// ResolveWindow looks the window up afresh on every call.
func (f *Focuser) ResolveWindow(pid int, title string) (platform.WindowRef, error) {
	cTitle := C.CString(title)
	defer C.free(unsafe.Pointer(cTitle))
	ref := C.ax_find_window(C.pid_t(pid), cTitle)
	if ref == 0 {
		return nil, fmt.Errorf("no window titled %q for PID %d", title, pid)
	}
	return &axWindow{ref: ref, title: title}, nil
}

func (f *Focuser) ActivateApp(pid int) error {
	if rc := C.ns_activate_app(C.pid_t(pid)); rc != 0 {
		return fmt.Errorf("failed to activate app with PID %d (code %d)", pid, int(rc))
	}
	return nil
}

func (f *Focuser) ForceFront(pid int, windowID uint32) (bool, error) {
	switch rc := C.sl_force_front(C.pid_t(pid), C.CGWindowID(windowID)); {
	case rc == 1:
		return false, nil
	case rc != 0:
		return true, fmt.Errorf("set front process failed for PID %d (code %d)", pid, int(rc))
	}
	return true, nil
}

func (f *Focuser) Raise(ref platform.WindowRef) error {
	w, ok := ref.(*axWindow)
	if !ok || w == nil {
		return fmt.Errorf("raise: foreign window reference %T", ref)
	}
	if rc := C.ax_raise(w.ref); rc != 0 {
		return fmt.Errorf("raise %q: AX error %d", w.title, int(rc))
	}
	return nil
}

func (f *Focuser) ClickTitleBar(x, y float64) error {
	if C.cg_click(C.double(x), C.double(y)) != 0 {
		return fmt.Errorf("failed to click at (%.0f, %.0f)", x, y)
	}
	return nil
}
