//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <pthread.h>
#include <unistd.h>

// Implemented in Go, see eventtap_exports.go. Returns 1 to swallow.
extern int dsKeyEvent(int kind, int code, unsigned long long flags, int repeat);

static CFMachPortRef tap = NULL;
static CFRunLoopSourceRef tapSource = NULL;
static CFRunLoopRef tapRunLoop = NULL;
static pthread_t tapThread;
static volatile int tapThreadRunning = 0;
static volatile int tapReady = 0;
static volatile int tapDetachments = 0;

static CGEventRef tapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    (void)proxy;
    (void)refcon;

    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        __atomic_add_fetch(&tapDetachments, 1, __ATOMIC_SEQ_CST);
        if (tap != NULL) CGEventTapEnable(tap, true);
        return event;
    }

    int kind;
    switch (type) {
    case kCGEventKeyDown:
        kind = 0;
        break;
    case kCGEventKeyUp:
        kind = 1;
        break;
    case kCGEventFlagsChanged:
        kind = 2;
        break;
    default:
        return event;
    }
    int code = (int)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
    int repeat = (int)CGEventGetIntegerValueField(event, kCGKeyboardEventAutorepeat);
    unsigned long long flags = (unsigned long long)CGEventGetFlags(event);
    if (dsKeyEvent(kind, code, flags, repeat)) return NULL;
    return event;
}

static void *tapLoop(void *arg) {
    (void)arg;
    tapRunLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(tapRunLoop, tapSource, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);
    tapReady = 1;
    CFRunLoopRun();
    tapReady = 0;
    tapRunLoop = NULL;
    return NULL;
}

static void stopTap(void);

// 0 on success, 1 when already running, <0 on failure.
static int startTap(void) {
    if (tap != NULL) return 1;

    CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) |
        CGEventMaskBit(kCGEventKeyUp) |
        CGEventMaskBit(kCGEventFlagsChanged);
    tap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
        kCGEventTapOptionDefault, mask, tapCallback, NULL);
    if (tap == NULL) return -1;

    tapSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    if (tapSource == NULL) {
        CFRelease(tap);
        tap = NULL;
        return -2;
    }

    tapThreadRunning = 1;
    if (pthread_create(&tapThread, NULL, tapLoop, NULL) != 0) {
        tapThreadRunning = 0;
        CFRelease(tapSource);
        CFRelease(tap);
        tapSource = NULL;
        tap = NULL;
        return -3;
    }
    for (int i = 0; i < 100 && !tapReady; i++) usleep(10000);
    if (!tapReady) {
        stopTap();
        return -4;
    }
    return 0;
}

static void stopTap(void) {
    if (tap == NULL) return;
    CGEventTapEnable(tap, false);
    if (tapRunLoop != NULL) CFRunLoopStop(tapRunLoop);
    if (tapThreadRunning) {
        pthread_join(tapThread, NULL);
        tapThreadRunning = 0;
    }
    if (tapSource != NULL) {
        CFRelease(tapSource);
        tapSource = NULL;
    }
    CFRelease(tap);
    tap = NULL;
}

static int tapEnabled(void) {
    return tap != NULL && CGEventTapIsEnabled(tap);
}

static int rearmTap(void) {
    if (tap == NULL) return 0;
    CGEventTapEnable(tap, true);
    return CGEventTapIsEnabled(tap) ? 1 : 0;
}

static int takeDetachments(void) {
    return __atomic_exchange_n(&tapDetachments, 0, __ATOMIC_SEQ_CST);
}
*/
import "C"
import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mj1618/desktop-switch/internal/platform"
)

var (
	ErrTapRunning = errors.New("event tap already running")
	// ErrTapDenied means CGEventTapCreate refused, usually for lack of
	// accessibility or input monitoring permission.
	ErrTapDenied = errors.New("event tap could not be created: accessibility permission required")
)

// The OS delivers events through a single C callback, so only one handler
// can be active per process.
var activeHandler atomic.Pointer[platform.KeyEventHandler]

// EventTap implements platform.EventTap with a session-level CGEventTap
// running on its own CFRunLoop thread.
type EventTap struct {
	mu      sync.Mutex
	running bool
}

// NewEventTap creates an event tap. Nothing is installed until Start.
func NewEventTap() *EventTap {
	return &EventTap{}
}

// Start installs the tap. Events are delivered to h until Stop or until ctx
// is done.
func (t *EventTap) Start(ctx context.Context, h platform.KeyEventHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTapRunning
	}

	activeHandler.Store(&h)
	switch rc := C.startTap(); rc {
	case 0:
	case 1:
		activeHandler.Store(nil)
		return ErrTapRunning
	case -1:
		activeHandler.Store(nil)
		return ErrTapDenied
	default:
		activeHandler.Store(nil)
		return fmt.Errorf("start event tap: code %d", int(rc))
	}
	t.running = true

	go func() {
		<-ctx.Done()
		t.Stop()
	}()
	return nil
}

// Stop removes the tap and joins its run loop thread. It is safe to call
// more than once.
func (t *EventTap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	C.stopTap()
	activeHandler.Store(nil)
	t.running = false
	return nil
}

func (t *EventTap) Enabled() bool {
	return C.tapEnabled() != 0
}

func (t *EventTap) Rearm() bool {
	return C.rearmTap() != 0
}

func (t *EventTap) Detachments() int {
	return int(C.takeDetachments())
}
