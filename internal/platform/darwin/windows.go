//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices -framework Foundation
#include <ApplicationServices/ApplicationServices.h>
#import <AppKit/AppKit.h>
#include <stdlib.h>
#include <string.h>

// Private but stable since 10.5: maps an AX window to its CGWindowID.
extern AXError _AXUIElementGetWindow(AXUIElementRef element, CGWindowID *wid);

typedef struct {
    int pid;
    int layer;
    unsigned int windowID;
    double x, y, width, height;
    char *owner;
} ZEntry;

typedef struct {
    char *title;
    char *role;
    char *subrole;
    double x, y, width, height;
    unsigned int windowID;
} AXWindowEntry;

static char *copy_cfstring(CFStringRef s) {
    if (s == NULL) return NULL;
    CFIndex len = CFStringGetMaximumSizeForEncoding(CFStringGetLength(s), kCFStringEncodingUTF8) + 1;
    char *buf = malloc(len);
    if (buf == NULL) return NULL;
    if (!CFStringGetCString(s, buf, len, kCFStringEncodingUTF8)) {
        free(buf);
        return NULL;
    }
    return buf;
}

static int dict_int(CFDictionaryRef d, CFStringRef key, int *out) {
    CFNumberRef n = CFDictionaryGetValue(d, key);
    if (n == NULL) return -1;
    return CFNumberGetValue(n, kCFNumberIntType, out) ? 0 : -1;
}

// Front-to-back list of on-screen windows.
static int cg_query_z(ZEntry **out, int *count) {
    *out = NULL;
    *count = 0;
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
    if (list == NULL) return -1;

    CFIndex n = CFArrayGetCount(list);
    ZEntry *entries = calloc(n > 0 ? n : 1, sizeof(ZEntry));
    if (entries == NULL) {
        CFRelease(list);
        return -1;
    }
    for (CFIndex i = 0; i < n; i++) {
        CFDictionaryRef d = CFArrayGetValueAtIndex(list, i);
        ZEntry *e = &entries[i];
        int number = 0;
        dict_int(d, kCGWindowOwnerPID, &e->pid);
        dict_int(d, kCGWindowLayer, &e->layer);
        if (dict_int(d, kCGWindowNumber, &number) == 0) e->windowID = (unsigned int)number;

        CFDictionaryRef b = CFDictionaryGetValue(d, kCGWindowBounds);
        CGRect r;
        if (b != NULL && CGRectMakeWithDictionaryRepresentation(b, &r)) {
            e->x = r.origin.x;
            e->y = r.origin.y;
            e->width = r.size.width;
            e->height = r.size.height;
        }
        e->owner = copy_cfstring(CFDictionaryGetValue(d, kCGWindowOwnerName));
    }
    CFRelease(list);
    *out = entries;
    *count = (int)n;
    return 0;
}

static void cg_free_z(ZEntry *entries, int count) {
    if (entries == NULL) return;
    for (int i = 0; i < count; i++) free(entries[i].owner);
    free(entries);
}

static char *ax_string(AXUIElementRef el, CFStringRef attr) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue(el, attr, &v) != kAXErrorSuccess || v == NULL) return NULL;
    char *out = NULL;
    if (CFGetTypeID(v) == CFStringGetTypeID()) out = copy_cfstring((CFStringRef)v);
    CFRelease(v);
    return out;
}

static int ax_value(AXUIElementRef el, CFStringRef attr, AXValueType type, void *out) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue(el, attr, &v) != kAXErrorSuccess || v == NULL) return -1;
    int rc = -1;
    if (CFGetTypeID(v) == AXValueGetTypeID() && AXValueGetValue((AXValueRef)v, type, out)) rc = 0;
    CFRelease(v);
    return rc;
}

// Accessibility windows of one process. A hung app costs at most the
// messaging timeout.
static int ax_query_titles(pid_t pid, AXWindowEntry **out, int *count) {
    *out = NULL;
    *count = 0;
    AXUIElementRef app = AXUIElementCreateApplication(pid);
    if (app == NULL) return -1;
    AXUIElementSetMessagingTimeout(app, 0.25);

    CFArrayRef windows = NULL;
    if (AXUIElementCopyAttributeValue(app, kAXWindowsAttribute, (CFTypeRef *)&windows) != kAXErrorSuccess || windows == NULL) {
        CFRelease(app);
        return -1;
    }
    CFIndex n = CFArrayGetCount(windows);
    AXWindowEntry *entries = calloc(n > 0 ? n : 1, sizeof(AXWindowEntry));
    if (entries == NULL) {
        CFRelease(windows);
        CFRelease(app);
        return -1;
    }
    for (CFIndex i = 0; i < n; i++) {
        AXUIElementRef w = (AXUIElementRef)CFArrayGetValueAtIndex(windows, i);
        AXWindowEntry *e = &entries[i];
        e->title = ax_string(w, kAXTitleAttribute);
        e->role = ax_string(w, kAXRoleAttribute);
        e->subrole = ax_string(w, kAXSubroleAttribute);

        CGPoint p;
        if (ax_value(w, kAXPositionAttribute, kAXValueCGPointType, &p) == 0) {
            e->x = p.x;
            e->y = p.y;
        }
        CGSize s;
        if (ax_value(w, kAXSizeAttribute, kAXValueCGSizeType, &s) == 0) {
            e->width = s.width;
            e->height = s.height;
        }
        CGWindowID wid = 0;
        if (_AXUIElementGetWindow(w, &wid) == kAXErrorSuccess) e->windowID = wid;
    }
    CFRelease(windows);
    CFRelease(app);
    *out = entries;
    *count = (int)n;
    return 0;
}

static void ax_free_titles(AXWindowEntry *entries, int count) {
    if (entries == NULL) return;
    for (int i = 0; i < count; i++) {
        free(entries[i].title);
        free(entries[i].role);
        free(entries[i].subrole);
    }
    free(entries);
}

static int ns_app_info(pid_t pid, char **name, char **bundlePath, int *regular) {
    @autoreleasepool {
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        if (app == nil || app.terminated) return -1;
        *name = app.localizedName ? strdup(app.localizedName.UTF8String) : NULL;
        *bundlePath = app.bundleURL ? strdup(app.bundleURL.path.UTF8String) : NULL;
        *regular = app.activationPolicy == NSApplicationActivationPolicyRegular ? 1 : 0;
        return 0;
    }
}
*/
import "C"
import (
	"unsafe"

	"github.com/mj1618/desktop-switch/internal/model"
)

// WindowSource implements ZSource, TitleSource and AppDirectory. Each query
// is independent; nothing is cached between calls.
type WindowSource struct{}

// NewWindowSource creates a window source.
func NewWindowSource() *WindowSource {
	return &WindowSource{}
}

// QueryZ returns on-screen windows front to back using CGWindowListCopyWindowInfo.
func (s *WindowSource) QueryZ() []model.ZEntry {
	var cEntries *C.ZEntry
	var cCount C.int
	if C.cg_query_z(&cEntries, &cCount) != 0 {
		return nil
	}
	defer C.cg_free_z(cEntries, cCount)

	count := int(cCount)
	if count == 0 {
		return nil
	}
	out := make([]model.ZEntry, 0, count)
	for _, ce := range unsafe.Slice(cEntries, count) {
		out = append(out, model.ZEntry{
			PID:   int(ce.pid),
			Layer: int(ce.layer),
			Geometry: model.Geometry{
				X:      float64(ce.x),
				Y:      float64(ce.y),
				Width:  float64(ce.width),
				Height: float64(ce.height),
			},
			WindowID: uint32(ce.windowID),
			AppName:  goString(ce.owner),
		})
	}
	return out
}

// QueryTitles returns the accessibility windows of pid in the order the app
// reports them.
func (s *WindowSource) QueryTitles(pid int) []model.TitleEntry {
	var cEntries *C.AXWindowEntry
	var cCount C.int
	if C.ax_query_titles(C.pid_t(pid), &cEntries, &cCount) != 0 {
		return nil
	}
	defer C.ax_free_titles(cEntries, cCount)

	count := int(cCount)
	if count == 0 {
		return nil
	}
	out := make([]model.TitleEntry, 0, count)
	for _, ce := range unsafe.Slice(cEntries, count) {
		out = append(out, model.TitleEntry{
			Geometry: model.Geometry{
				X:      float64(ce.x),
				Y:      float64(ce.y),
				Width:  float64(ce.width),
				Height: float64(ce.height),
			},
			Title:    goString(ce.title),
			Role:     goString(ce.role),
			Subrole:  goString(ce.subrole),
			WindowID: uint32(ce.windowID),
		})
	}
	return out
}

// Lookup returns metadata for the running application with pid.
func (s *WindowSource) Lookup(pid int) (model.AppInfo, bool) {
	var cName, cPath *C.char
	var cRegular C.int
	if C.ns_app_info(C.pid_t(pid), &cName, &cPath, &cRegular) != 0 {
		return model.AppInfo{}, false
	}
	defer C.free(unsafe.Pointer(cName))
	defer C.free(unsafe.Pointer(cPath))
	return model.AppInfo{
		PID:      pid,
		Name:     goString(cName),
		IconPath: goString(cPath),
		Regular:  cRegular != 0,
	}, true
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}
