//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Foundation
#include <ApplicationServices/ApplicationServices.h>
#import <Foundation/Foundation.h>

static int is_trusted() {
    return AXIsProcessTrusted();
}

static int prompt_trusted() {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: @YES};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

// PermissionGate reports the accessibility grant.
type PermissionGate struct{}

// NewPermissionGate creates a gate.
func NewPermissionGate() *PermissionGate {
	return &PermissionGate{}
}

// HasPermission returns true if the process has accessibility permission.
func (g *PermissionGate) HasPermission() bool {
	return C.is_trusted() != 0
}

// RequestPermission shows the system prompt when the grant is missing and
// returns the current state. The grant only takes effect once the user
// approves it in System Settings.
func (g *PermissionGate) RequestPermission() bool {
	return C.prompt_trusted() != 0
}
