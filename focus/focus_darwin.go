//go:build darwin

package focus

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework Cocoa
#import <Cocoa/Cocoa.h>
#import <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>
#include <string.h>

static int ef_trusted(void) {
    return AXIsProcessTrusted() ? 1 : 0;
}

// Returns a malloc'd role string or NULL.
static char* ef_focused_role(void) {
    AXUIElementRef sys = AXUIElementCreateSystemWide();
    CFTypeRef focused = NULL;
    char *out = NULL;
    if (AXUIElementCopyAttributeValue(sys, kAXFocusedUIElementAttribute, &focused) == kAXErrorSuccess && focused) {
        CFTypeRef role = NULL;
        if (AXUIElementCopyAttributeValue((AXUIElementRef)focused, kAXRoleAttribute, &role) == kAXErrorSuccess && role) {
            out = strdup([(__bridge NSString *)role UTF8String]);
            CFRelease(role);
        }
        CFRelease(focused);
    }
    CFRelease(sys);
    return out;
}

static char* ef_frontmost_app(void) {
    @autoreleasepool {
        NSString *name = [[[NSWorkspace sharedWorkspace] frontmostApplication] localizedName];
        if (name == nil) return NULL;
        return strdup([name UTF8String]);
    }
}
*/
import "C"

import "unsafe"

type host struct{}

func newHost() System { return host{} }

func (host) Trusted() bool { return C.ef_trusted() != 0 }

func (host) FocusedRole() (string, bool) {
	return takeString(C.ef_focused_role())
}

func (host) FrontmostApp() (string, bool) {
	return takeString(C.ef_frontmost_app())
}

func takeString(cs *C.char) (string, bool) {
	if cs == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(cs))
	return C.GoString(cs), true
}
