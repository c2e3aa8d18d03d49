//go:build darwin

package privacy

/*
#cgo LDFLAGS: -framework Carbon
#include <Carbon/Carbon.h>

static int secureInputEnabled(void) {
    return IsSecureEventInputEnabled() ? 1 : 0;
}
*/
import "C"

// SystemDetector returns a Detector backed by the Carbon secure input API.
func SystemDetector() Detector {
	return DetectorFunc(func() bool {
		return C.secureInputEnabled() != 0
	})
}
