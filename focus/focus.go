// Package focus reads the accessibility state of the host: whether this
// process may synthesize input, what kind of element has keyboard focus and
// which application is frontmost.
package focus

import (
	"log/slog"
	"slices"
	"strings"

	"go.aimuz.me/echoflow/internal/types"
)

// System is the host accessibility API.
type System interface {
	// Trusted reports whether the process may inspect and drive other
	// applications.
	Trusted() bool
	// FocusedRole returns the accessibility role of the focused element.
	FocusedRole() (string, bool)
	// FrontmostApp returns the localized name of the frontmost application.
	FrontmostApp() (string, bool)
}

// TextRoles are the roles that accept typed text.
var TextRoles = []string{"AXTextField", "AXTextArea", "AXComboBox", "AXSearchField"}

// IsTextRole reports whether role accepts typed text.
func IsTextRole(role string) bool {
	return slices.Contains(TextRoles, role)
}

// Host returns the System of the running machine.
func Host() System { return newHost() }

// Inspector derives an AppContext from a System.
type Inspector struct {
	sys System
}

// NewInspector creates an Inspector.
func NewInspector(sys System) *Inspector {
	return &Inspector{sys: sys}
}

// Context returns the frontmost application, or nil if it is unknown.
func (p *Inspector) Context() *types.AppContext {
	name, ok := p.sys.FrontmostApp()
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil
	}
	slog.Debug("detected active application", "app", name)
	return &types.AppContext{ApplicationName: name}
}

// TextFieldFocused reports whether the process is trusted and the focused
// element accepts text.
func TextFieldFocused(sys System) bool {
	if !sys.Trusted() {
		return false
	}
	role, ok := sys.FocusedRole()
	return ok && IsTextRole(role)
}
