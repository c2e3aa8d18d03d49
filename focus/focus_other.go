//go:build !darwin

package focus

// host has no accessibility API: it is never trusted and knows no app.
type host struct{}

func newHost() System { return host{} }

func (host) Trusted() bool                { return false }
func (host) FocusedRole() (string, bool)  { return "", false }
func (host) FrontmostApp() (string, bool) { return "", false }
