package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"unicode"

	"github.com/pkg/browser"
)

// System performs the host side effects of the built-in commands.
type System interface {
	OpenURL(u string) error
	LaunchApp(ctx context.Context, name string) error
}

// Host is the System of the running machine.
type Host struct{}

func (Host) OpenURL(u string) error {
	return browser.OpenURL(u)
}

// ErrInvalidAppName is returned for app names that could be read as shell
// syntax or command-line flags.
var ErrInvalidAppName = errors.New("invalid app name")

// checkAppName rejects names carrying cmd.exe metacharacters, control
// characters or a leading dash.
func checkAppName(name string) error {
	if strings.TrimSpace(name) == "" || strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidAppName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(`&|<>^%"`+"`", r) {
			return fmt.Errorf("%w: %q", ErrInvalidAppName, name)
		}
	}
	return nil
}

func (Host) LaunchApp(ctx context.Context, name string) error {
	if err := checkAppName(name); err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", "-a", name)
	case "windows":
		cmd = exec.CommandContext(ctx, "cmd", "/c", "start", "", name)
	default:
		if path, err := exec.LookPath("gtk-launch"); err == nil {
			cmd = exec.CommandContext(ctx, path, strings.ToLower(name))
		} else {
			cmd = exec.CommandContext(ctx, "xdg-open", name)
		}
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("launch %q: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

const searchURL = "https://www.google.com/search?q="

func registerBuiltins(d *Dispatcher, sys System) {
	d.Register("open_app", func(ctx context.Context, p map[string]string) error {
		name := strings.TrimSpace(p["app_name"])
		if name == "" {
			return fmt.Errorf("%w: app_name", ErrMissingParameter)
		}
		return sys.LaunchApp(ctx, name)
	})

	d.Register("send_email", func(_ context.Context, p map[string]string) error {
		return sys.OpenURL(mailtoURL(p))
	})

	d.Register("open_url", func(_ context.Context, p map[string]string) error {
		raw := strings.TrimSpace(p["url"])
		if raw == "" {
			return fmt.Errorf("%w: url", ErrMissingParameter)
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("refusing url %q", raw)
		}
		return sys.OpenURL(u.String())
	})

	d.Register("search_web", func(_ context.Context, p map[string]string) error {
		q := strings.TrimSpace(p["query"])
		if q == "" {
			return fmt.Errorf("%w: query", ErrMissingParameter)
		}
		return sys.OpenURL(searchURL + url.QueryEscape(q))
	})
}

// mailtoURL builds a mailto link. An "unknown" recipient leaves the address
// empty for the user to fill in.
func mailtoURL(p map[string]string) string {
	to := p["recipient"]
	if to == "unknown" {
		to = ""
	}
	q := url.Values{}
	if s := p["subject"]; s != "" {
		q.Set("subject", s)
	}
	if b := p["body"]; b != "" {
		q.Set("body", b)
	}
	u := url.URL{Scheme: "mailto", Opaque: url.PathEscape(to)}
	// mailto bodies use %20 rather than +.
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String()
}
