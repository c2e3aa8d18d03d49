package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.aimuz.me/echoflow/internal/types"
)

type fakeInjector struct {
	texts []string
	err   error
}

func (f *fakeInjector) Inject(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakeSystem struct {
	urls     []string
	launched []string
}

func (f *fakeSystem) OpenURL(u string) error {
	f.urls = append(f.urls, u)
	return nil
}

func (f *fakeSystem) LaunchApp(_ context.Context, name string) error {
	f.launched = append(f.launched, name)
	return nil
}

func TestDispatchDictation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"formatted", "send 5 dollars via the api", []string{"send $5 via the API"}},
		{"empty dropped", "", nil},
		{"whitespace dropped", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := &fakeInjector{}
			d := New(inj, &fakeSystem{})
			if err := d.Dispatch(context.Background(), types.Dictation(tt.text)); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if strings.Join(inj.texts, "|") != strings.Join(tt.want, "|") {
				t.Errorf("injected = %q, want %q", inj.texts, tt.want)
			}
		})
	}
}

func TestDispatchInjectError(t *testing.T) {
	cause := errors.New("denied")
	d := New(&fakeInjector{err: cause}, &fakeSystem{})
	if err := d.Dispatch(context.Background(), types.Dictation("hi")); !errors.Is(err, cause) {
		t.Errorf("Dispatch() error = %v, want %v", err, cause)
	}
}

func TestDispatchCommands(t *testing.T) {
	tests := []struct {
		name         string
		route        types.RouteResult
		wantURL      string
		wantLaunched string
		wantErr      bool
	}{
		{
			name:         "open app",
			route:        types.Command("open_app", map[string]string{"app_name": "Safari"}),
			wantLaunched: "Safari",
		},
		{
			name:    "open app without name",
			route:   types.Command("open_app", nil),
			wantErr: true,
		},
		{
			name:    "send email",
			route:   types.Command("send_email", map[string]string{"recipient": "mark@example.com", "subject": "Lunch", "body": "see you at noon"}),
			wantURL: "mailto:mark@example.com?body=see%20you%20at%20noon&subject=Lunch",
		},
		{
			name:    "send email unknown recipient",
			route:   types.Command("send_email", map[string]string{"recipient": "unknown", "body": "hi"}),
			wantURL: "mailto:?body=hi",
		},
		{
			name:    "open url",
			route:   types.Command("open_url", map[string]string{"url": "https://go.dev/doc"}),
			wantURL: "https://go.dev/doc",
		},
		{
			name:    "open url rejects file scheme",
			route:   types.Command("open_url", map[string]string{"url": "file:///etc/passwd"}),
			wantErr: true,
		},
		{
			name:    "search web",
			route:   types.Command("search_web", map[string]string{"query": "go generics"}),
			wantURL: "https://www.google.com/search?q=go+generics",
		},
		{
			name:  "unknown action dropped",
			route: types.Command("fly_to_moon", nil),
		},
		{
			name:  "unknown route",
			route: types.Unknown(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &fakeSystem{}
			inj := &fakeInjector{}
			d := New(inj, sys)

			err := d.Dispatch(context.Background(), tt.route)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dispatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantURL != "" && (len(sys.urls) != 1 || sys.urls[0] != tt.wantURL) {
				t.Errorf("opened = %q, want %q", sys.urls, tt.wantURL)
			}
			if tt.wantLaunched != "" && (len(sys.launched) != 1 || sys.launched[0] != tt.wantLaunched) {
				t.Errorf("launched = %q, want %q", sys.launched, tt.wantLaunched)
			}
			if len(inj.texts) != 0 {
				t.Errorf("commands must not inject, got %q", inj.texts)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	d := New(&fakeInjector{}, &fakeSystem{})
	var got map[string]string
	d.Register("toggle_dnd", func(_ context.Context, p map[string]string) error {
		got = p
		return nil
	})

	if err := d.Dispatch(context.Background(), types.Command("toggle_dnd", map[string]string{"on": "true"})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got["on"] != "true" {
		t.Errorf("params = %v", got)
	}

	want := []string{"open_app", "open_url", "search_web", "send_email", "toggle_dnd"}
	if a := d.Actions(); strings.Join(a, ",") != strings.Join(want, ",") {
		t.Errorf("Actions() = %v, want %v", a, want)
	}
}

func TestCheckAppName(t *testing.T) {
	tests := []struct {
		name    string
		app     string
		wantErr bool
	}{
		{"plain", "Safari", false},
		{"spaces", "Visual Studio Code", false},
		{"unicode", "Café Notes", false},
		{"empty", "  ", true},
		{"ampersand", "calc & del C:\\x", true},
		{"pipe", "notes | shutdown", true},
		{"redirect", "notes > out.txt", true},
		{"caret escape", "no^tes", true},
		{"env var", "%COMSPEC%", true},
		{"quote", `Safari"`, true},
		{"flag", "--args", true},
		{"newline", "Safari\nrm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAppName(tt.app)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkAppName(%q) error = %v, wantErr %v", tt.app, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidAppName) {
				t.Errorf("error = %v, want ErrInvalidAppName", err)
			}
		})
	}
}

func TestHostLaunchRejectsShellSyntax(t *testing.T) {
	err := Host{}.LaunchApp(context.Background(), "notes & calc")
	if !errors.Is(err, ErrInvalidAppName) {
		t.Errorf("LaunchApp() error = %v, want ErrInvalidAppName", err)
	}
}
