package focus

import "testing"

type fakeSystem struct {
	trusted bool
	role    string
	app     string
}

func (f fakeSystem) Trusted() bool { return f.trusted }

func (f fakeSystem) FocusedRole() (string, bool) { return f.role, f.role != "" }

func (f fakeSystem) FrontmostApp() (string, bool) { return f.app, f.app != "" }

func TestInspectorContext(t *testing.T) {
	tests := []struct {
		name string
		app  string
		want string
	}{
		{"known", "Mail", "Mail"},
		{"trimmed", " Slack ", "Slack"},
		{"unknown", "", ""},
		{"blank", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewInspector(fakeSystem{app: tt.app}).Context()
			if tt.want == "" {
				if ctx != nil {
					t.Errorf("Context() = %+v, want nil", ctx)
				}
				return
			}
			if ctx == nil || ctx.ApplicationName != tt.want {
				t.Errorf("Context() = %+v, want %q", ctx, tt.want)
			}
		})
	}
}

func TestTextFieldFocused(t *testing.T) {
	tests := []struct {
		name string
		sys  fakeSystem
		want bool
	}{
		{"text area", fakeSystem{trusted: true, role: "AXTextArea"}, true},
		{"search field", fakeSystem{trusted: true, role: "AXSearchField"}, true},
		{"button", fakeSystem{trusted: true, role: "AXButton"}, false},
		{"nothing focused", fakeSystem{trusted: true}, false},
		{"untrusted", fakeSystem{role: "AXTextField"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextFieldFocused(tt.sys); got != tt.want {
				t.Errorf("TextFieldFocused() = %v, want %v", got, tt.want)
			}
		})
	}
}
