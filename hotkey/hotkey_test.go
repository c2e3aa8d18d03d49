package hotkey

import (
	"strings"
	"testing"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/echoflow/internal/types"
)

func newRecorder(t *testing.T, mode types.RecordingMode) (*Manager, *[]string) {
	t.Helper()
	var log []string
	m, err := New([]string{"ctrl", "shift", "d"}, mode,
		func() { log = append(log, "start") },
		func() { log = append(log, "stop") },
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, &log
}

func press(m *Manager, names ...string) {
	for _, n := range names {
		m.handle(hook.Event{Kind: hook.KeyDown, Keycode: hook.Keycode[n]})
	}
}

func release(m *Manager, names ...string) {
	for _, n := range names {
		m.handle(hook.Event{Kind: hook.KeyUp, Keycode: hook.Keycode[n]})
	}
}

func TestPushToTalk(t *testing.T) {
	m, log := newRecorder(t, types.ModePushToTalk)

	press(m, "ctrl", "shift")
	if len(*log) != 0 {
		t.Fatalf("partial chord fired: %v", *log)
	}
	press(m, "d")
	// Auto-repeat must not restart.
	m.handle(hook.Event{Kind: hook.KeyHold, Keycode: hook.Keycode["d"]})
	release(m, "d")
	release(m, "shift", "ctrl")

	if got := strings.Join(*log, ","); got != "start,stop" {
		t.Errorf("events = %q, want start,stop", got)
	}
}

func TestToggle(t *testing.T) {
	m, log := newRecorder(t, types.ModeToggle)

	press(m, "ctrl", "shift", "d")
	release(m, "d")
	press(m, "d")
	release(m, "d", "shift", "ctrl")
	press(m, "ctrl", "shift", "d")

	if got := strings.Join(*log, ","); got != "start,stop,start" {
		t.Errorf("events = %q, want start,stop,start", got)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name  string
		chord []string
	}{
		{"empty", nil},
		{"unknown key", []string{"ctrl", "hyper-x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.chord, types.ModeToggle, nil, nil); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestUnknownModeIsPushToTalk(t *testing.T) {
	m, err := New([]string{"D"}, "", nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.mode != types.ModePushToTalk {
		t.Errorf("mode = %q, want push-to-talk", m.mode)
	}
}
