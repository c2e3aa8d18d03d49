// Package hotkey watches a global key chord and turns it into recording
// start and stop signals.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"go.aimuz.me/echoflow/internal/types"
)

// Manager drives recording from a global key chord. In push-to-talk mode
// recording runs while the chord is held; in toggle mode each press flips
// it.
type Manager struct {
	keys    []uint16
	mode    types.RecordingMode
	onStart func()
	onStop  func()

	mu        sync.Mutex
	pressed   map[uint16]bool
	chordDown bool
	recording bool
	running   bool
	done      chan struct{}
}

// New resolves the chord key names. Names are gohook key names such as
// "ctrl", "shift", "alt", "cmd" or "d".
func New(chord []string, mode types.RecordingMode, onStart, onStop func()) (*Manager, error) {
	if len(chord) == 0 {
		return nil, fmt.Errorf("empty hotkey")
	}
	keys := make([]uint16, 0, len(chord))
	for _, name := range chord {
		code, ok := hook.Keycode[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		keys = append(keys, code)
	}
	if mode != types.ModeToggle {
		mode = types.ModePushToTalk
	}
	return &Manager{
		keys:    keys,
		mode:    mode,
		onStart: onStart,
		onStop:  onStop,
		pressed: map[uint16]bool{},
	}, nil
}

// Start installs the global hook.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.done = make(chan struct{})

	events := hook.Start()
	go func() {
		defer close(m.done)
		for ev := range events {
			m.handle(ev)
		}
	}()
	slog.Info("hotkey listening", "mode", m.mode)
	return nil
}

// Stop removes the global hook and waits for the event loop to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	done := m.done
	m.mu.Unlock()

	hook.End()
	<-done
}

func (m *Manager) handle(ev hook.Event) {
	var start, stop bool

	m.mu.Lock()
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		m.pressed[ev.Keycode] = true
	case hook.KeyUp:
		delete(m.pressed, ev.Keycode)
	default:
		m.mu.Unlock()
		return
	}

	down := m.allPressed()
	switch {
	case down && !m.chordDown:
		m.chordDown = true
		if m.mode == types.ModeToggle && m.recording {
			m.recording, stop = false, true
		} else if !m.recording {
			m.recording, start = true, true
		}
	case !down && m.chordDown:
		m.chordDown = false
		if m.mode == types.ModePushToTalk && m.recording {
			m.recording, stop = false, true
		}
	}
	m.mu.Unlock()

	if start && m.onStart != nil {
		m.onStart()
	}
	if stop && m.onStop != nil {
		m.onStop()
	}
}

func (m *Manager) allPressed() bool {
	for _, k := range m.keys {
		if !m.pressed[k] {
			return false
		}
	}
	return true
}
