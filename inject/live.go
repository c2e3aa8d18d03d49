package inject

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"

	"go.aimuz.me/echoflow/clipboard"
	"go.aimuz.me/echoflow/focus"
	"go.aimuz.me/echoflow/internal/clock"
)

const (
	// LiveRestoreDelay is the clipboard restore delay after the final paste.
	LiveRestoreDelay = 500 * time.Millisecond
	// UpdateInterval is the minimum spacing between partial updates.
	UpdateInterval = 300 * time.Millisecond

	selectPause = 15 * time.Millisecond
)

// Live streams partial transcripts into the focused text field by selecting
// the previously pasted text and pasting over it.
type Live struct {
	g   *guard
	kb  Keyboard
	sys focus.System

	mu          sync.Mutex
	inField     bool
	previousLen int
	lastText    string
	lastUpdate  time.Time
	held        bool
}

// NewLive creates a Live injector with its own clipboard ownership. Use
// Injector.Live to share it with an Injector.
func NewLive(board clipboard.Board, kb Keyboard, sys focus.System, clk clock.Clock) *Live {
	return &Live{g: newGuard(board, clk), kb: kb, sys: sys}
}

// BeginSession resets state and records whether a text field has focus.
func (l *Live) BeginSession() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
	l.inField = focus.TextFieldFocused(l.sys)
}

// InTextField reports whether the current session targets a text field.
func (l *Live) InTextField() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inField
}

// UpdatePartial replaces the previously pasted partial with text.
func (l *Live) UpdatePartial(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.inField || text == "" || text == l.lastText {
		return nil
	}
	now := l.g.clock.Now()
	if !l.lastUpdate.IsZero() && now.Sub(l.lastUpdate) < UpdateInterval {
		return nil
	}

	l.g.mu.Lock()
	defer l.g.mu.Unlock()
	if err := l.hold(); err != nil {
		return err
	}
	if err := l.replace(text); err != nil {
		return err
	}
	l.lastUpdate = now
	return nil
}

// EndSession replaces the last partial with final and schedules the
// clipboard restore. It returns false if no text field had focus.
func (l *Live) EndSession(ctx context.Context, final string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.reset()

	if !l.inField {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		l.cancelLocked()
		return false, err
	}

	l.g.mu.Lock()
	defer l.g.mu.Unlock()

	// An empty final keeps whatever the partials typed.
	if strings.TrimSpace(final) == "" {
		final = l.lastText
	}
	var err error
	if final != "" {
		if err = l.hold(); err == nil {
			err = l.replace(final)
		}
	}
	if l.held {
		l.g.release(LiveRestoreDelay)
	}
	return true, err
}

// Cancel ends the session without touching the field. A clipboard taken
// over by partials is still restored.
func (l *Live) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelLocked()
}

func (l *Live) cancelLocked() {
	if l.held {
		l.g.mu.Lock()
		l.g.release(LiveRestoreDelay)
		l.g.mu.Unlock()
	}
	l.reset()
}

// Wait blocks until every scheduled restore has run.
func (l *Live) Wait() {
	l.g.wait()
}

// hold takes the clipboard for this session. Callers hold l.g.mu.
func (l *Live) hold() error {
	if err := l.g.hold(); err != nil {
		return err
	}
	l.held = true
	return nil
}

func (l *Live) replace(text string) error {
	if l.previousLen > 0 {
		if err := l.kb.SelectBackward(l.previousLen); err != nil {
			return err
		}
		l.g.clock.Sleep(selectPause)
	}
	if err := l.g.board.WriteText(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := l.kb.Paste(); err != nil {
		return err
	}
	// Shift+Left moves one user-perceived character at a time.
	l.previousLen = uniseg.GraphemeClusterCount(text)
	l.lastText = text
	return nil
}

func (l *Live) reset() {
	l.inField = false
	l.previousLen = 0
	l.lastText = ""
	l.lastUpdate = time.Time{}
	l.held = false
}
