// Package inject types text into the focused application by swapping it
// through the clipboard and synthesizing a paste.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/echoflow/clipboard"
	"go.aimuz.me/echoflow/focus"
	"go.aimuz.me/echoflow/internal/apperr"
	"go.aimuz.me/echoflow/internal/clock"
)

// RestoreDelay is how long the pasted text stays on the clipboard before the
// previous contents are put back.
const RestoreDelay = 300 * time.Millisecond

// Injector pastes text and restores the clipboard afterwards.
type Injector struct {
	g   *guard
	kb  Keyboard
	sys focus.System
}

// New creates an Injector.
func New(board clipboard.Board, kb Keyboard, sys focus.System, clk clock.Clock) *Injector {
	return &Injector{g: newGuard(board, clk), kb: kb, sys: sys}
}

// Live returns a live injector sharing this injector's clipboard, so
// overlapping pastes from either restore the user's contents exactly once.
func (i *Injector) Live() *Live {
	return &Live{g: i.g, kb: i.kb, sys: i.sys}
}

// Inject pastes text into the focused application. It returns once the
// paste is sent; the clipboard is restored RestoreDelay after the last
// paste.
func (i *Injector) Inject(ctx context.Context, text string) error {
	if !i.sys.Trusted() {
		return apperr.CapabilityDenied("accessibility")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	i.g.mu.Lock()
	defer i.g.mu.Unlock()

	if err := i.g.hold(); err != nil {
		return err
	}
	// The snapshot is restored even when the write or paste failed.
	defer i.g.release(RestoreDelay)

	if err := i.g.board.WriteText(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := i.kb.Paste(); err != nil {
		return err
	}
	slog.Debug("injected text", "runes", len([]rune(text)))
	return nil
}

// Wait blocks until every scheduled restore has run.
func (i *Injector) Wait() {
	i.g.wait()
}
