package inject

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/echoflow/clipboard"
	"go.aimuz.me/echoflow/internal/clock"
)

// guard owns the user's clipboard while injected text sits on it. The first
// sequence snapshots the clipboard; sequences that start before the restore
// has run reuse that snapshot and push the single restore back.
type guard struct {
	board clipboard.Board
	clock clock.Clock

	// mu is held for a whole write-and-paste sequence and by the restore.
	mu    sync.Mutex
	saved clipboard.Snapshot
	held  bool
	gen   uint64
	timer clock.Timer

	pending sync.WaitGroup
}

func newGuard(board clipboard.Board, clk clock.Clock) *guard {
	return &guard{board: board, clock: clk}
}

// hold takes ownership of the clipboard and cancels a pending restore.
// Callers hold g.mu.
func (g *guard) hold() error {
	g.gen++
	if g.timer != nil {
		if g.timer.Stop() {
			g.pending.Done()
		}
		g.timer = nil
	}
	if g.held {
		return nil
	}
	snap, err := g.board.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot clipboard: %w", err)
	}
	g.saved = snap
	g.held = true
	return nil
}

// release schedules the restore d from now. Callers hold g.mu.
func (g *guard) release(d time.Duration) {
	if !g.held {
		return
	}
	gen := g.gen
	g.pending.Add(1)
	g.timer = g.clock.AfterFunc(d, func() {
		defer g.pending.Done()
		g.mu.Lock()
		defer g.mu.Unlock()
		// A newer sequence took over after this timer was armed.
		if gen != g.gen || !g.held {
			return
		}
		g.restore()
	})
}

func (g *guard) restore() {
	if err := g.board.Restore(g.saved); err != nil {
		slog.Error("restore clipboard", "error", err)
	} else {
		slog.Debug("clipboard restored")
	}
	g.saved = nil
	g.held = false
	g.timer = nil
}

// wait blocks until every scheduled restore has run or been superseded.
func (g *guard) wait() {
	g.pending.Wait()
}
