package app

import (
	"context"
	"log/slog"
	"sync"

	"go.aimuz.me/echoflow/inject"
	"go.aimuz.me/echoflow/internal/clock"
	"go.aimuz.me/echoflow/internal/types"
)

// LiveAdapter forwards throttled partials to the emitter and, when live
// injection is on, into the focused text field.
type LiveAdapter struct {
	live  *inject.Live
	clock clock.Clock
	emit  Emitter

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLiveAdapter creates a LiveAdapter.
func NewLiveAdapter(live *inject.Live, clk clock.Clock, emit Emitter) *LiveAdapter {
	return &LiveAdapter{live: live, clock: clk, emit: emit}
}

// Start forwards partials until they close or Stop is called. Any previous
// forwarding is stopped first.
func (la *LiveAdapter) Start(partials <-chan types.TranscriptFragment, inject bool) {
	la.Stop()

	la.mu.Lock()
	defer la.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	la.cancel = cancel

	throttled := Throttle(ctx, partials, PartialInterval, la.clock)
	la.wg.Go(func() {
		for f := range throttled {
			la.emit(EventPartial, f.Text)
			if !inject {
				continue
			}
			if err := la.live.UpdatePartial(f.Text); err != nil {
				slog.Warn("live injection failed", "error", err)
			}
		}
	})
}

// Stop cancels forwarding and waits for it to finish.
func (la *LiveAdapter) Stop() {
	la.mu.Lock()
	if la.cancel != nil {
		la.cancel()
		la.cancel = nil
	}
	la.mu.Unlock()
	la.wg.Wait()
}
