package app

import (
	"context"
	"time"

	"go.aimuz.me/echoflow/internal/clock"
	"go.aimuz.me/echoflow/internal/types"
)

// PartialInterval is the minimum spacing of forwarded partials.
const PartialInterval = 300 * time.Millisecond

// Throttle forwards at most one fragment per interval. Fragments arriving
// in between replace each other so the latest always wins. When in closes,
// the pending fragment is flushed and the output is closed; when ctx is
// done the output is closed without flushing.
func Throttle(ctx context.Context, in <-chan types.TranscriptFragment, interval time.Duration, clk clock.Clock) <-chan types.TranscriptFragment {
	out := make(chan types.TranscriptFragment)
	go func() {
		defer close(out)

		var (
			pending types.TranscriptFragment
			has     bool
			last    time.Time
			timer   <-chan time.Time
		)
		send := func(f types.TranscriptFragment) bool {
			last = clk.Now()
			select {
			case out <- f:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case f, ok := <-in:
				if !ok {
					if has {
						send(pending)
					}
					return
				}
				if timer == nil && (last.IsZero() || clk.Now().Sub(last) >= interval) {
					if !send(f) {
						return
					}
					continue
				}
				pending, has = f, true
				if timer == nil {
					timer = clk.After(interval - clk.Now().Sub(last))
				}

			case <-timer:
				timer = nil
				if has {
					has = false
					if !send(pending) {
						return
					}
				}
			}
		}
	}()
	return out
}
