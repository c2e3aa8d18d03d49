// Package privacy guards recording against secure input contexts.
package privacy

import (
	"context"
	"log/slog"
	"time"

	"go.aimuz.me/echoflow/internal/apperr"
)

// Detector reports whether secure (password) input is active system-wide.
type Detector interface {
	SecureInputActive() bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func() bool

func (f DetectorFunc) SecureInputActive() bool { return f() }

// Gate is the pre-flight check run before every capture attempt.
type Gate struct {
	detector Detector
}

// NewGate creates a Gate. A nil detector uses the platform detector.
func NewGate(d Detector) *Gate {
	if d == nil {
		d = SystemDetector()
	}
	return &Gate{detector: d}
}

// IsBlocked reports whether recording must be refused right now.
func (g *Gate) IsBlocked() bool {
	return g.detector.SecureInputActive()
}

// AssertSafe returns a PrivacyBlocked error while secure input is active.
func (g *Gate) AssertSafe() error {
	if g.IsBlocked() {
		slog.Warn("secure input active, recording blocked")
		return apperr.PrivacyBlocked()
	}
	return nil
}

// Watch polls the detector every interval and emits the blocked state
// whenever it changes, starting with the current value. The channel is
// closed when ctx is done.
func (g *Gate) Watch(ctx context.Context, interval time.Duration) <-chan bool {
	ch := make(chan bool, 1)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := g.IsBlocked()
		ch <- last

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := g.IsBlocked()
				if cur == last {
					continue
				}
				last = cur
				slog.Debug("secure input state changed", "blocked", cur)
				select {
				case ch <- cur:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}
