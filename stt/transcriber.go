package stt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.aimuz.me/echoflow/internal/apperr"
	"go.aimuz.me/echoflow/internal/clock"
	"go.aimuz.me/echoflow/internal/types"
)

// ErrNotListening is returned by Feed outside the Listening state.
var ErrNotListening = errors.New("stt: transcriber is not listening")

// FinalTimeout bounds how long Stop waits for the final fragment.
const FinalTimeout = 3 * time.Second

const (
	frameQueueSize   = 256
	partialQueueSize = 16
)

// State is the lifecycle state of a Transcriber.
type State int

const (
	StateNotStarted State = iota
	StateListening
	StateFinalizing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateListening:
		return "listening"
	case StateFinalizing:
		return "finalizing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Transcriber runs one utterance through an Engine. It is single use.
type Transcriber struct {
	engine Engine
	clock  clock.Clock

	mu             sync.Mutex
	state          State
	best           string
	frames         chan []float32
	partials       chan types.TranscriptFragment
	partialsClosed bool
	final          chan string
	cancel         context.CancelFunc
	done           sync.WaitGroup

	dropped atomic.Int64
}

// NewTranscriber creates a Transcriber over engine. A nil clock uses the
// real one.
func NewTranscriber(engine Engine, clk clock.Clock) *Transcriber {
	if clk == nil {
		clk = clock.Real()
	}
	return &Transcriber{
		engine:   engine,
		clock:    clk,
		partials: make(chan types.TranscriptFragment, partialQueueSize),
		final:    make(chan string, 1),
	}
}

// State returns the current state.
func (t *Transcriber) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Partials publishes partial fragments while listening. When the receiver
// falls behind the oldest pending partial is dropped. The channel is closed
// by Stop.
func (t *Transcriber) Partials() <-chan types.TranscriptFragment {
	return t.partials
}

// Dropped returns the number of frames discarded because the engine queue
// was full.
func (t *Transcriber) Dropped() int64 {
	return t.dropped.Load()
}

// Start sets up the engine and begins listening.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateNotStarted {
		return errors.New("stt: transcriber already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := t.engine.Start(ctx); err != nil {
		cancel()
		t.state = StateStopped
		t.closePartialsLocked()
		return apperr.EngineUnavailable(t.engine.Name(), err)
	}

	t.cancel = cancel
	t.frames = make(chan []float32, frameQueueSize)
	t.state = StateListening

	results := t.engine.Results()
	t.done.Go(func() { t.writeLoop(t.frames) })
	go t.readLoop(ctx, results)

	slog.Debug("transcriber listening", "engine", t.engine.Name())
	return nil
}

// Feed queues a copy of samples for the engine. It never blocks; a full
// queue drops the frame and counts it.
func (t *Transcriber) Feed(samples []float32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateListening {
		return ErrNotListening
	}

	buf := make([]float32, len(samples))
	copy(buf, samples)

	select {
	case t.frames <- buf:
	default:
		t.dropped.Add(1)
	}
	return nil
}

// Stop signals end-of-audio and waits for the final fragment, at most
// FinalTimeout. On timeout it returns the best partial seen so far. Stop
// never fails; calling it again returns the same text.
func (t *Transcriber) Stop() string {
	t.mu.Lock()
	if t.state != StateListening {
		text := t.best
		t.mu.Unlock()
		return text
	}
	t.state = StateFinalizing
	close(t.frames)
	t.mu.Unlock()

	var text string
	select {
	case text = <-t.final:
	case <-t.clock.After(FinalTimeout):
		t.mu.Lock()
		text = t.best
		t.mu.Unlock()
		slog.Warn("transcription finalize timed out, using best partial",
			"engine", t.engine.Name(),
			"err", apperr.Timeout("finalize"),
			"chars", len(text))
	}

	t.cancel()
	t.done.Wait()
	if err := t.engine.Close(); err != nil {
		slog.Warn("close engine", "engine", t.engine.Name(), "err", err)
	}

	t.mu.Lock()
	t.state = StateStopped
	t.best = text
	t.closePartialsLocked()
	t.mu.Unlock()

	if n := t.dropped.Load(); n > 0 {
		slog.Warn("frames dropped during transcription", "count", n)
	}
	return text
}

// writeLoop forwards frames in order, then signals end-of-audio once the
// queue is drained.
func (t *Transcriber) writeLoop(frames <-chan []float32) {
	for buf := range frames {
		if err := t.engine.Write(buf); err != nil {
			slog.Warn("engine write failed", "engine", t.engine.Name(), "err", err)
		}
	}
	if err := t.engine.Finish(); err != nil {
		slog.Warn("engine finish failed", "engine", t.engine.Name(), "err", err)
	}
}

func (t *Transcriber) readLoop(ctx context.Context, results <-chan types.TranscriptFragment) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-results:
			if !ok {
				return
			}
			if f.IsFinal {
				select {
				case t.final <- f.Text:
				default:
				}
				continue
			}
			t.publish(f)
		}
	}
}

func (t *Transcriber) publish(f types.TranscriptFragment) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.partialsClosed {
		return
	}
	t.best = f.Text
	select {
	case t.partials <- f:
		return
	default:
	}
	select {
	case <-t.partials:
	default:
	}
	t.partials <- f
}

func (t *Transcriber) closePartialsLocked() {
	if !t.partialsClosed {
		t.partialsClosed = true
		close(t.partials)
	}
}
