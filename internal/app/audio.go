package app

import (
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/echoflow/audiocapture"
	"go.aimuz.me/echoflow/stt"
)

// AudioAdapter feeds one capture session into the current transcriber and
// forwards the level meter.
type AudioAdapter struct {
	session *audiocapture.Session
	emit    Emitter

	mu   sync.Mutex
	peak float64
	done chan struct{}
}

// NewAudioAdapter wraps session. Levels are forwarded until Close.
func NewAudioAdapter(session *audiocapture.Session, emit Emitter) *AudioAdapter {
	aa := &AudioAdapter{session: session, emit: emit, done: make(chan struct{})}
	go aa.forwardLevels()
	return aa
}

// Start begins capture with frames going to tr.
func (aa *AudioAdapter) Start(gain float64, tr *stt.Transcriber) error {
	aa.mu.Lock()
	aa.peak = 0
	aa.mu.Unlock()

	aa.session.SetGain(gain)
	// Runs on the audio thread: Feed copies and never blocks.
	err := aa.session.Start(func(f audiocapture.Frame) {
		_ = tr.Feed(f.Samples)
	})
	if err != nil {
		return fmt.Errorf("start audio capture: %w", err)
	}
	return nil
}

// Stop ends capture. Frames delivered before Stop returns have been fed.
func (aa *AudioAdapter) Stop() error {
	err := aa.session.Stop()
	aa.mu.Lock()
	peak := aa.peak
	aa.mu.Unlock()
	slog.Info("audio capture stopped", "peak_level", peak)
	return err
}

// Close stops the level forwarder.
func (aa *AudioAdapter) Close() {
	select {
	case <-aa.done:
	default:
		close(aa.done)
	}
}

func (aa *AudioAdapter) forwardLevels() {
	levels := aa.session.Levels()
	for {
		select {
		case <-aa.done:
			return
		case lvl := <-levels:
			aa.mu.Lock()
			aa.peak = max(aa.peak, lvl)
			aa.mu.Unlock()
			aa.emit(EventLevel, lvl)
		}
	}
}
