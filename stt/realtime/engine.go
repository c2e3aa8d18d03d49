package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/echoflow/internal/types"
)

const (
	inputRate      = 16000
	outputRate     = 48000
	outputChannels = 2

	// One Opus frame is 20 ms.
	inputFrame  = inputRate / 50  // 320 mono samples
	outputFrame = outputRate / 50 // 960 samples per channel

	// trailingSilence is appended at Finish so server VAD closes the last item.
	trailingSilence = 800 * time.Millisecond

	// ConnectTimeout bounds session creation and the WebRTC handshake.
	ConnectTimeout = 10 * time.Second
)

// Engine streams audio to the Realtime API and turns transcription events
// into fragments. Partials carry every item of the utterance so far; the
// final joins the completed items.
type Engine struct {
	cfg ClientConfig

	mu      sync.Mutex
	ctx     context.Context
	client  *peer
	pending []float32
	joiner  *Joiner
	results chan types.TranscriptFragment
	idle    chan struct{} // signalled whenever no item is outstanding
	wg      sync.WaitGroup
}

// NewEngine creates a realtime engine.
func NewEngine(cfg ClientConfig) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Name() string { return "realtime" }

// Start connects a fresh WebRTC session for this utterance.
func (e *Engine) Start(ctx context.Context) error {
	if e.cfg.APIKey == "" {
		return errors.New("API key is required")
	}

	client := newPeer(e.cfg)
	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		client.Close()
		return fmt.Errorf("connect realtime: %w", err)
	}

	e.mu.Lock()
	e.ctx = ctx
	e.client = client
	e.pending = e.pending[:0]
	e.joiner = NewJoiner()
	e.results = make(chan types.TranscriptFragment, 16)
	e.idle = make(chan struct{}, 1)
	e.mu.Unlock()

	e.wg.Go(func() { e.readEvents(ctx, client) })
	return nil
}

// Results returns the fragment stream of the current utterance.
func (e *Engine) Results() <-chan types.TranscriptFragment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results
}

// Write converts 16 kHz mono samples into 20 ms stereo 48 kHz frames.
func (e *Engine) Write(samples []float32) error {
	e.mu.Lock()
	client := e.client
	if client == nil {
		e.mu.Unlock()
		return ErrNotReady
	}
	e.pending = append(e.pending, samples...)
	var frames [][]float32
	for len(e.pending) >= inputFrame {
		frames = append(frames, Upsample(e.pending[:inputFrame]))
		e.pending = e.pending[inputFrame:]
	}
	e.mu.Unlock()

	for _, f := range frames {
		if err := client.SendAudio(f); err != nil {
			return err
		}
	}
	return nil
}

// Finish pads the stream with silence and waits until every item the
// server started has completed, then emits the final fragment.
func (e *Engine) Finish() error {
	silence := make([]float32, inputRate*int(trailingSilence/time.Millisecond)/1000)
	if err := e.Write(silence); err != nil && !errors.Is(err, ErrClosed) {
		return fmt.Errorf("flush silence: %w", err)
	}

	e.mu.Lock()
	ctx, joiner, idle, results := e.ctx, e.joiner, e.idle, e.results
	e.mu.Unlock()
	if joiner == nil {
		return ErrNotReady
	}

	for joiner.Outstanding() > 0 {
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case results <- types.TranscriptFragment{Text: joiner.Final(), IsFinal: true}:
	case <-ctx.Done():
	}
	return nil
}

// Close ends the WebRTC session.
func (e *Engine) Close() error {
	e.mu.Lock()
	client := e.client
	e.client = nil
	e.mu.Unlock()

	if client == nil {
		return nil
	}
	err := client.Close()
	e.wg.Wait()
	return err
}

func (e *Engine) readEvents(ctx context.Context, client *peer) {
	e.mu.Lock()
	joiner, idle, results := e.joiner, e.idle, e.results
	e.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case err := <-client.Errors():
			slog.Warn("realtime connection error", "err", err)
			return
		case ev := <-client.Messages():
			changed := joiner.Apply(ev)
			if joiner.Outstanding() == 0 {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
			if !changed {
				continue
			}
			select {
			case results <- types.TranscriptFragment{Text: joiner.Partial()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Upsample converts 16 kHz mono samples to 48 kHz interleaved stereo using
// linear interpolation.
func Upsample(mono []float32) []float32 {
	const ratio = outputRate / inputRate
	out := make([]float32, 0, len(mono)*ratio*outputChannels)
	for i, s := range mono {
		next := s
		if i+1 < len(mono) {
			next = mono[i+1]
		}
		for k := range ratio {
			v := s + (next-s)*float32(k)/ratio
			out = append(out, v, v)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Joiner
// ─────────────────────────────────────────────────────────────────────────────

// Joiner assembles transcription events of one utterance. Items are kept
// in the order the server started them.
type Joiner struct {
	mu    sync.Mutex
	order []string
	items map[string]*item
}

type item struct {
	text string
	done bool
}

// NewJoiner creates an empty Joiner.
func NewJoiner() *Joiner {
	return &Joiner{items: make(map[string]*item)}
}

func (j *Joiner) get(id string) *item {
	it, ok := j.items[id]
	if !ok {
		it = &item{}
		j.items[id] = it
		j.order = append(j.order, id)
	}
	return it
}

// Apply folds one event in and reports whether the text changed.
func (j *Joiner) Apply(ev Event) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch e := ev.(type) {
	case SpeechStartedEvent:
		j.get(e.ItemID)
	case TranscriptDeltaEvent:
		it := j.get(e.ItemID)
		if e.Delta == "" {
			return false
		}
		it.text += e.Delta
		return true
	case TranscriptEvent:
		it := j.get(e.ItemID)
		it.done = true
		if it.text == e.Transcript {
			return false
		}
		it.text = e.Transcript
		return true
	case TranscriptFailedEvent:
		slog.Warn("realtime item failed", "item", e.ItemID, "err", e.Error.Message)
		j.get(e.ItemID).done = true
	case ErrorEvent:
		slog.Warn("realtime error event", "type", e.Error.Type, "message", e.Error.Message)
	}
	return false
}

// Outstanding returns the number of started items not yet completed.
func (j *Joiner) Outstanding() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, it := range j.items {
		if !it.done {
			n++
		}
	}
	return n
}

// Partial returns the text of every item, complete or not.
func (j *Joiner) Partial() string {
	return j.join(false)
}

// Final returns the text of completed items.
func (j *Joiner) Final() string {
	return j.join(true)
}

func (j *Joiner) join(doneOnly bool) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	parts := make([]string, 0, len(j.order))
	for _, id := range j.order {
		it := j.items[id]
		if doneOnly && !it.done {
			continue
		}
		if t := strings.TrimSpace(it.text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
