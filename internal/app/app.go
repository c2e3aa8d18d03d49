// Package app wires the dictation pipeline together: hotkey, capture,
// transcription, sanitizing, routing and dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/echoflow/audiocapture"
	"go.aimuz.me/echoflow/cache"
	"go.aimuz.me/echoflow/clipboard"
	"go.aimuz.me/echoflow/config"
	"go.aimuz.me/echoflow/dispatch"
	"go.aimuz.me/echoflow/focus"
	"go.aimuz.me/echoflow/format"
	"go.aimuz.me/echoflow/hotkey"
	"go.aimuz.me/echoflow/inject"
	"go.aimuz.me/echoflow/internal/clock"
	"go.aimuz.me/echoflow/internal/types"
	"go.aimuz.me/echoflow/langdetect"
	"go.aimuz.me/echoflow/llm"
	"go.aimuz.me/echoflow/notify"
	"go.aimuz.me/echoflow/privacy"
	"go.aimuz.me/echoflow/router"
	"go.aimuz.me/echoflow/sanitize"
	"go.aimuz.me/echoflow/stt"
)

// ErrSessionActive is returned when recording is requested while an
// utterance is still being recorded or processed.
var ErrSessionActive = errors.New("session already active")

// contextWait bounds how long routing waits for the focus check.
const contextWait = 500 * time.Millisecond

// Deps are the collaborators of a Service. Nil fields get the host
// implementation.
type Deps struct {
	Device   audiocapture.Device
	Detector privacy.Detector
	Engines  EngineFactory
	Router   *router.Router
	Focus    focus.System
	Board    clipboard.Board
	Keyboard inject.Keyboard
	System   dispatch.System
	Notifier notify.Notifier
	Clock    clock.Clock
	Emit     Emitter
}

// Service coordinates one utterance at a time.
type Service struct {
	store      *config.Store
	gate       *privacy.Gate
	engines    EngineFactory
	router     *router.Router
	focus      *focus.Inspector
	dispatcher *dispatch.Dispatcher
	injector   *inject.Injector
	live       *inject.Live
	notifier   notify.Notifier
	clock      clock.Clock
	emit       Emitter

	audio    *AudioAdapter
	partials *LiveAdapter
	cache    *cache.Cache
	hotkey   *hotkey.Manager

	mu   sync.Mutex
	cur  *utterance
	work sync.WaitGroup
}

type utterance struct {
	id       string
	settings *config.Settings
	tr       *stt.Transcriber
	app      chan *types.AppContext
	cancel   context.CancelFunc
	ready    bool
	stopping bool
	aborted  bool
}

// New creates a Service reading configuration from store.
func New(store *config.Store, deps Deps) (*Service, error) {
	if deps.Device == nil {
		deps.Device = audiocapture.PortAudioDevice{}
	}
	if deps.Engines == nil {
		deps.Engines = DefaultEngine
	}
	if deps.Focus == nil {
		deps.Focus = focus.Host()
	}
	if deps.Board == nil {
		deps.Board = clipboard.New()
	}
	if deps.Keyboard == nil {
		kb, err := inject.NewKeyboard()
		if err != nil {
			return nil, err
		}
		deps.Keyboard = kb
	}
	if deps.System == nil {
		deps.System = dispatch.Host{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Emit == nil {
		deps.Emit = func(name string, data any) {
			if name != EventLevel {
				slog.Debug("event", "name", name, "data", data)
			}
		}
	}

	s := &Service{
		store:    store,
		gate:     privacy.NewGate(deps.Detector),
		engines:  deps.Engines,
		router:   deps.Router,
		focus:    focus.NewInspector(deps.Focus),
		notifier: deps.Notifier,
		clock:    deps.Clock,
		emit:     deps.Emit,
	}
	if s.router == nil {
		s.router = router.New(s.setupCache()...)
	}

	s.injector = inject.New(deps.Board, deps.Keyboard, deps.Focus, deps.Clock)
	s.live = s.injector.Live()
	s.dispatcher = dispatch.New(s.injector, deps.System)

	capture := audiocapture.New(deps.Device, audiocapture.DefaultConfig())
	capture.SetGate(s.gate)
	s.audio = NewAudioAdapter(capture, s.emit)
	s.partials = NewLiveAdapter(s.live, deps.Clock, s.emit)
	return s, nil
}

func (s *Service) setupCache() []router.Option {
	if !s.store.Snapshot().RouteCache {
		return nil
	}
	dir, err := config.Dir()
	if err != nil {
		slog.Error("get config dir for cache", "error", err)
		return nil
	}
	path := filepath.Join(dir, "cache")
	c, err := cache.New(path)
	if err != nil {
		slog.Error("init cache", "error", err)
		return nil
	}
	s.cache = c
	slog.Info("cache initialized", "path", path)
	return []router.Option{router.WithCache(c)}
}

// Store returns the configuration store.
func (s *Service) Store() *config.Store { return s.store }

// Dispatcher returns the command dispatcher so callers can register
// additional actions.
func (s *Service) Dispatcher() *dispatch.Dispatcher { return s.dispatcher }

// ─────────────────────────────────────────────────────────────────────────────
// Daemon
// ─────────────────────────────────────────────────────────────────────────────

// Run drives recording from the configured hotkey until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	snap := s.store.Snapshot()
	hk, err := hotkey.New(snap.Hotkey, snap.Mode, s.onHotkeyStart, s.onHotkeyStop)
	if err != nil {
		return fmt.Errorf("setup hotkey: %w", err)
	}
	if err := hk.Start(); err != nil {
		return fmt.Errorf("start hotkey: %w", err)
	}
	s.hotkey = hk

	for blocked := range s.gate.Watch(ctx, time.Second) {
		s.emit(EventBlocked, blocked)
		if blocked {
			s.abort("secure input became active")
		}
	}
	return nil
}

func (s *Service) onHotkeyStart() {
	if err := s.StartRecording(); err != nil && !errors.Is(err, ErrSessionActive) {
		notify.Error(s.notifier, err)
	}
}

func (s *Service) onHotkeyStop() {
	s.StopRecording()
}

// Shutdown stops the hotkey, drops any recording in progress and waits for
// pending work, including clipboard restores.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	s.abort("shutdown")
	s.Wait()
	s.injector.Wait()
	s.live.Wait()
	s.audio.Close()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
}

// Wait blocks until every utterance handed off by StopRecording has been
// routed and dispatched.
func (s *Service) Wait() {
	s.work.Wait()
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

// StartRecording begins an utterance. It fails with ErrSessionActive while
// a previous utterance is still recording or being processed.
func (s *Service) StartRecording() error {
	s.mu.Lock()
	if s.cur != nil {
		s.mu.Unlock()
		return ErrSessionActive
	}
	if err := s.gate.AssertSafe(); err != nil {
		s.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{
		id:       uuid.NewString(),
		settings: s.store.Snapshot(),
		app:      make(chan *types.AppContext, 1),
		cancel:   cancel,
	}
	s.cur = u
	s.mu.Unlock()

	// Engine setup may dial out. s.mu is not held, so a stop or abort
	// arriving meanwhile is recorded and applied once capture is up.
	tr, err := s.begin(ctx, u)
	if err != nil {
		s.release(u)
		return err
	}

	s.mu.Lock()
	u.tr = tr
	u.ready = true
	stopping := u.stopping
	s.mu.Unlock()

	s.emit(EventRecording, true)
	if stopping {
		s.finish(u)
	}
	return nil
}

func (s *Service) begin(ctx context.Context, u *utterance) (*stt.Transcriber, error) {
	snap := u.settings
	engine, err := s.engines(snap)
	if err != nil {
		return nil, err
	}
	tr := stt.NewTranscriber(engine, s.clock)
	if err := tr.Start(ctx); err != nil {
		return nil, err
	}
	if err := s.audio.Start(snap.Gain, tr); err != nil {
		tr.Stop()
		return nil, err
	}

	go func() { u.app <- s.focus.Context() }()

	if snap.LiveInjection {
		s.live.BeginSession()
	}
	s.partials.Start(tr.Partials(), snap.LiveInjection)

	slog.Info("recording started", "id", u.id, "engine", engine.Name(), "live", snap.LiveInjection)
	return tr, nil
}

// StopRecording ends capture and hands the utterance off for
// transcription, routing and dispatch. Extra calls are no-ops.
func (s *Service) StopRecording() {
	s.mu.Lock()
	u := s.cur
	if u == nil || u.stopping {
		s.mu.Unlock()
		return
	}
	u.stopping = true
	ready := u.ready
	s.mu.Unlock()

	// Still starting: StartRecording finishes the stop.
	if ready {
		s.finish(u)
	}
}

func (s *Service) finish(u *utterance) {
	if err := s.audio.Stop(); err != nil {
		slog.Warn("stop audio capture", "id", u.id, "error", err)
	}
	s.emit(EventRecording, false)

	s.work.Go(func() {
		defer s.release(u)
		text := u.tr.Stop()
		s.partials.Stop()
		if s.isAborted(u) {
			if u.settings.LiveInjection {
				s.live.Cancel()
			}
			return
		}
		s.process(u, text)
	})
}

// abort stops any active recording and discards its transcript. An engine
// still connecting is cancelled.
func (s *Service) abort(reason string) {
	s.mu.Lock()
	u := s.cur
	if u != nil {
		u.aborted = true
	}
	s.mu.Unlock()
	if u != nil {
		slog.Warn("recording aborted", "id", u.id, "reason", reason)
		if !s.isReady(u) {
			u.cancel()
		}
		s.StopRecording()
	}
}

func (s *Service) isReady(u *utterance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return u.ready
}

func (s *Service) isAborted(u *utterance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return u.aborted
}

func (s *Service) release(u *utterance) {
	u.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == u {
		s.cur = nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Processing
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) process(u *utterance, text string) {
	ctx := context.Background()
	live := u.settings.LiveInjection

	if strings.TrimSpace(text) == "" {
		slog.Info("empty transcript, nothing to do", "id", u.id)
		if live {
			s.endLive(ctx, "")
		}
		return
	}

	if code, name := langdetect.Detect(text); code != "auto" {
		s.emit(EventLanguage, Language{Code: code, Name: name})
		slog.Debug("detected language", "id", u.id, "lang", code)
	}

	// Everything past this point may leave the device.
	clean := sanitize.Sanitize(text)
	if clean == "" {
		slog.Info("transcript was only filler", "id", u.id)
		if live {
			s.endLive(ctx, "")
		}
		return
	}

	// A focused field takes the text directly; only without one does the
	// utterance reach the router.
	if live && s.endLive(ctx, format.Apply(clean)) {
		slog.Info("live injection finished", "id", u.id)
		return
	}

	var app *types.AppContext
	select {
	case app = <-u.app:
	case <-s.clock.After(contextWait):
		slog.Debug("focus check timed out", "id", u.id)
	}

	result := s.router.Route(ctx, u.settings, clean, app)
	s.emit(EventRouted, result)
	slog.Info("routed utterance", "id", u.id, "route", result.Kind, "action", result.Action)

	if err := s.dispatcher.Dispatch(ctx, result); err != nil {
		notify.Error(s.notifier, fmt.Errorf("dispatch utterance %s: %w", u.id, err))
	}
}

// endLive finishes the live session and reports whether a field took the
// text.
func (s *Service) endLive(ctx context.Context, final string) bool {
	ok, err := s.live.EndSession(ctx, final)
	if err != nil {
		notify.Error(s.notifier, fmt.Errorf("end live injection: %w", err))
	}
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// One-shot operations
// ─────────────────────────────────────────────────────────────────────────────

// Route sanitizes and routes text against the current settings without
// dispatching it.
func (s *Service) Route(ctx context.Context, text string) types.RouteResult {
	return s.router.Route(ctx, s.store.Snapshot(), sanitize.Sanitize(text), s.focus.Context())
}

// Execute routes text and dispatches the result.
func (s *Service) Execute(ctx context.Context, text string) (types.RouteResult, error) {
	result := s.Route(ctx, text)
	return result, s.dispatcher.Dispatch(ctx, result)
}

// TestProvider checks that the provider in snap is configured and reachable.
func TestProvider(ctx context.Context, snap *config.Settings) error {
	p := llm.New(snap.Provider, llm.Options{Vocabulary: snap.VocabularyPrompt()})
	if err := p.Setup(); err != nil {
		return fmt.Errorf("setup %s: %w", p.Kind(), err)
	}
	if err := p.TestConnection(ctx); err != nil {
		return fmt.Errorf("test %s: %w", p.Kind(), err)
	}
	return nil
}
