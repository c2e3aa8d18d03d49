// Package audiocapture owns the microphone for the lifetime of one recording.
package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.aimuz.me/echoflow/internal/apperr"
)

// ErrRunning is returned when another session already holds the microphone.
var ErrRunning = errors.New("audiocapture: another session is recording")

// recording is the system-wide token held by the one Recording session.
var recording atomic.Bool

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRecording
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRecording:
		return "recording"
	case StateDraining:
		return "draining"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is one buffer of mono float32 samples in [-1, 1].
// Samples is only valid for the duration of the handler call.
type Frame struct {
	Samples   []float32
	Timestamp time.Time
	Seq       int
}

// FrameHandler consumes frames on the audio thread. It must not block.
type FrameHandler func(Frame)

// Handle is one open hardware stream.
type Handle interface {
	Start() error
	Stop() error
	Close() error
}

// Device opens a fresh Handle per session.
type Device interface {
	Open(sampleRate, frameSize int, callback func(samples []float32)) (Handle, error)
}

// Gate is the pre-flight check run before the device is touched.
type Gate interface {
	AssertSafe() error
}

// Config holds configuration for audio capture.
type Config struct {
	SampleRate int // default 16000 Hz
	FrameSize  int // samples per callback, default 4096
}

// DefaultConfig returns the default capture configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FrameSize:  4096,
	}
}

// Session is a capture session state machine. A Session may be started
// again after Stop; each start opens a new hardware handle.
type Session struct {
	mu       sync.Mutex
	state    State
	device   Device
	gate     Gate
	cfg      Config
	handle   Handle
	attached *atomic.Bool

	gain   atomic.Uint64 // math.Float64bits
	levels chan float64
}

// New creates a Session over device.
func New(device Device, cfg Config) *Session {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = 4096
	}
	s := &Session{
		device: device,
		cfg:    cfg,
		levels: make(chan float64, 16),
	}
	s.SetGain(1.0)
	return s
}

// SetGate installs the privacy pre-flight check.
func (s *Session) SetGate(g Gate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = g
}

// SetGain sets the level-meter gain. Safe to call while recording.
func (s *Session) SetGain(g float64) {
	s.gain.Store(math.Float64bits(g))
}

// Levels delivers one meter reading per frame in [0, 1]. Readings are
// dropped when the receiver falls behind.
func (s *Session) Levels() <-chan float64 {
	return s.levels
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SampleRate returns the configured sample rate.
func (s *Session) SampleRate() int {
	return s.cfg.SampleRate
}

// Start opens a fresh hardware handle and begins delivering frames to
// handler. Starting a session that is already recording is a no-op.
func (s *Session) Start(handler FrameHandler) error {
	if handler == nil {
		return errors.New("audiocapture: nil handler")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording {
		return nil
	}

	if s.gate != nil {
		if err := s.gate.AssertSafe(); err != nil {
			return err
		}
	}

	if !recording.CompareAndSwap(false, true) {
		return ErrRunning
	}

	s.state = StateArmed
	attached := new(atomic.Bool)
	attached.Store(true)

	seq := 0
	callback := func(samples []float32) {
		if !attached.Load() {
			return
		}
		seq++
		select {
		case s.levels <- Level(samples, math.Float64frombits(s.gain.Load())):
		default:
		}
		handler(Frame{Samples: samples, Timestamp: time.Now(), Seq: seq})
	}

	h, err := s.device.Open(s.cfg.SampleRate, s.cfg.FrameSize, callback)
	if err != nil {
		s.abort(attached)
		return apperr.HardwareUnavailable(fmt.Errorf("open device: %w", err))
	}
	if err := h.Start(); err != nil {
		s.abort(attached)
		_ = h.Close()
		return apperr.HardwareUnavailable(fmt.Errorf("start stream: %w", err))
	}

	s.handle = h
	s.attached = attached
	s.state = StateRecording
	slog.Info("audio capture started", "sample_rate", s.cfg.SampleRate, "frame_size", s.cfg.FrameSize)
	return nil
}

func (s *Session) abort(attached *atomic.Bool) {
	attached.Store(false)
	s.state = StateIdle
	recording.Store(false)
}

// Stop detaches the frame callback, then stops and releases the hardware
// handle. It is safe to call at any time; extra calls do nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return nil
	}
	s.state = StateDraining

	// Callback first: some backends fault when a callback fires into a
	// released stream.
	s.attached.Store(false)

	stopErr := s.handle.Stop()
	closeErr := s.handle.Close()

	s.handle = nil
	s.attached = nil
	s.state = StateIdle
	recording.Store(false)

	slog.Info("audio capture stopped")
	if err := errors.Join(stopErr, closeErr); err != nil {
		return fmt.Errorf("release audio handle: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Level Metering
// ─────────────────────────────────────────────────────────────────────────────

// levelScale maps typical speech RMS into the meter range.
const levelScale = 25

// Level maps the RMS of samples through gain into [0, 1].
func Level(samples []float32, gain float64) float64 {
	v := float64(RMS(samples)) * levelScale * gain
	return min(max(v, 0), 1)
}

// RMS calculates the root mean square of audio samples.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
