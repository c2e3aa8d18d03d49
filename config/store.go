package config

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.aimuz.me/echoflow/internal/types"
)

// Settings is an immutable view of the configuration taken for one
// utterance. Callers must not modify the slices it holds.
type Settings struct {
	Provider      types.ProviderConfig
	Mode          types.RecordingMode
	Gain          float64
	Hotkey        []string
	LiveInjection bool
	RouteCache    bool
	Vocabulary    []string

	Speech        types.SpeechConfig
	SpeechAPIKey  string
	SpeechBaseURL string
}

// VocabularyPrompt joins the vocabulary for use as a transcription prompt or
// routing hint.
func (s *Settings) VocabularyPrompt() string {
	return strings.Join(s.Vocabulary, ", ")
}

// Snapshot builds Settings from the current configuration.
func (c *Config) Snapshot() *Settings {
	s := &Settings{
		Provider:      c.ActiveProvider(),
		Mode:          c.RecordingMode,
		Gain:          c.AudioGain,
		Hotkey:        slices.Clone(c.Hotkey),
		LiveInjection: c.LiveInjection,
		RouteCache:    c.RouteCache,
		Vocabulary:    slices.Clone(c.Vocabulary),
		Speech:        types.SpeechConfig{Engine: "whisper-api", Model: "whisper-1"},
	}
	if c.SpeechConfig != nil {
		s.Speech = *c.SpeechConfig
		if cred := c.GetCredential(c.SpeechConfig.CredentialID); cred != nil {
			s.SpeechAPIKey = cred.APIKey
			s.SpeechBaseURL = cred.BaseURL
		}
	}
	return s
}

// Store publishes configuration snapshots. Reads are lock-free; writes are
// serialized and swap in a fresh snapshot once the mutation succeeded.
type Store struct {
	mu   sync.Mutex
	cfg  *Config
	snap atomic.Pointer[Settings]
}

// NewStore wraps cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{cfg: cfg}
	s.snap.Store(cfg.Snapshot())
	return s
}

// Snapshot returns the latest published settings.
func (s *Store) Snapshot() *Settings {
	return s.snap.Load()
}

// Update applies fn to the configuration and publishes a new snapshot.
// The snapshot is republished even when fn fails part-way, so readers see
// whatever state the configuration ended up in.
func (s *Store) Update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.cfg)
	s.snap.Store(s.cfg.Snapshot())
	return err
}

// View runs fn with read access to the configuration.
func (s *Store) View(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
}
