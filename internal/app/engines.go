package app

import (
	"go.aimuz.me/echoflow/config"
	"go.aimuz.me/echoflow/internal/apperr"
	"go.aimuz.me/echoflow/stt"
	"go.aimuz.me/echoflow/stt/realtime"
)

// EngineFactory builds the transcription engine for one utterance.
type EngineFactory func(*config.Settings) (stt.Engine, error)

// Engines returns a registry of every engine configured from s.
func Engines(s *config.Settings) *stt.Registry {
	reg := stt.NewRegistry()
	reg.Register(stt.NewWhisperAPI(stt.WhisperAPIConfig{
		APIKey:   s.SpeechAPIKey,
		BaseURL:  s.SpeechBaseURL,
		Model:    s.Speech.Model,
		Language: s.Speech.Language,
		Prompt:   s.VocabularyPrompt(),
	}))

	model := s.Speech.Model
	if model == "" || model == "whisper-1" {
		model = realtime.DefaultModel
	}
	reg.Register(realtime.NewEngine(realtime.ClientConfig{
		APIKey: s.SpeechAPIKey,
		Session: realtime.SessionConfig{
			BaseURL:  s.SpeechBaseURL,
			Model:    model,
			Language: s.Speech.Language,
			Prompt:   s.VocabularyPrompt(),
		},
	}))
	return reg
}

// DefaultEngine selects the configured engine from Engines.
func DefaultEngine(s *config.Settings) (stt.Engine, error) {
	e, err := Engines(s).Get(s.Speech.Engine)
	if err != nil {
		return nil, apperr.EngineUnavailable(s.Speech.Engine, err)
	}
	return e, nil
}
