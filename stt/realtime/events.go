package realtime

import "encoding/json"

// Event types from OpenAI Realtime API.
const (
	EventTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	EventTranscriptionDelta     = "conversation.item.input_audio_transcription.delta"
	EventTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	EventError                  = "error"

	// VAD Events
	EventSpeechStarted = "input_audio_buffer.speech_started"
	EventSpeechStopped = "input_audio_buffer.speech_stopped"
)

// Event is a discriminated union for Realtime API events.
// Check the concrete type via type switch.
type Event interface {
	eventType() string
}

// SpeechStartedEvent is emitted when VAD detects speech.
type SpeechStartedEvent struct {
	EventID      string `json:"event_id"`
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

func (SpeechStartedEvent) eventType() string { return EventSpeechStarted }

// SpeechStoppedEvent is emitted when VAD detects silence.
type SpeechStoppedEvent struct {
	EventID    string `json:"event_id"`
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

func (SpeechStoppedEvent) eventType() string { return EventSpeechStopped }

// TranscriptEvent is emitted when transcription of an item completes.
type TranscriptEvent struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	Transcript string `json:"transcript"`
}

func (TranscriptEvent) eventType() string { return EventTranscriptionCompleted }

// TranscriptDeltaEvent is emitted for streaming transcription updates.
type TranscriptDeltaEvent struct {
	EventID    string `json:"event_id"`
	ItemID     string `json:"item_id"`
	ContentIdx int    `json:"content_index"`
	Delta      string `json:"delta"`
}

func (TranscriptDeltaEvent) eventType() string { return EventTranscriptionDelta }

// TranscriptFailedEvent is emitted when an item cannot be transcribed.
type TranscriptFailedEvent struct {
	EventID string `json:"event_id"`
	ItemID  string `json:"item_id"`
	Error   struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (TranscriptFailedEvent) eventType() string { return EventTranscriptionFailed }

// ErrorEvent is emitted when an API error occurs.
type ErrorEvent struct {
	EventID string `json:"event_id"`
	Error   struct {
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
		Param   string `json:"param,omitempty"`
	} `json:"error"`
}

func (ErrorEvent) eventType() string { return EventError }

// UnknownEvent holds events we don't recognize.
type UnknownEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Raw     json.RawMessage
}

func (e UnknownEvent) eventType() string { return e.Type }

// ParseEvent unmarshals JSON into the appropriate Event type.
func ParseEvent(data []byte) (Event, error) {
	// Parse type field first.
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	switch header.Type {
	case EventSpeechStarted:
		return decode[SpeechStartedEvent](data)
	case EventSpeechStopped:
		return decode[SpeechStoppedEvent](data)
	case EventTranscriptionCompleted:
		return decode[TranscriptEvent](data)
	case EventTranscriptionDelta:
		return decode[TranscriptDeltaEvent](data)
	case EventTranscriptionFailed:
		return decode[TranscriptFailedEvent](data)
	case EventError:
		return decode[ErrorEvent](data)
	default:
		return UnknownEvent{Type: header.Type, Raw: data}, nil
	}
}

func decode[E Event](data []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}
