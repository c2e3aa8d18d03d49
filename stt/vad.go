package stt

import (
	"math"
	"time"
)

// VAD (Voice Activity Detector) detects speech in audio streams. Durations
// are measured in audio time, derived from the number of samples processed,
// so results do not depend on wall-clock scheduling.
type VAD struct {
	// Thresholds
	threshold float32 // RMS threshold for speech detection

	// Duration constraints
	minSpeechDur  time.Duration // Minimum speech duration before an interim
	silenceDur    time.Duration // Silence duration that ends a speech segment
	interimPeriod time.Duration // Minimum audio time between interims

	// State
	pos         time.Duration
	heard       bool
	inSpeech    bool
	speechStart time.Duration
	lastSpeech  time.Duration
	lastInterim time.Duration
}

// VADConfig holds VAD thresholds.
type VADConfig struct {
	Threshold     float32
	MinSpeech     time.Duration
	Silence       time.Duration
	InterimPeriod time.Duration
}

// DefaultVADConfig returns thresholds tuned for dictation.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Threshold:     0.01,
		MinSpeech:     300 * time.Millisecond,
		Silence:       700 * time.Millisecond,
		InterimPeriod: 1500 * time.Millisecond,
	}
}

// NewVAD creates a new voice activity detector.
func NewVAD(cfg VADConfig) *VAD {
	return &VAD{
		threshold:     cfg.Threshold,
		minSpeechDur:  cfg.MinSpeech,
		silenceDur:    cfg.Silence,
		interimPeriod: cfg.InterimPeriod,
	}
}

// EventType represents the type of speech event.
type EventType int

const (
	EventNone EventType = iota // No event
	EventSpeechStart
	EventSpeechContinue
	EventSpeechEnd
)

// VADResult contains the result of processing audio samples.
type VADResult struct {
	Event          EventType
	ShouldInterim  bool // Whether an interim transcription should be triggered
	SpeechDuration time.Duration
}

// Process processes audio samples and returns detected speech events.
// sampleRate is required to convert sample counts into durations.
func (v *VAD) Process(samples []float32, sampleRate int) VADResult {
	if sampleRate > 0 {
		v.pos += time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	now := v.pos

	isSpeech := calculateRMS(samples) > v.threshold
	result := VADResult{}

	if isSpeech {
		v.heard = true
		if !v.inSpeech {
			v.inSpeech = true
			v.speechStart = now
			result.Event = EventSpeechStart
		} else {
			result.Event = EventSpeechContinue
		}
		v.lastSpeech = now
	}

	if !v.inSpeech {
		return result
	}

	speechDuration := now - v.speechStart
	result.SpeechDuration = speechDuration

	if now-v.lastSpeech > v.silenceDur {
		// Pause in speech: a good moment for an interim hypothesis.
		v.inSpeech = false
		result.Event = EventSpeechEnd
		result.ShouldInterim = speechDuration > v.minSpeechDur
	} else if speechDuration > v.minSpeechDur && now-v.lastInterim >= v.interimPeriod {
		result.ShouldInterim = true
	}

	// Apply rate limiting
	if result.ShouldInterim {
		if v.lastInterim != 0 && now-v.lastInterim < v.interimPeriod {
			result.ShouldInterim = false
		} else {
			v.lastInterim = now
		}
	}

	return result
}

// Heard reports whether any frame since the last Reset was above threshold.
func (v *VAD) Heard() bool {
	return v.heard
}

// Reset resets the VAD state.
func (v *VAD) Reset() {
	*v = VAD{
		threshold:     v.threshold,
		minSpeechDur:  v.minSpeechDur,
		silenceDur:    v.silenceDur,
		interimPeriod: v.interimPeriod,
	}
}

// InSpeech returns true if currently in a speech segment.
func (v *VAD) InSpeech() bool {
	return v.inSpeech
}

// calculateRMS calculates the root mean square of audio samples.
func calculateRMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}
