package stt

import "time"

// AudioBuffer accumulates the samples of one utterance.
type AudioBuffer struct {
	samples    []float32
	sampleRate int
}

// NewAudioBuffer creates a new audio buffer.
func NewAudioBuffer(sampleRate int) *AudioBuffer {
	return &AudioBuffer{
		samples:    make([]float32, 0, sampleRate*30), // 30 second capacity
		sampleRate: sampleRate,
	}
}

// Append adds new audio samples to the buffer.
func (b *AudioBuffer) Append(samples []float32) {
	b.samples = append(b.samples, samples...)
}

// Snapshot returns a copy of all buffered samples.
func (b *AudioBuffer) Snapshot() []float32 {
	if len(b.samples) == 0 {
		return nil
	}
	result := make([]float32, len(b.samples))
	copy(result, b.samples)
	return result
}

// Clear empties the buffer completely.
func (b *AudioBuffer) Clear() {
	b.samples = b.samples[:0]
}

// Len returns the number of samples currently in the buffer.
func (b *AudioBuffer) Len() int {
	return len(b.samples)
}

// Duration returns the duration of buffered audio.
func (b *AudioBuffer) Duration() time.Duration {
	if len(b.samples) == 0 || b.sampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.samples)) * time.Second / time.Duration(b.sampleRate)
}
