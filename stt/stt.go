// Package stt provides the streaming transcription contract and its engines.
package stt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.aimuz.me/echoflow/internal/types"
)

// Engine is a speech-to-text backend driven by one Transcriber at a time.
//
// Start begins a new utterance. Write receives 16 kHz mono samples in
// production order and must not retain them. Finish signals end-of-audio;
// the engine then emits exactly one final fragment (possibly empty) on the
// Results channel. Write and Finish must return promptly once the context
// passed to Start is cancelled. Close ends the utterance and is safe to call
// repeatedly.
type Engine interface {
	// Name returns the engine identifier.
	Name() string

	Start(ctx context.Context) error
	Write(samples []float32) error
	Finish() error

	// Results returns the fragment stream of the current utterance.
	Results() <-chan types.TranscriptFragment

	Close() error
}

// Registry holds registered engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates a new engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine to the registry, replacing any engine with the
// same name.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return e, nil
}

// List returns all registered engines sorted by name.
func (r *Registry) List() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Engine, 0, len(r.engines))
	for _, e := range r.engines {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Close releases all engines.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.engines {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}
