//go:build !darwin

package clipboard

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
)

// TypeText is the only type this backend reads and writes.
const TypeText = "text/plain;charset=utf-8"

// system is text-only: other representations are not preserved.
type system struct {
	mu sync.Mutex
}

func newSystem() Board { return &system{} }

func (s *system) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := clipboard.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read clipboard: %w", err)
	}
	if text == "" {
		return Snapshot{}, nil
	}
	return Snapshot{{{Type: TypeText, Data: []byte(text)}}}, nil
}

func (s *system) Restore(snap Snapshot) error {
	text, _ := snap.Text()
	return s.WriteText(text)
}

func (s *system) WriteText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
