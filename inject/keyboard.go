package inject

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/micmonay/keybd_event"
)

// Keyboard synthesizes the keystrokes used for injection.
type Keyboard interface {
	// Paste sends the platform paste shortcut.
	Paste() error
	// SelectBackward extends the selection n characters to the left.
	SelectBackward(n int) error
}

type keybdKeyboard struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// NewKeyboard returns a Keyboard that posts system key events.
func NewKeyboard() (Keyboard, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create key bonding: %w", err)
	}
	return &keybdKeyboard{kb: kb}, nil
}

func (k *keybdKeyboard) Paste() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.kb.Clear()
	if runtime.GOOS == "darwin" {
		k.kb.HasSuper(true)
	} else {
		k.kb.HasCTRL(true)
	}
	k.kb.SetKeys(keybd_event.VK_V)
	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("send paste: %w", err)
	}
	return nil
}

func (k *keybdKeyboard) SelectBackward(n int) error {
	if n <= 0 {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	k.kb.Clear()
	k.kb.HasSHIFT(true)
	k.kb.SetKeys(keybd_event.VK_LEFT)
	for range n {
		if err := k.kb.Launching(); err != nil {
			return fmt.Errorf("send shift+left: %w", err)
		}
	}
	return nil
}
