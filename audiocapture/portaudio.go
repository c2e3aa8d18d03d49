package audiocapture

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice opens the default input device through PortAudio.
// Every Open initializes the library and every Close terminates it, so no
// stream state survives between sessions.
type PortAudioDevice struct{}

func (PortAudioDevice) Open(sampleRate, frameSize int, callback func(samples []float32)) (Handle, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, func(in []float32) {
		callback(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &portAudioHandle{stream: stream}, nil
}

type portAudioHandle struct {
	stream *portaudio.Stream
	closed bool
}

func (h *portAudioHandle) Start() error {
	return h.stream.Start()
}

func (h *portAudioHandle) Stop() error {
	return h.stream.Stop()
}

func (h *portAudioHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	var errs []error
	if err := h.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("portaudio terminate: %w", err))
	}
	return errors.Join(errs...)
}
