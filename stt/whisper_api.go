package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"go.aimuz.me/echoflow/internal/types"
)

const (
	defaultWhisperAPIURL = "https://api.openai.com/v1/audio/transcriptions"
	whisperSampleRate    = 16000
)

// WhisperAPI is a batch Engine backed by an OpenAI-compatible
// /audio/transcriptions endpoint. While speech is detected it re-transcribes
// the buffered audio to produce interim partials.
type WhisperAPI struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	prompt   string
	http     *http.Client
	vadCfg   VADConfig

	mu       sync.Mutex
	ctx      context.Context
	buf      *AudioBuffer
	vad      *VAD
	results  chan types.TranscriptFragment
	interim  sync.WaitGroup
	inFlight bool
}

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey   string
	BaseURL  string // Optional, defaults to OpenAI's API
	Model    string // Optional, defaults to "whisper-1"
	Language string // Optional, empty or "auto" means auto-detect
	Prompt   string // Optional vocabulary hint
	VAD      *VADConfig
	HTTP     *http.Client
}

// NewWhisperAPI creates a new WhisperAPI engine.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultWhisperAPIURL
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	client := cfg.HTTP
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	vadCfg := DefaultVADConfig()
	if cfg.VAD != nil {
		vadCfg = *cfg.VAD
	}

	return &WhisperAPI{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
		http:     client,
		vadCfg:   vadCfg,
	}
}

func (w *WhisperAPI) Name() string { return "whisper-api" }

// Start begins a new utterance.
func (w *WhisperAPI) Start(ctx context.Context) error {
	if w.apiKey == "" {
		return errors.New("API key is required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctx = ctx
	w.buf = NewAudioBuffer(whisperSampleRate)
	w.vad = NewVAD(w.vadCfg)
	w.results = make(chan types.TranscriptFragment, 8)
	w.inFlight = false
	return nil
}

// Results returns the fragment stream of the current utterance.
func (w *WhisperAPI) Results() <-chan types.TranscriptFragment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results
}

// Write buffers samples and starts an interim transcription when the VAD
// asks for one and none is running.
func (w *WhisperAPI) Write(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf == nil {
		return errors.New("whisper-api: not started")
	}
	w.buf.Append(samples)

	res := w.vad.Process(samples, whisperSampleRate)
	if !res.ShouldInterim || w.inFlight {
		return nil
	}

	w.inFlight = true
	snapshot := w.buf.Snapshot()
	ctx, results := w.ctx, w.results
	w.interim.Go(func() {
		defer func() {
			w.mu.Lock()
			w.inFlight = false
			w.mu.Unlock()
		}()
		text, err := w.transcribe(ctx, snapshot)
		if err != nil {
			slog.Debug("interim transcription failed", "err", err)
			return
		}
		if text == "" {
			return
		}
		emit(ctx, results, types.TranscriptFragment{Text: text})
	})
	return nil
}

// Finish waits for any interim request, then transcribes the whole
// utterance and emits the final fragment. Silent utterances produce an
// empty final without a request.
func (w *WhisperAPI) Finish() error {
	w.interim.Wait()

	w.mu.Lock()
	if w.buf == nil {
		w.mu.Unlock()
		return errors.New("whisper-api: not started")
	}
	heard := w.vad.Heard()
	samples := w.buf.Snapshot()
	ctx, results := w.ctx, w.results
	w.mu.Unlock()

	if !heard || len(samples) == 0 {
		emit(ctx, results, types.TranscriptFragment{IsFinal: true})
		return nil
	}

	text, err := w.transcribe(ctx, samples)
	if err != nil {
		return fmt.Errorf("transcribe utterance: %w", err)
	}
	emit(ctx, results, types.TranscriptFragment{Text: text, IsFinal: true})
	return nil
}

// Close ends the utterance.
func (w *WhisperAPI) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = nil
	w.vad = nil
	return nil
}

func emit(ctx context.Context, ch chan<- types.TranscriptFragment, f types.TranscriptFragment) {
	select {
	case ch <- f:
	case <-ctx.Done():
	}
}

// transcribe sends audio to the API and returns the cleaned text.
func (w *WhisperAPI) transcribe(ctx context.Context, samples []float32) (string, error) {
	wavData, err := encodeWAV(samples, whisperSampleRate)
	if err != nil {
		return "", fmt.Errorf("encode WAV: %w", err)
	}

	// Create multipart form
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           w.model,
		"response_format": "json",
	}
	// OpenAI API does not accept 'auto', empty means auto-detect
	if w.language != "" && w.language != "auto" {
		fields["language"] = w.language
	}
	if w.prompt != "" {
		fields["prompt"] = w.prompt
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write %s field: %w", k, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var apiResp whisperAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return cleanText(apiResp.Text), nil
}

// whisperAPIResponse represents the Whisper API response.
type whisperAPIResponse struct {
	Text string `json:"text"`
}

// encodeWAV converts float32 PCM samples to a 16-bit mono WAV file.
// The encoder needs a seekable writer, so it goes through a temp file.
func encodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	f, err := os.CreateTemp("", "echoflow-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	ints := make([]int, len(samples))
	for i, s := range samples {
		// Clamp to [-1, 1]
		s = min(max(s, -1), 1)
		ints[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind wav: %w", err)
	}
	return io.ReadAll(f)
}
