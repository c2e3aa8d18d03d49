// Package realtime implements a streaming transcription engine over the
// OpenAI Realtime API using WebRTC.
package realtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/realtime"
)

const (
	// CallsEndpoint is the endpoint for WebRTC SDP exchange.
	CallsEndpoint = "https://api.openai.com/v1/realtime/calls"

	// DefaultModel is the transcription model used when none is configured.
	DefaultModel = string(realtime.AudioTranscriptionModelGPT4oTranscribe)
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// maxAnswerSize caps the SDP answer read from the calls endpoint.
const maxAnswerSize = 1 << 20

// SessionConfig holds configuration for creating a transcription session.
type SessionConfig struct {
	BaseURL  string // Optional API base URL
	Model    string // Transcription model, e.g. "gpt-4o-transcribe"
	Language string // Language code; empty lets the model detect it
	Prompt   string // Optional vocabulary prompt
}

// createSession mints the ephemeral key that authorizes one transcription
// call.
func createSession(ctx context.Context, apiKey string, cfg SessionConfig) (string, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	transcription := realtime.AudioTranscriptionParam{
		Model: realtime.AudioTranscriptionModel(model),
	}
	if cfg.Language != "" && cfg.Language != "auto" {
		transcription.Language = openai.String(cfg.Language)
	}
	if cfg.Prompt != "" {
		transcription.Prompt = openai.String(cfg.Prompt)
	}

	params := realtime.ClientSecretNewParams{
		Session: realtime.ClientSecretNewParamsSessionUnion{
			OfTranscription: &realtime.RealtimeTranscriptionSessionCreateRequestParam{
				Audio: realtime.RealtimeTranscriptionSessionAudioParam{
					Input: realtime.RealtimeTranscriptionSessionAudioInputParam{
						TurnDetection: realtime.RealtimeTranscriptionSessionAudioInputTurnDetectionUnionParam{
							OfSemanticVad: &realtime.RealtimeTranscriptionSessionAudioInputTurnDetectionSemanticVadParam{
								Type:      "semantic_vad",
								Eagerness: "high",
							},
						},
						Transcription: transcription,
					},
				},
			},
		},
	}
	resp, err := client.Realtime.ClientSecrets.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create client secret: %w", err)
	}
	slog.Debug("realtime session created", "model", model, "expires", time.Unix(resp.ExpiresAt, 0))
	return resp.Value, nil
}

// exchangeSDP posts the local offer and returns the SDP answer.
func exchangeSDP(ctx context.Context, endpoint, offer, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offer))
	if err != nil {
		return "", fmt.Errorf("build SDP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post SDP offer: %w", err)
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, maxAnswerSize))
	if err != nil {
		return "", fmt.Errorf("read SDP answer: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return string(answer), nil
	default:
		slog.Warn("SDP exchange rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("SDP exchange: status %d: %s", resp.StatusCode, bytes.TrimSpace(answer))
	}
}
