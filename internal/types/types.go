// Package types provides shared type definitions for the application.
package types

import (
	"fmt"
	"maps"
)

// ProviderKind identifies an intent-routing provider. The set is closed.
type ProviderKind string

const (
	ProviderDictationOnly ProviderKind = "dictation-only"
	ProviderGemini        ProviderKind = "gemini"
	ProviderOpenAI        ProviderKind = "openai"
	ProviderClaude        ProviderKind = "claude"
	ProviderMistral       ProviderKind = "mistral"
	ProviderDeepSeek      ProviderKind = "deepseek"
	ProviderLocalCustom   ProviderKind = "local-custom"
)

// ProviderKinds lists every supported kind in display order.
var ProviderKinds = []ProviderKind{
	ProviderDictationOnly,
	ProviderGemini,
	ProviderOpenAI,
	ProviderClaude,
	ProviderMistral,
	ProviderDeepSeek,
	ProviderLocalCustom,
}

// Valid reports whether k is one of the known kinds.
func (k ProviderKind) Valid() bool {
	for _, known := range ProviderKinds {
		if k == known {
			return true
		}
	}
	return false
}

// DefaultModel returns the model used when a profile leaves it empty.
func (k ProviderKind) DefaultModel() string {
	switch k {
	case ProviderGemini:
		return "gemini-2.0-flash"
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderClaude:
		return "claude-3-5-sonnet-20241022"
	case ProviderMistral:
		return "mistral-large-latest"
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderLocalCustom:
		return "llama3"
	default:
		return ""
	}
}

// ProviderConfig is the resolved configuration of the active provider.
type ProviderConfig struct {
	Kind     ProviderKind `json:"kind"`
	APIKey   string       `json:"api_key,omitempty"`
	Model    string       `json:"model,omitempty"`
	Endpoint string       `json:"endpoint,omitempty"`
}

// RecordingMode selects how the hotkey drives a capture session.
type RecordingMode string

const (
	ModePushToTalk RecordingMode = "push-to-talk"
	ModeToggle     RecordingMode = "toggle"
)

// APICredential stores an API key and endpoint for one provider kind.
type APICredential struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Kind    ProviderKind `json:"kind"`
	BaseURL string       `json:"base_url,omitempty"`
	APIKey  string       `json:"api_key,omitempty"`
}

// RoutingProfile binds a credential to a model for intent routing.
type RoutingProfile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CredentialID string `json:"credential_id"`
	Model        string `json:"model"`
	Active       bool   `json:"active"`
}

// SpeechConfig configures the transcription engine.
type SpeechConfig struct {
	Engine       string `json:"engine"` // "whisper-api" or "realtime"
	CredentialID string `json:"credential_id,omitempty"`
	Model        string `json:"model,omitempty"`
	Language     string `json:"language,omitempty"`
}

// Usage represents token usage statistics from LLM API calls.
type Usage struct {
	PromptTokens     int  `json:"promptTokens"`
	CompletionTokens int  `json:"completionTokens"`
	TotalTokens      int  `json:"totalTokens"`
	CacheHit         bool `json:"cacheHit"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Pipeline Types
// ─────────────────────────────────────────────────────────────────────────────

// TranscriptFragment is one transcription hypothesis. Partial fragments carry
// the full current hypothesis, not a delta.
type TranscriptFragment struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// AppContext describes the application holding input focus.
type AppContext struct {
	ApplicationName string `json:"applicationName"`
}

// RouteKind tags a RouteResult.
type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteDictation
	RouteCommand
)

func (k RouteKind) String() string {
	switch k {
	case RouteDictation:
		return "dictation"
	case RouteCommand:
		return "command"
	default:
		return "unknown"
	}
}

func (k RouteKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RouteKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "dictation":
		*k = RouteDictation
	case "command":
		*k = RouteCommand
	case "unknown":
		*k = RouteUnknown
	default:
		return fmt.Errorf("unknown route kind %q", b)
	}
	return nil
}

// RouteResult is the outcome of routing one utterance.
// Text is set for dictation, Action and Params for commands.
type RouteResult struct {
	Kind   RouteKind         `json:"kind"`
	Text   string            `json:"text,omitempty"`
	Action string            `json:"action,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

// Dictation returns a result that types text verbatim.
func Dictation(text string) RouteResult {
	return RouteResult{Kind: RouteDictation, Text: text}
}

// Command returns a result that runs a named system action.
// A nil params map is replaced by an empty one.
func Command(action string, params map[string]string) RouteResult {
	if params == nil {
		params = map[string]string{}
	}
	return RouteResult{Kind: RouteCommand, Action: action, Params: params}
}

// Unknown returns a result that is only logged.
func Unknown() RouteResult {
	return RouteResult{Kind: RouteUnknown}
}

// Equal reports whether two results carry the same variant and payload.
func (r RouteResult) Equal(o RouteResult) bool {
	if r.Kind != o.Kind || r.Text != o.Text || r.Action != o.Action {
		return false
	}
	if len(r.Params) != len(o.Params) {
		return false
	}
	return maps.Equal(r.Params, o.Params)
}
