// Package llm routes transcripts through LLM providers using function
// calling, with a local lexical fallback.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.aimuz.me/echoflow/internal/types"
)

// ErrMissingAPIKey is returned by Setup when a provider needs a key.
var ErrMissingAPIKey = errors.New("api key is required")

// Result is the outcome of one RouteIntent call.
type Result struct {
	Route types.RouteResult
	// ToolCall is true when the route came from a tool invocation rather
	// than degraded free text.
	ToolCall bool
	Usage    types.Usage
}

// Provider classifies one utterance as dictation or a command.
type Provider interface {
	// Kind returns the provider kind.
	Kind() types.ProviderKind

	// Setup validates the configuration without network access.
	Setup() error

	// RouteIntent routes transcript. The context may be nil.
	RouteIntent(ctx context.Context, transcript string, app *types.AppContext) (Result, error)

	// TestConnection sends a trivial prompt to verify credentials.
	TestConnection(ctx context.Context) error
}

// Options configures provider behavior.
type Options struct {
	Vocabulary string // comma-separated spelling hints
	MaxTokens  int
	HTTP       *http.Client
}

// completerConfig holds all parameters needed by providers.
type completerConfig struct {
	http        *http.Client
	kind        types.ProviderKind
	apiKey      string
	baseURL     string
	model       string
	vocabulary  string
	maxTokens   int
	temperature float64
}

// New creates the Provider for cfg. The set of kinds is closed; an
// unrecognized kind yields the local fallback.
func New(cfg types.ProviderConfig, opts Options) Provider {
	client := opts.HTTP
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	model := cfg.Model
	if model == "" {
		model = cfg.Kind.DefaultModel()
	}

	c := completerConfig{
		http:       client,
		kind:       cfg.Kind,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.Endpoint,
		model:      model,
		vocabulary: opts.Vocabulary,
		maxTokens:  opts.MaxTokens,
		// Routing needs to be deterministic.
		temperature: 0,
	}

	switch cfg.Kind {
	case types.ProviderDictationOnly:
		return dictationOnly{}
	case types.ProviderGemini:
		return &geminiProvider{cfg: c}
	case types.ProviderClaude:
		return &claudeProvider{cfg: c}
	case types.ProviderOpenAI, types.ProviderMistral, types.ProviderDeepSeek, types.ProviderLocalCustom:
		return newOpenAIProvider(c)
	default:
		return &Local{}
	}
}

// dictationOnly types every transcript verbatim.
type dictationOnly struct{}

func (dictationOnly) Kind() types.ProviderKind { return types.ProviderDictationOnly }
func (dictationOnly) Setup() error             { return nil }

func (dictationOnly) RouteIntent(_ context.Context, transcript string, _ *types.AppContext) (Result, error) {
	return Result{Route: types.Dictation(transcript)}, nil
}

func (dictationOnly) TestConnection(context.Context) error { return nil }
