package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"go.aimuz.me/echoflow/internal/types"
)

// Default endpoints of the OpenAI-compatible kinds.
var compatibleBaseURLs = map[types.ProviderKind]string{
	types.ProviderOpenAI:      "https://api.openai.com/v1",
	types.ProviderMistral:     "https://api.mistral.ai/v1",
	types.ProviderDeepSeek:    "https://api.deepseek.com/v1",
	types.ProviderLocalCustom: "http://localhost:11434/v1",
}

// openaiProvider implements Provider for OpenAI and compatible chat
// completion APIs.
type openaiProvider struct {
	cfg    completerConfig
	client openai.Client
	tools  []openai.ChatCompletionToolUnionParam
}

func newOpenAIProvider(cfg completerConfig) *openaiProvider {
	if cfg.baseURL == "" {
		cfg.baseURL = compatibleBaseURLs[cfg.kind]
	}
	cfg.baseURL = normalizeBaseURL(cfg.baseURL)

	client := openai.NewClient(
		option.WithAPIKey(cfg.apiKey),
		option.WithBaseURL(cfg.baseURL),
		option.WithHTTPClient(cfg.http),
		option.WithMaxRetries(0),
	)

	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(Tools))
	for _, t := range Tools {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.SchemaMap()),
		}))
	}

	return &openaiProvider{cfg: cfg, client: client, tools: tools}
}

// normalizeBaseURL accepts either an API root or a full chat completions
// URL and returns the API root.
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u
}

func (p *openaiProvider) Kind() types.ProviderKind { return p.cfg.kind }

func (p *openaiProvider) Setup() error {
	u, err := url.Parse(p.cfg.baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base url: %q", p.cfg.baseURL)
	}

	// Local servers usually ignore the bearer token.
	needsKey := p.cfg.kind != types.ProviderLocalCustom || strings.Contains(u.Host, "api.openai.com")
	if needsKey && p.cfg.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (p *openaiProvider) RouteIntent(ctx context.Context, transcript string, app *types.AppContext) (Result, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.cfg.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt(app, p.cfg.vocabulary)),
			openai.UserMessage(transcript),
		},
		Tools:       p.tools,
		ToolChoice:  openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")},
		Temperature: openai.Float(p.cfg.temperature),
	}
	if p.cfg.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.cfg.maxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("no choices")
	}

	usage := types.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	msg := resp.Choices[0].Message
	// A tool call wins over any accompanying text.
	if len(msg.ToolCalls) > 0 {
		fn := msg.ToolCalls[0].Function
		route, err := ParseToolCall(fn.Name, []byte(fn.Arguments))
		if err != nil {
			return Result{}, err
		}
		slog.Debug("provider selected tool", "provider", p.cfg.kind, "tool", fn.Name)
		return Result{Route: route, ToolCall: true, Usage: usage}, nil
	}

	if text := strings.TrimSpace(msg.Content); text != "" {
		slog.Warn("provider answered without a tool call, treating as dictation", "provider", p.cfg.kind)
		return Result{Route: types.Dictation(text), Usage: usage}, nil
	}

	return Result{}, fmt.Errorf("empty response")
}

func (p *openaiProvider) TestConnection(ctx context.Context) error {
	_, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.cfg.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(connectionPrompt),
		},
		MaxTokens: openai.Int(5),
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	return nil
}
