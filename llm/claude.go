package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.aimuz.me/echoflow/internal/types"
)

const defaultClaudeBaseURL = "https://api.anthropic.com/v1/messages"

// claudeProvider implements Provider for the Anthropic Messages API.
type claudeProvider struct {
	cfg completerConfig
}

// Claude request/response types
type claudeRequest struct {
	Model       string          `json:"model"`
	Messages    []claudeMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Tools       []claudeTool    `json:"tools,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
	Usage   *claudeUsage    `json:"usage,omitempty"`
	Error   *claudeError    `json:"error,omitempty"`
}

type claudeContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (c *claudeProvider) Kind() types.ProviderKind { return types.ProviderClaude }

func (c *claudeProvider) Setup() error {
	if c.cfg.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *claudeProvider) RouteIntent(ctx context.Context, transcript string, app *types.AppContext) (Result, error) {
	tools := make([]claudeTool, 0, len(Tools))
	for _, t := range Tools {
		tools = append(tools, claudeTool{Name: t.Name, Description: t.Description, InputSchema: t.SchemaMap()})
	}

	system := routerInstruction
	if c.cfg.vocabulary != "" {
		system += "\n\nVOCABULARY:\nPrefer these spellings when they match what was said: " + c.cfg.vocabulary
	}

	resp, err := c.send(ctx, claudeRequest{
		Model:       c.cfg.model,
		System:      system,
		Messages:    []claudeMessage{{Role: "user", Content: UserMessage(transcript, app)}},
		MaxTokens:   c.maxTokens(),
		Temperature: c.cfg.temperature,
		Tools:       tools,
	})
	if err != nil {
		return Result{}, err
	}

	var usage types.Usage
	if resp.Usage != nil {
		usage = types.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "tool_use":
			route, err := ParseToolCall(block.Name, block.Input)
			if err != nil {
				return Result{}, err
			}
			return Result{Route: route, ToolCall: true, Usage: usage}, nil
		case "text":
			text.WriteString(block.Text)
		}
	}

	route, ok := parseTaggedText(text.String())
	if !ok {
		return Result{}, fmt.Errorf("no content returned")
	}
	slog.Warn("provider answered without a tool call, treating as text", "provider", types.ProviderClaude)
	return Result{Route: route, Usage: usage}, nil
}

// parseTaggedText interprets a text-only reply. Replies may use the
// "[DICTATE] text" and "[SYSTEM] {json}" markers; anything else is
// dictation.
func parseTaggedText(s string) (types.RouteResult, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.RouteResult{}, false
	}

	if rest, ok := strings.CutPrefix(s, "[DICTATE]"); ok {
		return types.Dictation(strings.TrimSpace(rest)), true
	}
	if rest, ok := strings.CutPrefix(s, "[SYSTEM]"); ok {
		var cmd struct {
			Action     string          `json:"action"`
			Parameters json.RawMessage `json:"parameters"`
		}
		if err := unmarshalJSON([]byte(strings.TrimSpace(rest)), &cmd); err != nil || cmd.Action == "" {
			return types.Unknown(), true
		}
		return types.Command(cmd.Action, ParseParameters(cmd.Parameters)), true
	}
	return types.Dictation(s), true
}

func (c *claudeProvider) TestConnection(ctx context.Context) error {
	_, err := c.send(ctx, claudeRequest{
		Model:     c.cfg.model,
		Messages:  []claudeMessage{{Role: "user", Content: connectionPrompt}},
		MaxTokens: 5,
	})
	return err
}

func (c *claudeProvider) maxTokens() int {
	if c.cfg.maxTokens == 0 {
		return 1024 // Claude requires max_tokens
	}
	return c.cfg.maxTokens
}

func (c *claudeProvider) send(ctx context.Context, reqBody claudeRequest) (*claudeResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	baseURL := defaultClaudeBaseURL
	if c.cfg.baseURL != "" {
		baseURL = c.cfg.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-api-key", c.cfg.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	resp, err := c.cfg.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: %d - %s", resp.StatusCode, string(body))
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if claudeResp.Error != nil {
		return nil, fmt.Errorf("api error: %s - %s", claudeResp.Error.Type, claudeResp.Error.Message)
	}
	return &claudeResp, nil
}
