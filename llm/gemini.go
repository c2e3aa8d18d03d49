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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiProvider implements Provider for the Gemini API.
type geminiProvider struct {
	cfg completerConfig
}

// Gemini request/response types
type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	GenerationConfig  geminiConfig      `json:"generationConfig"`
	SystemInstruction *geminiSystemInst `json:"systemInstruction,omitempty"`
	Tools             []geminiTool      `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string              `json:"text,omitempty"`
	FunctionCall *geminiFunctionCall `json:"functionCall,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type geminiConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type geminiSystemInst struct {
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	ParametersJSONSchema map[string]any `json:"parametersJsonSchema"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *geminiProvider) Kind() types.ProviderKind { return types.ProviderGemini }

func (c *geminiProvider) Setup() error {
	if c.cfg.apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// baseURL returns the configured or default base URL.
func (c *geminiProvider) baseURL() string {
	if c.cfg.baseURL != "" {
		return strings.TrimRight(c.cfg.baseURL, "/")
	}
	return defaultGeminiBaseURL
}

func (c *geminiProvider) RouteIntent(ctx context.Context, transcript string, app *types.AppContext) (Result, error) {
	decls := make([]geminiFunctionDecl, 0, len(Tools))
	for _, t := range Tools {
		decls = append(decls, geminiFunctionDecl{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJSONSchema: t.SchemaMap(),
		})
	}

	resp, err := c.generate(ctx, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: transcript}}}},
		GenerationConfig: geminiConfig{
			MaxOutputTokens: c.cfg.maxTokens,
			Temperature:     c.cfg.temperature,
		},
		SystemInstruction: &geminiSystemInst{
			Parts: []geminiPart{{Text: SystemPrompt(app, c.cfg.vocabulary)}},
		},
		Tools: []geminiTool{{FunctionDeclarations: decls}},
	})
	if err != nil {
		return Result{}, err
	}

	usage := geminiToUsage(resp.UsageMetadata)
	if len(resp.Candidates) == 0 {
		return Result{}, fmt.Errorf("no candidates returned")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			route, err := ParseToolCall(part.FunctionCall.Name, part.FunctionCall.Args)
			if err != nil {
				return Result{}, err
			}
			return Result{Route: route, ToolCall: true, Usage: usage}, nil
		}
		text.WriteString(part.Text)
	}

	if s := strings.TrimSpace(text.String()); s != "" {
		slog.Warn("provider answered without a tool call, treating as dictation", "provider", types.ProviderGemini)
		return Result{Route: types.Dictation(s), Usage: usage}, nil
	}
	return Result{}, fmt.Errorf("no candidates returned")
}

func (c *geminiProvider) TestConnection(ctx context.Context) error {
	_, err := c.generate(ctx, geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: connectionPrompt}}}},
		GenerationConfig: geminiConfig{MaxOutputTokens: 5},
	})
	return err
}

func (c *geminiProvider) generate(ctx context.Context, reqBody geminiRequest) (*geminiResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL(), c.cfg.model)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.apiKey)

	resp, err := c.cfg.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if geminiResp.Error != nil {
		return nil, fmt.Errorf("api error: %d - %s", geminiResp.Error.Code, geminiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error: %d - %s", resp.StatusCode, string(body))
	}
	return &geminiResp, nil
}

// geminiToUsage converts Gemini usage metadata to types.Usage.
func geminiToUsage(u *geminiUsage) types.Usage {
	if u == nil {
		return types.Usage{}
	}
	return types.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
