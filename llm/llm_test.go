package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.aimuz.me/echoflow/internal/types"
)

// captured records the last request body a test server received.
type captured struct {
	path string
	body map[string]any
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func openaiToolResponse(name, args string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role":    "assistant",
				"content": "I will open it for you.",
				"tool_calls": []any{map[string]any{
					"id":       "call_1",
					"type":     "function",
					"function": map[string]any{"name": name, "arguments": args},
				}},
			},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

const openaiTextResponse = `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4o",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello there."}}]}`

func TestOpenAIRouteIntent(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		response     string
		want         types.RouteResult
		wantToolCall bool
		wantErr      bool
	}{
		{
			name:         "dictation tool",
			status:       200,
			response:     openaiToolResponse(ToolDictation, `{"formatted_text":"Hello, world."}`),
			want:         types.Dictation("Hello, world."),
			wantToolCall: true,
		},
		{
			name:         "command tool wins over text",
			status:       200,
			response:     openaiToolResponse(ToolCommand, `{"action":"open_app","parameters":"{\"app_name\":\"Safari\"}"}`),
			want:         types.Command("open_app", map[string]string{"app_name": "Safari"}),
			wantToolCall: true,
		},
		{
			name:         "malformed parameters yield empty map",
			status:       200,
			response:     openaiToolResponse(ToolCommand, `{"action":"open_app","parameters":"]]]"}`),
			want:         types.Command("open_app", nil),
			wantToolCall: true,
		},
		{
			name:     "free text degrades to dictation",
			status:   200,
			response: openaiTextResponse,
			want:     types.Dictation("Hello there."),
		},
		{
			name:     "server error",
			status:   500,
			response: `{"error":{"message":"boom"}}`,
			wantErr:  true,
		},
		{
			name:     "unknown tool",
			status:   200,
			response: openaiToolResponse("delete_everything", `{}`),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newServer(t, tt.status, tt.response)
			p := New(types.ProviderConfig{
				Kind:     types.ProviderOpenAI,
				APIKey:   "sk-test",
				Endpoint: srv.URL + "/v1/chat/completions",
			}, Options{Vocabulary: "EchoFlow"})

			if err := p.Setup(); err != nil {
				t.Fatalf("Setup: %v", err)
			}
			res, err := p.RouteIntent(context.Background(), "open safari", &types.AppContext{ApplicationName: "Mail"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("RouteIntent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !res.Route.Equal(tt.want) {
				t.Errorf("RouteIntent() = %+v, want %+v", res.Route, tt.want)
			}
			if res.ToolCall != tt.wantToolCall {
				t.Errorf("ToolCall = %v, want %v", res.ToolCall, tt.wantToolCall)
			}

			if got.path != "/v1/chat/completions" {
				t.Errorf("path = %q", got.path)
			}
			if temp, ok := got.body["temperature"].(float64); !ok || temp != 0 {
				t.Errorf("temperature = %v, want 0", got.body["temperature"])
			}
			if tools, _ := got.body["tools"].([]any); len(tools) != 2 {
				t.Errorf("tools = %d, want 2", len(tools))
			}
			msgs, _ := got.body["messages"].([]any)
			if len(msgs) != 2 {
				t.Fatalf("messages = %d, want 2", len(msgs))
			}
			system, _ := msgs[0].(map[string]any)["content"].(string)
			if !strings.Contains(system, "professional") || !strings.Contains(system, "EchoFlow") {
				t.Errorf("system prompt missing hints: %q", system)
			}
		})
	}
}

func TestOpenAISetup(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.ProviderConfig
		wantErr bool
	}{
		{"openai with key", types.ProviderConfig{Kind: types.ProviderOpenAI, APIKey: "sk"}, false},
		{"openai without key", types.ProviderConfig{Kind: types.ProviderOpenAI}, true},
		{"mistral without key", types.ProviderConfig{Kind: types.ProviderMistral}, true},
		{"local without key", types.ProviderConfig{Kind: types.ProviderLocalCustom}, false},
		{"local pointing at openai", types.ProviderConfig{Kind: types.ProviderLocalCustom, Endpoint: "https://api.openai.com/v1"}, true},
		{"local bad scheme", types.ProviderConfig{Kind: types.ProviderLocalCustom, Endpoint: "ftp://box/v1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.cfg, Options{}).Setup()
			if (err != nil) != tt.wantErr {
				t.Errorf("Setup() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://api.mistral.ai/v1/chat/completions", "https://api.mistral.ai/v1"},
		{"http://localhost:11434/v1/", "http://localhost:11434/v1"},
		{"https://api.deepseek.com/v1", "https://api.deepseek.com/v1"},
	}
	for _, tt := range tests {
		if got := normalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClaudeRouteIntent(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		want         types.RouteResult
		wantToolCall bool
	}{
		{
			name:         "tool use",
			response:     `{"content":[{"type":"text","text":"Sure."},{"type":"tool_use","id":"tu_1","name":"run_system_command","input":{"action":"open_url","parameters":"{\"url\":\"https://go.dev\"}"}}]}`,
			want:         types.Command("open_url", map[string]string{"url": "https://go.dev"}),
			wantToolCall: true,
		},
		{
			name:     "tagged dictation",
			response: `{"content":[{"type":"text","text":"[DICTATE] Hello team."}]}`,
			want:     types.Dictation("Hello team."),
		},
		{
			name:     "tagged system",
			response: `{"content":[{"type":"text","text":"[SYSTEM] {\"action\":\"open_app\",\"parameters\":{\"app_name\":\"Notes\"}}"}]}`,
			want:     types.Command("open_app", map[string]string{"app_name": "Notes"}),
		},
		{
			name:     "tagged system garbage",
			response: `{"content":[{"type":"text","text":"[SYSTEM] nonsense"}]}`,
			want:     types.Unknown(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newServer(t, 200, tt.response)
			p := New(types.ProviderConfig{Kind: types.ProviderClaude, APIKey: "k", Endpoint: srv.URL}, Options{})

			res, err := p.RouteIntent(context.Background(), "whatever", &types.AppContext{ApplicationName: "Slack"})
			if err != nil {
				t.Fatalf("RouteIntent: %v", err)
			}
			if !res.Route.Equal(tt.want) {
				t.Errorf("RouteIntent() = %+v, want %+v", res.Route, tt.want)
			}
			if res.ToolCall != tt.wantToolCall {
				t.Errorf("ToolCall = %v, want %v", res.ToolCall, tt.wantToolCall)
			}

			msgs, _ := got.body["messages"].([]any)
			user, _ := msgs[0].(map[string]any)["content"].(string)
			if !strings.HasPrefix(user, "[CONTEXT]\n") || !strings.Contains(user, "[TRANSCRIPTION]\nwhatever") {
				t.Errorf("user message = %q", user)
			}
		})
	}
}

func TestClaudeAPIError(t *testing.T) {
	srv, _ := newServer(t, 401, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	p := New(types.ProviderConfig{Kind: types.ProviderClaude, APIKey: "bad", Endpoint: srv.URL}, Options{})
	if _, err := p.RouteIntent(context.Background(), "hi", nil); err == nil {
		t.Error("RouteIntent() error = nil, want error")
	}
}

func TestGeminiRouteIntent(t *testing.T) {
	srv, got := newServer(t, 200, `{"candidates":[{"content":{"role":"model","parts":[
		{"functionCall":{"name":"process_dictation","args":{"formatted_text":"Ship it."}}}]}}],
		"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`)

	p := New(types.ProviderConfig{Kind: types.ProviderGemini, APIKey: "g", Endpoint: srv.URL}, Options{})
	res, err := p.RouteIntent(context.Background(), "ship it", nil)
	if err != nil {
		t.Fatalf("RouteIntent: %v", err)
	}
	if !res.Route.Equal(types.Dictation("Ship it.")) {
		t.Errorf("RouteIntent() = %+v", res.Route)
	}
	if res.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", res.Usage.TotalTokens)
	}
	if got.path != "/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", got.path)
	}
	if _, ok := got.body["tools"]; !ok {
		t.Error("request has no tools")
	}
}

func TestGeminiError(t *testing.T) {
	srv, _ := newServer(t, 400, `{"error":{"code":400,"message":"API key not valid"}}`)
	p := New(types.ProviderConfig{Kind: types.ProviderGemini, APIKey: "g", Endpoint: srv.URL}, Options{})
	if _, err := p.RouteIntent(context.Background(), "x", nil); err == nil {
		t.Error("RouteIntent() error = nil, want error")
	}
}

func TestTestConnection(t *testing.T) {
	srv, got := newServer(t, 200, openaiTextResponse)
	p := New(types.ProviderConfig{Kind: types.ProviderDeepSeek, APIKey: "d", Endpoint: srv.URL}, Options{})
	if err := p.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	msgs, _ := got.body["messages"].([]any)
	if content, _ := msgs[0].(map[string]any)["content"].(string); content != "Reply with OK" {
		t.Errorf("prompt = %q", content)
	}
	if got.body["model"] != "deepseek-chat" {
		t.Errorf("model = %v, want deepseek-chat", got.body["model"])
	}
}

func TestNewKinds(t *testing.T) {
	tests := []struct {
		kind types.ProviderKind
		want types.ProviderKind
	}{
		{types.ProviderDictationOnly, types.ProviderDictationOnly},
		{types.ProviderGemini, types.ProviderGemini},
		{types.ProviderOpenAI, types.ProviderOpenAI},
		{types.ProviderClaude, types.ProviderClaude},
		{types.ProviderMistral, types.ProviderMistral},
		{types.ProviderDeepSeek, types.ProviderDeepSeek},
		{types.ProviderLocalCustom, types.ProviderLocalCustom},
		{"bogus", KindLocalFallback},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := New(types.ProviderConfig{Kind: tt.kind}, Options{}).Kind(); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    string
		want    types.RouteResult
		wantErr bool
	}{
		{"dictation", ToolDictation, `{"formatted_text":"Hi."}`, types.Dictation("Hi."), false},
		{"dictation repaired", ToolDictation, `{"formatted_text":"Hi."`, types.Dictation("Hi."), false},
		{"dictation empty", ToolDictation, `{"formatted_text":""}`, types.RouteResult{}, true},
		{"command object params", ToolCommand, `{"action":"search_web","parameters":{"query":"golang","n":3}}`,
			types.Command("search_web", map[string]string{"query": "golang", "n": "3"}), false},
		{"command repaired params", ToolCommand, `{"action":"open_app","parameters":"{'app_name': 'Notes'"}`,
			types.Command("open_app", map[string]string{"app_name": "Notes"}), false},
		{"command missing params", ToolCommand, `{"action":"open_app"}`, types.Command("open_app", nil), false},
		{"command no action", ToolCommand, `{"parameters":"{}"}`, types.RouteResult{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToolCall(tt.tool, []byte(tt.args))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToolCall() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrMalformedToolCall) {
					t.Errorf("error %v does not wrap ErrMalformedToolCall", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseToolCall() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestToolSchemas(t *testing.T) {
	for _, tool := range Tools {
		m := tool.SchemaMap()
		if m["type"] != "object" {
			t.Errorf("%s schema type = %v, want object", tool.Name, m["type"])
		}
		props, _ := m["properties"].(map[string]any)
		if len(props) == 0 {
			t.Errorf("%s schema has no properties", tool.Name)
		}
	}
}
