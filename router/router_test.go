package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.aimuz.me/echoflow/cache"
	"go.aimuz.me/echoflow/config"
	"go.aimuz.me/echoflow/internal/types"
	"go.aimuz.me/echoflow/llm"
)

// mockProvider is a scripted llm.Provider.
type mockProvider struct {
	setupErr error
	result   llm.Result
	err      error
	panics   bool
	calls    int
}

func (m *mockProvider) Kind() types.ProviderKind { return types.ProviderOpenAI }
func (m *mockProvider) Setup() error             { return m.setupErr }

func (m *mockProvider) RouteIntent(context.Context, string, *types.AppContext) (llm.Result, error) {
	m.calls++
	if m.panics {
		panic("boom")
	}
	return m.result, m.err
}

func (m *mockProvider) TestConnection(context.Context) error { return nil }

func factoryFor(p llm.Provider) Factory {
	return func(types.ProviderConfig, llm.Options) llm.Provider { return p }
}

func settings(kind types.ProviderKind, key string) *config.Settings {
	return &config.Settings{Provider: types.ProviderConfig{Kind: kind, APIKey: key}}
}

// countingServer counts every request it receives.
func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv, &n
}

func TestDictationOnlyNoNetwork(t *testing.T) {
	srv, calls := countingServer(t)
	r := New(WithHTTPClient(srv.Client()))

	for _, in := range []string{"open safari", "hello world", "send email to bob"} {
		s := settings(types.ProviderDictationOnly, "")
		s.Provider.Endpoint = srv.URL
		got := r.Route(context.Background(), s, in, nil)
		if !got.Equal(types.Dictation(in)) {
			t.Errorf("Route(%q) = %+v, want Dictation", in, got)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("HTTP calls = %d, want 0", n)
	}
}

func TestSetupFailureFallsBack(t *testing.T) {
	r := New()
	got := r.Route(context.Background(), settings(types.ProviderOpenAI, ""), "open safari", nil)
	want := types.Command("open_app", map[string]string{"app_name": "Safari"})
	if !got.Equal(want) {
		t.Errorf("Route() = %+v, want %+v", got, want)
	}
}

func TestWhitespaceIsDictation(t *testing.T) {
	tests := []struct {
		name string
		kind types.ProviderKind
	}{
		{"dictation only", types.ProviderDictationOnly},
		{"fallback", types.ProviderClaude},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().Route(context.Background(), settings(tt.kind, ""), "   ", nil)
			if !got.Equal(types.Dictation("   ")) {
				t.Errorf("Route() = %+v, want Dictation(\"   \")", got)
			}
		})
	}

	t.Run("working provider", func(t *testing.T) {
		mock := &mockProvider{result: llm.Result{Route: types.Dictation("Okay."), ToolCall: true}}
		r := New(WithFactory(factoryFor(mock)))
		for _, in := range []string{"", "   ", "\t\n"} {
			got := r.Route(context.Background(), settings(types.ProviderOpenAI, "sk-test"), in, nil)
			if !got.Equal(types.Dictation(in)) {
				t.Errorf("Route(%q) = %+v, want Dictation(%q)", in, got, in)
			}
		}
		if mock.calls != 0 {
			t.Errorf("RouteIntent calls = %d, want 0", mock.calls)
		}
	})
}

func TestProviderErrorFallsBack(t *testing.T) {
	srv, calls := countingServer(t)
	r := New(WithHTTPClient(srv.Client()))
	s := settings(types.ProviderOpenAI, "sk-test")
	s.Provider.Endpoint = srv.URL + "/v1"

	got := r.Route(context.Background(), s, "launch notes", nil)
	want := types.Command("open_app", map[string]string{"app_name": "Notes"})
	if !got.Equal(want) {
		t.Errorf("Route() = %+v, want %+v", got, want)
	}
	if calls.Load() == 0 {
		t.Error("provider was not called")
	}
}

func TestRouteResults(t *testing.T) {
	tests := []struct {
		name string
		mock *mockProvider
		want types.RouteResult
	}{
		{
			name: "tool result",
			mock: &mockProvider{result: llm.Result{Route: types.Dictation("Hello."), ToolCall: true}},
			want: types.Dictation("Hello."),
		},
		{
			name: "error",
			mock: &mockProvider{err: errors.New("401")},
			want: types.Dictation("hello"),
		},
		{
			name: "setup error skips provider",
			mock: &mockProvider{setupErr: llm.ErrMissingAPIKey},
			want: types.Dictation("hello"),
		},
		{
			name: "panic",
			mock: &mockProvider{panics: true},
			want: types.Dictation("hello"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithFactory(factoryFor(tt.mock)))
			got := r.Route(context.Background(), settings(types.ProviderOpenAI, "k"), "hello", nil)
			if !got.Equal(tt.want) {
				t.Errorf("Route() = %+v, want %+v", got, tt.want)
			}
			if tt.mock.setupErr != nil && tt.mock.calls != 0 {
				t.Errorf("RouteIntent calls = %d, want 0", tt.mock.calls)
			}
		})
	}
}

func TestCache(t *testing.T) {
	c, err := cache.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer c.Close()

	tests := []struct {
		name      string
		result    llm.Result
		wantCalls int
	}{
		{"tool calls are cached", llm.Result{Route: types.Command("search_web", map[string]string{"query": "go"}), ToolCall: true}, 1},
		{"free text is not cached", llm.Result{Route: types.Dictation("hi")}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProvider{result: tt.result}
			r := New(WithFactory(factoryFor(mock)), WithCache(c))
			s := settings(types.ProviderOpenAI, "k")
			s.RouteCache = true
			app := &types.AppContext{ApplicationName: "Safari"}

			for range 2 {
				if got := r.Route(context.Background(), s, tt.name, app); !got.Equal(tt.result.Route) {
					t.Errorf("Route() = %+v, want %+v", got, tt.result.Route)
				}
			}
			if mock.calls != tt.wantCalls {
				t.Errorf("RouteIntent calls = %d, want %d", mock.calls, tt.wantCalls)
			}
		})
	}
}

func TestCacheDisabledBySettings(t *testing.T) {
	c, err := cache.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer c.Close()

	mock := &mockProvider{result: llm.Result{Route: types.Dictation("x"), ToolCall: true}}
	r := New(WithFactory(factoryFor(mock)), WithCache(c))
	s := settings(types.ProviderOpenAI, "k")

	r.Route(context.Background(), s, "x", nil)
	r.Route(context.Background(), s, "x", nil)
	if mock.calls != 2 {
		t.Errorf("RouteIntent calls = %d, want 2", mock.calls)
	}
}
