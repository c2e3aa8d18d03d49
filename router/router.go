// Package router decides, for each utterance, whether the transcript is
// typed verbatim or dispatched as a command.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go.aimuz.me/echoflow/cache"
	"go.aimuz.me/echoflow/config"
	"go.aimuz.me/echoflow/internal/apperr"
	"go.aimuz.me/echoflow/internal/types"
	"go.aimuz.me/echoflow/llm"
)

// Factory builds a provider from configuration.
type Factory func(types.ProviderConfig, llm.Options) llm.Provider

// Router routes transcripts through the active provider with a local
// fallback. It holds no per-utterance state and is safe for concurrent use.
type Router struct {
	newProvider Factory
	fallback    *llm.Local
	cache       *cache.Cache
	http        *http.Client
}

// Option configures a Router.
type Option func(*Router)

// WithCache enables the route cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Router) { r.cache = c }
}

// WithHTTPClient sets the client used by cloud providers.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.http = c }
}

// WithFactory replaces llm.New.
func WithFactory(f Factory) Option {
	return func(r *Router) { r.newProvider = f }
}

// New creates a Router.
func New(opts ...Option) *Router {
	r := &Router{newProvider: llm.New, fallback: &llm.Local{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns exactly one result for transcript. It never returns an
// error: provider failures fall back to the local heuristic, and a panic
// anywhere yields Dictation(transcript).
func (r *Router) Route(ctx context.Context, s *config.Settings, transcript string, app *types.AppContext) (result types.RouteResult) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("router panic, typing transcript verbatim", "panic", p)
			result = types.Dictation(transcript)
		}
	}()

	cfg := s.Provider
	if cfg.Kind == types.ProviderDictationOnly || strings.TrimSpace(transcript) == "" {
		return types.Dictation(transcript)
	}

	provider := r.newProvider(cfg, llm.Options{
		Vocabulary: s.VocabularyPrompt(),
		HTTP:       r.http,
	})
	if err := provider.Setup(); err != nil {
		slog.Warn("provider setup failed, using local fallback",
			"error", apperr.ProviderUnavailable(string(cfg.Kind), err))
		return r.local(ctx, transcript, app)
	}

	key := r.cacheKey(s, provider, transcript, app)
	if key != "" {
		if e, ok := r.cache.Get(key); ok {
			slog.Debug("route cache hit", "provider", provider.Kind())
			return e.Route()
		}
	}

	res, err := provider.RouteIntent(ctx, transcript, app)
	if err != nil {
		slog.Warn("routing failed, using local fallback",
			"error", apperr.ProviderUnavailable(string(cfg.Kind), err))
		return r.local(ctx, transcript, app)
	}

	slog.Debug("routed",
		"provider", provider.Kind(),
		"route", res.Route.Kind,
		"tool_call", res.ToolCall,
		"tokens", res.Usage.TotalTokens,
	)

	if key != "" && res.ToolCall {
		if err := r.cache.Set(key, cache.NewEntry(res.Route, res.Usage), cache.DefaultTTL); err != nil {
			slog.Warn("cache route", "error", err)
		}
	}
	return res.Route
}

func (r *Router) local(ctx context.Context, transcript string, app *types.AppContext) types.RouteResult {
	res, err := r.fallback.RouteIntent(ctx, transcript, app)
	if err != nil {
		return types.Dictation(transcript)
	}
	return res.Route
}

// cacheKey returns "" when caching is off for this call.
func (r *Router) cacheKey(s *config.Settings, p llm.Provider, transcript string, app *types.AppContext) string {
	if r.cache == nil || !s.RouteCache {
		return ""
	}
	appName := ""
	if app != nil {
		appName = app.ApplicationName
	}
	model := s.Provider.Model
	if model == "" {
		model = s.Provider.Kind.DefaultModel()
	}
	return cache.GenerateKey(string(p.Kind()), model, s.VocabularyPrompt(), appName, transcript)
}
