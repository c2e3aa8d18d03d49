package cache

import (
	"testing"
	"time"

	"go.aimuz.me/echoflow/internal/types"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		name  string
		route types.RouteResult
	}{
		{"dictation", types.Dictation("Hello, world.")},
		{"command", types.Command("open_app", map[string]string{"app_name": "Safari"})},
		{"command without params", types.Command("search_web", nil)},
	}

	c := newTestCache(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateKey("openai", "gpt-4o", "Mail", tt.name)
			usage := types.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}
			if err := c.Set(key, NewEntry(tt.route, usage), DefaultTTL); err != nil {
				t.Fatalf("Set: %v", err)
			}

			e, ok := c.Get(key)
			if !ok {
				t.Fatal("Get() miss, want hit")
			}
			if got := e.Route(); !got.Equal(tt.route) {
				t.Errorf("Route() = %+v, want %+v", got, tt.route)
			}
			if e.Usage.TotalTokens != 7 {
				t.Errorf("TotalTokens = %d, want 7", e.Usage.TotalTokens)
			}
		})
	}
}

func TestMissAndDelete(t *testing.T) {
	c := newTestCache(t)
	key := GenerateKey("a")

	if _, ok := c.Get(key); ok {
		t.Fatal("Get() hit on empty cache")
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Delete(missing) = %v, want nil", err)
	}

	_ = c.Set(key, NewEntry(types.Dictation("x"), types.Usage{}), 0)
	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Get() hit after Delete")
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t)
	for _, k := range []string{"a", "b"} {
		_ = c.Set(GenerateKey(k), NewEntry(types.Dictation(k), types.Usage{}), time.Hour)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get(GenerateKey("a")); ok {
		t.Error("Get() hit after Clear")
	}
}

func TestOnDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := GenerateKey("k")
	_ = c.Set(key, NewEntry(types.Dictation("persisted"), types.Usage{}), DefaultTTL)
	c.Close()

	c, err = New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	e, ok := c.Get(key)
	if !ok || e.Text != "persisted" {
		t.Errorf("Get() = %+v, %v; want persisted entry", e, ok)
	}
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("openai", "gpt-4o", "Mail", "hi")
	if a != GenerateKey("openai", "gpt-4o", "Mail", "hi") {
		t.Error("GenerateKey is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	// Part boundaries matter.
	if GenerateKey("ab", "c") == GenerateKey("a", "bc") {
		t.Error("GenerateKey ignores part boundaries")
	}
}
