// Package cache stores routed results keyed by provider, model, focused
// application and transcript.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"go.aimuz.me/echoflow/internal/types"
)

// DefaultTTL is how long a routed result stays valid.
const DefaultTTL = 24 * time.Hour

// Usage mirrors types.Usage for storage.
type Usage struct {
	PromptTokens     int `msgpack:"p"`
	CompletionTokens int `msgpack:"c"`
	TotalTokens      int `msgpack:"t"`
}

// Entry is a cached route.
type Entry struct {
	Kind      int               `msgpack:"kind"`
	Text      string            `msgpack:"text,omitempty"`
	Action    string            `msgpack:"action,omitempty"`
	Params    map[string]string `msgpack:"params,omitempty"`
	Usage     Usage             `msgpack:"usage"`
	CreatedAt time.Time         `msgpack:"created_at"`
}

// NewEntry captures route and usage.
func NewEntry(route types.RouteResult, usage types.Usage) *Entry {
	return &Entry{
		Kind:   int(route.Kind),
		Text:   route.Text,
		Action: route.Action,
		Params: route.Params,
		Usage: Usage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}
}

// Route rebuilds the cached result.
func (e *Entry) Route() types.RouteResult {
	switch types.RouteKind(e.Kind) {
	case types.RouteDictation:
		return types.Dictation(e.Text)
	case types.RouteCommand:
		return types.Command(e.Action, e.Params)
	default:
		return types.Unknown()
	}
}

// Cache is a badger-backed route cache. It is safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// New opens an on-disk cache in dir.
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache: dir is required")
	}
	return open(badger.DefaultOptions(dir))
}

// NewInMemory opens a cache that is discarded on Close.
func NewInMemory() (*Cache, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Cache, error) {
	db, err := badger.Open(opts.WithLogger(slogLogger{}))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Cache{db: db}, nil
}

// GenerateKey hashes the parts into a fixed-length key.
func GenerateKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

// Get returns the entry for key. Expired, missing and undecodable entries
// are all misses.
func (c *Cache) Get(key string) (*Entry, bool) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("cache read failed", "error", err)
		}
		return nil, false
	}

	var e Entry
	if err := msgpack.Unmarshal(val, &e); err != nil {
		slog.Warn("cache entry corrupt", "error", err)
		return nil, false
	}
	return &e, true
}

// Set stores e under key for ttl. A zero ttl never expires.
func (c *Cache) Set(key string, e *Entry, ttl time.Duration) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		be := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			be = be.WithTTL(ttl)
		}
		return txn.SetEntry(be)
	})
}

// Delete removes key. Missing keys are not an error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every entry.
func (c *Cache) Clear() error {
	return c.db.DropAll()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// slogLogger routes badger's warnings and errors through slog.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any) {
	slog.Error("badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogLogger) Warningf(f string, v ...any) {
	slog.Warn("badger", "msg", strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogLogger) Infof(string, ...any)  {}
func (slogLogger) Debugf(string, ...any) {}
