// Package dispatch executes a RouteResult: dictation is formatted and typed,
// commands are looked up in a registry and run.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"go.aimuz.me/echoflow/format"
	"go.aimuz.me/echoflow/internal/apperr"
	"go.aimuz.me/echoflow/internal/types"
)

// ErrMissingParameter is returned when a command lacks a required parameter.
var ErrMissingParameter = errors.New("missing parameter")

// Injector types text into the focused application.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Handler runs one command.
type Handler func(ctx context.Context, params map[string]string) error

// Dispatcher routes results to the injector or to a registered command.
type Dispatcher struct {
	injector Injector

	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates a Dispatcher with the built-in commands bound to sys.
func New(injector Injector, sys System) *Dispatcher {
	d := &Dispatcher{injector: injector, handlers: map[string]Handler{}}
	registerBuiltins(d, sys)
	return d
}

// Register binds action to h, replacing any existing handler.
func (d *Dispatcher) Register(action string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = h
}

// Actions lists the registered actions in sorted order.
func (d *Dispatcher) Actions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch executes r. Unknown results and unregistered actions are logged
// and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, r types.RouteResult) error {
	switch r.Kind {
	case types.RouteDictation:
		text := format.Apply(r.Text)
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if err := d.injector.Inject(ctx, text); err != nil {
			return fmt.Errorf("inject text: %w", err)
		}
		return nil

	case types.RouteCommand:
		d.mu.RLock()
		h, ok := d.handlers[r.Action]
		d.mu.RUnlock()
		if !ok {
			slog.Warn("dropping command", "error", apperr.UnknownCommand(r.Action))
			return nil
		}
		slog.Info("running command", "action", r.Action, "params", r.Params)
		if err := h(ctx, r.Params); err != nil {
			return fmt.Errorf("run %s: %w", r.Action, err)
		}
		return nil

	default:
		slog.Info("unknown route, nothing to do")
		return nil
	}
}
