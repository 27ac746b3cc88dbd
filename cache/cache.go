// Package cache implements [fridge.Invalidator] as a registry of lazily
// loaded list views.
//
// A view is a keyed loader, such as "recipes" or "groups/<id>/recipes".
// Get serves the cached value until the key is invalidated, then reloads it
// on the next call. Invalidate accepts doublestar patterns, so
// "groups/*/recipes" marks every group's recipe list stale at once.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/fridge"
)

// Interface compliance check.
var _ fridge.Invalidator = (*Views)(nil)

// ErrUnknownView is returned by Get for a key that was never registered.
var ErrUnknownView = errors.New("unknown view")

// Loader produces the current value of a view.
type Loader func(ctx context.Context) (any, error)

type view struct {
	load     Loader
	value    any
	loaded   bool
	stale    bool
	loadedAt time.Time
}

// Views is a concurrency-safe registry of cached views.
type Views struct {
	mu     sync.Mutex
	views  map[string]*view
	now    func() time.Time
	logger *slog.Logger
}

// Option configures [Views].
type Option func(*Views)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Views) { v.logger = l }
}

// WithClock overrides the time source recorded on loads.
func WithClock(now func() time.Time) Option {
	return func(v *Views) { v.now = now }
}

// New creates an empty registry.
func New(opts ...Option) *Views {
	v := &Views{
		views:  make(map[string]*view),
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Register adds or replaces the loader for key. A replaced view starts
// empty.
func (v *Views) Register(key string, load Loader) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.views[key] = &view{load: load}
}

// Get returns the view's value, loading it when it was never loaded or has
// been invalidated since. A failed load leaves the previous value in place
// and the view stale.
func (v *Views) Get(ctx context.Context, key string) (any, error) {
	v.mu.Lock()
	vw, ok := v.views[key]
	if !ok {
		v.mu.Unlock()
		return nil, fmt.Errorf("cache: %q: %w", key, ErrUnknownView)
	}
	if vw.loaded && !vw.stale {
		value := vw.value
		v.mu.Unlock()
		return value, nil
	}
	load := vw.load
	v.mu.Unlock()

	value, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: load %q: %w", key, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// Re-registered while loading: keep the new view untouched.
	if v.views[key] != vw {
		return value, nil
	}
	vw.value = value
	vw.loaded = true
	vw.stale = false
	vw.loadedAt = v.now()
	return value, nil
}

// Stale reports whether key needs a reload before it can be served. Unknown
// keys are reported stale.
func (v *Views) Stale(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	vw, ok := v.views[key]
	return !ok || !vw.loaded || vw.stale
}

// LoadedAt returns when key was last loaded, or the zero time.
func (v *Views) LoadedAt(key string) time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	if vw, ok := v.views[key]; ok {
		return vw.loadedAt
	}
	return time.Time{}
}

// Invalidate marks every registered view matching any of the patterns stale.
// Patterns use doublestar syntax with "/" as separator; a plain key matches
// only itself. An invalid pattern fails the call before anything is marked.
func (v *Views) Invalidate(_ context.Context, patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("cache: invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	marked := 0
	for key, vw := range v.views {
		for _, p := range patterns {
			if doublestar.MatchUnvalidated(p, key) {
				vw.stale = true
				marked++
				break
			}
		}
	}
	v.logger.Debug("views invalidated", "patterns", patterns, "marked", marked)
	return nil
}
