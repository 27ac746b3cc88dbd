// Package mock provides test doubles for fridge interfaces using function
// fields, plus Pipe, a channel-driven stream for scripting generations.
package mock

import (
	"context"

	"github.com/fwojciec/fridge"
)

// Interface compliance checks.
var (
	_ fridge.Transport   = (*Transport)(nil)
	_ fridge.RecipeStore = (*RecipeStore)(nil)
	_ fridge.Notifier    = (*Notifier)(nil)
	_ fridge.Invalidator = (*Invalidator)(nil)
)

// Transport is a test double for fridge.Transport.
// Set OpenFn before calling Open.
type Transport struct {
	OpenFn func(ctx context.Context, req fridge.Request) (fridge.Stream, error)
}

// Open delegates to OpenFn.
func (t *Transport) Open(ctx context.Context, req fridge.Request) (fridge.Stream, error) {
	return t.OpenFn(ctx, req)
}

// RecipeStore is a test double for fridge.RecipeStore.
// Set SaveRecipeFn before calling SaveRecipe.
type RecipeStore struct {
	SaveRecipeFn func(ctx context.Context, r fridge.Recipe, sc fridge.SaveContext) (string, error)
}

// SaveRecipe delegates to SaveRecipeFn.
func (s *RecipeStore) SaveRecipe(ctx context.Context, r fridge.Recipe, sc fridge.SaveContext) (string, error) {
	return s.SaveRecipeFn(ctx, r, sc)
}

// Notifier is a test double for fridge.Notifier.
// Set NotifyFn before calling Notify.
type Notifier struct {
	NotifyFn func(ctx context.Context, n fridge.Notification) error
}

// Notify delegates to NotifyFn.
func (n *Notifier) Notify(ctx context.Context, notification fridge.Notification) error {
	return n.NotifyFn(ctx, notification)
}

// Invalidator is a test double for fridge.Invalidator.
// Set InvalidateFn before calling Invalidate.
type Invalidator struct {
	InvalidateFn func(ctx context.Context, keys ...string) error
}

// Invalidate delegates to InvalidateFn.
func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) error {
	return i.InvalidateFn(ctx, keys...)
}
