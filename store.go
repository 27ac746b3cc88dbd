package fridge

import (
	"context"
	"time"
)

// SaveContext carries what the store needs to file a generated recipe.
type SaveContext struct {
	Prompt  string
	GroupID string
	UserID  string
}

// RecipeStore persists generated recipes. SaveRecipe must be safe for
// concurrent use; duplicate suppression, if any, is the store's business.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, r Recipe, sc SaveContext) (string, error)
}

// Notification summarizes a batch of saved recipes for a group.
type Notification struct {
	GroupID   string
	UserID    string
	Title     string
	Body      string
	RecipeIDs []string
	CreatedAt time.Time
}

// Notifier delivers notifications. Callers treat it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Invalidator marks cached list views stale after their data changed.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}
