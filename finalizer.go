package fridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errEmptyID = errors.New("store returned an empty id")

// Cache keys invalidated after recipes are saved.
const recipesViewKey = "recipes"

// GroupRecipesViewKey returns the cache key of a group's recipe list.
func GroupRecipesViewKey(groupID string) string {
	return "groups/" + groupID + "/recipes"
}

// FinalizeContext is the caller-supplied context of a completed generation.
type FinalizeContext struct {
	Prompt  string
	GroupID string
	UserID  string
}

// Report describes the best-effort side effects of a Finalize call.
// Failures recorded here are never surfaced to the user as errors.
type Report struct {
	Saved  int
	Failed int

	Invalidated   bool
	InvalidateErr error

	Notified  bool
	NotifyErr error
}

// Finalizer turns validated recipes into their display form: it persists
// them concurrently, swaps in durable identifiers for the ones that were
// saved, and triggers cache invalidation and one summary notification.
// Every collaborator is optional.
type Finalizer struct {
	store       RecipeStore
	notifier    Notifier
	invalidator Invalidator
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
}

// FinalizerOption configures a [Finalizer].
type FinalizerOption func(*Finalizer)

// WithRecipeStore sets the persistence collaborator.
func WithRecipeStore(s RecipeStore) FinalizerOption {
	return func(f *Finalizer) { f.store = s }
}

// WithNotifier sets the notification collaborator.
func WithNotifier(n Notifier) FinalizerOption {
	return func(f *Finalizer) { f.notifier = n }
}

// WithInvalidator sets the cache-invalidation collaborator.
func WithInvalidator(i Invalidator) FinalizerOption {
	return func(f *Finalizer) { f.invalidator = i }
}

// WithFinalizerLogger sets the logger used for persistence and notification
// failures.
func WithFinalizerLogger(l *slog.Logger) FinalizerOption {
	return func(f *Finalizer) { f.logger = l }
}

// WithIDGenerator overrides how temporary identifiers are generated.
func WithIDGenerator(fn func() string) FinalizerOption {
	return func(f *Finalizer) { f.newID = fn }
}

// NewFinalizer creates a [Finalizer]. With no options it only assigns
// temporary identifiers.
func NewFinalizer(opts ...FinalizerOption) *Finalizer {
	f := &Finalizer{
		logger: slog.New(slog.DiscardHandler),
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Finalize persists recipes and returns them in input order. It blocks until
// every save attempt has finished; a failed save leaves that recipe with its
// temporary identifier and does not affect the others.
func (f *Finalizer) Finalize(ctx context.Context, recipes []Recipe, fc FinalizeContext) ([]Recipe, Report) {
	out := make([]Recipe, len(recipes))
	for i, r := range recipes {
		r = r.Clone()
		r.ID = TempIDPrefix + f.newID()
		r.Persisted = false
		out[i] = r
	}

	var report Report
	if f.store == nil || len(out) == 0 {
		return out, report
	}

	sc := SaveContext{Prompt: fc.Prompt, GroupID: fc.GroupID, UserID: fc.UserID}
	ids := make([]string, len(out))
	errs := make([]error, len(out))
	var wg sync.WaitGroup
	for i := range out {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], errs[i] = f.store.SaveRecipe(ctx, out[i], sc)
		}()
	}
	wg.Wait()

	var saved []Recipe
	for i := range out {
		err := errs[i]
		if err == nil && ids[i] == "" {
			err = errEmptyID
		}
		if err != nil {
			report.Failed++
			f.logger.Warn("save recipe failed", "recipe", out[i].Name, "temp_id", out[i].ID, "error", err)
			continue
		}
		out[i].ID = ids[i]
		out[i].Persisted = true
		report.Saved++
		saved = append(saved, out[i])
	}

	if len(saved) == 0 {
		return out, report
	}
	f.invalidate(ctx, fc, &report)
	f.notify(ctx, fc, saved, &report)
	return out, report
}

func (f *Finalizer) invalidate(ctx context.Context, fc FinalizeContext, report *Report) {
	if f.invalidator == nil {
		return
	}
	keys := []string{recipesViewKey}
	if fc.GroupID != "" {
		keys = append(keys, GroupRecipesViewKey(fc.GroupID))
	}
	if err := f.invalidator.Invalidate(ctx, keys...); err != nil {
		report.InvalidateErr = err
		f.logger.Warn("invalidate recipe views failed", "keys", keys, "error", err)
		return
	}
	report.Invalidated = true
}

func (f *Finalizer) notify(ctx context.Context, fc FinalizeContext, saved []Recipe, report *Report) {
	if f.notifier == nil || fc.GroupID == "" {
		return
	}
	n := Notification{
		GroupID:   fc.GroupID,
		UserID:    fc.UserID,
		Title:     "AI 食譜",
		Body:      summarize(saved),
		RecipeIDs: make([]string, len(saved)),
		CreatedAt: f.now(),
	}
	for i, r := range saved {
		n.RecipeIDs[i] = r.ID
	}
	if err := f.notifier.Notify(ctx, n); err != nil {
		report.NotifyErr = err
		f.logger.Warn("recipe notification failed", "group_id", fc.GroupID, "error", err)
		return
	}
	report.Notified = true
}

// summarize words the notification body for one or many recipes.
func summarize(saved []Recipe) string {
	if len(saved) == 1 {
		return fmt.Sprintf("新增了 AI 食譜「%s」", saved[0].Name)
	}
	return fmt.Sprintf("新增了 %d 道 AI 食譜", len(saved))
}
