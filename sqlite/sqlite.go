// Package sqlite implements [fridge.RecipeStore] and [fridge.Notifier] on a
// local SQLite database, giving the command-line tool a recipe history and a
// notification inbox.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fwojciec/fridge"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver, registered as "sqlite".
)

// Interface compliance checks.
var (
	_ fridge.RecipeStore = (*Store)(nil)
	_ fridge.Notifier    = (*Store)(nil)
)

// DefaultListLimit bounds list queries that do not set a limit.
const DefaultListLimit = 50

var schema = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		servings INTEGER NOT NULL DEFAULT 0,
		cook_time INTEGER NOT NULL DEFAULT 0,
		ingredients TEXT NOT NULL,
		steps TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipes_group ON recipes(group_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		recipe_ids TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_group ON notifications(group_id, created_at)`,
}

// Store is a SQLite-backed recipe history and notification inbox.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// Option configures a [Store].
type Option func(*Store)

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how durable identifiers are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// Open opens or creates the database at path (":memory:" for a private
// in-memory database) and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: an in-memory database is per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. The schema is not applied.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
