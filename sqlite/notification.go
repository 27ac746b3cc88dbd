package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/fridge"
)

var errNoGroup = errors.New("notification has no group")

// Notify files n in the group's inbox.
func (s *Store) Notify(ctx context.Context, n fridge.Notification) error {
	if n.GroupID == "" {
		return fmt.Errorf("sqlite: notify: %w", errNoGroup)
	}
	ids := n.RecipeIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("sqlite: notify: %w", err)
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, group_id, user_id, title, body, recipe_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.newID(), n.GroupID, n.UserID, n.Title, n.Body, string(idsJSON), created.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite: notify: %w", err)
	}
	return nil
}

// ListNotifications returns a group's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, groupID string, limit int) ([]fridge.Notification, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, user_id, title, body, recipe_ids, created_at
		FROM notifications
		WHERE group_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list notifications: %w", err)
	}
	defer rows.Close()

	var out []fridge.Notification
	for rows.Next() {
		var (
			n       fridge.Notification
			ids     string
			created int64
		)
		if err := rows.Scan(&n.GroupID, &n.UserID, &n.Title, &n.Body, &ids, &created); err != nil {
			return nil, fmt.Errorf("sqlite: list notifications: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &n.RecipeIDs); err != nil {
			return nil, fmt.Errorf("sqlite: decode recipe ids: %w", err)
		}
		n.CreatedAt = time.UnixMilli(created)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list notifications: %w", err)
	}
	return out, nil
}
