package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/fridge"
)

// SavedRecipe is a recipe row together with the context it was saved in.
type SavedRecipe struct {
	fridge.Recipe
	GroupID   string
	UserID    string
	Prompt    string
	CreatedAt time.Time
}

// RecipeFilter narrows ListRecipes. An empty GroupID lists every group.
type RecipeFilter struct {
	GroupID string
	Limit   int
}

type ingredientRow struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Kind     string `json:"kind"`
}

// SaveRecipe inserts r and returns its new durable identifier. The recipe's
// temporary ID is not stored.
func (s *Store) SaveRecipe(ctx context.Context, r fridge.Recipe, sc fridge.SaveContext) (string, error) {
	rows := make([]ingredientRow, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		rows[i] = ingredientRow{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit, Kind: string(ing.Kind)}
	}
	ingredients, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("sqlite: save recipe: %w", err)
	}
	steps := r.Steps
	if steps == nil {
		steps = []string{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("sqlite: save recipe: %w", err)
	}

	id := s.newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, group_id, user_id, prompt, name, description, category, difficulty, servings, cook_time, ingredients, steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, sc.GroupID, sc.UserID, sc.Prompt,
		r.Name, r.Description, r.Category, r.Difficulty, r.Servings, r.CookTime,
		string(ingredients), string(stepsJSON), s.now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: save recipe: %w", err)
	}
	return id, nil
}

// ListRecipes returns saved recipes, newest first.
func (s *Store) ListRecipes(ctx context.Context, f RecipeFilter) ([]SavedRecipe, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, group_id, user_id, prompt, name, description, category, difficulty, servings, cook_time, ingredients, steps, created_at
		FROM recipes`
	args := []any{}
	if f.GroupID != "" {
		query += ` WHERE group_id = ?`
		args = append(args, f.GroupID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list recipes: %w", err)
	}
	defer rows.Close()

	var out []SavedRecipe
	for rows.Next() {
		var (
			r                  SavedRecipe
			ingredients, steps string
			created            int64
		)
		if err := rows.Scan(
			&r.ID, &r.GroupID, &r.UserID, &r.Prompt,
			&r.Name, &r.Description, &r.Category, &r.Difficulty, &r.Servings, &r.CookTime,
			&ingredients, &steps, &created,
		); err != nil {
			return nil, fmt.Errorf("sqlite: list recipes: %w", err)
		}
		var ings []ingredientRow
		if err := json.Unmarshal([]byte(ingredients), &ings); err != nil {
			return nil, fmt.Errorf("sqlite: decode ingredients of %s: %w", r.ID, err)
		}
		for _, ing := range ings {
			r.Ingredients = append(r.Ingredients, fridge.Ingredient{
				Name:     ing.Name,
				Quantity: ing.Quantity,
				Unit:     ing.Unit,
				Kind:     fridge.IngredientKind(ing.Kind),
			})
		}
		if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
			return nil, fmt.Errorf("sqlite: decode steps of %s: %w", r.ID, err)
		}
		r.Persisted = true
		r.CreatedAt = time.UnixMilli(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list recipes: %w", err)
	}
	return out, nil
}
