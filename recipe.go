package fridge

import "strings"

// TempIDPrefix marks identifiers generated before persistence.
const TempIDPrefix = "temp-"

// IngredientKind distinguishes main ingredients from seasonings after the
// two lists have been merged.
type IngredientKind string

const (
	IngredientKindMain      IngredientKind = "ingredient"
	IngredientKindSeasoning IngredientKind = "seasoning"
)

// Ingredient is one line of a recipe's shopping list. Quantity is always a
// string so "1.5", "少許" and "" are represented the same way.
type Ingredient struct {
	Name     string
	Quantity string
	Unit     string
	Kind     IngredientKind
}

// Recipe is a validated, sanitized recipe ready for display.
type Recipe struct {
	// ID is a temporary identifier (TempIDPrefix) until the recipe is
	// persisted, then the durable identifier returned by the store.
	ID        string
	Persisted bool

	Name        string
	Description string
	Category    string
	Difficulty  string
	Servings    int
	CookTime    int // minutes
	Ingredients []Ingredient
	Steps       []string
}

// Temporary reports whether the recipe still carries a client-side ID.
func (r Recipe) Temporary() bool {
	return strings.HasPrefix(r.ID, TempIDPrefix)
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	c.Steps = append([]string(nil), r.Steps...)
	return c
}

// MainIngredients returns the ingredients tagged IngredientKindMain.
func (r Recipe) MainIngredients() []Ingredient {
	return r.ofKind(IngredientKindMain)
}

// Seasonings returns the ingredients tagged IngredientKindSeasoning.
func (r Recipe) Seasonings() []Ingredient {
	return r.ofKind(IngredientKindSeasoning)
}

func (r Recipe) ofKind(kind IngredientKind) []Ingredient {
	var out []Ingredient
	for _, ing := range r.Ingredients {
		if ing.Kind == kind {
			out = append(out, ing)
		}
	}
	return out
}
