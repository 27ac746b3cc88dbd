package validate

import (
	"math"
	"strconv"
	"strings"

	"github.com/fwojciec/fridge"
)

// Category and difficulty vocabularies. Unknown values fall back to the
// defaults rather than failing the recipe.
var (
	Categories = []string{"中式", "西式", "日式", "韓式", "泰式", "義式", "甜點", "湯品", "其他"}

	Difficulties = []string{"簡單", "中等", "困難"}
)

const (
	DefaultCategory   = "其他"
	DefaultDifficulty = "中等"
	DefaultServings   = 2
	DefaultCookTime   = 30

	maxServings = 20
	maxCookTime = 720
)

var categoryAliases = map[string]string{
	"chinese":  "中式",
	"western":  "西式",
	"japanese": "日式",
	"korean":   "韓式",
	"thai":     "泰式",
	"italian":  "義式",
	"dessert":  "甜點",
	"soup":     "湯品",
	"other":    "其他",
	"中餐":       "中式",
	"西餐":       "西式",
	"日料":       "日式",
	"韓料":       "韓式",
	"湯":        "湯品",
}

var difficultyAliases = map[string]string{
	"easy":   "簡單",
	"medium": "中等",
	"hard":   "困難",
	"容易":     "簡單",
	"普通":     "中等",
	"難":      "困難",
}

// ValidateRecipes checks every item against the recipe schema and converts
// those that pass. Items that fail, or that have no name, ingredient or step
// left after sanitization, are dropped.
func (v *Validator) ValidateRecipes(raw []any) []fridge.Recipe {
	recipes := make([]fridge.Recipe, 0, len(raw))
	for _, item := range raw {
		if err := v.schema.Validate(item); err != nil {
			continue
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if r, ok := v.convert(m); ok {
			recipes = append(recipes, r)
		}
	}
	return recipes
}

func (v *Validator) convert(m map[string]any) (fridge.Recipe, bool) {
	r := fridge.Recipe{
		Name:        v.line(stringOf(m["name"])),
		Description: v.SanitizeText(stringOf(m["description"])),
		Category:    pick(stringOf(m["category"]), Categories, categoryAliases, DefaultCategory),
		Difficulty:  pick(stringOf(m["difficulty"]), Difficulties, difficultyAliases, DefaultDifficulty),
		Servings:    bounded(m["servings"], maxServings, DefaultServings),
		CookTime:    bounded(firstOf(m, "cookTime", "cookingTime", "cook_time"), maxCookTime, DefaultCookTime),
	}
	if r.Name == "" {
		return fridge.Recipe{}, false
	}
	r.Description = strings.TrimSpace(r.Description)

	r.Ingredients = append(r.Ingredients, v.ingredients(m["ingredients"], fridge.IngredientKindMain)...)
	if !hasKind(r.Ingredients, fridge.IngredientKindMain) {
		return fridge.Recipe{}, false
	}
	r.Ingredients = append(r.Ingredients, v.ingredients(m["seasonings"], fridge.IngredientKindSeasoning)...)

	for _, s := range sliceOf(m["steps"]) {
		var step string
		switch s := s.(type) {
		case string:
			step = s
		case map[string]any:
			step = stringOf(s["description"])
		}
		if step = strings.TrimSpace(v.SanitizeText(step)); step != "" {
			r.Steps = append(r.Steps, step)
		}
	}
	if len(r.Steps) == 0 {
		return fridge.Recipe{}, false
	}
	return r, true
}

func (v *Validator) ingredients(raw any, kind fridge.IngredientKind) []fridge.Ingredient {
	var out []fridge.Ingredient
	for _, item := range sliceOf(raw) {
		var ing fridge.Ingredient
		switch item := item.(type) {
		case string:
			ing.Name = item
		case map[string]any:
			ing.Name = stringOf(item["name"])
			ing.Quantity = v.line(quantityOf(item["quantity"]))
			ing.Unit = v.line(stringOf(item["unit"]))
		}
		if ing.Name = v.line(ing.Name); ing.Name == "" {
			continue
		}
		ing.Kind = kind
		out = append(out, ing)
	}
	return out
}

// line sanitizes a single-line field.
func (v *Validator) line(s string) string {
	return collapse(v.SanitizeText(s))
}

func hasKind(ings []fridge.Ingredient, kind fridge.IngredientKind) bool {
	for _, ing := range ings {
		if ing.Kind == kind {
			return true
		}
	}
	return false
}

func pick(s string, allowed []string, aliases map[string]string, fallback string) string {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if s == a {
			return a
		}
	}
	if a, ok := aliases[strings.ToLower(s)]; ok {
		return a
	}
	return fallback
}

// bounded reads a positive integer that may arrive as a JSON number or a
// numeric string. Values outside [1, upper] yield fallback.
func bounded(raw any, upper, fallback int) int {
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return fallback
		}
		f = n
	default:
		return fallback
	}
	if math.IsNaN(f) || f < 1 || f > float64(upper) {
		return fallback
	}
	return int(math.Round(f))
}

func quantityOf(raw any) string {
	switch x := raw.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func stringOf(raw any) string {
	s, _ := raw.(string)
	return s
}

func sliceOf(raw any) []any {
	s, _ := raw.([]any)
	return s
}
