// Package json exports settled generations as JSON files and reads them
// back, so a result can be kept after the process exits.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/fridge"
)

// ErrNotSettled is returned when exporting a generation that is still
// running or was never started.
var ErrNotSettled = errors.New("generation not settled")

// Export is a settled generation together with the request that produced it.
type Export struct {
	Request    fridge.Request
	State      fridge.State
	ExportedAt time.Time
}

// envelope is the v1 wire format of an export.
type envelope struct {
	Version        int         `json:"version"`
	ExportedAt     time.Time   `json:"exported_at"`
	Prompt         string      `json:"prompt"`
	Ingredients    []string    `json:"ingredients"`
	GroupID        string      `json:"group_id,omitempty"`
	Phase          string      `json:"phase"`
	Text           string      `json:"text"`
	Stage          string      `json:"stage,omitempty"`
	ErrorCode      string      `json:"error_code,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	RemainingQuota *int        `json:"remaining_quota,omitempty"`
	Recipes        []recipeDTO `json:"recipes"`
}

type recipeDTO struct {
	ID          string          `json:"id"`
	Persisted   bool            `json:"persisted"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Difficulty  string          `json:"difficulty"`
	Servings    int             `json:"servings"`
	CookTime    int             `json:"cook_time"`
	Ingredients []ingredientDTO `json:"ingredients"`
	Seasonings  []ingredientDTO `json:"seasonings"`
	Steps       []string        `json:"steps"`
}

type ingredientDTO struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// MarshalExport serializes a settled generation in v1 envelope format.
func MarshalExport(e Export) ([]byte, error) {
	if !e.State.Phase.Settled() {
		return nil, fmt.Errorf("phase %s: %w", e.State.Phase, ErrNotSettled)
	}
	ingredients := e.Request.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	env := envelope{
		Version:        1,
		ExportedAt:     e.ExportedAt,
		Prompt:         e.Request.Prompt,
		Ingredients:    ingredients,
		GroupID:        e.Request.GroupID,
		Phase:          e.State.Phase.String(),
		Text:           e.State.Text(),
		Stage:          e.State.Stage,
		ErrorCode:      e.State.ErrorCode,
		ErrorMessage:   e.State.ErrorMessage,
		RemainingQuota: e.State.RemainingQuota,
		Recipes:        make([]recipeDTO, len(e.State.Recipes)),
	}
	for i, r := range e.State.Recipes {
		env.Recipes[i] = marshalRecipe(r)
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalExport deserializes an export in v1 envelope format. The
// narrative comes back as a single fragment.
func UnmarshalExport(data []byte) (Export, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Export{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return Export{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	phase, ok := fridge.ParsePhase(env.Phase)
	if !ok || !phase.Settled() {
		return Export{}, fmt.Errorf("unsupported phase: %q", env.Phase)
	}
	st := fridge.State{
		Phase:          phase,
		Stage:          env.Stage,
		ErrorCode:      env.ErrorCode,
		ErrorMessage:   env.ErrorMessage,
		RemainingQuota: env.RemainingQuota,
	}
	if env.Text != "" {
		st.Fragments = []string{env.Text}
	}
	if phase == fridge.PhaseCompleted {
		st.Progress = 100
		st.Recipes = make([]fridge.Recipe, len(env.Recipes))
		for i, dto := range env.Recipes {
			st.Recipes[i] = unmarshalRecipe(dto)
		}
	}
	return Export{
		Request: fridge.Request{
			Prompt:      env.Prompt,
			Ingredients: env.Ingredients,
			GroupID:     env.GroupID,
		},
		State:      st,
		ExportedAt: env.ExportedAt,
	}, nil
}

// Save writes an export to a JSON file, creating parent directories as
// needed. The file is replaced atomically.
func Save(path string, e Export) error {
	data, err := MarshalExport(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads an export from a JSON file.
func Load(path string) (Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalExport(data)
}

func marshalRecipe(r fridge.Recipe) recipeDTO {
	steps := r.Steps
	if steps == nil {
		steps = []string{}
	}
	return recipeDTO{
		ID:          r.ID,
		Persisted:   r.Persisted,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Difficulty:  r.Difficulty,
		Servings:    r.Servings,
		CookTime:    r.CookTime,
		Ingredients: marshalIngredients(r.MainIngredients()),
		Seasonings:  marshalIngredients(r.Seasonings()),
		Steps:       steps,
	}
}

func marshalIngredients(ings []fridge.Ingredient) []ingredientDTO {
	out := make([]ingredientDTO, len(ings))
	for i, ing := range ings {
		out[i] = ingredientDTO{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit}
	}
	return out
}

func unmarshalRecipe(dto recipeDTO) fridge.Recipe {
	r := fridge.Recipe{
		ID:          dto.ID,
		Persisted:   dto.Persisted,
		Name:        dto.Name,
		Description: dto.Description,
		Category:    dto.Category,
		Difficulty:  dto.Difficulty,
		Servings:    dto.Servings,
		CookTime:    dto.CookTime,
		Steps:       dto.Steps,
	}
	for _, ing := range dto.Ingredients {
		r.Ingredients = append(r.Ingredients, fridge.Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit, Kind: fridge.IngredientKindMain})
	}
	for _, ing := range dto.Seasonings {
		r.Ingredients = append(r.Ingredients, fridge.Ingredient{Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit, Kind: fridge.IngredientKindSeasoning})
	}
	return r
}
