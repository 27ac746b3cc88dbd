// Package validate implements [fridge.Validator]: outbound prompt checks,
// ingredient cleaning, structural validation of AI-generated recipes and
// sanitization of AI-generated text.
//
// Everything here is pure. A [Validator] holds only immutable, compiled
// state and may be shared between goroutines.
package validate

import (
	_ "embed"
	"fmt"

	"github.com/fwojciec/fridge"
	"github.com/microcosm-cc/bluemonday"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/yuin/goldmark"
)

//go:embed recipe.schema.json
var recipeSchema string

// Interface compliance check.
var _ fridge.Validator = (*Validator)(nil)

// Validator implements [fridge.Validator].
type Validator struct {
	schema *jsonschema.Schema
	policy *bluemonday.Policy
	md     goldmark.Markdown
}

// New compiles the recipe schema and returns a ready [Validator].
func New() (*Validator, error) {
	schema, err := jsonschema.CompileString("recipe.schema.json", recipeSchema)
	if err != nil {
		return nil, fmt.Errorf("validate: compile recipe schema: %w", err)
	}
	return &Validator{
		schema: schema,
		policy: bluemonday.StrictPolicy(),
		md:     goldmark.New(),
	}, nil
}
