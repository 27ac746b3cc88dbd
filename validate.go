package fridge

// PromptReason is a structured reason code for a rejected prompt.
type PromptReason string

const (
	PromptEmpty        PromptReason = "empty"
	PromptTooLong      PromptReason = "too_long"
	PromptInjection    PromptReason = "injection"
	PromptControlChars PromptReason = "control_chars"
)

// PromptVerdict is the result of outbound prompt validation. Sanitized is
// set only when Valid is true.
type PromptVerdict struct {
	Valid     bool
	Reason    PromptReason
	Sanitized string
}

// Validator checks untrusted text in both directions. Implementations must be
// pure: the same input always yields the same output, with no I/O.
type Validator interface {
	// ValidatePrompt checks an outbound user prompt. It never substitutes a
	// default prompt; that decision belongs to the caller.
	ValidatePrompt(prompt string) PromptVerdict

	// CleanIngredients drops empty, duplicate and overlong entries.
	CleanIngredients(ingredients []string) []string

	// ValidateRecipes structurally checks raw model output and returns the
	// sanitized recipes that passed. Failing items are dropped, never coerced.
	ValidateRecipes(raw []any) []Recipe

	// SanitizeText strips active markup from a fragment of narrative text.
	SanitizeText(text string) string
}

// Message returns the user-facing message for a rejected prompt.
func (r PromptReason) Message() string {
	switch r {
	case PromptEmpty:
		return errorMessages[CodeEmptyPrompt]
	case PromptTooLong:
		return errorMessages[CodePromptTooLong]
	default:
		return errorMessages[CodeDisallowedContent]
	}
}
