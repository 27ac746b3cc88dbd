package fridge

// DefaultPrompt replaces an empty prompt when the caller supplied
// ingredients to cook with.
const DefaultPrompt = "請根據我的食材推薦料理"

// Request carries the user's input plus the context injected by the caller.
// The Generator never looks up the active group or user on its own.
type Request struct {
	Prompt      string
	Ingredients []string

	// GroupID scopes persistence and notifications; empty = personal.
	GroupID string
	UserID  string
}
