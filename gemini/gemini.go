// Package gemini implements [fridge.Transport] by calling the Google Gemini
// API directly, without the recipe service in between.
//
// Replies follow the narrative-then-JSON shape of package reply. Streaming
// uses the SDK's iter.Seq2 iterator, wrapped into the pull-based
// [fridge.Stream] interface.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
