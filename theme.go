package fridge

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the
// progress view automatically matches any color scheme. A negative index
// means "no color".
type Theme struct {
	Narrative int // Streaming narrative text
	Progress  int // Progress bar fill
	Stage     int // Stage label next to the bar
	Recipe    int // Recipe names
	Error     int // Error messages
	Success   int // Completion banner
	Muted     int // Help line, quota, placeholders
	Accent    int // Headings
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Narrative: -1,
		Progress:  2,
		Stage:     6,
		Recipe:    5,
		Error:     1,
		Success:   2,
		Muted:     8,
		Accent:    5,
	}
}
