package sentiment

import "strings"

// Normalize trims text and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
