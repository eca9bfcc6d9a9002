package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinTextLength = 3
	MaxTextLength = 500
)

const (
	MsgEmpty     = "Please enter some text to analyze."
	MsgTooShort  = "Text is too short. Please enter at least 3 characters."
	MsgTooLong   = "Text is too long. Please enter less than 500 characters."
	MsgNoLetters = "Please enter text that contains letters."
)

var letterPattern = regexp.MustCompile(`[a-zA-Z]`)

// Outcome is the result of validating a single text.
type Outcome struct {
	Valid   bool
	Message string
}

func invalid(msg string) Outcome {
	return Outcome{Message: msg}
}

// Validate checks text before it reaches the model. Rules are applied in
// order and the first failure wins. Lengths count runes of the trimmed text.
func Validate(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return invalid(MsgEmpty)
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinTextLength {
		return invalid(MsgTooShort)
	}
	if n > MaxTextLength {
		return invalid(MsgTooLong)
	}

	if !letterPattern.MatchString(text) {
		return invalid(MsgNoLetters)
	}

	return Outcome{Valid: true}
}
