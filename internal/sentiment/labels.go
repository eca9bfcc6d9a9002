package sentiment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spacesedan/sentiscope/internal/predictor"
)

type Label string

const (
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
	Positive Label = "POSITIVE"
	// Unknown marks CSV rows that had no text to analyze.
	Unknown Label = "UNKNOWN"
)

var threeClassLabels = []Label{Negative, Neutral, Positive}

// MapLabel converts a predicted class index into a sentiment label. Star
// rating models are folded as 1-2 stars negative, 3 neutral, 4-5 positive.
func MapLabel(variant predictor.Variant, index int) (Label, error) {
	switch variant {
	case predictor.ThreeClass:
		if index < 0 || index >= len(threeClassLabels) {
			return "", fmt.Errorf("class index %d out of range for %s", index, variant)
		}
		return threeClassLabels[index], nil
	case predictor.FiveClassCollapsed:
		switch index {
		case 0, 1:
			return Negative, nil
		case 2:
			return Neutral, nil
		case 3, 4:
			return Positive, nil
		}
		return "", fmt.Errorf("class index %d out of range for %s", index, variant)
	default:
		return "", fmt.Errorf("unknown model variant %d", variant)
	}
}

type Style struct {
	Emoji string
	Color string
}

var (
	FallbackStyle = Style{Emoji: "🤔", Color: "#74b9ff"}
	UnknownStyle  = Style{Emoji: "❓", Color: "#cccccc"}
)

var styles = map[Label]Style{
	Negative: {Emoji: "😞", Color: "#ff4757"},
	Neutral:  {Emoji: "😐", Color: "#ffa502"},
	Positive: {Emoji: "😊", Color: "#2ed573"},
}

// StyleFor returns the emoji and color for a label, or the fallback style for
// labels outside the table.
func StyleFor(label Label) Style {
	if s, ok := styles[label]; ok {
		return s
	}
	return FallbackStyle
}

var (
	genericLabelPattern = regexp.MustCompile(`^label_(\d+)$`)
	starLabelPattern    = regexp.MustCompile(`^(\d)\s*stars?$`)
)

// ClassIndex resolves a label string reported by a hosted model into its
// class index. It understands LABEL_n, "n star(s)" and the three sentiment
// names.
func ClassIndex(label string, classes int) (int, error) {
	l := strings.ToLower(strings.TrimSpace(label))

	idx := -1
	if m := genericLabelPattern.FindStringSubmatch(l); m != nil {
		idx, _ = strconv.Atoi(m[1])
	} else if m := starLabelPattern.FindStringSubmatch(l); m != nil {
		stars, _ := strconv.Atoi(m[1])
		idx = stars - 1
	} else if classes == 3 {
		switch l {
		case "negative", "neg":
			idx = 0
		case "neutral", "neu":
			idx = 1
		case "positive", "pos":
			idx = 2
		}
	}

	if idx < 0 || idx >= classes {
		return 0, fmt.Errorf("cannot resolve label %q for %d classes", label, classes)
	}
	return idx, nil
}
