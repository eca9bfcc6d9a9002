package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/sentiscope/internal/predictor"
)

const (
	VaderModelName = "vader"
	vaderThreshold = 0.20
)

var (
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and strips the resulting tags and
// links so only the prose is scored.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := tagPattern.ReplaceAllString(string(output), " ")
	return strings.Join(strings.Fields(plain), " ")
}

// VaderLoader serves the lexicon based VADER analyzer as a three class model.
// The model name is ignored; the lexicon is compiled into the binary.
type VaderLoader struct{}

func (VaderLoader) Load(ctx context.Context, name string) (predictor.Model, error) {
	return &vaderModel{analyzer: govader.NewSentimentIntensityAnalyzer()}, nil
}

type vaderModel struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func (m *vaderModel) Classes() int { return 3 }

// Classify labels by compound score: >= 0.20 positive, <= -0.20 negative,
// otherwise neutral. Confidence grows with distance from the neutral band and
// the remaining mass is split evenly over the other two classes, so the
// chosen class always holds the top score.
func (m *vaderModel) Classify(ctx context.Context, text string) (predictor.Output, error) {
	compound := m.analyzer.PolarityScores(ConvertMarkdownToText(text)).Compound

	var idx int
	var confidence float64
	switch {
	case compound >= vaderThreshold:
		idx, confidence = 2, (1+compound)/2
	case compound <= -vaderThreshold:
		idx, confidence = 0, (1-compound)/2
	default:
		idx, confidence = 1, 1-math.Abs(compound)
	}

	scores := make([]float64, 3)
	for i := range scores {
		scores[i] = (1 - confidence) / 2
	}
	scores[idx] = confidence

	return predictor.OutputFromScores(scores)
}

func (m *vaderModel) Close() error { return nil }
