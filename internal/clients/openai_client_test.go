package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiscope/config"
)

type stubCompleter struct {
	content string
	err     error
}

func (s stubCompleter) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(config.OpenAIConfig{Model: "gpt-4o-mini"})

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIClientClassify(t *testing.T) {
	client := &OpenAIClient{completions: stubCompleter{
		content: "```json\n{\"negative\": 0.1, \"neutral\": 0.1, \"positive\": 0.8}\n```",
	}}

	model, err := client.Load(context.Background(), "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, 3, model.Classes())

	out, err := model.Classify(context.Background(), "I love this")
	require.NoError(t, err)
	assert.Equal(t, 2, out.ClassIndex)
	assert.InDelta(t, 0.8, out.Confidence, 1e-9)
}

func TestOpenAIClientClassifyErrors(t *testing.T) {
	tests := []struct {
		name      string
		completer stubCompleter
	}{
		{"api error", stubCompleter{err: errors.New("rate limited")}},
		{"empty reply", stubCompleter{content: "  "}},
		{"not json", stubCompleter{content: "positive"}},
		{"all zero", stubCompleter{content: `{"negative": 0, "neutral": 0, "positive": 0}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := (&OpenAIClient{completions: tt.completer}).Load(context.Background(), "gpt-4o-mini")
			require.NoError(t, err)

			_, err = model.Classify(context.Background(), "text")
			assert.Error(t, err)
		})
	}
}

func TestParseSentimentScoresNormalizes(t *testing.T) {
	scores, err := parseSentimentScores(`{"negative": 1, "neutral": 1, "positive": 2}`)

	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.25, 0.5}, scores)
}
