package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/predictor"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
	openAIMaxRetries     = 2
)

const openAIPrompt = `Classify the sentiment of the user's text.

### **STRICT OUTPUT FORMAT**
You MUST return only **valid JSON**, formatted exactly as follows:
{"negative": 0.0, "neutral": 0.0, "positive": 0.0}

### **REQUIREMENTS**
- Each value is the probability of that sentiment, between 0 and 1.
- The three values must sum to 1.
- **No Markdown formatting** (no triple backticks, no explanations).
- **No extra text before or after the JSON output**.
`

var ErrMissingAPIKey = errors.New("openai api key is not configured")

type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClient scores sentiment with a chat model. The model name handed to
// Load is the chat model to use; every model is treated as three-class.
type OpenAIClient struct {
	completions chatCompleter
}

func NewOpenAIClient(cfg config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		slog.Error("[OpenAIClient] Missing OpenAI API key in configuration")
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(openAIRequestTimeout),
		option.WithMaxRetries(openAIMaxRetries),
	)
	slog.Info("[OpenAIClient] OpenAI client initialized with custom HTTP timeout",
		slog.Duration("timeout", openAIRequestTimeout))

	return &OpenAIClient{completions: client.Chat.Completions}, nil
}

func (o *OpenAIClient) Load(ctx context.Context, name string) (predictor.Model, error) {
	if name == "" {
		return nil, errors.New("chat model name is empty")
	}
	return &chatModel{client: o, model: name}, nil
}

// Score asks the chat model for a [negative, neutral, positive] probability
// vector.
func (o *OpenAIClient) Score(ctx context.Context, model, text string) ([]float64, error) {
	completion, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(openAIPrompt),
			openai.UserMessage(text),
		}),
		Model:       openai.F(openai.ChatModel(model)),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return nil, errors.New("openai returned an empty response")
	}

	return parseSentimentScores(completion.Choices[0].Message.Content)
}

func parseSentimentScores(raw string) ([]float64, error) {
	var resp models.OpenAISentimentResponse
	if err := json.Unmarshal([]byte(cleanOpenAIResponse(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment scores: %w", err)
	}

	scores := []float64{resp.Negative, resp.Neutral, resp.Positive}
	var sum float64
	for _, s := range scores {
		if s < 0 {
			return nil, fmt.Errorf("negative score %f", s)
		}
		sum += s
	}
	if sum == 0 {
		return nil, predictor.ErrEmptyScores
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores, nil
}

func cleanOpenAIResponse(response string) string {
	response = strings.TrimSpace(response)

	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	// curly quotes
	response = strings.ReplaceAll(response, "“", `"`)
	response = strings.ReplaceAll(response, "”", `"`)

	return strings.TrimSpace(response)
}

type chatModel struct {
	client *OpenAIClient
	model  string
}

func (m *chatModel) Classes() int { return 3 }

func (m *chatModel) Classify(ctx context.Context, text string) (predictor.Output, error) {
	scores, err := m.client.Score(ctx, m.model, text)
	if err != nil {
		return predictor.Output{}, err
	}
	return predictor.OutputFromScores(scores)
}

func (m *chatModel) Close() error { return nil }
