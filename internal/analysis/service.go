package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spacesedan/sentiscope/internal/csvio"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/predictor"
	"github.com/spacesedan/sentiscope/internal/sentiment"
	"github.com/spacesedan/sentiscope/internal/validation"
)

const MaxBatchSize = 10

var (
	ErrEmptyBatch    = errors.New("batch is empty")
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)

// Predictor is the loaded model as seen by the service.
type Predictor interface {
	Predict(ctx context.Context, text string) (predictor.Output, error)
	IsLoaded() bool
	Variant() predictor.Variant
	ModelName() string
}

// Cache stores mapped prediction results. Implementations swallow their own
// errors; a failed lookup is a miss.
type Cache interface {
	Get(ctx context.Context, key string) (models.PredictionResult, bool)
	Set(ctx context.Context, key string, result models.PredictionResult)
	Status() string
}

// Recorder receives audit copies of successful predictions.
type Recorder interface {
	Record(ctx context.Context, records []models.AnalysisRecord) error
}

// Service runs the validate, predict, map pipeline. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	predictor Predictor
	cache     Cache
	recorders []Recorder
	now       func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, r) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(p Predictor, opts ...Option) *Service {
	s := &Service{predictor: p, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Health() models.HealthResponse {
	resp := models.HealthResponse{
		Status:      "healthy",
		ModelLoaded: s.predictor.IsLoaded(),
	}
	if resp.ModelLoaded {
		resp.Model = s.predictor.ModelName()
		resp.Variant = s.predictor.Variant().String()
	}
	if s.cache != nil {
		resp.Cache = s.cache.Status()
	}
	return resp
}

// Predict classifies one text and maps the result to a label, emoji and
// color. Inference and mapping failures are not returned as errors; they
// yield a NEUTRAL placeholder carrying the error text. The only error is
// predictor.ErrModelNotLoaded.
func (s *Service) Predict(ctx context.Context, text string) (models.PredictionResult, error) {
	if !s.predictor.IsLoaded() {
		return models.PredictionResult{}, predictor.ErrModelNotLoaded
	}

	text = sentiment.Normalize(text)
	key := CacheKey(s.predictor.ModelName(), text)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			monitoring.CacheLookupsTotal.WithLabelValues("hit").Inc()
			monitoring.PredictionsTotal.WithLabelValues(cached.Sentiment).Inc()
			return cached, nil
		}
		monitoring.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	out, err := s.predictor.Predict(ctx, text)
	monitoring.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, predictor.ErrModelNotLoaded) {
			return models.PredictionResult{}, err
		}
		return errorResult(err), nil
	}

	label, err := sentiment.MapLabel(s.predictor.Variant(), out.ClassIndex)
	if err != nil {
		return errorResult(err), nil
	}

	style := sentiment.StyleFor(label)
	result := models.PredictionResult{
		Sentiment:  string(label),
		Confidence: roundPercent(out.Confidence),
		Emoji:      style.Emoji,
		Color:      style.Color,
		RawScores:  out.Scores,
	}
	monitoring.PredictionsTotal.WithLabelValues(result.Sentiment).Inc()

	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

// PredictAll runs Predict over every text in order.
func (s *Service) PredictAll(ctx context.Context, texts []string) ([]models.PredictionResult, error) {
	results := make([]models.PredictionResult, 0, len(texts))
	for _, text := range texts {
		result, err := s.Predict(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// AnalyzeText validates and classifies a single text.
func (s *Service) AnalyzeText(ctx context.Context, text string) (models.AnalyzeResponse, error) {
	text = strings.TrimSpace(text)

	if outcome := validation.Validate(text); !outcome.Valid {
		monitoring.ValidationFailuresTotal.Inc()
		return models.AnalyzeResponse{Success: false, Error: outcome.Message}, nil
	}

	result, err := s.Predict(ctx, text)
	if err != nil {
		return models.AnalyzeResponse{}, err
	}

	s.record(ctx, models.SourceSingle, []string{text}, []models.PredictionResult{result})

	confidence := result.Confidence
	return models.AnalyzeResponse{
		Success:    true,
		Text:       text,
		Sentiment:  result.Sentiment,
		Confidence: &confidence,
		Emoji:      result.Emoji,
		Color:      result.Color,
	}, nil
}

// AnalyzeBatch classifies up to MaxBatchSize texts. Size violations are
// rejected before any inference. Each text is validated on its own and a
// failure is reported on that item only.
func (s *Service) AnalyzeBatch(ctx context.Context, texts []string) ([]models.BatchItem, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(texts) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	items := make([]models.BatchItem, 0, len(texts))
	var recordTexts []string
	var recordResults []models.PredictionResult

	for i, text := range texts {
		text = strings.TrimSpace(text)
		item := models.BatchItem{Index: i, Text: text}

		if outcome := validation.Validate(text); !outcome.Valid {
			monitoring.ValidationFailuresTotal.Inc()
			item.Error = outcome.Message
			items = append(items, item)
			continue
		}

		result, err := s.Predict(ctx, text)
		if err != nil {
			return nil, err
		}

		confidence := result.Confidence
		item.Sentiment = result.Sentiment
		item.Confidence = &confidence
		item.Emoji = result.Emoji
		item.Color = result.Color
		items = append(items, item)

		recordTexts = append(recordTexts, text)
		recordResults = append(recordResults, result)
	}

	s.record(ctx, models.SourceBatch, recordTexts, recordResults)
	return items, nil
}

// Augmented CSV column names.
const (
	ColumnText      = "text"
	ColumnSentiment = "sentiment"
	ColumnAccuracy  = "accuracy"
	ColumnEmoji     = "emoji"
	ColumnColor     = "color"
)

// AnalyzeCSV reads an uploaded CSV, classifies every row of its text column
// and returns the table with sentiment, accuracy, emoji and color columns
// set. Rows without text get the UNKNOWN placeholder.
func (s *Service) AnalyzeCSV(ctx context.Context, data []byte) ([]byte, error) {
	table, err := csvio.Read(data)
	if err != nil {
		return nil, err
	}

	textIdx, err := table.RequireColumn(ColumnText)
	if err != nil {
		return nil, err
	}

	n := len(table.Rows)
	sentiments := make([]string, n)
	accuracies := make([]string, n)
	emojis := make([]string, n)
	colors := make([]string, n)

	var recordTexts []string
	var recordResults []models.PredictionResult

	for i, row := range table.Rows {
		cell := row[textIdx]

		var result models.PredictionResult
		if csvio.IsMissing(cell) {
			result = unknownResult()
		} else {
			result, err = s.Predict(ctx, cell)
			if err != nil {
				return nil, err
			}
			if result.Error == "" {
				recordTexts = append(recordTexts, cell)
				recordResults = append(recordResults, result)
			}
		}

		sentiments[i] = result.Sentiment
		accuracies[i] = csvio.FormatFloat(result.Confidence)
		emojis[i] = result.Emoji
		colors[i] = result.Color
	}

	for _, col := range []struct {
		name   string
		values []string
	}{
		{ColumnSentiment, sentiments},
		{ColumnAccuracy, accuracies},
		{ColumnEmoji, emojis},
		{ColumnColor, colors},
	} {
		if err := table.SetColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}

	slog.Info("[Analysis] CSV analyzed",
		slog.Int("rows", n),
		slog.Int("predicted", len(recordResults)))

	s.record(ctx, models.SourceCSV, recordTexts, recordResults)
	return table.Encode()
}

func (s *Service) record(ctx context.Context, source string, texts []string, results []models.PredictionResult) {
	if len(s.recorders) == 0 {
		return
	}

	records := make([]models.AnalysisRecord, 0, len(results))
	for i, result := range results {
		if result.Error != "" {
			continue
		}
		records = append(records, models.AnalysisRecord{
			ID:         uuid.NewString(),
			Source:     source,
			Text:       texts[i],
			Sentiment:  result.Sentiment,
			Confidence: result.Confidence,
			Model:      s.predictor.ModelName(),
			CreatedAt:  s.now().UTC(),
		})
	}
	if len(records) == 0 {
		return
	}

	for _, r := range s.recorders {
		if err := r.Record(ctx, records); err != nil {
			slog.Warn("[Analysis] Failed to record results",
				slog.String("source", source),
				slog.Int("count", len(records)),
				slog.String("error", err.Error()))
		}
	}
}

// CacheKey identifies a prediction by model and normalized text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sentiment:" + model + ":" + hex.EncodeToString(sum[:])
}

func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}

func errorResult(err error) models.PredictionResult {
	slog.Warn("[Analysis] Prediction failed", slog.String("error", err.Error()))
	monitoring.PredictionErrorsTotal.Inc()
	return models.PredictionResult{
		Sentiment:  string(sentiment.Neutral),
		Confidence: 0,
		Emoji:      sentiment.FallbackStyle.Emoji,
		Color:      sentiment.FallbackStyle.Color,
		Error:      err.Error(),
	}
}

func unknownResult() models.PredictionResult {
	return models.PredictionResult{
		Sentiment:  string(sentiment.Unknown),
		Confidence: 0,
		Emoji:      sentiment.UnknownStyle.Emoji,
		Color:      sentiment.UnknownStyle.Color,
	}
}
