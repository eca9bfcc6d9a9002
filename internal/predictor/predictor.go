package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var ErrModelNotLoaded = errors.New("model not loaded properly")

// Predictor owns the single shared model. It is written once by Load and only
// read afterwards; Predict calls are serialized because inference backends
// are not required to be reentrant.
type Predictor struct {
	outcome LoadOutcome
	model   Model

	mu sync.Mutex
}

// Load tries each model name in order and keeps the first that loads and
// reports a supported class count. When every name fails the returned
// Predictor is unloaded and the outcome carries the collected reasons.
func Load(ctx context.Context, loader Loader, names ...string) (*Predictor, LoadOutcome) {
	var reasons []string

	for _, name := range names {
		start := time.Now()
		slog.Info("[Predictor] Loading model", slog.String("model", name))

		model, err := loader.Load(ctx, name)
		if err != nil {
			slog.Warn("[Predictor] Failed to load model",
				slog.String("model", name),
				slog.String("error", err.Error()))
			reasons = append(reasons, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		variant, err := VariantForClasses(model.Classes())
		if err != nil {
			_ = model.Close()
			slog.Warn("[Predictor] Model has unsupported label layout",
				slog.String("model", name),
				slog.String("error", err.Error()))
			reasons = append(reasons, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		outcome := Loaded(name, variant)
		slog.Info("[Predictor] Model loaded successfully",
			slog.String("model", name),
			slog.String("variant", variant.String()),
			slog.Duration("elapsed", time.Since(start)))

		return &Predictor{outcome: outcome, model: model}, outcome
	}

	reason := "no model names configured"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}
	outcome := Failed("failed to load any sentiment analysis model: " + reason)
	slog.Error("[Predictor] " + outcome.String())

	return &Predictor{outcome: outcome}, outcome
}

// Predict classifies text. Text is passed through as given; truncation to the
// model's maximum input length is the backend's job.
func (p *Predictor) Predict(ctx context.Context, text string) (Output, error) {
	if !p.IsLoaded() {
		return Output{}, ErrModelNotLoaded
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out, err := p.model.Classify(ctx, text)
	if err != nil {
		return Output{}, err
	}
	if out.ClassIndex < 0 || out.ClassIndex >= p.model.Classes() {
		return Output{}, fmt.Errorf("class index %d out of range", out.ClassIndex)
	}
	return out, nil
}

func (p *Predictor) IsLoaded() bool {
	return p != nil && p.outcome.IsLoaded() && p.model != nil
}

func (p *Predictor) Outcome() LoadOutcome { return p.outcome }

func (p *Predictor) Variant() Variant { return p.outcome.Variant() }

func (p *Predictor) ModelName() string { return p.outcome.ModelName() }

func (p *Predictor) Close() error {
	if p == nil || p.model == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.model.Close()
}
