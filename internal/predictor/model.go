package predictor

import (
	"context"
	"errors"
	"fmt"
)

// Output is a single classification: the winning class index, its
// probability in [0,1] and the full score vector in class order.
type Output struct {
	ClassIndex int
	Confidence float64
	Scores     []float64
}

// Model is a loaded classifier.
type Model interface {
	// Classes reports how many output classes the model emits.
	Classes() int
	Classify(ctx context.Context, text string) (Output, error)
	Close() error
}

// Loader resolves a model name into a ready Model.
type Loader interface {
	Load(ctx context.Context, name string) (Model, error)
}

var ErrEmptyScores = errors.New("model returned no scores")

// OutputFromScores picks the arg max of a probability vector.
func OutputFromScores(scores []float64) (Output, error) {
	if len(scores) == 0 {
		return Output{}, ErrEmptyScores
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	confidence := scores[best]
	if confidence < 0 || confidence > 1 {
		return Output{}, fmt.Errorf("score %f out of range", confidence)
	}

	return Output{
		ClassIndex: best,
		Confidence: confidence,
		Scores:     append([]float64(nil), scores...),
	}, nil
}
