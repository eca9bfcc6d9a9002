package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/predictor"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

// HugotLoader loads Hugging Face text classification models exported to ONNX
// and runs them in process on onnxruntime. Models missing from the model
// directory are downloaded on first use.
type HugotLoader struct {
	dir         string
	onnxLibrary string

	mu      sync.Mutex
	session *hugot.Session
}

func NewHugotLoader(cfg config.ModelConfig) *HugotLoader {
	return &HugotLoader{dir: cfg.Dir, onnxLibrary: cfg.OnnxLibrary}
}

func (h *HugotLoader) Load(ctx context.Context, name string) (predictor.Model, error) {
	modelPath, err := h.ensureModel(name)
	if err != nil {
		return nil, err
	}

	session, err := h.getSession()
	if err != nil {
		return nil, err
	}

	cfg := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      pipelineName(name),
	}
	cfg.Options = append(cfg.Options, pipelines.WithSoftmax(), pipelines.WithMultiLabel())

	pipeline, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline for %s: %w", name, err)
	}

	labels := pipeline.IDLabelMap
	if len(labels) == 0 {
		return nil, errors.New("model config has no id2label mapping")
	}

	return &hugotModel{pipeline: pipeline, labels: labels}, nil
}

// Close tears down the onnxruntime session shared by every loaded model.
func (h *HugotLoader) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil
	}
	err := h.session.Destroy()
	h.session = nil
	return err
}

func (h *HugotLoader) getSession() (*hugot.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		return h.session, nil
	}

	var opts []options.WithOption
	if h.onnxLibrary != "" {
		opts = append(opts, options.WithOnnxLibraryPath(h.onnxLibrary))
	}

	session, err := hugot.NewORTSession(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}
	h.session = session
	return session, nil
}

func (h *HugotLoader) ensureModel(name string) (string, error) {
	if err := os.MkdirAll(h.dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	modelPath := filepath.Join(h.dir, strings.ReplaceAll(name, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[HugotClient] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	slog.Info("[HugotClient] Model not found, downloading...", slog.String("model", name))
	downloaded, err := hugot.DownloadModel(name, h.dir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", name, err)
	}
	slog.Info("[HugotClient] Model downloaded successfully", slog.String("path", downloaded))
	return downloaded, nil
}

func pipelineName(model string) string {
	return "sentiment_" + strings.NewReplacer("/", "_", "-", "_").Replace(model)
}

type hugotModel struct {
	pipeline *pipelines.TextClassificationPipeline
	labels   map[int]string
}

func (m *hugotModel) Classes() int { return len(m.labels) }

func (m *hugotModel) Classify(ctx context.Context, text string) (predictor.Output, error) {
	if err := ctx.Err(); err != nil {
		return predictor.Output{}, err
	}

	out, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		return predictor.Output{}, fmt.Errorf("inference failed: %w", err)
	}
	if len(out.ClassificationOutputs) == 0 {
		return predictor.Output{}, predictor.ErrEmptyScores
	}

	return scoresFromClassification(out.ClassificationOutputs[0], m.Classes())
}

// scoresFromClassification orders pipeline outputs by class index. Labels the
// mapper cannot resolve keep their position, which follows id2label order.
func scoresFromClassification(outputs []pipelines.ClassificationOutput, classes int) (predictor.Output, error) {
	scores := make([]float64, classes)
	for i, c := range outputs {
		idx, err := sentiment.ClassIndex(c.Label, classes)
		if err != nil {
			idx = i
		}
		if idx < 0 || idx >= classes {
			return predictor.Output{}, fmt.Errorf("label %q outside %d classes", c.Label, classes)
		}
		scores[idx] = float64(c.Score)
	}
	return predictor.OutputFromScores(scores)
}

// Pipelines are owned by the loader session and released with it.
func (m *hugotModel) Close() error { return nil }
