package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/predictor"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

// HuggingFaceClient classifies text with models served by the Hugging Face
// Inference API. It doubles as a predictor.Loader: loading a model name
// probes it once to learn how many classes it reports.
type HuggingFaceClient struct {
	Client   *http.Client
	endpoint string
	token    string
	backoff  time.Duration
}

func NewHuggingFaceClient(cfg config.InferenceAPIConfig) *HuggingFaceClient {
	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.Duration("timeout", cfg.Timeout),
		slog.String("endpoint", cfg.Endpoint))
	return &HuggingFaceClient{
		Client: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		token:    cfg.Token,
		backoff:  INITIAL_BACKOFF,
	}
}

// DoWithRetry retries transport errors and 5xx replies with exponential
// backoff. newReq is called per attempt so the body can be replayed.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.backoff

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		var req *http.Request
		req, err = newReq()
		if err != nil {
			return nil, err
		}

		resp, err = h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		if attempt == MAX_RETRIES-1 {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	if err == nil && resp != nil {
		status := resp.StatusCode
		resp.Body.Close()
		return nil, fmt.Errorf("status code %d", status)
	}
	return nil, err
}

// Classify returns the label scores the hosted model assigns to text.
func (h *HuggingFaceClient) Classify(ctx context.Context, model, text string) ([]models.LabelScore, error) {
	var result models.InferenceResponse
	start := time.Now()

	input := models.InferenceRequest{
		Inputs:  text,
		Options: models.InferenceOptions{WaitForModel: true},
	}
	if err := h.postJSON(ctx, h.endpoint+"/"+model, input, &result); err != nil {
		slog.Error("[HuggingFaceClient] Sentiment Analysis request failed",
			slog.String("model", model),
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	if len(result) == 0 || len(result[0]) == 0 {
		return nil, predictor.ErrEmptyScores
	}

	slog.Debug("[HuggingFaceClient] Sentiment Analysis request successful",
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)))
	return result[0], nil
}

func (h *HuggingFaceClient) Load(ctx context.Context, name string) (predictor.Model, error) {
	scores, err := h.Classify(ctx, name, PROBE_TEXT)
	if err != nil {
		return nil, fmt.Errorf("probe request failed: %w", err)
	}
	return &hostedModel{client: h, name: name, classes: len(scores)}, nil
}

// helper function for posting data to the inference API
func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := h.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", USER_AGENT)
		if h.token != "" {
			req.Header.Set("Authorization", "Bearer "+h.token)
		}
		return req, nil
	})
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr models.InferenceErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("inference api returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("inference api returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

type hostedModel struct {
	client  *HuggingFaceClient
	name    string
	classes int
}

func (m *hostedModel) Classes() int { return m.classes }

func (m *hostedModel) Classify(ctx context.Context, text string) (predictor.Output, error) {
	labels, err := m.client.Classify(ctx, m.name, text)
	if err != nil {
		return predictor.Output{}, err
	}
	return scoresFromLabels(labels, m.classes)
}

func (m *hostedModel) Close() error { return nil }

// scoresFromLabels orders label scores by class index. Replies are sorted by
// score, so position says nothing about the class.
func scoresFromLabels(labels []models.LabelScore, classes int) (predictor.Output, error) {
	scores := make([]float64, classes)
	for _, l := range labels {
		idx, err := sentiment.ClassIndex(l.Label, classes)
		if err != nil {
			return predictor.Output{}, err
		}
		scores[idx] = l.Score
	}
	return predictor.OutputFromScores(scores)
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
