package models

import "time"

// PredictionResult is the mapped output of one prediction.
type PredictionResult struct {
	Sentiment  string    `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Emoji      string    `json:"emoji"`
	Color      string    `json:"color"`
	RawScores  []float64 `json:"raw_scores,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

type AnalyzeResponse struct {
	Success    bool     `json:"success"`
	Text       string   `json:"text,omitempty"`
	Sentiment  string   `json:"sentiment,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Emoji      string   `json:"emoji,omitempty"`
	Color      string   `json:"color,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type BatchRequest struct {
	Texts []string `json:"texts"`
}

type BatchItem struct {
	Index      int      `json:"index"`
	Text       string   `json:"text"`
	Sentiment  string   `json:"sentiment,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Emoji      string   `json:"emoji,omitempty"`
	Color      string   `json:"color,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type BatchResponse struct {
	Success bool        `json:"success"`
	Results []BatchItem `json:"results,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Model       string `json:"model,omitempty"`
	Variant     string `json:"variant,omitempty"`
	Cache       string `json:"cache,omitempty"`
}

// Record sources.
const (
	SourceSingle = "single"
	SourceBatch  = "batch"
	SourceCSV    = "csv"
)

// AnalysisRecord is the audit copy of one prediction handed to recorders.
type AnalysisRecord struct {
	ID         string    `json:"id" dynamodbav:"id"`
	Source     string    `json:"source" dynamodbav:"source"`
	Text       string    `json:"text" dynamodbav:"text"`
	Sentiment  string    `json:"sentiment" dynamodbav:"sentiment"`
	Confidence float64   `json:"confidence" dynamodbav:"confidence"`
	Model      string    `json:"model" dynamodbav:"model"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
}
