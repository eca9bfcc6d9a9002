package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentiscope/internal/models"
)

const (
	uploadField       = "file"
	csvFilenameFormat = "sentiment_analysis_20060102_150405"
)

// Analyzer is the analysis service as seen by the HTTP layer.
type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (models.AnalyzeResponse, error)
	AnalyzeBatch(ctx context.Context, texts []string) ([]models.BatchItem, error)
	AnalyzeCSV(ctx context.Context, data []byte) ([]byte, error)
	Health() models.HealthResponse
}

type Handler struct {
	analyzer       Analyzer
	maxUploadBytes int64
	now            func() time.Time
}

func NewHandler(analyzer Analyzer, maxUploadBytes int64) *Handler {
	return &Handler{
		analyzer:       analyzer,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Index handles GET /
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.analyzer.Health())
}

// Analyze handles POST /analyze
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}

	resp, err := h.analyzer.AnalyzeText(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(err)
		errResp := MapAnalysisError(err)
		respondError(c, errResp.StatusCode, errResp.Message)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AnalyzeBatch handles POST /analyze_batch
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}

	items, err := h.analyzer.AnalyzeBatch(c.Request.Context(), req.Texts)
	if err != nil {
		_ = c.Error(err)
		errResp := MapAnalysisError(err)
		respondError(c, errResp.StatusCode, errResp.Message)
		return
	}

	c.JSON(http.StatusOK, models.BatchResponse{Success: true, Results: items})
}

// UploadCSV handles POST /upload_csv
func (h *Handler) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large, maximum upload size is %d bytes", h.maxUploadBytes))
		case errors.Is(err, http.ErrMissingFile) && h.hasEmptyFilePart(c):
			respondError(c, http.StatusBadRequest, "No selected file")
		default:
			respondError(c, http.StatusBadRequest, "No file part")
		}
		return
	}

	if fh.Filename == "" {
		respondError(c, http.StatusBadRequest, "No selected file")
		return
	}
	if !strings.HasSuffix(fh.Filename, ".csv") {
		respondError(c, http.StatusBadRequest, "Invalid file type, only CSV allowed")
		return
	}

	file, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	out, err := h.analyzer.AnalyzeCSV(c.Request.Context(), data)
	if err != nil {
		_ = c.Error(err)
		errResp := MapCSVError(err)
		respondError(c, errResp.StatusCode, errResp.Message)
		return
	}

	filename := h.now().Format(csvFilenameFormat) + ".csv"
	slog.Info("[Handler] CSV analysis ready",
		slog.String("upload", fh.Filename),
		slog.String("download", filename),
		slog.Int("bytes", len(out)))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}

// A part named "file" without a filename is parsed as a plain form value.
func (h *Handler) hasEmptyFilePart(c *gin.Context) bool {
	form := c.Request.MultipartForm
	return form != nil && len(form.Value[uploadField]) > 0
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sentiscope</title>
</head>
<body>
<h1>Sentiscope</h1>
<p>Sentiment analysis service.</p>
<ul>
<li><code>POST /analyze</code> with <code>{"text": "..."}</code></li>
<li><code>POST /analyze_batch</code> with <code>{"texts": ["...", "..."]}</code> (up to 10)</li>
<li><code>POST /upload_csv</code> with a multipart <code>file</code> holding a CSV that has a <code>text</code> column</li>
<li><code>GET /health</code></li>
</ul>
</body>
</html>
`
