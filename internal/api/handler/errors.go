package handler

import (
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/sentiscope/internal/analysis"
	"github.com/spacesedan/sentiscope/internal/csvio"
	"github.com/spacesedan/sentiscope/internal/predictor"
)

// ErrorResponse is the status and user facing message for a service error.
type ErrorResponse struct {
	StatusCode int
	Message    string
}

// MapAnalysisError maps errors from single and batch analysis. These keep a
// 200 status with success=false so clients read the message from the body.
func MapAnalysisError(err error) ErrorResponse {
	switch {
	case errors.Is(err, analysis.ErrEmptyBatch):
		return ErrorResponse{StatusCode: http.StatusOK, Message: "Please provide texts to analyze."}
	case errors.Is(err, analysis.ErrBatchTooLarge):
		return ErrorResponse{StatusCode: http.StatusOK, Message: "Maximum 10 texts allowed for batch analysis."}
	default:
		return ErrorResponse{StatusCode: http.StatusOK, Message: "An error occurred: " + capitalize(err.Error())}
	}
}

// MapCSVError maps errors from the CSV upload pipeline.
func MapCSVError(err error) ErrorResponse {
	var decodeErr *csvio.DecodeError
	var parseErr *csvio.ParseError

	switch {
	case errors.Is(err, csvio.ErrMissingColumn):
		return ErrorResponse{StatusCode: http.StatusBadRequest, Message: `CSV must contain a "text" column`}
	case errors.Is(err, csvio.ErrNoColumns):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "Error reading CSV file: " + capitalize(err.Error()) + ". Please check your file format.",
		}
	case errors.As(err, &decodeErr):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "Error reading CSV file: " + decodeErr.Error() + ". Please ensure your CSV uses UTF-8 or Latin-1 encoding.",
		}
	case errors.As(err, &parseErr):
		return ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    "CSV parsing error: " + parseErr.Error() + ". Please ensure your CSV is properly formatted with quoted text fields.",
		}
	case errors.Is(err, predictor.ErrModelNotLoaded):
		return ErrorResponse{StatusCode: http.StatusInternalServerError, Message: capitalize(err.Error())}
	default:
		return ErrorResponse{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
