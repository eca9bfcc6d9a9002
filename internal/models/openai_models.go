package models

// OpenAISentimentResponse is the JSON object the chat model is asked to
// return: a probability per sentiment class.
type OpenAISentimentResponse struct {
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Positive float64 `json:"positive"`
}
