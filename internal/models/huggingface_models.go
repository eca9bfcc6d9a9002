package models

type InferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type InferenceRequest struct {
	Inputs  string           `json:"inputs"`
	Options InferenceOptions `json:"options"`
}

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// InferenceResponse is the hosted text classification reply: one list of
// label scores per input.
type InferenceResponse [][]LabelScore

type InferenceErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}
