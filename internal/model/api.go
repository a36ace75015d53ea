package model

// SubmitTurnRequest is the JSON body for submitting a question.
type SubmitTurnRequest struct {
	Content     string  `json:"content"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature"`
}

// TurnsResponse is the response for reading or changing a conversation.
type TurnsResponse struct {
	SessionID string `json:"session_id"`
	Turns     []Turn `json:"turns"`
	Submitted bool   `json:"submitted,omitempty"`
}

// UsageResponse lists completion usage for the current session.
type UsageResponse struct {
	SessionID string        `json:"session_id"`
	Records   []UsageRecord `json:"records"`
	TotalCost float64       `json:"total_cost"`
}

// CountriesResponse lists the selectable country labels.
type CountriesResponse struct {
	Countries []string `json:"countries"`
}

// CasesResponse carries the case series for the requested countries.
type CasesResponse struct {
	Countries []string        `json:"countries"`
	Rows      []CaseSeriesRow `json:"rows"`
}

// ModelOption describes one choice of the model control.
type ModelOption struct {
	Variant string `json:"variant"`
	Label   string `json:"label"`
	Model   string `json:"model"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
