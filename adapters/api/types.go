package api

import (
	"anastat/domain/stats"
)

// AnalyzeRequest is the JSON body accepted by POST /analyze. A nil
// Options block selects the engine defaults for every field.
type AnalyzeRequest struct {
	Samples []stats.Sample `json:"samples"`
	Options *stats.Options `json:"options,omitempty"`
}

// FitRequest is the JSON body accepted by POST /fit. InitialParams may
// be empty, in which case the model's own starting guess is used.
type FitRequest struct {
	Model         string    `json:"model"`
	X             []float64 `json:"x"`
	Y             []float64 `json:"y"`
	XSigma        []float64 `json:"x_sigma,omitempty"`
	YSigma        []float64 `json:"y_sigma,omitempty"`
	InitialParams []float64 `json:"initial_params,omitempty"`
}

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ListResponse is the JSON body returned by GET /results.
type ListResponse struct {
	RunIDs []string `json:"run_ids"`
}
