package main

import (
	"fmt"
	"math"

	"github.com/himanishpuri/ABRWave/pkg/abrwave"
)

// Request limits
const (
	// MaxUploadBytes caps multipart uploads; a full ARF file with 2000
	// records of 2048 points is about 17 MB.
	MaxUploadBytes = 64 << 20

	// MaxSweepSamples is the longest sweep accepted by POST /api/analyze/sweep
	MaxSweepSamples = 1 << 16
)

// AnalyzeSweepRequest is the request body for POST /api/analyze/sweep
type AnalyzeSweepRequest struct {
	// Samples is one sweep, already in microvolts
	Samples   []float64 `json:"samples"`
	Frequency float64   `json:"frequency,omitempty"`
	Intensity float64   `json:"intensity,omitempty"`

	// Settings overrides the server defaults field by field when present
	Settings *abrwave.Settings `json:"settings,omitempty"`
}

// Validate checks if the request is valid
func (r *AnalyzeSweepRequest) Validate() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("samples cannot be empty")
	}
	if len(r.Samples) > MaxSweepSamples {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSweepSamples)
	}
	for i, v := range r.Samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sample %d is not a finite number", i)
		}
	}
	if r.Settings != nil {
		return r.Settings.Validate()
	}
	return nil
}

// AnalyzeResponse is the response for POST /api/analyze
type AnalyzeResponse struct {
	Source  string                     `json:"source"`
	Reports []*abrwave.FrequencyReport `json:"reports"`
	Count   int                        `json:"count"`
}

// ListRunsResponse is the response for GET /api/runs
type ListRunsResponse struct {
	Runs  []abrwave.RunSummary `json:"runs"`
	Count int                  `json:"count"`
}

// DeleteRunResponse is the response for DELETE /api/runs/{id}
type DeleteRunResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status       string           `json:"status"`
	DatabasePath string           `json:"database_path"`
	RunCount     int              `json:"run_count"`
	RowCount     int              `json:"row_count"`
	Defaults     abrwave.Settings `json:"defaults"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
