package abrwave

import (
	"time"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/export"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/metrics"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/peaks"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
)

// Analysis is the landmark and metric result of one sweep.
type Analysis struct {
	Frequency  float64         `json:"frequency"`
	Intensity  float64         `json:"intensity"`
	Separation int             `json:"separation"`
	Samples    []float64       `json:"samples,omitempty"` // gain applied, baseline removed
	Landmarks  peaks.Landmarks `json:"landmarks"`
	Metrics    metrics.Metrics `json:"metrics"`
	Outlier    bool            `json:"outlier"`
}

// FrequencyReport holds every intensity of one frequency and the threshold
// estimated from them. Analyses are ordered by ascending intensity.
type FrequencyReport struct {
	RunID     string           `json:"run_id,omitempty"`
	Source    string           `json:"source"`
	Frequency float64          `json:"frequency"`
	Settings  Settings         `json:"settings"`
	Analyses  []Analysis       `json:"analyses"`
	Threshold threshold.Result `json:"threshold"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// RunSummary describes a saved report without its rows.
type RunSummary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Frequency float64   `json:"frequency"`
	Threshold *float64  `json:"threshold"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Rows flattens the report into metric table rows.
func (r *FrequencyReport) Rows() []export.Row {
	rows := make([]export.Row, len(r.Analyses))
	for i, a := range r.Analyses {
		rows[i] = export.Row{
			Source:    r.Source,
			Frequency: r.Frequency,
			Intensity: a.Intensity,
			Metrics:   a.Metrics,
		}
	}
	return rows
}

// ThresholdText renders the estimate for display.
func (r *FrequencyReport) ThresholdText() string {
	if !r.Threshold.Determined {
		return "undetermined"
	}
	return metrics.Some(r.Threshold.Threshold).String() + " dB"
}
