// Package export writes analysis results and sweeps to interchange formats:
// delimited metric tables, WAV audio and spectrogram images.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/metrics"
)

// MetricsHeader is the column layout of WriteMetricsCSV.
var MetricsHeader = []string{
	"file",
	"frequency_hz",
	"intensity_db",
	"first_peak_amplitude",
	"latency_ms",
	"amplitude_ratio",
}

// Row is one line of the metrics table.
type Row struct {
	Source    string
	Frequency float64
	Intensity float64
	Metrics   metrics.Metrics
}

// WriteMetricsCSV writes the header and one line per row. Measurements
// that do not apply are left empty.
func WriteMetricsCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetricsHeader); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.Source,
			formatFloat(r.Frequency),
			formatFloat(r.Intensity),
			cell(r.Metrics.FirstPeakAmplitude),
			cell(r.Metrics.LatencyMs),
			cell(r.Metrics.AmplitudeRatio),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(m metrics.Measure) string {
	if !m.Valid {
		return ""
	}
	return formatFloat(m.Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
