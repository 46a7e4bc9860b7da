// Package metrics derives amplitude and latency measurements from detected
// landmarks. A measurement that cannot be taken is reported as absent,
// never as zero.
package metrics

import (
	"encoding/json"
	"strconv"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/peaks"
)

// DefaultWindowMs is the sweep duration assumed when none is given.
const DefaultWindowMs = 10.0

// Measure is a value that may not be applicable.
type Measure struct {
	Value float64
	Valid bool
}

// Some wraps a valid value.
func Some(v float64) Measure { return Measure{Value: v, Valid: true} }

// NotApplicable is the absent measurement.
var NotApplicable = Measure{}

func (m Measure) String() string {
	if !m.Valid {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', 4, 64)
}

// MarshalJSON encodes an absent measurement as null.
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NotApplicable
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}

// Metrics is the fixed-schema measurement record of one sweep.
type Metrics struct {
	PeakCount          int     `json:"peak_count"`
	FirstPeakAmplitude Measure `json:"first_peak_amplitude"`
	LatencyMs          Measure `json:"latency_ms"`
	AmplitudeRatio     Measure `json:"amplitude_ratio"`
}

// Compute measures samples at the landmarks found in them. samples must be
// the baseline-corrected sequence the landmarks index into and windowMs the
// duration it spans; windowMs <= 0 means DefaultWindowMs.
//
// The first-peak amplitude is peak 1 minus its matched trough, the latency
// is the time of peak 1 and the amplitude ratio divides the first
// amplitude by the fourth.
func Compute(samples []float64, lm peaks.Landmarks, windowMs float64) Metrics {
	m := Metrics{PeakCount: len(lm.Peaks)}
	if len(lm.Peaks) == 0 || len(samples) == 0 {
		return m
	}
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}

	m.LatencyMs = Some(float64(lm.Peaks[0]) * windowMs / float64(len(samples)))

	first, ok := Amplitude(samples, lm, 0)
	if !ok {
		return m
	}
	m.FirstPeakAmplitude = Some(first)

	fourth, ok := Amplitude(samples, lm, 3)
	if ok && fourth != 0 {
		m.AmplitudeRatio = Some(first / fourth)
	}
	return m
}

// Amplitude is the k-th peak minus the trough matched to it.
func Amplitude(samples []float64, lm peaks.Landmarks, k int) (float64, bool) {
	if k < 0 || k >= len(lm.Peaks) {
		return 0, false
	}
	trough, ok := lm.Trough(k)
	if !ok {
		return 0, false
	}
	p := lm.Peaks[k]
	if p >= len(samples) || trough >= len(samples) {
		return 0, false
	}
	return samples[p] - samples[trough], true
}

// Subtract returns samples minus a constant baseline.
func Subtract(samples []float64, baseline float64) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v - baseline
	}
	return out
}
