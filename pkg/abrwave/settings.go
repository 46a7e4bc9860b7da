package abrwave

import (
	"fmt"
	"math"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/metrics"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/peaks"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

// separationRatio scales the default peak separation with sweep length:
// 15 samples for a 243-sample sweep.
const separationRatio = 15.0 / 243.0

// MaxSigma is the widest smoothing accepted from outside callers, in
// samples.
const MaxSigma = 1000.0

// Settings are the analysis parameters. They travel with every call; the
// service only keeps a default copy.
type Settings struct {
	Variant       arf.Variant            `json:"variant"`
	IntensityKind waveform.IntensityKind `json:"intensity_kind"`

	// Separation is the minimum peak distance in samples. Zero scales it
	// with the sweep length.
	Separation int `json:"separation"`
	// TroughSeparation is the minimum trough distance. Zero suppresses
	// only troughs closer than Separation.
	TroughSeparation int     `json:"trough_separation"`
	Sigma            float64 `json:"sigma"`
	Baseline         float64 `json:"baseline"`
	// Gain multiplies every sample before anything else.
	Gain           float64 `json:"gain"`
	ArtifactOffset int     `json:"artifact_offset"`
	WindowMs       float64 `json:"window_ms"`

	Grid threshold.Grid `json:"grid"`
}

// DefaultSettings returns the parameters used when the caller sets none.
func DefaultSettings() Settings {
	return Settings{
		Variant:       arf.VariantRZ,
		IntensityKind: waveform.Level,
		Gain:          1,
		WindowMs:      metrics.DefaultWindowMs,
		Grid:          threshold.DefaultGrid,
	}
}

// Validate rejects parameters no analysis can run with.
func (st Settings) Validate() error {
	if math.IsNaN(st.Sigma) || st.Sigma < 0 || st.Sigma > MaxSigma {
		return fmt.Errorf("sigma must be between 0 and %g, got %g", MaxSigma, st.Sigma)
	}
	if st.Separation < 0 || st.TroughSeparation < 0 || st.ArtifactOffset < 0 {
		return fmt.Errorf("separations and artifact offset must not be negative")
	}
	return nil
}

// SeparationFor returns the peak separation used for a sweep of n samples.
func (st Settings) SeparationFor(n int) int {
	if st.Separation > 0 {
		return st.Separation
	}
	return max(int(separationRatio*float64(n)), 1)
}

func (st Settings) peakOptions(n int) peaks.Options {
	return peaks.Options{
		Separation:       st.SeparationFor(n),
		TroughSeparation: st.TroughSeparation,
		Sigma:            st.Sigma,
		ArtifactOffset:   st.ArtifactOffset,
	}
}

func (st Settings) gain() float64 {
	if st.Gain == 0 {
		return 1
	}
	return st.Gain
}

func (st Settings) scale(samples []float64) []float64 {
	g := st.gain()
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v * g
	}
	return out
}

// prepare applies the gain and then removes the baseline.
func (st Settings) prepare(samples []float64) []float64 {
	return metrics.Subtract(st.scale(samples), st.Baseline)
}
