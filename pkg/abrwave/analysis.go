package abrwave

import (
	"github.com/himanishpuri/ABRWave/pkg/abrwave/metrics"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/peaks"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

// AnalyzeRecord detects landmarks in one sweep and measures them.
func AnalyzeRecord(rec waveform.Record, st Settings) Analysis {
	samples := st.prepare(rec.Samples)
	opts := st.peakOptions(len(samples))
	lm := peaks.Detect(samples, opts)

	return Analysis{
		Frequency:  rec.Frequency,
		Intensity:  rec.Intensity,
		Separation: opts.Separation,
		Samples:    samples,
		Landmarks:  lm,
		Metrics:    metrics.Compute(samples, lm, st.WindowMs),
	}
}

// BuildReport analyzes every intensity of one frequency and estimates the
// threshold of the family. records must share the frequency.
func BuildReport(source string, freq float64, records []waveform.Record, st Settings) *FrequencyReport {
	report := &FrequencyReport{
		Source:    source,
		Frequency: freq,
		Settings:  st,
		Analyses:  make([]Analysis, len(records)),
	}

	scaled := make([]waveform.Record, len(records))
	for i, rec := range records {
		report.Analyses[i] = AnalyzeRecord(rec, st)
		scaled[i] = rec
		scaled[i].Samples = st.scale(rec.Samples)
	}

	opts := threshold.DefaultOptions()
	if st.Grid != (threshold.Grid{}) {
		opts.Grid = st.Grid
	}
	report.Threshold = threshold.Estimate(scaled, opts)

	outliers := make(map[float64]bool, len(report.Threshold.Outliers))
	for _, v := range report.Threshold.Outliers {
		outliers[v] = true
	}
	for i := range report.Analyses {
		report.Analyses[i].Outlier = outliers[report.Analyses[i].Intensity]
	}
	return report
}
