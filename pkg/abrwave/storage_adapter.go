//go:build !js && !wasm
// +build !js,!wasm

package abrwave

import (
	"errors"
	"fmt"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/metrics"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/storage"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveReport(report *FrequencyReport) (string, error) {
	return s.db.SaveRun(toRun(report))
}

func (s *storageAdapter) GetReport(id string) (*FrequencyReport, error) {
	run, err := s.db.GetRun(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromRun(run), nil
}

func (s *storageAdapter) ListReports() ([]RunSummary, error) {
	runs, err := s.db.ListRuns()
	if err != nil {
		return nil, err
	}

	out := make([]RunSummary, len(runs))
	for i, r := range runs {
		rows, err := s.db.CountMetricRows(r.ID)
		if err != nil {
			return nil, fmt.Errorf("counting rows of run %s: %w", r.ID, err)
		}
		out[i] = RunSummary{
			ID:        r.ID,
			Source:    r.Source,
			Frequency: r.Frequency,
			Threshold: r.Threshold,
			Rows:      rows,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

func (s *storageAdapter) DeleteReport(id string) error {
	err := s.db.DeleteRun(id)
	if errors.Is(err, storage.ErrRunNotFound) {
		return fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return err
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func toRun(r *FrequencyReport) *storage.Run {
	st := r.Settings
	run := &storage.Run{
		ID:               r.RunID,
		Source:           r.Source,
		Frequency:        r.Frequency,
		Eps:              r.Threshold.Eps,
		Variant:          st.Variant.String(),
		IntensityKind:    st.IntensityKind.String(),
		Separation:       st.Separation,
		TroughSeparation: st.TroughSeparation,
		Sigma:            st.Sigma,
		Baseline:         st.Baseline,
		Gain:             st.Gain,
		ArtifactOffset:   st.ArtifactOffset,
		WindowMs:         st.WindowMs,
		GridStart:        st.Grid.Start,
		GridStop:         st.Grid.Stop,
		GridStep:         st.Grid.Step,
		CreatedAt:        r.CreatedAt,
		Metrics:          make([]storage.MetricRow, len(r.Analyses)),
	}
	if r.Threshold.Determined {
		v := r.Threshold.Threshold
		run.Threshold = &v
	} else if r.Threshold.Reason != nil {
		run.ThresholdReason = r.Threshold.Reason.Error()
	}

	for i, a := range r.Analyses {
		run.Metrics[i] = storage.MetricRow{
			Intensity:          a.Intensity,
			PeakCount:          a.Metrics.PeakCount,
			Outlier:            a.Outlier,
			FirstPeakAmplitude: measurePtr(a.Metrics.FirstPeakAmplitude),
			LatencyMs:          measurePtr(a.Metrics.LatencyMs),
			AmplitudeRatio:     measurePtr(a.Metrics.AmplitudeRatio),
		}
	}
	return run
}

func fromRun(run *storage.Run) *FrequencyReport {
	st := DefaultSettings()
	if v, err := arf.ParseVariant(run.Variant); err == nil {
		st.Variant = v
	}
	if k, err := waveform.ParseIntensityKind(run.IntensityKind); err == nil {
		st.IntensityKind = k
	}
	st.Separation = run.Separation
	st.TroughSeparation = run.TroughSeparation
	st.Sigma = run.Sigma
	st.Baseline = run.Baseline
	st.Gain = run.Gain
	st.ArtifactOffset = run.ArtifactOffset
	st.WindowMs = run.WindowMs
	// rows saved before the grid columns existed keep the default grid
	if run.GridStep > 0 {
		st.Grid = threshold.Grid{Start: run.GridStart, Stop: run.GridStop, Step: run.GridStep}
	}

	report := &FrequencyReport{
		RunID:     run.ID,
		Source:    run.Source,
		Frequency: run.Frequency,
		Settings:  st,
		Analyses:  make([]Analysis, len(run.Metrics)),
		Threshold: threshold.Result{Eps: run.Eps},
		CreatedAt: run.CreatedAt,
	}
	if run.Threshold != nil {
		report.Threshold.Threshold = *run.Threshold
		report.Threshold.Determined = true
	} else if run.ThresholdReason != "" {
		report.Threshold.Reason = errors.New(run.ThresholdReason)
	}

	for i, m := range run.Metrics {
		report.Analyses[i] = Analysis{
			Frequency: run.Frequency,
			Intensity: m.Intensity,
			Outlier:   m.Outlier,
			Metrics: metrics.Metrics{
				PeakCount:          m.PeakCount,
				FirstPeakAmplitude: ptrMeasure(m.FirstPeakAmplitude),
				LatencyMs:          ptrMeasure(m.LatencyMs),
				AmplitudeRatio:     ptrMeasure(m.AmplitudeRatio),
			},
		}
		report.Threshold.Intensities = append(report.Threshold.Intensities, m.Intensity)
		if m.Outlier {
			report.Threshold.Outliers = append(report.Threshold.Outliers, m.Intensity)
		}
	}
	return report
}

func measurePtr(m metrics.Measure) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func ptrMeasure(p *float64) metrics.Measure {
	if p == nil {
		return metrics.NotApplicable
	}
	return metrics.Some(*p)
}
