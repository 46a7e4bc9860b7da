//go:build !js && !wasm

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a fresh database in a temporary directory through the
// environment, the way the binaries do.
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_abrwave.sqlite3")
	t.Setenv("ABRWAVE_DB_PATH", dbPath)

	client, err := NewDBClient()
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, dbPath
}

func ptr(v float64) *float64 { return &v }

func sampleRun() *Run {
	return &Run{
		Source:           "mouse12.arf",
		Frequency:        8000,
		Threshold:        ptr(35),
		Eps:              0.07,
		Variant:          "RZ",
		IntensityKind:    "level",
		Separation:       15,
		TroughSeparation: 9,
		Sigma:            1.8125,
		Gain:             1,
		WindowMs:         10,
		GridStart:        10,
		GridStop:         80,
		GridStep:         10,
		Metrics: []MetricRow{
			{Intensity: 90, PeakCount: 5, FirstPeakAmplitude: ptr(1.2), LatencyMs: ptr(1.4), AmplitudeRatio: ptr(0.8)},
			{Intensity: 30, PeakCount: 1, Outlier: true, LatencyMs: ptr(3.1)},
			{Intensity: 60, PeakCount: 3, FirstPeakAmplitude: ptr(0.6), LatencyMs: ptr(2.0)},
		},
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)
	require.NotNil(t, client.DB)
	require.NotNil(t, client.db)

	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestNewDBClientCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	client, err := NewDBClientWithPath(path)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveAndGetRun(t *testing.T) {
	client, _ := setupTestDB(t)

	run := sampleRun()
	id, err := client.SaveRun(run)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, id, run.ID)

	got, err := client.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "mouse12.arf", got.Source)
	assert.Equal(t, 8000.0, got.Frequency)
	require.NotNil(t, got.Threshold)
	assert.Equal(t, 35.0, *got.Threshold)
	assert.Equal(t, 15, got.Separation)
	assert.Equal(t, 9, got.TroughSeparation)
	assert.Equal(t, []float64{10, 80, 10}, []float64{got.GridStart, got.GridStop, got.GridStep})

	require.Len(t, got.Metrics, 3)
	assert.Equal(t, []float64{30, 60, 90}, []float64{got.Metrics[0].Intensity, got.Metrics[1].Intensity, got.Metrics[2].Intensity})
	assert.True(t, got.Metrics[0].Outlier)
	assert.Nil(t, got.Metrics[0].FirstPeakAmplitude)
	assert.Nil(t, got.Metrics[0].AmplitudeRatio)
	require.NotNil(t, got.Metrics[2].AmplitudeRatio)
	assert.Equal(t, 0.8, *got.Metrics[2].AmplitudeRatio)

	count, err := client.CountMetricRows(id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSaveRunUndeterminedThreshold(t *testing.T) {
	client, _ := setupTestDB(t)

	run := sampleRun()
	run.Threshold = nil
	run.ThresholdReason = "no knee"
	id, err := client.SaveRun(run)
	require.NoError(t, err)

	got, err := client.GetRun(id)
	require.NoError(t, err)
	assert.Nil(t, got.Threshold)
	assert.Equal(t, "no knee", got.ThresholdReason)
}

func TestListRunsNewestFirst(t *testing.T) {
	client, _ := setupTestDB(t)

	older := sampleRun()
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRun()
	newer.Frequency = 16000
	newer.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := client.SaveRun(older)
	require.NoError(t, err)
	_, err = client.SaveRun(newer)
	require.NoError(t, err)

	runs, err := client.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 16000.0, runs[0].Frequency)
	assert.Equal(t, 8000.0, runs[1].Frequency)
	assert.Empty(t, runs[0].Metrics)
}

func TestDeleteRun(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.SaveRun(sampleRun())
	require.NoError(t, err)

	require.NoError(t, client.DeleteRun(id))

	_, err = client.GetRun(id)
	assert.ErrorIs(t, err, ErrRunNotFound)

	count, err := client.CountMetricRows(id)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, client.DeleteRun(id), ErrRunNotFound)
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	assert.NoError(t, c.Close())
	_, err := c.SaveRun(sampleRun())
	assert.Error(t, err)
	_, err = c.ListRuns()
	assert.Error(t, err)
}
