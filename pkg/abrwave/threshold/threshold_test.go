package threshold_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/threshold"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lcg struct{ state uint64 }

func (g *lcg) next() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / (1 << 53)
}

func template(n int) []float64 {
	centers := []float64{30, 60, 90, 120, 150}
	amps := []float64{1.0, 0.6, 0.8, 0.5, 0.9}

	out := make([]float64, n)
	for i := range out {
		for k, c := range centers {
			z := (float64(i) - c) / 6
			out[i] += amps[k] * math.Exp(-z*z/2)
		}
	}
	return out
}

// family builds sweeps at 0..90 dB: the template plus a little jitter at
// and above cut, pure noise below it.
func family(cut float64, seed uint64) []waveform.Record {
	const n = 200
	g := &lcg{state: seed}
	t := template(n)

	var out []waveform.Record
	for level := 0.0; level <= 90; level += 5 {
		s := make([]float64, n)
		for i := range s {
			if level >= cut {
				s[i] = t[i] + 0.01*(2*g.next()-1)
			} else {
				s[i] = 2*g.next() - 1
			}
		}
		out = append(out, waveform.Record{Frequency: 8000, Intensity: level, Samples: s})
	}
	return out
}

func levels(from, to float64) []float64 {
	var out []float64
	for l := from; l <= to; l += 5 {
		out = append(out, l)
	}
	return out
}

func TestEstimateSeparatesNoiseFromResponses(t *testing.T) {
	tests := []struct {
		cut  float64
		seed uint64
	}{
		{50, 42},
		{40, 7},
		{60, 42},
	}

	for _, tt := range tests {
		res := threshold.Estimate(family(tt.cut, tt.seed), threshold.DefaultOptions())

		require.True(t, res.Determined, "cut=%v seed=%d: %v", tt.cut, tt.seed, res.Reason)
		assert.NoError(t, res.Reason)
		assert.Equal(t, levels(0, tt.cut-5), res.Outliers)
		assert.Equal(t, 0.0, res.Threshold)
		assert.LessOrEqual(t, res.Threshold, tt.cut-5)
		assert.Greater(t, res.Eps, 0.0)

		require.Len(t, res.Labels, 19)
		for i, l := range res.Labels {
			if res.Intensities[i] >= tt.cut {
				assert.Equal(t, 0, l, "intensity %v", res.Intensities[i])
			}
		}
		assert.Len(t, res.Scores, 19)
		assert.Len(t, res.Scores[0], 2)
	}
}

func TestEstimateIgnoresOffGridAndDuplicates(t *testing.T) {
	base := threshold.Estimate(family(50, 42), threshold.DefaultOptions())

	records := family(50, 42)
	noisy := make([]float64, 200)
	for i := range noisy {
		noisy[i] = float64(i%5) - 2
	}
	records = append(records,
		waveform.Record{Intensity: 47, Samples: noisy},
		waveform.Record{Intensity: 90, Samples: noisy},
		waveform.Record{Intensity: 95, Samples: noisy},
	)

	res := threshold.Estimate(records, threshold.DefaultOptions())
	assert.Equal(t, levels(0, 90), res.Intensities)
	assert.Equal(t, base.Outliers, res.Outliers)
	assert.Equal(t, base.Threshold, res.Threshold)
}

func TestEstimateTruncatesToShortest(t *testing.T) {
	base := threshold.Estimate(family(50, 42), threshold.DefaultOptions())

	records := family(50, 42)
	last := &records[len(records)-1]
	last.Samples = append(last.Samples, 5, -5, 5, -5, 5)

	res := threshold.Estimate(records, threshold.DefaultOptions())
	require.True(t, res.Determined)
	assert.Equal(t, base.Outliers, res.Outliers)
	assert.InDelta(t, base.Eps, res.Eps, 1e-12)
}

func TestEstimateInsufficientData(t *testing.T) {
	records := family(50, 42)[:2]
	res := threshold.Estimate(records, threshold.DefaultOptions())

	assert.False(t, res.Determined)
	assert.ErrorIs(t, res.Reason, threshold.ErrInsufficientData)
	assert.Equal(t, []float64{0, 5}, res.Intensities)

	res = threshold.Estimate(nil, threshold.Options{})
	assert.False(t, res.Determined)
	assert.ErrorIs(t, res.Reason, threshold.ErrInsufficientData)
}

func TestResultJSONCarriesReason(t *testing.T) {
	res := threshold.Estimate(family(50, 42)[:2], threshold.DefaultOptions())

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"determined":false`)
	assert.Contains(t, string(b), `"reason":"threshold: fewer than 3 intensities"`)

	var back threshold.Result
	require.NoError(t, json.Unmarshal(b, &back))
	require.Error(t, back.Reason)
	assert.Equal(t, threshold.ErrInsufficientData.Error(), back.Reason.Error())
	assert.Equal(t, res.Intensities, back.Intensities)

	b, err = json.Marshal(threshold.Result{Threshold: 40, Determined: true})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "reason")
}

func TestEstimateIdenticalWaveformsIsUndetermined(t *testing.T) {
	shape := make([]float64, 200)
	for i := range shape {
		shape[i] = float64(i%17 - 8)
	}

	var records []waveform.Record
	for level := 0.0; level <= 90; level += 5 {
		records = append(records, waveform.Record{Intensity: level, Samples: append([]float64(nil), shape...)})
	}

	res := threshold.Estimate(records, threshold.DefaultOptions())
	assert.False(t, res.Determined)
	assert.ErrorIs(t, res.Reason, threshold.ErrNoKnee)
	assert.Empty(t, res.Outliers)
}

func TestEstimateIsDeterministic(t *testing.T) {
	records := family(40, 7)
	first := threshold.Estimate(records, threshold.DefaultOptions())
	second := threshold.Estimate(records, threshold.DefaultOptions())
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, first.Outliers, second.Outliers)
	assert.Equal(t, first.Eps, second.Eps)
}

func TestGridContains(t *testing.T) {
	g := threshold.DefaultGrid
	assert.True(t, g.Contains(0))
	assert.True(t, g.Contains(45))
	assert.True(t, g.Contains(90))
	assert.False(t, g.Contains(95))
	assert.False(t, g.Contains(42.5))
	assert.False(t, g.Contains(-5))

	fine := threshold.Grid{Start: 10, Stop: 20, Step: 2.5}
	assert.True(t, fine.Contains(12.5))
	assert.False(t, fine.Contains(11))
}
