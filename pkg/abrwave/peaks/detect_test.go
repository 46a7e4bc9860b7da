package peaks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var example = []float64{0, 1, 0, 5, 0, 1, 0, 8, 0, 1, 0}

// noise is a deterministic pseudo-random sequence in [-1, 1).
func noise(n int, seed uint64) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = 2*float64(state>>11)/(1<<53) - 1
	}
	return out
}

func TestDetectExample(t *testing.T) {
	lm := Detect(example, Options{Separation: 2})

	assert.Equal(t, []int{3, 7}, lm.Peaks)
	assert.Equal(t, []int{2, 4, 6, 8}, lm.Troughs)
	assert.Equal(t, []Match{
		{Peak: 3, Trough: 4, Matched: true},
		{Peak: 7, Trough: 8, Matched: true},
	}, lm.Matches)

	tr, ok := lm.Trough(1)
	require.True(t, ok)
	assert.Equal(t, 8, tr)
	_, ok = lm.Trough(2)
	assert.False(t, ok)
}

func TestDetectExplicitTroughSeparation(t *testing.T) {
	lm := Detect(example, Options{Separation: 2, TroughSeparation: 2})

	assert.Equal(t, []int{3, 7}, lm.Peaks)
	assert.Equal(t, []int{2, 6}, lm.Troughs)
	// the only trough after 7 was absorbed by the one at 6
	assert.Equal(t, []Match{
		{Peak: 3, Trough: 6, Matched: true},
		{Peak: 7},
	}, lm.Matches)
}

func TestDetectTroughsAtSeparationBothSurvive(t *testing.T) {
	x := []float64{5, 0, 5, 0, 5, 0, 5}
	for _, sep := range []int{1, 2} {
		lm := Detect(x, Options{Separation: sep})
		assert.Equal(t, []int{1, 3, 5}, lm.Troughs, "sep=%d", sep)
	}
	lm := Detect(x, Options{Separation: 3})
	assert.Equal(t, []int{1, 5}, lm.Troughs)
}

func TestDetectShortInput(t *testing.T) {
	lm := Detect([]float64{0, 1, 0}, Options{Separation: 5})
	assert.Empty(t, lm.Peaks)
	assert.Empty(t, lm.Matches)

	assert.Empty(t, Detect(nil, Options{}).Peaks)
	assert.Empty(t, Detect([]float64{1, 2}, Options{}).Peaks)
}

func TestDetectSeparationInvariant(t *testing.T) {
	x := noise(400, 3)
	for _, sep := range []int{1, 2, 5, 12, 20, 40} {
		for _, sigma := range []float64{0, 1.5} {
			lm := Detect(x, Options{Separation: sep, Sigma: sigma})
			require.NotEmpty(t, lm.Peaks)
			for i := 1; i < len(lm.Peaks); i++ {
				assert.Greater(t, lm.Peaks[i]-lm.Peaks[i-1], sep, "sep=%d sigma=%v", sep, sigma)
			}
			for i := 1; i < len(lm.Troughs); i++ {
				assert.GreaterOrEqual(t, lm.Troughs[i]-lm.Troughs[i-1], sep)
			}
		}
	}
}

func TestDetectOrderingAndCount(t *testing.T) {
	x := make([]float64, 300)
	for i := range x {
		x[i] = math.Sin(float64(i)/4) * (1 + float64(i%37)/37)
	}

	lm := Detect(x, Options{Separation: 3})
	require.Len(t, lm.Peaks, MaxPeaks)
	require.Len(t, lm.Matches, MaxPeaks)
	for i := 1; i < len(lm.Peaks); i++ {
		assert.Less(t, lm.Peaks[i-1], lm.Peaks[i])
	}
	for k, m := range lm.Matches {
		assert.Equal(t, lm.Peaks[k], m.Peak)
		if m.Matched {
			assert.Greater(t, m.Trough, m.Peak)
		}
	}
}

func TestDetectKeepsLargestPeaks(t *testing.T) {
	x := []float64{0, 1, 0, 7, 0, 2, 0, 6, 0, 3, 0, 5, 0, 4, 0, 9, 0}
	lm := Detect(x, Options{Separation: 1})
	assert.Equal(t, []int{3, 7, 11, 13, 15}, lm.Peaks)
}

func TestDetectArtifactOffset(t *testing.T) {
	x := []float64{0, 9, 0, 0, 0, 2, 0, 0, 3, 0, 0, 1, 0}

	all := Detect(x, Options{Separation: 1})
	assert.Contains(t, all.Peaks, 1)

	lm := Detect(x, Options{Separation: 1, ArtifactOffset: 3})
	assert.Equal(t, []int{5, 8, 11}, lm.Peaks)
	assert.Equal(t, []int{6, 9}, lm.Troughs)
	assert.Equal(t, []Match{
		{Peak: 5, Trough: 6, Matched: true},
		{Peak: 8, Trough: 9, Matched: true},
		{Peak: 11},
	}, lm.Matches)

	assert.Empty(t, Detect(x, Options{ArtifactOffset: 100}).Peaks)
}

func TestDetectIsDeterministic(t *testing.T) {
	x := noise(250, 11)
	opts := Options{Separation: 15, TroughSeparation: 9, Sigma: 1.8125, ArtifactOffset: 26}

	first := Detect(x, opts)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Detect(x, opts))
	}
}

func TestMatchTroughs(t *testing.T) {
	tests := []struct {
		name    string
		peaks   []int
		troughs []int
		want    []Match
	}{
		{
			name:    "one trough between each pair",
			peaks:   []int{2, 10, 20},
			troughs: []int{5, 15, 25},
			want:    []Match{{2, 5, true}, {10, 15, true}, {20, 25, true}},
		},
		{
			name:    "first trough after a peak is taken",
			peaks:   []int{2, 10},
			troughs: []int{1, 4, 6, 12, 13},
			want:    []Match{{2, 4, true}, {10, 12, true}},
		},
		{
			name:    "no trough before the next peak",
			peaks:   []int{2, 5, 9},
			troughs: []int{7, 11},
			want:    []Match{{Peak: 2}, {5, 7, true}, {9, 11, true}},
		},
		{
			name:    "trough at the next peak does not count",
			peaks:   []int{2, 6},
			troughs: []int{6, 8},
			want:    []Match{{Peak: 2}, {6, 8, true}},
		},
		{
			name:    "last peak without a later trough",
			peaks:   []int{3, 8},
			troughs: []int{5},
			want:    []Match{{3, 5, true}, {Peak: 8}},
		},
		{
			name:  "no troughs",
			peaks: []int{1, 4},
			want:  []Match{{Peak: 1}, {Peak: 4}},
		},
		{
			name: "no peaks",
			want: []Match{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTroughs(tt.peaks, tt.troughs))
		})
	}
}

func TestFindMaxima(t *testing.T) {
	tests := []struct {
		name string
		x    []float64
		sep  int
		want []int
	}{
		{"plateau middle", []float64{0, 2, 2, 2, 0}, 0, []int{2}},
		{"even plateau rounds down", []float64{0, 2, 2, 0}, 0, []int{1}},
		{"endpoints excluded", []float64{5, 0, 5}, 0, nil},
		{"shoulder is not a peak", []float64{0, 2, 2, 3, 0}, 0, []int{3}},
		{"tie keeps earlier", []float64{0, 1, 0, 1, 0}, 2, []int{1}},
		{"outside separation both kept", []float64{0, 1, 0, 0, 1, 0}, 2, []int{1, 4}},
		{"larger wins", []float64{0, 1, 0, 3, 0}, 2, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindMaxima(tt.x, tt.sep))
		})
	}

	assert.Equal(t, []int{1}, FindMinima([]float64{5, 0, 5}, 0))
}

func TestStrongestTiesKeepEarlier(t *testing.T) {
	x := []float64{0, 1, 0, 1, 0, 1, 0}
	assert.Equal(t, []int{1, 3}, Strongest(x, []int{1, 3, 5}, 2))
	assert.Equal(t, []int{1, 3, 5}, Strongest(x, []int{1, 3, 5}, 5))
}
