package peaks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianKernel(t *testing.T) {
	k := Gaussian(1)
	require.Len(t, k, 9)

	var sum float64
	for i, v := range k {
		sum += v
		assert.InDelta(t, v, k[len(k)-1-i], 1e-15)
	}
	assert.InDelta(t, 1, sum, 1e-12)
	assert.Greater(t, k[4], k[3])

	assert.Len(t, Gaussian(1.8125), 15)
	assert.Len(t, Gaussian(20), 161)
}

func TestSmoothZeroSigmaCopies(t *testing.T) {
	x := []float64{1, 2, 3}
	out := Smooth(x, 0)
	assert.Equal(t, x, out)

	out[0] = 99
	assert.Equal(t, 1.0, x[0])
	assert.Empty(t, Smooth(nil, 2))
}

func TestSmoothKeepsConstant(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3
	}
	// direct, frequency-domain and folded paths
	for _, sigma := range []float64{0.5, 2, 10, 20, 1e5} {
		out := Smooth(x, sigma)
		require.Len(t, out, len(x))
		for _, v := range out {
			assert.InDelta(t, 3, v, 1e-9, "sigma=%v", sigma)
		}
	}
}

func TestSmoothImpulse(t *testing.T) {
	x := make([]float64, 21)
	x[10] = 1

	out := Smooth(x, 1)
	k := Gaussian(1)
	for i, v := range out {
		want := 0.0
		if d := i - 10; d >= -4 && d <= 4 {
			want = k[d+4]
		}
		assert.InDelta(t, want, v, 1e-12, "index %d", i)
	}
}

func TestSmoothReflectsEdges(t *testing.T) {
	x := []float64{4, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	out := Smooth(x, 0.5)
	k := Gaussian(0.5)
	require.Len(t, k, 5)

	// out[0] sees x[1] x[0] | x[0] x[1] x[2]
	want := k[0]*1 + k[1]*4 + k[2]*4 + k[3]*1 + k[4]*0
	assert.InDelta(t, want, out[0], 1e-12)
}

func TestConvolveFFTMatchesDirect(t *testing.T) {
	x := noise(300, 5)
	for _, sigma := range []float64{3, 16, 40, 100} {
		kernel := Gaussian(sigma)
		direct := make([]float64, len(x))
		viaFFT := make([]float64, len(x))
		convolveDirect(direct, x, kernel)
		convolveFFT(viaFFT, x, kernel)
		assert.InDeltaSlice(t, direct, viaFFT, 1e-9, "sigma=%v", sigma)
	}
}

func TestSmoothFoldsWideKernel(t *testing.T) {
	x := noise(20, 9)
	for _, sigma := range []float64{5, 6, 30} {
		kernel := Gaussian(sigma)
		require.GreaterOrEqual(t, len(kernel)/2, len(x))
		want := make([]float64, len(x))
		convolveDirect(want, x, kernel)

		assert.InDeltaSlice(t, want, Smooth(x, sigma), 1e-12, "sigma=%v", sigma)
	}
}

func TestSmoothHugeSigmaOnShortInput(t *testing.T) {
	x := []float64{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

	folded := FoldedGaussian(2e5, len(x))
	assert.Len(t, folded, 2*len(x))

	out := Smooth(x, 2e5)
	require.Len(t, out, len(x))
	for _, v := range out {
		assert.InDelta(t, 2, v, 1e-9)
	}

	lm := Detect(noise(11, 4), Options{Sigma: 2e5})
	assert.LessOrEqual(t, len(lm.Peaks), MaxPeaks)
}

func TestReflect(t *testing.T) {
	n := 4
	got := make([]int, 0, 16)
	for i := -6; i < 10; i++ {
		got = append(got, reflect(i, n))
	}
	assert.Equal(t, []int{2, 3, 3, 2, 1, 0, 0, 1, 2, 3, 3, 2, 1, 0, 0, 1}, got)
}
