package peaks

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// fftKernelTaps is the kernel length from which Smooth convolves in the
// frequency domain instead of directly.
const fftKernelTaps = 64

// Smooth convolves x with a normalised Gaussian of the given sigma (in
// samples). The kernel is truncated at four standard deviations and the
// signal is mirrored about its edges (d c b a | a b c d | d c b a), so a
// constant input stays constant and no extrema appear at the borders.
// sigma <= 0 returns a copy of x. A kernel reaching past a whole
// reflection period is folded onto 2*len(x) taps, so memory stays bounded
// by the signal length.
func Smooth(x []float64, sigma float64) []float64 {
	out := make([]float64, len(x))
	if sigma <= 0 || len(x) == 0 {
		copy(out, x)
		return out
	}

	if 4*sigma+0.5 >= float64(len(x)) {
		convolveFolded(out, x, FoldedGaussian(sigma, len(x)))
		return out
	}

	kernel := Gaussian(sigma)
	if len(kernel) < fftKernelTaps {
		convolveDirect(out, x, kernel)
	} else {
		convolveFFT(out, x, kernel)
	}
	return out
}

// Gaussian returns the normalised kernel of radius int(4*sigma+0.5).
func Gaussian(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	var sum float64
	for i := range kernel {
		t := float64(i-radius) / sigma
		kernel[i] = math.Exp(-0.5 * t * t)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// FoldedGaussian returns the Gaussian kernel of Gaussian(sigma) wrapped
// onto the 2n-sample period of a mirrored n-sample signal: tap b holds the
// weight of every offset congruent to b modulo 2n.
func FoldedGaussian(sigma float64, n int) []float64 {
	period := 2 * n
	radius := int(4*sigma + 0.5)
	folded := make([]float64, period)

	var sum float64
	for d := -radius; d <= radius; d++ {
		t := float64(d) / sigma
		w := math.Exp(-0.5 * t * t)
		b := d % period
		if b < 0 {
			b += period
		}
		folded[b] += w
		sum += w
	}
	for i := range folded {
		folded[i] /= sum
	}
	return folded
}

// reflect maps any index onto [0, n) by half-sample symmetric mirroring.
func reflect(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

func convolveDirect(out, x, kernel []float64) {
	n := len(x)
	radius := len(kernel) / 2
	for i := range out {
		var acc float64
		for k, w := range kernel {
			acc += w * x[reflect(i+k-radius, n)]
		}
		out[i] = acc
	}
}

func convolveFolded(out, x, folded []float64) {
	n := len(x)
	for i := range out {
		var acc float64
		for b, w := range folded {
			acc += w * x[reflect(i+b, n)]
		}
		out[i] = acc
	}
}

// convolveFFT pads x with its mirrored edges, multiplies spectra and keeps
// the fully overlapped part of the linear convolution.
func convolveFFT(out, x, kernel []float64) {
	n := len(x)
	radius := len(kernel) / 2

	size := 1
	for size < n+2*radius+len(kernel)-1 {
		size <<= 1
	}

	signal := make([]float64, size)
	for j := 0; j < n+2*radius; j++ {
		signal[j] = x[reflect(j-radius, n)]
	}
	taps := make([]float64, size)
	copy(taps, kernel)

	a := fft.FFTReal(signal)
	b := fft.FFTReal(taps)
	for i := range a {
		a[i] *= b[i]
	}
	conv := fft.IFFT(a)

	for i := range out {
		out[i] = real(conv[i+2*radius])
	}
}
