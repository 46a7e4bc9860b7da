package export

import (
	"errors"
	"image"
	"image/draw"

	"github.com/eligwz/spectrogram"
)

// Image sizes used when the caller passes zero.
const (
	DefaultImageWidth  = 1024
	DefaultImageHeight = 256
)

// WriteSpectrogramPNG renders the magnitude spectrogram of samples on a
// black background and saves it as a PNG at path.
func WriteSpectrogramPNG(path string, samples []float64, sampleRate, width, height int) error {
	if len(samples) == 0 {
		return errors.New("export: no samples to render")
	}
	if sampleRate <= 0 {
		return errors.New("export: sample rate must be positive")
	}
	if width <= 0 {
		width = DefaultImageWidth
	}
	if height <= 0 {
		height = DefaultImageHeight
	}

	img := spectrogram.NewImage128(image.Rect(0, 0, width, height))
	black := spectrogram.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	spectrogram.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(height),
		false, // hamming window
		false, // fft
		true,  // magnitude
		false, // linear scale
	)

	return spectrogram.SavePng(img, path)
}
