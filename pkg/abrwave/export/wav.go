package export

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavBitDepth = 16
	wavPCM      = 1
)

// SampleRate converts a sample period in microseconds into whole samples
// per second. A non-positive period falls back to n samples over
// windowMs milliseconds.
func SampleRate(periodUs float64, n int, windowMs float64) int {
	if periodUs > 0 {
		return int(math.Round(1e6 / periodUs))
	}
	if windowMs <= 0 || n == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 1000 / windowMs))
}

// WriteWAV encodes samples as mono 16-bit PCM, scaled so the largest
// absolute sample reaches full scale. It returns that scale so callers can
// restore physical units.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("export: invalid sample rate %d", sampleRate)
	}

	var peak float64
	for _, v := range samples {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}

	full := float64(int(1)<<(wavBitDepth-1) - 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: wavBitDepth,
	}
	for i, v := range samples {
		buf.Data[i] = int(math.Round(v / peak * full))
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, wavPCM)
	if err := enc.Write(buf); err != nil {
		return 0, fmt.Errorf("error writing samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("error finalising wav: %w", err)
	}
	return peak, nil
}
