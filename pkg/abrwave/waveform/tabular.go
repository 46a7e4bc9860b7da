package waveform

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoHeader      = errors.New("waveform: no header row")
	ErrMissingColumn = errors.New("waveform: missing column")
	ErrNoSamples     = errors.New("waveform: no sample rows")
	ErrBadSample     = errors.New("waveform: sample cell is not a number")
)

// preambleRows is how many lines precede the header in exports whose first
// line is a single-cell title.
const preambleRows = 2

// ReadCSV imports a delimited export. The header names the frequency
// column, the intensity column for kind, and numbered sample columns
// starting at "0"; every column from "0" onwards is a sample. Empty cells
// at the end of a row are trimmed, so rows may be ragged. Any other sample
// cell that is not a number fails the import with ErrBadSample, since
// dropping it would shift every later sample in time. Rows without a
// usable frequency or intensity are skipped.
func ReadCSV(source string, r io.Reader, kind IntensityKind) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", source, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	start := 0
	if len(rows[0]) <= 1 {
		start = preambleRows
	}
	if len(rows) <= start {
		return nil, ErrNoHeader
	}

	header := rows[start]
	freqCol := column(header, "Freq(Hz)", "freq")
	if freqCol < 0 {
		return nil, fmt.Errorf("%w: frequency", ErrMissingColumn)
	}

	prefix := "level"
	if kind == Attenuation {
		prefix = "postatten"
	}
	intensityCol := column(header, kind.Column(), prefix)
	if intensityCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, kind.Column())
	}

	firstSample := column(header, "0", "")
	if firstSample < 0 {
		return nil, fmt.Errorf("%w: sample column 0", ErrMissingColumn)
	}

	set := &Set{Source: source, Kind: kind}
	for n, row := range rows[start+1:] {
		line := start + n + 2
		freq, ok := cell(row, freqCol)
		if !ok {
			continue
		}
		intensity, ok := cell(row, intensityCol)
		if !ok {
			continue
		}

		end := len(row)
		for end > firstSample && strings.TrimSpace(row[end-1]) == "" {
			end--
		}
		if end <= firstSample {
			continue
		}

		samples := make([]float64, 0, end-firstSample)
		for i := firstSample; i < end; i++ {
			v, ok := cell(row, i)
			if !ok {
				return nil, fmt.Errorf("%w: %q at line %d, sample %d", ErrBadSample, row[i], line, i-firstSample)
			}
			samples = append(samples, v)
		}

		set.Records = append(set.Records, Record{
			Frequency: freq,
			Intensity: intensity,
			Samples:   samples,
		})
	}

	if len(set.Records) == 0 {
		return nil, ErrNoSamples
	}
	return set, nil
}

// column finds exact first, then the first header starting with prefix.
func column(header []string, exact, prefix string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), exact) {
			return i
		}
	}
	if prefix == "" {
		return -1
	}
	for i, h := range header {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(h)), prefix) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) (float64, bool) {
	if i >= len(row) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
