// Package waveform turns parsed instrument files and tabular exports into a
// flat list of sweeps keyed by stimulus frequency and intensity.
package waveform

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/himanishpuri/ABRWave/pkg/abrwave/arf"
)

// MicrovoltScale converts the instrument's volts to microvolts. It is
// applied once, when records leave the binary reader.
const MicrovoltScale = 1e6

// IntensityKind says whether the intensity axis is the presented level or
// the post-attenuation value.
type IntensityKind int

const (
	Level IntensityKind = iota
	Attenuation
)

// Column is the tabular header that carries this kind of intensity.
func (k IntensityKind) Column() string {
	if k == Attenuation {
		return "PostAtten(dB)"
	}
	return "Level(dB)"
}

func (k IntensityKind) String() string {
	if k == Attenuation {
		return "attenuation"
	}
	return "level"
}

// ParseIntensityKind accepts "level" or "attenuation" (or "atten").
func ParseIntensityKind(s string) (IntensityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "level", "lvl", "":
		return Level, nil
	case "attenuation", "atten", "postatten":
		return Attenuation, nil
	}
	return 0, fmt.Errorf("unknown intensity kind %q", s)
}

func (k IntensityKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IntensityKind) UnmarshalText(text []byte) error {
	parsed, err := ParseIntensityKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Record is one sweep at a (frequency, intensity) pair.
type Record struct {
	Frequency    float64
	Intensity    float64
	Samples      []float64
	SamplePeriod float64 // microseconds, 0 when the source does not say
}

// Set holds every record of one source in source order. Duplicated
// (frequency, intensity) pairs are kept; lookups always return the first.
type Set struct {
	Source  string
	Kind    IntensityKind
	Records []Record
}

// FromARF flattens groups and records. The first record variable is the
// frequency, the second the intensity.
func FromARF(source string, f *arf.File, kind IntensityKind) *Set {
	set := &Set{Source: source, Kind: kind}
	for _, g := range f.Groups {
		for _, rec := range g.Records {
			samples := make([]float64, len(rec.Data))
			for i, v := range rec.Data {
				samples[i] = float64(v) * MicrovoltScale
			}
			set.Records = append(set.Records, Record{
				Frequency:    rec.Frequency(),
				Intensity:    rec.Intensity(),
				Samples:      samples,
				SamplePeriod: float64(rec.SamplePeriod),
			})
		}
	}
	return set
}

// Lookup returns the first record at the given pair.
func (s *Set) Lookup(freq, intensity float64) (Record, bool) {
	for _, r := range s.Records {
		if r.Frequency == freq && r.Intensity == intensity {
			return r, true
		}
	}
	return Record{}, false
}

// Frequencies lists the distinct frequencies in ascending order.
func (s *Set) Frequencies() []float64 {
	return distinct(s.Records, func(r Record) float64 { return r.Frequency })
}

// Intensities lists the distinct intensities in ascending order.
func (s *Set) Intensities() []float64 {
	return distinct(s.Records, func(r Record) float64 { return r.Intensity })
}

// AtFrequency returns one record per intensity at freq, lowest intensity
// first. Later duplicates of a pair are ignored.
func (s *Set) AtFrequency(freq float64) []Record {
	seen := make(map[float64]bool)
	var out []Record
	for _, r := range s.Records {
		if r.Frequency != freq || seen[r.Intensity] {
			continue
		}
		seen[r.Intensity] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intensity < out[j].Intensity })
	return out
}

func distinct(records []Record, key func(Record) float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range records {
		k := key(r)
		if math.IsNaN(k) || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Float64s(out)
	return out
}

// NormalizeStack scales every record by the peak absolute sample of the
// highest-intensity record, which is how stacked views line sweeps up.
// Records are returned highest intensity first.
func NormalizeStack(records []Record) []Record {
	if len(records) == 0 {
		return nil
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Intensity > sorted[j].Intensity })

	var peak float64
	for _, v := range sorted[0].Samples {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}

	for i, r := range sorted {
		scaled := make([]float64, len(r.Samples))
		for j, v := range r.Samples {
			scaled[j] = v / peak
		}
		sorted[i].Samples = scaled
	}
	return sorted
}
