// Package threshold estimates the hearing threshold of one frequency from
// the shape of its waveforms across intensities.
//
// Supra-threshold responses look alike and sit close together once the
// family is projected on its first functional principal components; sweeps
// below threshold are noise and scatter. The estimator projects the
// family, picks a clustering radius from the knee of the sorted
// nearest-neighbour distances, runs DBSCAN and reports the lowest
// intensity left as noise.
package threshold

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"github.com/himanishpuri/ABRWave/internal/cluster"
	"github.com/himanishpuri/ABRWave/internal/fda"
	"github.com/himanishpuri/ABRWave/pkg/abrwave/waveform"
)

var (
	ErrInsufficientData = errors.New("threshold: fewer than 3 intensities")
	ErrNoKnee           = errors.New("threshold: no knee in neighbour distances")
	ErrNoOutliers       = errors.New("threshold: no intensity classified as noise")
)

// MinIntensities is the smallest family the estimator works on.
const MinIntensities = 3

// Grid is the set of intensities considered: Start, Start+Step, ... up to
// and including Stop.
type Grid struct {
	Start float64 `json:"start"`
	Stop  float64 `json:"stop"`
	Step  float64 `json:"step"`
}

// DefaultGrid is every 5 dB from 0 to 90.
var DefaultGrid = Grid{Start: 0, Stop: 90, Step: 5}

// Contains reports whether v is a grid point.
func (g Grid) Contains(v float64) bool {
	if v < g.Start-1e-9 || v > g.Stop+1e-9 {
		return false
	}
	if g.Step <= 0 {
		return true
	}
	k := (v - g.Start) / g.Step
	return math.Abs(k-math.Round(k)) < 1e-9
}

// Options configures Estimate.
type Options struct {
	Grid       Grid
	Components int
	// Neighbor is the k of the k-NN distance curve, counting the point
	// itself.
	Neighbor  int
	MinPoints int
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Grid:       DefaultGrid,
		Components: 2,
		Neighbor:   2,
		MinPoints:  cluster.DefaultMinPoints,
	}
}

// Result is the outcome of an estimate. When Determined is false, Reason
// says why and Threshold is meaningless.
type Result struct {
	Threshold  float64 `json:"threshold"`
	Determined bool    `json:"determined"`
	Reason     error   `json:"-"`

	Intensities []float64   `json:"intensities"`
	Scores      [][]float64 `json:"scores,omitempty"`
	Distances   []float64   `json:"distances,omitempty"`
	Eps         float64     `json:"eps"`
	Labels      []int       `json:"labels,omitempty"`
	Outliers    []float64   `json:"outliers,omitempty"`
}

// MarshalJSON writes Reason as its message under "reason".
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		Reason string `json:"reason,omitempty"`
	}{plain: plain(r)}
	if r.Reason != nil {
		out.Reason = r.Reason.Error()
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(b []byte) error {
	type plain Result
	var in struct {
		plain
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Result(in.plain)
	if in.Reason != "" {
		r.Reason = errors.New(in.Reason)
	}
	return nil
}

// Estimate runs the estimator over records sharing one frequency. Records
// off the grid are ignored, as are later records repeating an intensity.
// Sweeps of different lengths are truncated to the shortest. Estimate never
// fails: a family it cannot judge yields an undetermined Result.
func Estimate(records []waveform.Record, opts Options) Result {
	opts = withDefaults(opts)

	family := onGrid(records, opts.Grid)
	res := Result{Intensities: make([]float64, len(family))}
	for i, r := range family {
		res.Intensities[i] = r.Intensity
	}

	length := shortest(family)
	if len(family) < MinIntensities || length < 2 {
		res.Reason = ErrInsufficientData
		return res
	}

	curves := make([][]float64, len(family))
	for i, r := range family {
		curves[i] = r.Samples[:length]
	}

	fit, err := fda.FPCA(curves, opts.Components)
	if err != nil {
		res.Reason = err
		return res
	}
	res.Scores = fit.Scores

	res.Distances = cluster.SortedKNNDistances(res.Scores, opts.Neighbor)
	knee, ok := cluster.Knee(res.Distances)
	if !ok || res.Distances[knee] <= 0 {
		res.Reason = ErrNoKnee
		return res
	}
	res.Eps = res.Distances[knee]

	res.Labels = cluster.DBSCAN(res.Scores, res.Eps, opts.MinPoints)
	for i, l := range res.Labels {
		if l == cluster.Noise {
			res.Outliers = append(res.Outliers, res.Intensities[i])
		}
	}
	if len(res.Outliers) == 0 {
		res.Reason = ErrNoOutliers
		return res
	}

	res.Threshold = res.Outliers[0]
	res.Determined = true
	return res
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Grid == (Grid{}) {
		opts.Grid = def.Grid
	}
	if opts.Components <= 0 {
		opts.Components = def.Components
	}
	if opts.Neighbor <= 1 {
		opts.Neighbor = def.Neighbor
	}
	if opts.MinPoints <= 0 {
		opts.MinPoints = def.MinPoints
	}
	return opts
}

// onGrid keeps the first record of every grid intensity, lowest first.
func onGrid(records []waveform.Record, g Grid) []waveform.Record {
	seen := make(map[float64]bool)
	var out []waveform.Record
	for _, r := range records {
		if !g.Contains(r.Intensity) || seen[r.Intensity] {
			continue
		}
		seen[r.Intensity] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intensity < out[j].Intensity })
	return out
}

func shortest(records []waveform.Record) int {
	if len(records) == 0 {
		return 0
	}
	n := len(records[0].Samples)
	for _, r := range records[1:] {
		n = min(n, len(r.Samples))
	}
	return n
}
