// Package peaks locates the landmark peaks of an evoked-response sweep and
// pairs each one with the trough that follows it.
package peaks

import "sort"

// MaxPeaks is the number of landmarks kept per sweep.
const MaxPeaks = 5

// Options controls detection.
type Options struct {
	// Separation is the minimum index distance between two peaks: extrema
	// at most Separation apart compete and only the larger survives.
	Separation int
	// TroughSeparation applies the same rule to troughs. Zero lets troughs
	// compete only when strictly closer than Separation, so troughs exactly
	// Separation apart both survive.
	TroughSeparation int
	// Sigma is the Gaussian smoothing width in samples, 0 for none.
	Sigma float64
	// ArtifactOffset excludes the leading samples from the search.
	ArtifactOffset int
}

// Match is one landmark peak and the trough paired with it, if any.
type Match struct {
	Peak    int  `json:"peak"`
	Trough  int  `json:"trough"`
	Matched bool `json:"matched"`
}

// Landmarks is the result of Detect. Peaks and Matches are index-ascending
// and parallel; Troughs holds every trough candidate that was considered.
type Landmarks struct {
	Peaks   []int   `json:"peaks"`
	Troughs []int   `json:"troughs"`
	Matches []Match `json:"matches"`
}

// Trough returns the trough matched to the k-th landmark peak.
func (l Landmarks) Trough(k int) (int, bool) {
	if k < 0 || k >= len(l.Matches) || !l.Matches[k].Matched {
		return 0, false
	}
	return l.Matches[k].Trough, true
}

// Detect smooths x, finds the MaxPeaks largest peaks and matches troughs
// to them. All indices refer to x. A sweep shorter than twice the
// separation yields an empty result.
func Detect(x []float64, opts Options) Landmarks {
	sep := max(opts.Separation, 0)
	tsep := opts.TroughSeparation
	if tsep <= 0 {
		tsep = sep - 1
	}

	if len(x) < 2*sep || len(x) < 3 {
		return Landmarks{}
	}

	smoothed := Smooth(x, opts.Sigma)

	offset := min(max(opts.ArtifactOffset, 0), len(smoothed))
	search := smoothed[offset:]

	peaks := Strongest(search, FindMaxima(search, sep), MaxPeaks)
	troughs := FindMinima(search, tsep)
	shift(peaks, offset)
	shift(troughs, offset)

	return Landmarks{
		Peaks:   peaks,
		Troughs: troughs,
		Matches: MatchTroughs(peaks, troughs),
	}
}

// FindMaxima returns the index-ascending local maxima of x where no two
// survivors are within sep of each other. The first and last samples are
// never maxima and a flat top reports its middle index.
func FindMaxima(x []float64, sep int) []int {
	return separate(x, localMaxima(x), sep)
}

// FindMinima is FindMaxima on the negated sequence.
func FindMinima(x []float64, sep int) []int {
	neg := make([]float64, len(x))
	for i, v := range x {
		neg[i] = -v
	}
	return FindMaxima(neg, sep)
}

// Strongest keeps the k largest of the candidate indices (earlier index on
// equal values) and returns them in index order.
func Strongest(x []float64, candidates []int, k int) []int {
	ranked := append([]int(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return x[ranked[i]] > x[ranked[j]]
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	sort.Ints(ranked)
	return ranked
}

// MatchTroughs pairs every peak with the first trough after it. Apart from
// the last peak, the trough must also come before the next peak. Both
// inputs must be index-ascending.
func MatchTroughs(peaks, troughs []int) []Match {
	matches := make([]Match, len(peaks))
	j := 0
	for k, p := range peaks {
		matches[k].Peak = p
		for j < len(troughs) && troughs[j] <= p {
			j++
		}
		if j == len(troughs) {
			continue
		}
		if k == len(peaks)-1 || troughs[j] < peaks[k+1] {
			matches[k].Trough = troughs[j]
			matches[k].Matched = true
		}
	}
	return matches
}

func localMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; {
		if x[i-1] >= x[i] {
			i++
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
		}
		i = ahead
	}
	return out
}

// separate visits candidates from largest to smallest, ties by index, and
// drops every remaining candidate within sep of a kept one.
func separate(x []float64, candidates []int, sep int) []int {
	if sep <= 0 || len(candidates) < 2 {
		return candidates
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[candidates[order[a]]] > x[candidates[order[b]]]
	})

	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}
	for _, i := range order {
		if !keep[i] {
			continue
		}
		for j := i - 1; j >= 0 && candidates[i]-candidates[j] <= sep; j-- {
			keep[j] = false
		}
		for j := i + 1; j < len(candidates) && candidates[j]-candidates[i] <= sep; j++ {
			keep[j] = false
		}
	}

	out := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}

func shift(idx []int, by int) {
	for i := range idx {
		idx[i] += by
	}
}
