package cluster

// Knee returns the index of the knee of an increasing, convex curve y
// sampled at x = 0, 1, ..., len(y)-1, using the Kneedle method with
// sensitivity 1. It reports false when the curve is too short, flat or has
// no knee.
func Knee(y []float64) (int, bool) {
	n := len(y)
	if n < 3 {
		return 0, false
	}

	lo, hi := y[0], y[0]
	for _, v := range y {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return 0, false
	}

	// Normalise both axes to [0, 1], turn the convex increasing curve into
	// a concave one by mirroring, and take the difference to the diagonal.
	xn := make([]float64, n)
	diff := make([]float64, n)
	for i := range xn {
		xn[i] = float64(i) / float64(n-1)
	}
	for i := range diff {
		yn := (y[n-1-i] - lo) / (hi - lo)
		diff[i] = (1 - yn) - xn[i]
	}

	maxima := relativeExtrema(diff, func(a, b float64) bool { return a >= b })
	minima := relativeExtrema(diff, func(a, b float64) bool { return a <= b })
	if len(maxima) == 0 {
		return 0, false
	}

	step := 1 / float64(n-1)
	isMin := make(map[int]bool, len(minima))
	for _, i := range minima {
		isMin[i] = true
	}

	next := 0
	threshold, at := 0.0, 0
	for i := maxima[0]; i < n; i++ {
		if xn[i] == 1 {
			break
		}
		if next < len(maxima) && maxima[next] == i {
			threshold = diff[i] - step
			at = i
			next++
		}
		if isMin[i] {
			threshold = 0
		}
		if diff[i+1] < threshold {
			return n - 1 - at, true
		}
	}
	return 0, false
}

// relativeExtrema returns indices whose value beats both neighbours under
// cmp. Out-of-range neighbours are clamped to the edge sample.
func relativeExtrema(v []float64, cmp func(a, b float64) bool) []int {
	var out []int
	last := len(v) - 1
	for i := range v {
		left := v[max(i-1, 0)]
		right := v[min(i+1, last)]
		if cmp(v[i], left) && cmp(v[i], right) {
			out = append(out, i)
		}
	}
	return out
}
