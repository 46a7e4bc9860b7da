// Package cluster provides the density tools used to separate responses
// from noise: nearest-neighbour distances, a knee locator for picking a
// radius from them, and DBSCAN.
package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// KNNDistances returns, for every point, the Euclidean distance to its k-th
// nearest point counting the point itself as the first. k=2 is the nearest
// other point. The result is in point order; points with fewer than k-1
// others get +Inf.
func KNNDistances(points [][]float64, k int) []float64 {
	out := make([]float64, len(points))
	if k <= 1 {
		return out
	}

	row := make([]float64, 0, len(points))
	for i, p := range points {
		row = row[:0]
		for j, q := range points {
			if i != j {
				row = append(row, floats.Distance(p, q, 2))
			}
		}
		if len(row) < k-1 {
			out[i] = math.Inf(1)
			continue
		}
		sort.Float64s(row)
		out[i] = row[k-2]
	}
	return out
}

// SortedKNNDistances is KNNDistances in ascending order, the curve Knee is
// run on.
func SortedKNNDistances(points [][]float64, k int) []float64 {
	d := KNNDistances(points, k)
	sort.Float64s(d)
	return d
}
