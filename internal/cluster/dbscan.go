package cluster

import "gonum.org/v1/gonum/floats"

// Noise is the label of points that belong to no cluster.
const Noise = -1

// DefaultMinPoints is the neighbourhood size, the point itself included,
// that makes a point a core point.
const DefaultMinPoints = 5

// DBSCAN labels points by density. A point's neighbourhood is every point
// within eps of it, itself included; points with at least minPoints
// neighbours are core points. Clusters grow from core points in index
// order, so labels are deterministic. Points reached by no cluster are
// labelled Noise.
func DBSCAN(points [][]float64, eps float64, minPoints int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	neighbors := make([][]int, n)
	for i, p := range points {
		for j, q := range points {
			if floats.Distance(p, q, 2) <= eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	assigned := make([]bool, n)
	cluster := 0
	for i := range points {
		if assigned[i] || len(neighbors[i]) < minPoints {
			continue
		}

		assigned[i] = true
		labels[i] = cluster
		stack := []int{i}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, q := range neighbors[p] {
				if assigned[q] {
					continue
				}
				assigned[q] = true
				labels[q] = cluster
				if len(neighbors[q]) >= minPoints {
					stack = append(stack, q)
				}
			}
		}
		cluster++
	}
	return labels
}
