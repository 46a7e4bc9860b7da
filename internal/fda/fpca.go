// Package fda implements functional principal component analysis for curves
// sampled on a common regular grid.
package fda

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewCurves = errors.New("fda: need at least two curves")
	ErrRagged       = errors.New("fda: curves differ in length")
	ErrNoConverge   = errors.New("fda: SVD did not converge")
)

// Result holds the fitted basis and the projection of every curve on it.
type Result struct {
	Mean []float64
	// Components[j] is the j-th eigenfunction evaluated on the grid.
	Components [][]float64
	// Scores[i][j] is curve i's score on component j.
	Scores [][]float64
	// Variance[j] is the variance explained by component j.
	Variance []float64
}

// SimpsonWeights returns quadrature weights for n equally spaced points on
// [0, 1]. Odd n uses composite Simpson; even n uses Simpson on the first
// n-1 points and the trapezoid rule on the last interval.
func SimpsonWeights(n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{1}
	}

	h := 1 / float64(n-1)
	w := make([]float64, n)
	if n == 2 {
		w[0], w[1] = h/2, h/2
		return w
	}

	m := n
	if n%2 == 0 {
		m = n - 1
	}
	for i := 0; i < m; i++ {
		c := 2.0
		switch {
		case i == 0 || i == m-1:
			c = 1
		case i%2 == 1:
			c = 4
		}
		w[i] += c * h / 3
	}
	if m != n {
		w[n-2] += h / 2
		w[n-1] += h / 2
	}
	return w
}

// FPCA fits k functional principal components to curves, one per row. The
// curves are centred on their mean, weighted by the quadrature rule and
// decomposed with a thin SVD. Fewer than k components are returned when
// the data has fewer dimensions.
func FPCA(curves [][]float64, k int) (*Result, error) {
	m := len(curves)
	if m < 2 {
		return nil, ErrTooFewCurves
	}
	n := len(curves[0])
	for _, c := range curves {
		if len(c) != n {
			return nil, ErrRagged
		}
	}
	if n == 0 {
		return nil, ErrRagged
	}

	mean := make([]float64, n)
	for _, c := range curves {
		for j, v := range c {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(m)
	}

	weights := SimpsonWeights(n)
	root := make([]float64, n)
	for j, w := range weights {
		root[j] = math.Sqrt(w)
	}

	x := mat.NewDense(m, n, nil)
	for i, c := range curves {
		for j, v := range c {
			x.Set(i, j, (v-mean[j])*root[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, ErrNoConverge
	}
	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	k = min(k, len(values))
	res := &Result{
		Mean:       mean,
		Components: make([][]float64, k),
		Scores:     make([][]float64, m),
		Variance:   make([]float64, k),
	}

	for i := range res.Scores {
		res.Scores[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			res.Scores[i][j] = u.At(i, j) * values[j]
		}
	}
	for j := 0; j < k; j++ {
		res.Variance[j] = values[j] * values[j] / float64(m-1)
		comp := make([]float64, n)
		for t := range comp {
			if root[t] > 0 {
				comp[t] = v.At(t, j) / root[t]
			}
		}
		res.Components[j] = comp
	}
	return res, nil
}
