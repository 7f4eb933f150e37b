/*
Copyright © 2018 the metflux authors.
This file is part of metflux.

metflux is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metflux is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metflux.  If not, see <http://www.gnu.org/licenses/>.
*/

package metflux

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"
)

// stencil maps the mean rates of an interval and its available
// neighbors to candidate amounts for the sub-intervals of the interval.
//
// The mean rate of each interval is treated as a point sample of the
// underlying continuous rate at the interval midpoint. A polynomial
// through those samples (quadratic with both neighbors, linear at the
// ends of the series) is evaluated at the sub-interval midpoints.
// Because the weights only depend on the steps, they are computed once
// per interval and then applied to every grid cell.
type stencil struct {
	// neighbors are the indices of the intervals whose rates are used.
	neighbors []int

	// weights[i][j] is the contribution of the rate of interval
	// neighbors[j] to the amount of sub-interval i.
	weights [][]float64

	// lengths[j] is the length of interval neighbors[j].
	lengths []float64

	// steps are the ends of the sub-intervals.
	steps []float64
}

// newStencil creates the stencil for interval k of the series with the
// given steps, divided into n sub-intervals.
func newStencil(steps []float64, k, n int) (*stencil, error) {
	nIntervals := len(steps) - 1
	if nIntervals < 2 {
		return nil, fmt.Errorf("metflux: stencil needs at least 2 intervals but there are %d", nIntervals)
	}
	if k < 0 || k >= nIntervals {
		return nil, fmt.Errorf("metflux: stencil interval %d out of range [0, %d)", k, nIntervals)
	}
	if n < 1 {
		return nil, fmt.Errorf("metflux: subdivision factor must be at least 1 but is %d", n)
	}
	st := new(stencil)
	for j := k - 1; j <= k+1; j++ {
		if j >= 0 && j < nIntervals {
			st.neighbors = append(st.neighbors, j)
		}
	}

	h := steps[k+1] - steps[k]
	mid := (steps[k] + steps[k+1]) / 2
	m := len(st.neighbors)

	// Vandermonde system in units of the central interval length:
	// V[j][q] = u_j^q where u_j is the offset of the midpoint of
	// neighbor j from the central midpoint.
	v := mat.NewDense(m, m, nil)
	st.lengths = make([]float64, m)
	for j, nb := range st.neighbors {
		st.lengths[j] = steps[nb+1] - steps[nb]
		u := ((steps[nb]+steps[nb+1])/2 - mid) / h
		for q := 0; q < m; q++ {
			v.Set(j, q, math.Pow(u, float64(q)))
		}
	}

	// E[i][q] = t_i^q at the sub-interval midpoints.
	e := mat.NewDense(n, m, nil)
	st.steps = make([]float64, n)
	d := h / float64(n)
	for i := 0; i < n; i++ {
		t := (steps[k] + (float64(i)+0.5)*d - mid) / h
		for q := 0; q < m; q++ {
			e.Set(i, q, math.Pow(t, float64(q)))
		}
		st.steps[i] = steps[k] + float64(i+1)*d
	}
	st.steps[n-1] = steps[k+1]

	// The evaluated polynomial is E·V⁻¹·r, so the weights are the
	// solution X of Vᵀ·X = Eᵀ, transposed and scaled by the
	// sub-interval length to convert rates to amounts.
	var x mat.Dense
	if err := x.Solve(v.T(), e.T()); err != nil {
		return nil, fmt.Errorf("metflux: solving stencil for interval %d: %v", k, err)
	}
	st.weights = make([][]float64, n)
	for i := 0; i < n; i++ {
		st.weights[i] = make([]float64, m)
		for j := 0; j < m; j++ {
			st.weights[i][j] = x.At(j, i) * d
		}
	}
	return st, nil
}

// candidates fills o with the candidate sub-interval amounts for element
// e given the increments of all intervals.
func (st *stencil) candidates(incs []*sparse.DenseArray, e int, o []float64) {
	for i, w := range st.weights {
		var sum float64
		for j, nb := range st.neighbors {
			sum += w[j] * incs[nb].Elements[e] / st.lengths[j]
		}
		o[i] = sum
	}
}

// stencils creates the stencils for every interval of a series.
func stencils(steps []float64, n int) ([]*stencil, error) {
	o := make([]*stencil, len(steps)-1)
	for k := range o {
		st, err := newStencil(steps, k, n)
		if err != nil {
			return nil, err
		}
		o[k] = st
	}
	return o, nil
}

// checkIncrements makes sure there are enough increments for the steps
// and that they all have the same shape.
func checkIncrements(name string, steps []float64, incs []*sparse.DenseArray) error {
	if len(incs) < 2 {
		return &InsufficientDataError{Series: name, Usable: len(incs), Need: 2}
	}
	if len(steps) != len(incs)+1 {
		return &InvalidSeriesError{Series: name,
			Reason: fmt.Sprintf("%d increments but %d steps", len(incs), len(steps))}
	}
	for i, inc := range incs {
		if inc == nil {
			return &InvalidSeriesError{Series: name, Reason: fmt.Sprintf("increment %d is nil", i)}
		}
		if i > 0 && !sameShape(inc, incs[0]) {
			return &ShapeMismatchError{Series: name, Index: i, Want: incs[0].Shape, Have: inc.Shape}
		}
	}
	return nil
}
