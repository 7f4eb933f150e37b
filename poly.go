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
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// negligible is the size, relative to the magnitude of the candidate
// values, below which a candidate sum is treated as zero. Rescaling a
// smaller sum would magnify rounding error beyond DefaultTolerance.
const negligible = 1.0e-6

// Disaggregation holds the sub-interval values of a series.
type Disaggregation struct {
	// Groups[k][i] is the amount attributable to sub-interval i
	// of interval k.
	Groups [][]*sparse.DenseArray

	// Steps[k][i] is the end step of sub-interval i of interval k.
	Steps [][]float64

	// Increments are the per-interval amounts that Groups sum to. They
	// differ from the input increments only where negative elements
	// were clamped, in which case they are copies.
	Increments []*sparse.DenseArray

	// Clamped is the number of negative increment elements that
	// were set to zero before fitting.
	Clamped int

	// Degenerate is the number of interval elements where no positive
	// candidate value remained and the whole increment was assigned to
	// a single sub-interval.
	Degenerate int
}

// A Disaggregator reconstructs sub-interval values from per-interval
// increments. steps has one more element than incs. Implementations
// don't modify incs.
type Disaggregator interface {
	Disaggregate(name string, steps []float64, incs []*sparse.DenseArray, n int) (*Disaggregation, error)
}

// PolynomialDisaggregator disaggregates signed or smooth fluxes such as
// surface heat fluxes, radiation and wind stress.
type PolynomialDisaggregator struct{}

// Disaggregate divides every interval into n sub-intervals. The
// candidate values come from a polynomial through the mean rates at the
// midpoints of the interval and its neighbors. They are then rescaled by
// a single factor so that they sum to the increment exactly. Where a
// single factor cannot do that (the candidate sum is negligible or has
// the opposite sign of the increment), the residual is instead spread
// uniformly over the sub-intervals. Negative values are kept.
func (PolynomialDisaggregator) Disaggregate(name string, steps []float64, incs []*sparse.DenseArray, n int) (*Disaggregation, error) {
	if err := checkIncrements(name, steps, incs); err != nil {
		return nil, err
	}
	sts, err := stencils(steps, n)
	if err != nil {
		return nil, err
	}
	d := newDisaggregation(sts, incs[0].Shape, n)
	d.Increments = incs
	cand := make([]float64, n)
	for k, st := range sts {
		for e, target := range incs[k].Elements {
			st.candidates(incs, e, cand)
			conserve(cand, target)
			for i, v := range cand {
				d.Groups[k][i].Elements[e] = v
			}
		}
	}
	return d, nil
}

// conserve adjusts vals in place so that they sum to target.
func conserve(vals []float64, target float64) {
	sum := floats.Sum(vals)
	scale := absSum(vals)
	if sum != 0 && math.Abs(sum) > negligible*scale && (sum > 0) == (target > 0) && target != 0 {
		floats.Scale(target/sum, vals)
		return
	}
	floats.AddConst((target-sum)/float64(len(vals)), vals)
}

func absSum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += math.Abs(v)
	}
	return s
}

func newDisaggregation(sts []*stencil, shape []int, n int) *Disaggregation {
	d := &Disaggregation{
		Groups: make([][]*sparse.DenseArray, len(sts)),
		Steps:  make([][]float64, len(sts)),
	}
	for k, st := range sts {
		d.Groups[k] = make([]*sparse.DenseArray, n)
		for i := range d.Groups[k] {
			d.Groups[k][i] = sparse.ZerosDense(shape...)
		}
		d.Steps[k] = st.steps
	}
	return d
}
