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

// MonotoneRainDisaggregator disaggregates strictly non-negative,
// frequently zero fields such as large-scale and convective
// precipitation. Every sub-interval value is >= 0 and each interval's
// values sum to its increment.
type MonotoneRainDisaggregator struct{}

// Disaggregate divides every interval into n sub-intervals.
//
// Negative increments cannot be represented without negative values, so
// they are clamped to zero in copies of the affected arrays (kept in
// Disaggregation.Increments) and counted before any fitting. Zero increments produce exact zeros. For
// the remaining intervals the polynomial candidates of the interval are
// computed from the clamped rates of the interval and its neighbors,
// negative candidates are clamped to zero, and the clamped deficit is
// taken back from the positive candidates of the same interval in
// proportion to their size.
func (MonotoneRainDisaggregator) Disaggregate(name string, steps []float64, incs []*sparse.DenseArray, n int) (*Disaggregation, error) {
	if err := checkIncrements(name, steps, incs); err != nil {
		return nil, err
	}
	sts, err := stencils(steps, n)
	if err != nil {
		return nil, err
	}
	d := newDisaggregation(sts, incs[0].Shape, n)
	incs = append([]*sparse.DenseArray(nil), incs...)
	for k, inc := range incs {
		copied := false
		for e, v := range inc.Elements {
			if v >= 0 {
				continue
			}
			if !copied {
				inc = inc.Copy()
				incs[k] = inc
				copied = true
			}
			inc.Elements[e] = 0
			d.Clamped++
		}
	}
	d.Increments = incs
	cand := make([]float64, n)
	for k, st := range sts {
		for e, target := range incs[k].Elements {
			if target == 0 {
				continue // Groups are already zero.
			}
			st.candidates(incs, e, cand)
			if !redistribute(cand, target) {
				d.Degenerate++
			}
			for i, v := range cand {
				d.Groups[k][i].Elements[e] = v
			}
		}
	}
	return d, nil
}

// redistribute clamps the negative values in vals to zero and scales the
// positive values so that vals sums to target, which must be positive.
//
// This is a proportional redistribution rather than a constrained
// least-squares refit: each positive value gives up or receives a share
// of the difference proportional to its own size, so a zero value stays
// zero and the shape of the positive part is kept.
//
// If no positive value remains, or the positive values are too small or
// too large for the scale factor to be finite, all of target is assigned
// to the middle sub-interval (index (n-1)/2) and false is returned.
func redistribute(vals []float64, target float64) bool {
	var pos float64
	for i, v := range vals {
		if v < 0 || math.IsNaN(v) {
			vals[i] = 0
			continue
		}
		pos += v
	}
	scale := target / pos
	if pos == 0 || math.IsInf(pos, 0) || math.IsInf(scale, 0) {
		for i := range vals {
			vals[i] = 0
		}
		vals[(len(vals)-1)/2] = target
		return false
	}
	floats.Scale(scale, vals)
	return true
}
