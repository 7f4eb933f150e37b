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

	"github.com/ctessum/sparse"
)

// Deaccumulation holds the per-interval increments of a series.
type Deaccumulation struct {
	// Increments[i-1] is the net change over the interval
	// (Steps[i-1], Steps[i]). The arrays are newly allocated and
	// never share storage with the input series.
	Increments []*sparse.DenseArray

	// Clamped is the number of negative increment elements of a
	// NonNegative series that were set to zero.
	Clamped int

	// ClampedAmount is the total (negative) amount that was discarded
	// by clamping. It is not redistributed elsewhere.
	ClampedAmount float64
}

// Deaccumulate converts a running-total series into per-interval
// increments in a single forward pass.
//
// For Accumulated series each increment is the difference between
// consecutive values. For CumulativeWithReset series, a reset boundary b
// applies to the interval (Steps[i-1], Steps[i]) when
// Steps[i-1] <= b < Steps[i]; the accumulator is then known to have
// restarted from zero and the increment is Values[i] itself.
//
// Negative increments of NonNegative series are clamped to zero and
// counted in the result.
func Deaccumulate(s *FieldSeries) (*Deaccumulation, error) {
	if s.Kind == Instantaneous {
		return nil, fmt.Errorf("metflux: cannot deaccumulate instantaneous series %s", s.Name)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d := new(Deaccumulation)
	if len(s.Values) < 2 {
		return d, nil
	}
	d.Increments = make([]*sparse.DenseArray, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		var inc *sparse.DenseArray
		if s.Kind == CumulativeWithReset && resetBetween(s.Resets, s.Steps[i-1], s.Steps[i]) {
			inc = s.Values[i].Copy()
		} else {
			inc = sparse.ZerosDense(s.Values[i].Shape...)
			prev, cur := s.Values[i-1].Elements, s.Values[i].Elements
			for j, v := range cur {
				inc.Elements[j] = v - prev[j]
			}
		}
		if s.NonNegative {
			for j, v := range inc.Elements {
				if v < 0 {
					d.Clamped++
					d.ClampedAmount += v
					inc.Elements[j] = 0
				}
			}
		}
		d.Increments[i-1] = inc
	}
	return d, nil
}

// resetBetween returns whether any of the resets falls within [start, end).
func resetBetween(resets []float64, start, end float64) bool {
	for _, r := range resets {
		if r >= start && r < end {
			return true
		}
	}
	return false
}
