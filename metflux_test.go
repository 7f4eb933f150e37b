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
)

func different(a, b, tolerance float64) bool {
	if a == b {
		return false
	}
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b, tolerance float64) bool {
	if math.Abs(a-b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

// scalars converts v to one-element arrays.
func scalars(v ...float64) []*sparse.DenseArray {
	o := make([]*sparse.DenseArray, len(v))
	for i, vv := range v {
		a := sparse.ZerosDense(1)
		a.Elements[0] = vv
		o[i] = a
	}
	return o
}

// uniformSteps returns n+1 steps starting at 0 with spacing h.
func uniformSteps(n int, h float64) []float64 {
	o := make([]float64, n+1)
	for i := range o {
		o[i] = float64(i) * h
	}
	return o
}

// groupElements returns element e of every value in group.
func groupElements(group []*sparse.DenseArray, e int) []float64 {
	o := make([]float64, len(group))
	for i, g := range group {
		o[i] = g.Elements[e]
	}
	return o
}
