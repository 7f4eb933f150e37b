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
	"math/rand"
	"testing"

	"github.com/ctessum/sparse"

	"gonum.org/v1/gonum/floats"
)

func TestPolynomialDisaggregate(t *testing.T) {
	incs := scalars(-1, 3, 5)
	d, err := PolynomialDisaggregator{}.Disaggregate("x", uniformSteps(3, 1), incs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Groups) != 3 {
		t.Fatalf("have %d groups, want 3", len(d.Groups))
	}
	// The linear edge stencil reproduces the edge interval without rescaling.
	want0 := []float64{-1, 0}
	for i, w := range want0 {
		if have := d.Groups[0][i].Elements[0]; absDifferent(have, w, 1.0e-12) {
			t.Errorf("interval 0 sub %d: have %g, want %g", i, have, w)
		}
	}
	want2 := []float64{2.25, 2.75}
	for i, w := range want2 {
		if have := d.Groups[2][i].Elements[0]; absDifferent(have, w, 1.0e-12) {
			t.Errorf("interval 2 sub %d: have %g, want %g", i, have, w)
		}
	}
	for k, group := range d.Groups {
		if sum := floats.Sum(groupElements(group, 0)); absDifferent(sum, incs[k].Elements[0], 1.0e-12) {
			t.Errorf("interval %d sums to %g, want %g", k, sum, incs[k].Elements[0])
		}
	}
	if d.Clamped != 0 || d.Degenerate != 0 {
		t.Errorf("clamped=%d degenerate=%d", d.Clamped, d.Degenerate)
	}
}

func TestPolynomialDisaggregateRandom(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	const nIntervals = 15
	steps := make([]float64, nIntervals+1)
	for i := 1; i < len(steps); i++ {
		steps[i] = steps[i-1] + float64(1+r.Intn(6))
	}
	incs := make([]*sparse.DenseArray, nIntervals)
	for k := range incs {
		a := sparse.ZerosDense(3, 4)
		for e := range a.Elements {
			switch r.Intn(4) {
			case 0:
				a.Elements[e] = 0
			case 1:
				a.Elements[e] = r.NormFloat64() * 1.0e-4
			default:
				a.Elements[e] = r.NormFloat64() * 100
			}
		}
		incs[k] = a
	}
	for _, n := range []int{1, 2, 4, 5} {
		d, err := PolynomialDisaggregator{}.Disaggregate("x", steps, incs, n)
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Groups) != nIntervals {
			t.Fatalf("n=%d: have %d groups, want %d", n, len(d.Groups), nIntervals)
		}
		for k, group := range d.Groups {
			if len(group) != n {
				t.Fatalf("n=%d interval %d has %d values", n, k, len(group))
			}
			for e, want := range incs[k].Elements {
				sum := floats.Sum(groupElements(group, e))
				if !floats.EqualWithinAbsOrRel(sum, want, 1.0e-12, 1.0e-9) {
					t.Errorf("n=%d interval %d element %d sums to %g, want %g", n, k, e, sum, want)
				}
			}
		}
		if d.Clamped != 0 || d.Degenerate != 0 {
			t.Errorf("n=%d: clamped=%d degenerate=%d", n, d.Clamped, d.Degenerate)
		}
	}
}

func TestPolynomialDisaggregateFactorOne(t *testing.T) {
	incs := scalars(4, -2, 7, 1)
	d, err := PolynomialDisaggregator{}.Disaggregate("x", []float64{0, 1, 3, 4, 8}, incs, 1)
	if err != nil {
		t.Fatal(err)
	}
	for k, group := range d.Groups {
		if len(group) != 1 {
			t.Fatalf("interval %d has %d values", k, len(group))
		}
		if absDifferent(group[0].Elements[0], incs[k].Elements[0], 1.0e-12) {
			t.Errorf("interval %d: have %g, want %g", k, group[0].Elements[0], incs[k].Elements[0])
		}
	}
}

func TestPolynomialDisaggregateInsufficient(t *testing.T) {
	_, err := PolynomialDisaggregator{}.Disaggregate("x", []float64{0, 1}, scalars(1), 4)
	if _, ok := err.(*InsufficientDataError); !ok {
		t.Errorf("have error %v, want InsufficientDataError", err)
	}
}

func TestConserve(t *testing.T) {
	tests := []struct {
		name   string
		vals   []float64
		target float64
		want   []float64
	}{
		{name: "scale", vals: []float64{1, 3}, target: 8, want: []float64{2, 6}},
		{name: "opposite sign", vals: []float64{1, 1}, target: -2, want: []float64{-1, -1}},
		{name: "zero target", vals: []float64{1, 3}, target: 0, want: []float64{-1, 1}},
		{name: "zero sum", vals: []float64{-1, 1}, target: 4, want: []float64{1, 3}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conserve(test.vals, test.target)
			for i, w := range test.want {
				if absDifferent(test.vals[i], w, 1.0e-12) {
					t.Errorf("value %d: have %g, want %g", i, test.vals[i], w)
				}
			}
		})
	}
}
