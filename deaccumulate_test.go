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
	"testing"

	"github.com/ctessum/sparse"
)

func TestDeaccumulate(t *testing.T) {
	tests := []struct {
		name        string
		kind        AccumulationKind
		nonNegative bool
		steps       []float64
		values      []float64
		resets      []float64
		want        []float64
		clamped     int
		amount      float64
	}{
		{
			name:   "accumulated",
			kind:   Accumulated,
			steps:  []float64{0, 3, 6, 9},
			values: []float64{0, 2, 2, 8},
			want:   []float64{2, 0, 6},
		},
		{
			name:   "negative increment kept",
			kind:   Accumulated,
			steps:  []float64{0, 3, 6},
			values: []float64{5, 4, 6},
			want:   []float64{-1, 2},
		},
		{
			name:        "negative increment clamped",
			kind:        Accumulated,
			nonNegative: true,
			steps:       []float64{0, 3, 6},
			values:      []float64{5, 4, 6},
			want:        []float64{0, 2},
			clamped:     1,
			amount:      -1,
		},
		{
			name:   "reset",
			kind:   CumulativeWithReset,
			steps:  []float64{0, 6, 12, 18},
			values: []float64{3, 9, 2, 5},
			resets: []float64{6},
			want:   []float64{6, 2, 3},
		},
		{
			name:   "reset at start of interval",
			kind:   CumulativeWithReset,
			steps:  []float64{0, 6, 12},
			values: []float64{4, 1, 3},
			resets: []float64{0},
			want:   []float64{1, 2},
		},
		{
			name:   "reset at end of interval belongs to next",
			kind:   CumulativeWithReset,
			steps:  []float64{0, 6, 12},
			values: []float64{0, 4, 1},
			resets: []float64{6},
			want:   []float64{4, 1},
		},
		{
			name:   "resets ignored for accumulated",
			kind:   Accumulated,
			steps:  []float64{0, 6, 12},
			values: []float64{0, 4, 1},
			resets: []float64{6},
			want:   []float64{4, -3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewScalarSeries(test.name, test.kind, test.nonNegative, test.steps, test.values)
			s.Resets = test.resets
			d, err := Deaccumulate(s)
			if err != nil {
				t.Fatal(err)
			}
			if len(d.Increments) != len(test.want) {
				t.Fatalf("have %d increments, want %d", len(d.Increments), len(test.want))
			}
			for i, w := range test.want {
				if have := d.Increments[i].Elements[0]; have != w {
					t.Errorf("increment %d: have %g, want %g", i, have, w)
				}
			}
			if d.Clamped != test.clamped {
				t.Errorf("clamped: have %d, want %d", d.Clamped, test.clamped)
			}
			if d.ClampedAmount != test.amount {
				t.Errorf("clamped amount: have %g, want %g", d.ClampedAmount, test.amount)
			}
		})
	}
}

func TestDeaccumulateNoAlias(t *testing.T) {
	s := NewScalarSeries("x", CumulativeWithReset, false, []float64{0, 1, 2}, []float64{1, 2, 3})
	s.Resets = []float64{0}
	d, err := Deaccumulate(s)
	if err != nil {
		t.Fatal(err)
	}
	d.Increments[0].Elements[0] = 100
	if s.Values[1].Elements[0] != 2 {
		t.Errorf("input was modified: %v", s.Values[1].Elements)
	}
}

func TestDeaccumulateShort(t *testing.T) {
	for _, values := range [][]float64{nil, {3}} {
		steps := make([]float64, len(values))
		s := NewScalarSeries("x", Accumulated, false, steps, values)
		d, err := Deaccumulate(s)
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Increments) != 0 {
			t.Errorf("%d values: have %d increments, want 0", len(values), len(d.Increments))
		}
	}
}

func TestDeaccumulateErrors(t *testing.T) {
	if _, err := Deaccumulate(NewScalarSeries("x", Instantaneous, false,
		[]float64{0, 1}, []float64{0, 1})); err == nil {
		t.Error("instantaneous series should fail")
	}
	_, err := Deaccumulate(NewScalarSeries("x", Accumulated, false,
		[]float64{0, 1, 1}, []float64{0, 1, 2}))
	if _, ok := err.(*InvalidSeriesError); !ok {
		t.Errorf("repeated step: have error %v, want InvalidSeriesError", err)
	}
	s := NewScalarSeries("x", Accumulated, false, []float64{0, 1}, []float64{0, 1})
	s.Values[1] = sparse.ZerosDense(2, 2)
	_, err = Deaccumulate(s)
	if _, ok := err.(*ShapeMismatchError); !ok {
		t.Errorf("shape mismatch: have error %v, want ShapeMismatchError", err)
	}
}

func TestDeaccumulateGrid(t *testing.T) {
	s := &FieldSeries{
		Name:  "grid",
		Kind:  Accumulated,
		Steps: []float64{0, 1, 2},
	}
	for i := 0; i < 3; i++ {
		a := sparse.ZerosDense(2, 3)
		for j := range a.Elements {
			a.Elements[j] = float64(i * j)
		}
		s.Values = append(s.Values, a)
	}
	d, err := Deaccumulate(s)
	if err != nil {
		t.Fatal(err)
	}
	for i, inc := range d.Increments {
		if len(inc.Shape) != 2 || inc.Shape[0] != 2 || inc.Shape[1] != 3 {
			t.Fatalf("increment %d has shape %v", i, inc.Shape)
		}
		for j, v := range inc.Elements {
			if v != float64(j) {
				t.Errorf("increment %d element %d: have %g, want %d", i, j, v, j)
			}
		}
	}
}
