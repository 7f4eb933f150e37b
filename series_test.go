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

func TestParseAccumulationKind(t *testing.T) {
	for _, k := range []AccumulationKind{Instantaneous, Accumulated, CumulativeWithReset} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var k2 AccumulationKind
		if err := k2.UnmarshalText(b); err != nil {
			t.Fatal(err)
		}
		if k2 != k {
			t.Errorf("have %v, want %v", k2, k)
		}
	}
	if _, err := ParseAccumulationKind("averaged"); err == nil {
		t.Error("invalid kind should fail")
	}
}

func TestDenseSeriesRates(t *testing.T) {
	d := &DenseSeries{
		Kind:   Accumulated,
		Factor: 2,
		Start:  6,
		Steps:  []float64{7.5, 9, 12, 15},
		Values: scalars(3, 6, 12, 3),
	}
	if d.Intervals() != 2 {
		t.Errorf("intervals: have %d, want 2", d.Intervals())
	}
	want := []float64{2, 4, 4, 1}
	for i, r := range d.Rates() {
		if absDifferent(r.Elements[0], want[i], 1.0e-12) {
			t.Errorf("rate %d: have %g, want %g", i, r.Elements[0], want[i])
		}
	}
	if d.Values[0].Elements[0] != 3 {
		t.Error("Rates modified the values")
	}
	if s := d.IntervalSum(1).Elements[0]; s != 15 {
		t.Errorf("interval sum: have %g, want 15", s)
	}
}

func TestValidate(t *testing.T) {
	s := NewScalarSeries("x", Accumulated, false, []float64{0, 1}, []float64{0, 1, 2})
	if _, ok := s.Validate().(*InvalidSeriesError); !ok {
		t.Error("length mismatch should fail")
	}
	s = NewScalarSeries("x", Accumulated, false, []float64{0, 1}, []float64{0, 1})
	s.Values[1] = nil
	if _, ok := s.Validate().(*InvalidSeriesError); !ok {
		t.Error("nil value should fail")
	}
	s.Values[1] = sparse.ZerosDense(1, 1)
	if _, ok := s.Validate().(*ShapeMismatchError); !ok {
		t.Error("shape mismatch should fail")
	}
}
