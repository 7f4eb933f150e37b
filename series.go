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
	"strings"

	"github.com/ctessum/sparse"
)

// AccumulationKind specifies how consecutive samples of a series relate
// to each other.
type AccumulationKind int

const (
	// Instantaneous samples are point values valid at their step.
	Instantaneous AccumulationKind = iota

	// Accumulated samples are running totals since a fixed reference
	// time that never restart.
	Accumulated

	// CumulativeWithReset samples are running totals that restart from
	// zero at externally known reset boundaries, e.g. at the base time
	// of each forecast cycle.
	CumulativeWithReset
)

var kindNames = []string{"instantaneous", "accumulated", "cumulative_with_reset"}

func (k AccumulationKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("AccumulationKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseAccumulationKind returns the AccumulationKind with the given name.
// Matching is case-insensitive and dashes may be used instead of
// underscores.
func ParseAccumulationKind(s string) (AccumulationKind, error) {
	name := strings.Replace(strings.ToLower(strings.TrimSpace(s)), "-", "_", -1)
	for i, n := range kindNames {
		if n == name {
			return AccumulationKind(i), nil
		}
	}
	return Instantaneous, fmt.Errorf("metflux: invalid accumulation kind '%s'; valid options are %s",
		s, strings.Join(kindNames, ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (k AccumulationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AccumulationKind) UnmarshalText(text []byte) error {
	kk, err := ParseAccumulationKind(string(text))
	if err != nil {
		return err
	}
	*k = kk
	return nil
}

// FieldSeries is an ordered time series of decoded field values for one
// parameter and vertical level.
type FieldSeries struct {
	// Name identifies the parameter, e.g. "LSP" or "142".
	Name string

	// Units are the units of the values after any scaling.
	Units string

	// Values holds one array per archive time step in chronological
	// order. All arrays must have the same shape.
	Values []*sparse.DenseArray

	// Steps are the forecast step offsets [h] matching Values
	// one-to-one. They must be strictly increasing.
	Steps []float64

	// Kind governs how the Deaccumulator treats consecutive samples.
	Kind AccumulationKind

	// NonNegative is true for quantities that cannot be physically
	// negative, such as precipitation.
	NonNegative bool

	// Resets are the steps at which a CumulativeWithReset series is
	// known to restart from zero. They are ignored for other kinds.
	Resets []float64
}

// NewScalarSeries creates a series of one-element arrays from
// the given values.
func NewScalarSeries(name string, kind AccumulationKind, nonNegative bool, steps, values []float64) *FieldSeries {
	s := &FieldSeries{
		Name:        name,
		Steps:       steps,
		Kind:        kind,
		NonNegative: nonNegative,
		Values:      make([]*sparse.DenseArray, len(values)),
	}
	for i, v := range values {
		a := sparse.ZerosDense(1)
		a.Elements[0] = v
		s.Values[i] = a
	}
	return s
}

// Validate checks that s is internally consistent.
func (s *FieldSeries) Validate() error {
	if len(s.Values) != len(s.Steps) {
		return &InvalidSeriesError{Series: s.Name,
			Reason: fmt.Sprintf("%d values but %d steps", len(s.Values), len(s.Steps))}
	}
	for i := 1; i < len(s.Steps); i++ {
		if !(s.Steps[i] > s.Steps[i-1]) {
			return &InvalidSeriesError{Series: s.Name,
				Reason: fmt.Sprintf("steps are not strictly increasing at index %d (%g after %g)",
					i, s.Steps[i], s.Steps[i-1])}
		}
	}
	for i, v := range s.Values {
		if v == nil {
			return &InvalidSeriesError{Series: s.Name, Reason: fmt.Sprintf("value %d is nil", i)}
		}
		if i > 0 && !sameShape(v, s.Values[0]) {
			return &ShapeMismatchError{Series: s.Name, Index: i, Want: s.Values[0].Shape, Have: v.Shape}
		}
	}
	return nil
}

// DenseSeries is the densely time-resolved output for one series.
type DenseSeries struct {
	Name  string
	Units string

	// Kind is the accumulation kind of the series the values were
	// derived from.
	Kind AccumulationKind

	// Factor is the number of sub-intervals each input interval
	// was divided into.
	Factor int

	// Values holds one array per output step.
	// For accumulated kinds, value j is the amount attributable to
	// sub-interval j, and there are Factor values per input interval.
	// For Instantaneous series, the values are point samples on the
	// sub-step grid, including both end points.
	Values []*sparse.DenseArray

	// Steps gives the step [h] of each value. For accumulated kinds it
	// is the end of the sub-interval.
	Steps []float64

	// Start is the first step of the input series.
	Start float64
}

// Intervals returns the number of input intervals d covers.
func (d *DenseSeries) Intervals() int {
	if d.Factor <= 0 {
		return 0
	}
	if d.Kind == Instantaneous {
		return (len(d.Values) - 1) / d.Factor
	}
	return len(d.Values) / d.Factor
}

// IntervalSum returns the sum of the sub-interval values within input
// interval k. It is only meaningful for accumulated kinds.
func (d *DenseSeries) IntervalSum(k int) *sparse.DenseArray {
	o := sparse.ZerosDense(d.Values[k*d.Factor].Shape...)
	for i := 0; i < d.Factor; i++ {
		o.AddDense(d.Values[k*d.Factor+i])
	}
	return o
}

// Rates returns the values of d converted from sub-interval amounts to
// mean rates per hour. The arrays of d are not modified. Instantaneous
// series are returned as copies.
func (d *DenseSeries) Rates() []*sparse.DenseArray {
	o := make([]*sparse.DenseArray, len(d.Values))
	for j, v := range d.Values {
		if d.Kind == Instantaneous {
			o[j] = v.Copy()
			continue
		}
		prev := d.Start
		if j > 0 {
			prev = d.Steps[j-1]
		}
		o[j] = v.ScaleCopy(1 / (d.Steps[j] - prev))
	}
	return o
}

func sameShape(a, b *sparse.DenseArray) bool {
	if len(a.Elements) != len(b.Elements) || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i, v := range a.Shape {
		if b.Shape[i] != v {
			return false
		}
	}
	return true
}
