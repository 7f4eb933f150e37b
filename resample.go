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

// ResampleMode specifies how Instantaneous series are brought to the
// output time resolution.
type ResampleMode int

const (
	// Hold keeps each sample constant until the next one.
	Hold ResampleMode = iota

	// Linear interpolates linearly between consecutive samples.
	Linear
)

func (m ResampleMode) String() string {
	switch m {
	case Hold:
		return "hold"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("ResampleMode(%d)", int(m))
	}
}

// ParseResampleMode returns the ResampleMode with the given name.
func ParseResampleMode(s string) (ResampleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hold", "":
		return Hold, nil
	case "linear":
		return Linear, nil
	default:
		return Hold, fmt.Errorf("metflux: invalid resampling mode '%s'; valid options are hold and linear", s)
	}
}

// Resample returns the Instantaneous series s at n times its time
// resolution. The output holds point samples at every sub-step,
// including the first and last input steps, so there are
// n*(len(s.Values)-1)+1 values and n == 1 reproduces the input.
// The returned arrays never share storage with s.
func Resample(s *FieldSeries, n int, mode ResampleMode) (*DenseSeries, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(s.Values) < 2 {
		return nil, &InsufficientDataError{Series: s.Name, Usable: len(s.Values), Need: 2}
	}
	if n < 1 {
		return nil, fmt.Errorf("metflux: subdivision factor must be at least 1 but is %d", n)
	}
	nOut := n*(len(s.Values)-1) + 1
	o := &DenseSeries{
		Name:   s.Name,
		Units:  s.Units,
		Kind:   s.Kind,
		Factor: n,
		Start:  s.Steps[0],
		Values: make([]*sparse.DenseArray, 0, nOut),
		Steps:  make([]float64, 0, nOut),
	}
	for k := 0; k < len(s.Values)-1; k++ {
		a, b := s.Values[k], s.Values[k+1]
		d := (s.Steps[k+1] - s.Steps[k]) / float64(n)
		for i := 0; i < n; i++ {
			var v *sparse.DenseArray
			switch mode {
			case Linear:
				f := float64(i) / float64(n)
				v = sparse.ZerosDense(a.Shape...)
				for e, av := range a.Elements {
					v.Elements[e] = av + f*(b.Elements[e]-av)
				}
			case Hold:
				v = a.Copy()
			default:
				return nil, fmt.Errorf("metflux: invalid resampling mode %v", mode)
			}
			o.Values = append(o.Values, v)
			o.Steps = append(o.Steps, s.Steps[k]+float64(i)*d)
		}
	}
	last := len(s.Values) - 1
	o.Values = append(o.Values, s.Values[last].Copy())
	o.Steps = append(o.Steps, s.Steps[last])
	return o, nil
}
