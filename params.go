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
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/unit"
)

// Parameter describes how an archived flux parameter is handled.
type Parameter struct {
	// ID is the GRIB parameter id, e.g. 142 for large-scale precipitation.
	ID int

	// Name is the short name, e.g. "LSP".
	Name string

	// Description is a human readable description.
	Description string

	// Kind is the accumulation kind of the archived values.
	Kind AccumulationKind

	// NonNegative is true if the quantity can't be negative.
	NonNegative bool

	// Scale is multiplied with the archived values to convert them
	// to Units.
	Scale float64

	// Units are the units after scaling.
	Units string
}

// Apply stamps the accumulation semantics and units of p onto s and
// scales the values of s in place.
func (p *Parameter) Apply(s *FieldSeries) {
	s.Kind = p.Kind
	s.NonNegative = p.NonNegative
	s.Units = p.Units
	if p.Scale != 0 && p.Scale != 1 {
		for _, v := range s.Values {
			v.Scale(p.Scale)
		}
	}
}

// ParameterTable holds the known parameters.
type ParameterTable struct {
	params []Parameter
}

// DefaultParameters returns the flux parameters retrieved from the ECMWF
// archive for FLEXPART. Forecast fluxes accumulate from the start of each
// forecast, so they are CumulativeWithReset. Precipitation is converted
// from m to mm and the energy and momentum fluxes from J m-2 (N m-2 s)
// to W m-2 h (N m-2 h), so that dividing by the interval length in
// hours gives the mean flux.
func DefaultParameters() *ParameterTable {
	hour := unit.New(3600, unit.Second)
	mToMM := conversionFactor(unit.New(1, unit.Meter), unit.New(1.0e-3, unit.Meter))
	jToWh := conversionFactor(unit.New(1, unit.Joule), unit.Mul(unit.New(1, unit.Watt), hour))
	sToH := conversionFactor(unit.New(1, unit.Second), hour)
	return &ParameterTable{params: []Parameter{
		{ID: 142, Name: "LSP", Description: "Large-scale precipitation", Kind: CumulativeWithReset, NonNegative: true, Scale: mToMM, Units: "mm"},
		{ID: 143, Name: "CP", Description: "Convective precipitation", Kind: CumulativeWithReset, NonNegative: true, Scale: mToMM, Units: "mm"},
		{ID: 146, Name: "SSHF", Description: "Surface sensible heat flux", Kind: CumulativeWithReset, Scale: jToWh, Units: "W m-2 h"},
		{ID: 147, Name: "SLHF", Description: "Surface latent heat flux", Kind: CumulativeWithReset, Scale: jToWh, Units: "W m-2 h"},
		{ID: 176, Name: "SSR", Description: "Surface net solar radiation", Kind: CumulativeWithReset, Scale: jToWh, Units: "W m-2 h"},
		{ID: 180, Name: "EWSS", Description: "Eastward turbulent surface stress", Kind: CumulativeWithReset, Scale: sToH, Units: "N m-2 h"},
		{ID: 181, Name: "NSSS", Description: "Northward turbulent surface stress", Kind: CumulativeWithReset, Scale: sToH, Units: "N m-2 h"},
	}}
}

// conversionFactor returns the number that a value in units of from
// is multiplied by to express it in units of to. It panics if from and to
// have different dimensions.
func conversionFactor(from, to *unit.Unit) float64 {
	f := unit.Div(from, to)
	if err := f.Check(unit.Dimless); err != nil {
		panic(fmt.Errorf("metflux: converting %v to %v: %v", from, to, err))
	}
	return f.Value()
}

// parameterFile is the layout of a parameter TOML file:
//
//	[[Parameter]]
//	ID = 228
//	Name = "TP"
//	Kind = "accumulated"
//	NonNegative = true
//	Scale = 1000.0
//	Units = "mm"
type parameterFile struct {
	Parameter []Parameter
}

// LoadParameters reads the parameters in the TOML file at path and merges
// them into the default parameters. Parameters with the same ID as a
// default parameter replace it.
func LoadParameters(path string) (*ParameterTable, error) {
	var f parameterFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("metflux: reading parameter file: %v", err)
	}
	t := DefaultParameters()
	for _, p := range f.Parameter {
		if err := t.Add(p); err != nil {
			return nil, fmt.Errorf("metflux: parameter file %s: %v", path, err)
		}
	}
	return t, nil
}

// Add adds p to the table, replacing any parameter with the same ID.
func (t *ParameterTable) Add(p Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("parameter %d has no name", p.ID)
	}
	for i, pp := range t.params {
		if pp.ID == p.ID {
			t.params[i] = p
			return nil
		}
	}
	t.params = append(t.params, p)
	sort.Slice(t.params, func(i, j int) bool { return t.params[i].ID < t.params[j].ID })
	return nil
}

// Lookup returns the parameter whose name (case-insensitive) or numeric
// ID matches key.
func (t *ParameterTable) Lookup(key string) (*Parameter, bool) {
	id, idErr := strconv.Atoi(strings.TrimSpace(key))
	for i, p := range t.params {
		if strings.EqualFold(p.Name, key) || (idErr == nil && p.ID == id) {
			return &t.params[i], true
		}
	}
	return nil, false
}

// Parameters returns the parameters in the table in order of ID.
func (t *ParameterTable) Parameters() []Parameter {
	return append([]Parameter(nil), t.params...)
}
