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

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Names used in netCDF field files.
const (
	// TimeDim is the outermost dimension of every field variable.
	TimeDim = "time"

	// StepVar is the double variable on TimeDim holding the step [h]
	// of each record.
	StepVar = "step"

	// ResetAttr is the optional global double attribute listing the
	// reset steps shared by all CumulativeWithReset series.
	ResetAttr = "reset_steps"

	// AccumulationAttr is the optional string attribute of a field
	// variable giving its AccumulationKind.
	AccumulationAttr = "accumulation"

	// NonNegativeAttr is the optional int attribute of a field
	// variable set to 1 for non-negative quantities.
	NonNegativeAttr = "non_negative"
)

// ReadSeriesNCF reads the already-decoded fields in a netCDF file.
// Every float or double variable whose outermost dimension is TimeDim
// becomes one series. If the variable name matches a parameter in
// params (which may be nil), the parameter is applied to the series; the AccumulationAttr
// and NonNegativeAttr attributes take precedence over it. Variables
// that are not in params and have no AccumulationAttr are treated as
// Instantaneous.
func ReadSeriesNCF(r cdf.ReaderWriterAt, params *ParameterTable) (map[string]*FieldSeries, error) {
	f, err := cdf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("metflux: opening netcdf file: %v", err)
	}
	steps, err := readNCFVar(f, StepVar)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("metflux: netcdf file has no records in variable %s; record dimensions are not supported", StepVar)
	}
	var resets []float64
	if a := f.Header.GetAttribute("", ResetAttr); a != nil {
		rr, ok := a.([]float64)
		if !ok {
			return nil, fmt.Errorf("metflux: netcdf attribute %s should be double but is %T", ResetAttr, a)
		}
		resets = append(resets, rr...)
	}

	o := make(map[string]*FieldSeries)
	for _, v := range f.Header.Variables() {
		dims := f.Header.Dimensions(v)
		if v == StepVar || len(dims) == 0 || dims[0] != TimeDim {
			continue
		}
		switch f.Header.ZeroValue(v, 0).(type) {
		case []float32, []float64:
		default:
			continue
		}
		data, err := readNCFVar(f, v)
		if err != nil {
			return nil, err
		}
		shape := f.Header.Lengths(v)[1:]
		if len(shape) == 0 {
			shape = []int{1}
		}
		n := 1
		for _, l := range shape {
			n *= l
		}
		s := &FieldSeries{
			Name:   v,
			Steps:  append([]float64(nil), steps...),
			Resets: resets,
			Values: make([]*sparse.DenseArray, len(steps)),
		}
		for t := range steps {
			a := sparse.ZerosDense(shape...)
			copy(a.Elements, data[t*n:(t+1)*n])
			s.Values[t] = a
		}
		if params != nil {
			if p, ok := params.Lookup(v); ok {
				p.Apply(s)
			}
		}
		if err := ncfSemantics(f.Header, v, s); err != nil {
			return nil, err
		}
		o[v] = s
	}
	return o, nil
}

// ncfSemantics applies the accumulation attributes of variable v to s.
func ncfSemantics(h *cdf.Header, v string, s *FieldSeries) error {
	if a := h.GetAttribute(v, AccumulationAttr); a != nil {
		str, ok := a.(string)
		if !ok {
			return fmt.Errorf("metflux: netcdf attribute %s:%s should be a string but is %T", v, AccumulationAttr, a)
		}
		k, err := ParseAccumulationKind(str)
		if err != nil {
			return fmt.Errorf("metflux: variable %s: %v", v, err)
		}
		s.Kind = k
	}
	if a := h.GetAttribute(v, NonNegativeAttr); a != nil {
		i, ok := a.([]int32)
		if !ok || len(i) != 1 {
			return fmt.Errorf("metflux: netcdf attribute %s:%s should be a single int", v, NonNegativeAttr)
		}
		s.NonNegative = i[0] != 0
	}
	if a := h.GetAttribute(v, "units"); a != nil && s.Units == "" {
		if u, ok := a.(string); ok {
			s.Units = u
		}
	}
	return nil
}

// readNCFVar reads all of variable v as float64.
func readNCFVar(f *cdf.File, v string) ([]float64, error) {
	dims := f.Header.Lengths(v)
	if dims == nil {
		return nil, fmt.Errorf("metflux: read netcdf: variable %v not in file", v)
	}
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	if nread == 0 {
		return nil, nil
	}
	r := f.Reader(v, nil, nil)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("metflux: read netcdf variable %s: %v", v, err)
	}
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		o := make([]float64, len(b))
		for i, val := range b {
			o[i] = float64(val)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("metflux: read netcdf variable %s: unsupported type %T", v, buf)
	}
}

// WriteDenseNCF writes the series in dense to a netCDF file. Each series
// NAME is written as the double variable NAME with dimensions
// time_NAME, NAME_0, NAME_1, ..., and the double variable step_NAME
// holding its steps.
func WriteDenseNCF(w cdf.ReaderWriterAt, dense map[string]*DenseSeries) error {
	if len(dense) == 0 {
		return fmt.Errorf("metflux: writing netcdf: no series to write")
	}
	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(dense))
	for n := range dense {
		names = append(names, n)
	}
	sort.Strings(names)

	var dimNames []string
	var dimLengths []int
	for _, name := range names {
		d := dense[name]
		if len(d.Values) == 0 {
			return fmt.Errorf("metflux: writing netcdf: series %s has no values", name)
		}
		dimNames = append(dimNames, "time_"+name)
		dimLengths = append(dimLengths, len(d.Values))
		for i, l := range d.Values[0].Shape {
			dimNames = append(dimNames, fmt.Sprintf("%s_%d", name, i))
			dimLengths = append(dimLengths, l)
		}
	}
	h := cdf.NewHeader(dimNames, dimLengths)
	h.AddAttribute("", "comment", "metflux disaggregated flux fields")
	h.AddAttribute("", "metflux_version", Version)
	for _, name := range names {
		d := dense[name]
		dims := []string{"time_" + name}
		for i := range d.Values[0].Shape {
			dims = append(dims, fmt.Sprintf("%s_%d", name, i))
		}
		h.AddVariable(name, dims, []float64{0})
		h.AddAttribute(name, AccumulationAttr, d.Kind.String())
		h.AddAttribute(name, "factor", []int32{int32(d.Factor)})
		if d.Units != "" {
			h.AddAttribute(name, "units", d.Units)
		}
		h.AddVariable("step_"+name, []string{"time_" + name}, []float64{0})
		h.AddAttribute("step_"+name, "units", "h")
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("metflux: writing netcdf header: %v", err)
	}
	for _, name := range names {
		d := dense[name]
		if err := writeNCF(f, name, d.Values); err != nil {
			return fmt.Errorf("metflux: writing variable %s to netcdf file: %v", name, err)
		}
		if err := writeNCFVar(f, "step_"+name, d.Steps); err != nil {
			return fmt.Errorf("metflux: writing steps of %s to netcdf file: %v", name, err)
		}
	}
	return nil
}

// writeNCF writes the records in data to variable v. Values are kept in
// double precision so that interval sums in the file hold to the
// engine's tolerance.
func writeNCF(f *cdf.File, v string, data []*sparse.DenseArray) error {
	var flat []float64
	for t, a := range data {
		if !sameShape(a, data[0]) {
			return &ShapeMismatchError{Series: v, Index: t, Want: data[0].Shape, Have: a.Shape}
		}
		flat = append(flat, a.Elements...)
	}
	return writeNCFVar(f, v, flat)
}

// writeNCFVar writes data to the whole extent of variable v. The writer
// needs explicit bounds; with nil bounds it reports io.EOF once the
// variable is full.
func writeNCFVar(f *cdf.File, v string, data interface{}) error {
	end := f.Header.Lengths(v)
	start := make([]int, len(end))
	w := f.Writer(v, start, end)
	_, err := w.Write(data)
	return err
}
