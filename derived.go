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
	"math"
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// derivedFunctions are the functions available in derived variable
// expressions.
var derivedFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(arg ...interface{}) (interface{}, error) {
		x, err := numericArgs("abs", 1, arg)
		if err != nil {
			return nil, err
		}
		return math.Abs(x[0]), nil
	},
	"max": func(arg ...interface{}) (interface{}, error) {
		x, err := numericArgs("max", 2, arg)
		if err != nil {
			return nil, err
		}
		return math.Max(x[0], x[1]), nil
	},
	"min": func(arg ...interface{}) (interface{}, error) {
		x, err := numericArgs("min", 2, arg)
		if err != nil {
			return nil, err
		}
		return math.Min(x[0], x[1]), nil
	},
}

// numericArgs checks that arg holds n numbers for function fn.
func numericArgs(fn string, n int, arg []interface{}) ([]float64, error) {
	if len(arg) != n {
		return nil, fmt.Errorf("metflux: got %d arguments for function '%s', but needs %d", len(arg), fn, n)
	}
	o := make([]float64, n)
	for i, a := range arg {
		f, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("metflux: argument %d of function '%s' is %T rather than a number", i+1, fn, a)
		}
		o[i] = f
	}
	return o, nil
}

// Derive calculates new series from element-wise expressions of the
// series in dense, for example {"TP": "LSP + CP"} for total
// precipitation. All series used in one expression must have the same
// steps and shape. The derived series take their kind, units and factor
// from the first variable (alphabetically) in the expression. The input
// series are not modified.
func Derive(dense map[string]*DenseSeries, exprs map[string]string) (map[string]*DenseSeries, error) {
	names := make([]string, 0, len(exprs))
	for n := range exprs {
		names = append(names, n)
	}
	sort.Strings(names)

	o := make(map[string]*DenseSeries, len(exprs))
	for _, name := range names {
		if _, ok := dense[name]; ok {
			return nil, fmt.Errorf("metflux: derived variable %s has the same name as an existing series", name)
		}
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(exprs[name], derivedFunctions)
		if err != nil {
			return nil, fmt.Errorf("metflux: derived variable %s: %v", name, err)
		}
		vars := uniqueStrings(expression.Vars())
		if len(vars) == 0 {
			return nil, fmt.Errorf("metflux: derived variable %s doesn't use any series", name)
		}
		inputs := make([]*DenseSeries, len(vars))
		for i, v := range vars {
			d, ok := dense[v]
			if !ok {
				return nil, fmt.Errorf("metflux: derived variable %s: series %s is not available", name, v)
			}
			if i > 0 {
				if err := sameLayout(inputs[0], d); err != nil {
					return nil, fmt.Errorf("metflux: derived variable %s: %v", name, err)
				}
			}
			inputs[i] = d
		}

		first := inputs[0]
		out := &DenseSeries{
			Name:   name,
			Units:  first.Units,
			Kind:   first.Kind,
			Factor: first.Factor,
			Start:  first.Start,
			Steps:  append([]float64(nil), first.Steps...),
			Values: make([]*sparse.DenseArray, len(first.Values)),
		}
		params := make(map[string]interface{}, len(vars))
		for j := range first.Values {
			a := sparse.ZerosDense(first.Values[j].Shape...)
			for e := range a.Elements {
				for i, v := range vars {
					params[v] = inputs[i].Values[j].Elements[e]
				}
				r, err := expression.Evaluate(params)
				if err != nil {
					return nil, fmt.Errorf("metflux: evaluating derived variable %s: %v", name, err)
				}
				f, ok := r.(float64)
				if !ok {
					return nil, fmt.Errorf("metflux: derived variable %s evaluates to %T rather than a number", name, r)
				}
				a.Elements[e] = f
			}
			out.Values[j] = a
		}
		o[name] = out
	}
	return o, nil
}

// sameLayout checks whether a and b have the same steps and shapes.
func sameLayout(a, b *DenseSeries) error {
	if len(a.Values) != len(b.Values) {
		return fmt.Errorf("series %s has %d values but %s has %d", a.Name, len(a.Values), b.Name, len(b.Values))
	}
	for j, s := range a.Steps {
		if b.Steps[j] != s {
			return fmt.Errorf("series %s and %s have different steps", a.Name, b.Name)
		}
	}
	for j, v := range a.Values {
		if !sameShape(v, b.Values[j]) {
			return fmt.Errorf("series %s and %s have different shapes", a.Name, b.Name)
		}
	}
	return nil
}

func uniqueStrings(s []string) []string {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[v] = struct{}{}
	}
	o := make([]string, 0, len(m))
	for v := range m {
		o = append(o, v)
	}
	sort.Strings(o)
	return o
}
