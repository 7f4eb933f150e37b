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

package metfluxutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/metflux"
	"github.com/spf13/cast"
)

// checkInputFile makes sure that the input file is specified and exists,
// and expands any environment variables.
func checkInputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an input file configuration variable (for example: InputFile="fluxes.nc")`)
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(f); err != nil {
		return f, fmt.Errorf("metflux: the InputFile doesn't exist: %v", err)
	}
	return f, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("metflux: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// checkDerivedVars removes end lines and expands environment
// variables in the derived variable expressions.
func checkDerivedVars(vars map[string]string) (map[string]string, error) {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		k = strings.TrimSpace(os.ExpandEnv(k))
		if k == "" {
			return nil, fmt.Errorf("metflux: derived variable with expression '%s' has no name", v)
		}
		o[k] = os.ExpandEnv(v)
	}
	return o, nil
}

// factorFromResolution calculates the subdivision factor that divides the
// shortest input interval of the series into sub-intervals of the given
// resolution [minutes].
func factorFromResolution(series map[string]*metflux.FieldSeries, resolution float64) (int, error) {
	if !(resolution > 0) {
		return 0, fmt.Errorf("metflux: OutputResolution must be > 0 but is %g", resolution)
	}
	shortest := math.Inf(1)
	for _, s := range series {
		for i := 1; i < len(s.Steps); i++ {
			shortest = math.Min(shortest, s.Steps[i]-s.Steps[i-1])
		}
	}
	if math.IsInf(shortest, 1) {
		return 0, fmt.Errorf("metflux: can't calculate the subdivision factor because no field has more than one step")
	}
	f := shortest * 60 / resolution
	n := math.Round(f)
	if n < 1 || math.Abs(f-n) > 1.0e-6*n {
		return 0, fmt.Errorf("metflux: the shortest input interval (%g h) is not a whole multiple of OutputResolution (%g minutes)",
			shortest, resolution)
	}
	return int(n), nil
}

// rateUnits returns the units of a mean rate per hour of a quantity
// with units u.
func rateUnits(u string) string {
	switch {
	case u == "":
		return ""
	case strings.HasSuffix(u, " h"):
		return strings.TrimSuffix(u, " h")
	default:
		return u + " h-1"
	}
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		b := bytes.NewBufferString(v)
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("metflux: configuration variable %s is not a valid JSON object of strings: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("metflux: invalid type for configuration variable %s: %#v", varName, i)
	}
}
