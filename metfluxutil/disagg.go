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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/metflux"
	"github.com/spf13/cobra"
)

// Disaggregate reads the fields in InputFile, disaggregates them to Factor
// sub-intervals per input interval (or to OutputResolution minutes if
// Factor is 0) and writes them to OutputFile.
//
// LogFile is the path to the desired logfile location. Log messages are
// written to it and to the output of CobraCommand.
//
// ParameterFile is an optional TOML file of parameters that are merged into
// the default parameter table.
//
// Instantaneous is the resampling mode of instantaneous fields,
// 'hold' or 'linear'.
//
// Workers is the maximum number of fields processed at once.
//
// If Rates is true, accumulated fields are written as mean rates per hour.
//
// DerivedVariables are additional fields calculated from expressions of
// the disaggregated fields.
//
// Tolerance is the relative tolerance of the conservation check.
//
// Fields that fail are logged and left out of OutputFile, and the returned
// error combines their errors. If every field fails, OutputFile is not
// written.
func Disaggregate(CobraCommand *cobra.Command, LogFile, InputFile, OutputFile, ParameterFile string,
	Factor int, OutputResolution float64, Instantaneous string, Workers int, Rates bool,
	DerivedVariables map[string]string, Tolerance float64) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("metflux: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(CobraCommand.OutOrStdout(), logfile)

	mode, err := metflux.ParseResampleMode(Instantaneous)
	if err != nil {
		return err
	}
	params, err := parameterTable(ParameterFile)
	if err != nil {
		return err
	}

	log.Infof("Reading fields from %s...", InputFile)
	in, err := os.Open(InputFile)
	if err != nil {
		return fmt.Errorf("metflux: opening input file: %v", err)
	}
	series, err := metflux.ReadSeriesNCF(in, params)
	in.Close()
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("metflux: there are no fields in %s", InputFile)
	}

	if Factor == 0 {
		Factor, err = factorFromResolution(series, OutputResolution)
		if err != nil {
			return err
		}
	}
	log.Infof("Disaggregating %d fields with subdivision factor %d...", len(series), Factor)

	o := &metflux.Orchestrator{
		Factor:        Factor,
		Instantaneous: mode,
		Workers:       Workers,
		Tolerance:     Tolerance,
		Log:           log,
	}
	r := o.Run(context.Background(), series)
	logStats(log, r)
	if len(r.Dense) == 0 {
		log.Errorf("no fields could be disaggregated; %s was not written", OutputFile)
		return r.Err()
	}

	dense := r.Dense
	if len(DerivedVariables) > 0 {
		log.Infoln("Calculating derived variables...")
		derived, err := metflux.Derive(r.Dense, DerivedVariables)
		if err != nil {
			return err
		}
		for name, d := range derived {
			dense[name] = d
		}
	}
	if Rates {
		for _, d := range dense {
			if d.Kind == metflux.Instantaneous {
				continue
			}
			d.Values = d.Rates()
			d.Units = rateUnits(d.Units)
		}
	}

	log.Infof("Writing %d fields to %s...", len(dense), OutputFile)
	w, err := os.Create(OutputFile)
	if err != nil {
		return fmt.Errorf("metflux: creating output file: %v", err)
	}
	if err := metflux.WriteDenseNCF(w, dense); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("metflux: closing output file: %v", err)
	}

	log.Infof("metflux completed successfully in %v.", time.Since(startTime))
	return r.Err()
}

// logStats logs how each field in r was processed.
func logStats(log logrus.FieldLogger, r *metflux.Result) {
	names := make([]string, 0, len(r.Stats))
	for n := range r.Stats {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := r.Stats[n]
		log.WithFields(logrus.Fields{
			"series":     n,
			"method":     s.Method,
			"clamped":    s.DeaccumulationClamped + s.Clamped,
			"degenerate": s.Degenerate,
		}).Info("processed field")
	}
	if len(r.Errors) > 0 {
		log.Warnf("%d of %d fields failed", len(r.Errors), len(r.Errors)+len(r.Dense))
	}
}
