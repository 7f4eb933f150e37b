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
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Orchestrator disaggregates batches of series to a finer time
// resolution. It keeps no state between batches.
type Orchestrator struct {
	// Factor is the number of sub-intervals each input interval is
	// divided into.
	Factor int

	// Instantaneous specifies how Instantaneous series are resampled.
	Instantaneous ResampleMode

	// Workers is the maximum number of series processed at once.
	// If it is < 1, runtime.GOMAXPROCS(0) is used.
	Workers int

	// Tolerance is the relative tolerance of the conservation check.
	// If it is 0, DefaultTolerance is used.
	Tolerance float64

	// Log receives progress and data quality messages. If it is nil,
	// logrus.StandardLogger() is used.
	Log logrus.FieldLogger
}

// SeriesStats describes how a series was processed.
type SeriesStats struct {
	// Method is "resample", "polynomial" or "rain".
	Method string

	// DeaccumulationClamped and DeaccumulationClampedAmount count the
	// negative increments of NonNegative series that were set to zero
	// during deaccumulation, and the amount that was discarded.
	DeaccumulationClamped       int
	DeaccumulationClampedAmount float64

	// Clamped and Degenerate are copied from the Disaggregation.
	Clamped, Degenerate int
}

// Result is the outcome of disaggregating a batch. A series appears in
// either Dense or Errors, never both.
type Result struct {
	Dense  map[string]*DenseSeries
	Errors map[string]error
	Stats  map[string]SeriesStats
}

// Err returns the combination of all per-series errors in order of
// series name, or nil if every series succeeded.
func (r *Result) Err() error {
	names := make([]string, 0, len(r.Errors))
	for n := range r.Errors {
		names = append(names, n)
	}
	sort.Strings(names)
	var err error
	for _, n := range names {
		err = multierr.Append(err, r.Errors[n])
	}
	return err
}

// Run disaggregates every series in batch. Series are independent, so
// they are processed concurrently, and a failure of one series does not
// affect the others. If ctx is cancelled, any series that has not yet
// been started is reported with the context's error.
func (o *Orchestrator) Run(ctx context.Context, batch map[string]*FieldSeries) *Result {
	log := o.logger()
	names := make([]string, 0, len(batch))
	for n := range batch {
		names = append(names, n)
	}
	sort.Strings(names)

	type outcome struct {
		dense *DenseSeries
		stats SeriesStats
		err   error
	}
	outcomes := make([]outcome, len(names))

	workers := o.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].err = fmt.Errorf("metflux: series %s: %v", name, err)
				return nil
			}
			d, stats, err := o.Series(batch[name])
			outcomes[i] = outcome{dense: d, stats: stats, err: err}
			return nil
		})
	}
	g.Wait() // Tasks never return errors.

	r := &Result{
		Dense:  make(map[string]*DenseSeries),
		Errors: make(map[string]error),
		Stats:  make(map[string]SeriesStats),
	}
	for i, name := range names {
		oc := outcomes[i]
		if oc.err != nil {
			log.WithFields(logrus.Fields{"series": name}).Errorf("disaggregation failed: %v", oc.err)
			r.Errors[name] = oc.err
			continue
		}
		r.Dense[name] = oc.dense
		r.Stats[name] = oc.stats
	}
	return r
}

// Series disaggregates a single series. Instantaneous series are
// resampled, NonNegative series use the MonotoneRainDisaggregator, and
// all others use the PolynomialDisaggregator.
func (o *Orchestrator) Series(s *FieldSeries) (*DenseSeries, SeriesStats, error) {
	var stats SeriesStats
	if s == nil {
		return nil, stats, fmt.Errorf("metflux: nil series")
	}
	if o.Factor < 1 {
		return nil, stats, fmt.Errorf("metflux: subdivision factor must be at least 1 but is %d", o.Factor)
	}
	log := o.logger().WithFields(logrus.Fields{"series": s.Name, "kind": s.Kind})

	if s.Kind == Instantaneous {
		stats.Method = "resample"
		d, err := Resample(s, o.Factor, o.Instantaneous)
		if err != nil {
			return nil, stats, err
		}
		log.Debugf("resampled %d values to %d", len(s.Values), len(d.Values))
		return d, stats, nil
	}

	deacc, err := Deaccumulate(s)
	if err != nil {
		return nil, stats, err
	}
	stats.DeaccumulationClamped = deacc.Clamped
	stats.DeaccumulationClampedAmount = deacc.ClampedAmount
	if deacc.Clamped > 0 {
		log.WithFields(logrus.Fields{"clamped": deacc.Clamped}).
			Warnf("clamped negative increments totaling %g to zero", deacc.ClampedAmount)
	}

	var da Disaggregator = PolynomialDisaggregator{}
	stats.Method = "polynomial"
	if s.NonNegative {
		da = MonotoneRainDisaggregator{}
		stats.Method = "rain"
	}
	dis, err := da.Disaggregate(s.Name, s.Steps, deacc.Increments, o.Factor)
	if err != nil {
		return nil, stats, err
	}
	stats.Clamped = dis.Clamped
	stats.Degenerate = dis.Degenerate
	if dis.Degenerate > 0 {
		log.Warnf("%d interval elements had no positive candidate values", dis.Degenerate)
	}
	if err := checkConservation(s.Name, dis.Increments, dis, o.tolerance()); err != nil {
		return nil, stats, err
	}

	d := &DenseSeries{
		Name:   s.Name,
		Units:  s.Units,
		Kind:   s.Kind,
		Factor: o.Factor,
		Start:  s.Steps[0],
		Values: make([]*sparse.DenseArray, 0, len(dis.Groups)*o.Factor),
		Steps:  make([]float64, 0, len(dis.Groups)*o.Factor),
	}
	for k, group := range dis.Groups {
		d.Values = append(d.Values, group...)
		d.Steps = append(d.Steps, dis.Steps[k]...)
	}
	log.Debugf("disaggregated %d intervals into %d values using %s method",
		len(dis.Groups), len(d.Values), stats.Method)
	return d, stats, nil
}

// checkConservation makes sure that the sub-interval values of every
// interval sum to its increment.
func checkConservation(name string, incs []*sparse.DenseArray, d *Disaggregation, tolerance float64) error {
	vals := make([]float64, 0, 8)
	for k, group := range d.Groups {
		for e, want := range incs[k].Elements {
			vals = vals[:0]
			for _, g := range group {
				vals = append(vals, g.Elements[e])
			}
			have := floats.Sum(vals)
			if !floats.EqualWithinAbsOrRel(have, want, tolerance*absSum(vals), tolerance) {
				return &ConservationError{Series: name, Interval: k, Element: e, Want: want, Have: have}
			}
		}
	}
	return nil
}

func (o *Orchestrator) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

func (o *Orchestrator) tolerance() float64 {
	if o.Tolerance == 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}
