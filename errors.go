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

import "fmt"

// InsufficientDataError is returned when a series has too few usable
// samples or increments to determine any neighbors.
type InsufficientDataError struct {
	Series string

	// Usable is the number of usable samples (for Instantaneous series)
	// or increments (for accumulated kinds) that were found.
	Usable int

	// Need is the minimum number required.
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("metflux: series %s has %d usable values but at least %d are required",
		e.Series, e.Usable, e.Need)
}

// ShapeMismatchError is returned when the arrays within a series do not
// all have the same shape.
type ShapeMismatchError struct {
	Series string

	// Index is the position of the offending array.
	Index int

	Want, Have []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("metflux: series %s: array %d has shape %v but %v was expected",
		e.Series, e.Index, e.Have, e.Want)
}

// ConservationError indicates that the disaggregated sub-interval values
// did not reproduce the increment of an interval. It signals a bug rather
// than bad input.
type ConservationError struct {
	Series string

	// Interval and Element locate the failure.
	Interval, Element int

	Want, Have float64
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("metflux: series %s interval %d element %d: sub-interval values sum to %g but the increment is %g",
		e.Series, e.Interval, e.Element, e.Have, e.Want)
}

// InvalidSeriesError is returned for series that are structurally invalid,
// for example because their steps are not strictly increasing.
type InvalidSeriesError struct {
	Series, Reason string
}

func (e *InvalidSeriesError) Error() string {
	return fmt.Sprintf("metflux: invalid series %s: %s", e.Series, e.Reason)
}
