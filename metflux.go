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

// Package metflux prepares flux-type meteorological fields for a Lagrangian
// particle dispersion model. Archived forecast fields of precipitation,
// radiation and surface fluxes are usually stored as running totals over
// coarse time steps; metflux converts them into per-interval increments
// and then reconstructs densely time-resolved sub-interval values that
// conserve each interval's integrated total exactly. Precipitation-like
// fields are additionally guaranteed to never become negative.
//
// Field values are held in github.com/ctessum/sparse dense arrays; every
// algorithm works element-wise with no spatial coupling, so scalar series
// are simply one-element arrays.
package metflux

// Version gives the version number.
const Version = "0.3.0"

// DefaultTolerance is the relative tolerance used to check that the
// disaggregated values reproduce each interval's increment.
const DefaultTolerance = 1.0e-9
