/*
Copyright © 2026 the microgrid authors.
This file is part of microgrid.

microgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

microgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with microgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

//go:build !highs

package milp

import (
	"context"

	"github.com/sirupsen/logrus"
)

// HiGHSAvailable reports whether the HiGHS backend is compiled in.
const HiGHSAvailable = false

// HiGHS is the HiGHS backend. This binary was built without it, so Solve
// always fails with ErrNoHiGHS.
type HiGHS struct {
	Log logrus.FieldLogger
}

// Solve returns ErrNoHiGHS.
func (h *HiGHS) Solve(context.Context, *Problem, Options) (*Solution, error) {
	return nil, ErrNoHiGHS
}
