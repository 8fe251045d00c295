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

package microgrid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spatialmodel/microgrid/milp"
)

// Error kinds. Errors returned by this package wrap exactly one of these,
// so callers can test for them with errors.Is.
var (
	// ErrConfiguration is returned when switches are inconsistent with each
	// other or with the supplied parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrShape is returned when an array parameter has the wrong dimensions.
	ErrShape = errors.New("shape error")

	// ErrParameterRange is returned when a parameter is outside of its
	// physical range.
	ErrParameterRange = errors.New("parameter range error")

	// ErrInfeasible is returned when the model has no solution or its
	// objective is unbounded, which means a cost or limit is missing.
	ErrInfeasible    = errors.New("infeasible")
	ErrSolverTimeout = errors.New("solver timeout")

	// ErrNumerical covers backend failures and non-finite objectives.
	ErrNumerical = errors.New("numerical error")
)

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("microgrid: %w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func shapeErr(name string, have, want []int) error {
	return fmt.Errorf("microgrid: %w: %s has dimensions %v, want %v", ErrShape, name, have, want)
}

func rangeErr(format string, args ...interface{}) error {
	return fmt.Errorf("microgrid: %w: %s", ErrParameterRange, fmt.Sprintf(format, args...))
}

// SolverError is returned when a solve does not produce a usable solution.
type SolverError struct {
	// Kind is ErrInfeasible, ErrSolverTimeout or ErrNumerical.
	Kind   error
	Status milp.Status

	// Families lists the constraint families implicated in an infeasibility.
	Families []string

	// Err is the underlying backend error, if any.
	Err error
}

func (e *SolverError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "microgrid: %v (solver status %s)", e.Kind, e.Status)
	if len(e.Families) > 0 {
		fmt.Fprintf(&b, "; implicated constraint families: %s", strings.Join(e.Families, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the error kind.
func (e *SolverError) Unwrap() error { return e.Kind }

// statusError converts an unsuccessful solve into an error.
func statusError(sol *milp.Solution, err error) error {
	if sol == nil {
		return &SolverError{Kind: ErrNumerical, Status: milp.Numerical, Err: err}
	}
	se := &SolverError{Status: sol.Status, Families: sol.Conflicts, Err: err}
	switch sol.Status {
	case milp.Infeasible, milp.Unbounded:
		se.Kind = ErrInfeasible
	case milp.TimeLimit:
		se.Kind = ErrSolverTimeout
	default:
		se.Kind = ErrNumerical
	}
	return se
}
