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

package milp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the termination status of a solve.
type Status int

// Solve statuses.
const (
	// Optimal means a solution proven optimal within the requested gap.
	Optimal Status = iota
	// Feasible means a limit was reached while an integer-feasible
	// incumbent was available.
	Feasible
	Infeasible
	Unbounded
	// TimeLimit means a limit was reached without any feasible solution.
	TimeLimit
	Numerical
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case TimeLimit:
		return "time_limit"
	case Numerical:
		return "numerical"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// HasSolution reports whether a solve with status s produced values.
func (s Status) HasSolution() bool { return s == Optimal || s == Feasible }

// Options control a solve.
type Options struct {
	// Tolerance is the feasibility and optimality tolerance of the
	// LP relaxations.
	Tolerance float64

	// IntegralityTolerance is the distance from an integer within which
	// an integer variable counts as integral.
	IntegralityTolerance float64

	// MIPGap is the relative gap between incumbent and best bound at
	// which branch-and-bound stops.
	MIPGap float64

	// TimeLimit bounds the wall-clock time of the solve. Zero means no limit.
	TimeLimit time.Duration

	// MaxNodes bounds the number of branch-and-bound nodes. Zero means no limit.
	MaxNodes int

	// WarmStart is an optional starting point indexed by Var. It is used
	// as the initial incumbent if it is feasible.
	WarmStart []float64

	// MIPFocus and BarrierTolerance are backend hints. Backends that do
	// not support them log and ignore them.
	MIPFocus         int
	BarrierTolerance float64
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Tolerance:            1e-9,
		IntegralityTolerance: 1e-6,
		MIPGap:               1e-4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = d.IntegralityTolerance
	}
	if o.MIPGap < 0 {
		o.MIPGap = d.MIPGap
	}
	return o
}

// Solution is the outcome of a solve.
type Solution struct {
	Status    Status
	Objective float64

	// X holds variable values indexed by Var. It is nil unless
	// Status.HasSolution() is true.
	X []float64

	// Bound is the best proven lower bound on the objective.
	Bound float64

	// Nodes is the number of branch-and-bound nodes explored.
	Nodes int

	// Conflicts lists the constraint families found to be in direct
	// conflict during presolve, if any.
	Conflicts []string

	Elapsed time.Duration
}

// Value returns the value of v.
func (s *Solution) Value(v Var) float64 { return s.X[v] }

// Eval evaluates e at the solution.
func (s *Solution) Eval(e LinExpr) float64 { return e.Eval(s.X) }

// Gap returns the relative gap between the objective and the best bound.
func (s *Solution) Gap() float64 { return relGap(s.Objective, s.Bound) }

// ErrNoHiGHS is returned by the HiGHS backend in binaries built without it.
var ErrNoHiGHS = errors.New("milp: built without HiGHS support; rebuild with the highs build tag")

// A Solver solves problems.
type Solver interface {
	Solve(ctx context.Context, p *Problem, o Options) (*Solution, error)
}

// Simplex solves problems with a bounded primal simplex method on a dense
// tableau, using branch-and-bound for integer variables. It stops at the
// next pivot once the context is done or the time limit has passed.
type Simplex struct {
	Log logrus.FieldLogger
}

func (s *Simplex) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Solve solves p. Infeasible, unbounded and limit outcomes are reported
// through the Status of the returned solution; a non-nil error is returned
// only if the backend fails.
func (s *Simplex) Solve(ctx context.Context, p *Problem, o Options) (*Solution, error) {
	o = o.withDefaults()
	start := time.Now()
	if o.MIPFocus != 0 || o.BarrierTolerance != 0 {
		s.log().WithFields(logrus.Fields{
			"mip_focus":         o.MIPFocus,
			"barrier_tolerance": o.BarrierTolerance,
		}).Debug("milp: solver hints not supported by the simplex backend; ignoring")
	}
	if o.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.TimeLimit)
		defer cancel()
	}
	var sol *Solution
	var err error
	if p.IsMIP() {
		sol, err = s.branchAndBound(ctx, p, o)
	} else {
		lb, ub := p.bounds()
		r := relax(ctx, p, lb, ub, o)
		sol = &Solution{Status: r.status, Objective: r.obj, Bound: r.obj, X: r.x, Conflicts: r.conflicts}
		err = r.err
	}
	if sol != nil {
		sol.Elapsed = time.Since(start)
	}
	return sol, err
}

func (p *Problem) bounds() (lb, ub []float64) {
	lb = make([]float64, len(p.vars))
	ub = make([]float64, len(p.vars))
	for i, v := range p.vars {
		lb[i], ub[i] = v.lb, v.ub
	}
	return lb, ub
}
