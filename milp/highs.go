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

//go:build highs

package milp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lanl/highs"
	"github.com/sirupsen/logrus"
)

// HiGHSAvailable reports whether the HiGHS backend is compiled in.
const HiGHSAvailable = true

// HiGHS solves problems with the HiGHS library through cgo. The problem
// is passed as a sparse matrix, so it is the backend for full-year
// horizons. A running solve cannot be cancelled; the context deadline is
// passed on as the HiGHS time limit instead.
type HiGHS struct {
	Log logrus.FieldLogger
}

func (h *HiGHS) log() logrus.FieldLogger {
	if h.Log == nil {
		return logrus.StandardLogger()
	}
	return h.Log
}

// highsModel converts p into the HiGHS column and row bound format.
func (p *Problem) highsModel() *highs.Model {
	n := len(p.vars)
	m := &highs.Model{
		ColCosts: make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
		VarTypes: make([]highs.VariableType, n),
		Offset:   p.obj.Constant,
	}
	for _, t := range p.obj.Terms {
		m.ColCosts[t.Var] += t.Coef
	}
	for j, v := range p.vars {
		m.ColLower[j], m.ColUpper[j] = v.lb, v.ub
		m.VarTypes[j] = highs.ContinuousType
		if v.typ != Continuous {
			m.VarTypes[j] = highs.IntegerType
		}
	}
	for i, c := range p.cons {
		lo, hi := math.Inf(-1), math.Inf(1)
		switch c.Sense {
		case LessEq:
			hi = c.Rhs
		case GreaterEq:
			lo = c.Rhs
		case Equal:
			lo, hi = c.Rhs, c.Rhs
		}
		m.RowLower = append(m.RowLower, lo)
		m.RowUpper = append(m.RowUpper, hi)
		for _, t := range c.Expr.Merged().Terms {
			m.ConstMatrix = append(m.ConstMatrix, highs.Nonzero{Row: i, Col: int(t.Var), Val: t.Coef})
		}
	}
	return m
}

// optionSetter records the first error of a sequence of option calls.
type optionSetter struct {
	raw *highs.RawModel
	err error
}

func (s *optionSetter) setFloat(name string, v float64) {
	if s.err == nil {
		s.err = s.raw.SetFloatOption(name, v)
	}
}

func (s *optionSetter) setInt(name string, v int) {
	if s.err == nil {
		s.err = s.raw.SetIntOption(name, v)
	}
}

func (s *optionSetter) setBool(name string, v bool) {
	if s.err == nil {
		s.err = s.raw.SetBoolOption(name, v)
	}
}

// Solve solves p with HiGHS.
func (h *HiGHS) Solve(ctx context.Context, p *Problem, o Options) (*Solution, error) {
	o = o.withDefaults()
	start := time.Now()
	if ctx.Err() != nil {
		return &Solution{Status: TimeLimit}, nil
	}
	if o.MIPFocus != 0 || o.BarrierTolerance != 0 || o.WarmStart != nil {
		h.log().WithFields(logrus.Fields{
			"mip_focus":         o.MIPFocus,
			"barrier_tolerance": o.BarrierTolerance,
			"warm_start":        o.WarmStart != nil,
		}).Debug("milp: solver hints not supported by the HiGHS backend; ignoring")
	}
	raw, err := p.highsModel().ToRawModel()
	if err != nil {
		return &Solution{Status: Numerical}, fmt.Errorf("milp: highs: %v", err)
	}
	limit := o.TimeLimit
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); limit <= 0 || d < limit {
			limit = d
		}
	}
	set := &optionSetter{raw: raw}
	set.setBool("output_flag", false)
	set.setFloat("primal_feasibility_tolerance", math.Max(o.Tolerance, 1e-10))
	set.setFloat("dual_feasibility_tolerance", math.Max(o.Tolerance, 1e-10))
	set.setFloat("mip_feasibility_tolerance", o.IntegralityTolerance)
	set.setFloat("mip_rel_gap", o.MIPGap)
	if limit > 0 {
		set.setFloat("time_limit", limit.Seconds())
	}
	if o.MaxNodes > 0 {
		set.setInt("mip_max_nodes", o.MaxNodes)
	}
	if set.err != nil {
		return &Solution{Status: Numerical}, fmt.Errorf("milp: highs options: %v", set.err)
	}

	hs, err := raw.Solve()
	if err != nil {
		return &Solution{Status: Numerical}, fmt.Errorf("milp: highs: %v", err)
	}
	sol := &Solution{Elapsed: time.Since(start)}
	usable := len(hs.ColumnPrimal) == len(p.vars) &&
		p.integral(hs.ColumnPrimal, o.IntegralityTolerance) &&
		len(p.Check(hs.ColumnPrimal, 1e-6)) == 0
	switch hs.Status {
	case highs.Optimal:
		sol.Status = Optimal
	case highs.Infeasible, highs.UnboundedOrInfeasible:
		sol.Status = Infeasible
		return sol, nil
	case highs.Unbounded:
		sol.Status = Unbounded
		return sol, nil
	case highs.TimeLimit, highs.IterationLimit, highs.SolutionLimit, highs.Interrupt:
		if !usable {
			sol.Status = TimeLimit
			return sol, nil
		}
		sol.Status = Feasible
	default:
		sol.Status = Numerical
		return sol, fmt.Errorf("milp: highs model status %v", hs.Status)
	}
	if !usable {
		sol.Status = Numerical
		return sol, fmt.Errorf("milp: highs returned an infeasible point with status %v", hs.Status)
	}
	sol.X = append([]float64(nil), hs.ColumnPrimal...)
	p.roundIntegers(sol.X)
	sol.Objective = p.obj.Eval(sol.X)
	sol.Bound = sol.Objective
	if sol.Status == Feasible {
		sol.Bound = math.Inf(-1)
	}
	return sol, nil
}
