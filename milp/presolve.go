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
	"math"
	"sort"
)

// presolve tightens variable bounds from singleton rows, removes rows
// whose feasibility no longer depends on the remaining variables and fixes
// variables that appear in no row at their cost-optimal bound.
type presolve struct {
	p            *Problem
	lb, ub       []float64
	lbSrc, ubSrc []string
	fixed        []bool
	active       []bool
	feasTol      float64
	intTol       float64

	status    Status
	conflicts []string
}

const presolvePasses = 50

func newPresolve(p *Problem, lb, ub []float64, o Options) *presolve {
	n := len(p.vars)
	ps := &presolve{
		p:       p,
		lb:      append([]float64(nil), lb...),
		ub:      append([]float64(nil), ub...),
		lbSrc:   make([]string, n),
		ubSrc:   make([]string, n),
		fixed:   make([]bool, n),
		active:  make([]bool, len(p.cons)),
		feasTol: math.Max(o.Tolerance, 1e-7),
		intTol:  o.IntegralityTolerance,
		status:  Optimal,
	}
	for i := range ps.active {
		ps.active[i] = true
	}
	return ps
}

// run performs presolve. On return ps.status is Optimal if the reduced
// problem still needs to be solved, or Infeasible or Unbounded.
func (ps *presolve) run() {
	for j := range ps.lb {
		if ps.p.vars[j].typ != Continuous {
			ps.roundInt(j)
		}
		if !ps.checkBounds(j, "bounds") {
			return
		}
	}
	for pass := 0; pass < presolvePasses; pass++ {
		changed := false
		for i, c := range ps.p.cons {
			if !ps.active[i] {
				continue
			}
			ch, ok := ps.row(i, c)
			if !ok {
				return
			}
			changed = changed || ch
		}
		if !changed {
			break
		}
	}
	ps.columns()
}

// residual returns the terms of c over variables that are not fixed and
// the right-hand side with fixed variables moved over.
func (ps *presolve) residual(c Constraint) ([]Term, float64) {
	rhs := c.Rhs
	var terms []Term
	for _, t := range c.Expr.Terms {
		if ps.fixed[t.Var] {
			rhs -= t.Coef * ps.lb[t.Var]
			continue
		}
		terms = append(terms, t)
	}
	return terms, rhs
}

func (ps *presolve) row(i int, c Constraint) (changed, ok bool) {
	terms, rhs := ps.residual(c)
	tol := ps.feasTol * math.Max(1, math.Abs(c.Rhs))
	switch len(terms) {
	case 0:
		var viol bool
		switch c.Sense {
		case LessEq:
			viol = 0 > rhs+tol
		case GreaterEq:
			viol = 0 < rhs-tol
		case Equal:
			viol = math.Abs(rhs) > tol
		}
		if viol {
			ps.conflict(c.Family, c.Expr.Terms)
			return false, false
		}
		ps.active[i] = false
		return true, true
	case 1:
		t := terms[0]
		v := rhs / t.Coef
		s := c.Sense
		if t.Coef < 0 && s != Equal {
			if s == LessEq {
				s = GreaterEq
			} else {
				s = LessEq
			}
		}
		j := int(t.Var)
		if s == LessEq || s == Equal {
			if v < ps.ub[j] {
				ps.ub[j] = v
				ps.ubSrc[j] = c.Family
			}
		}
		if s == GreaterEq || s == Equal {
			if v > ps.lb[j] {
				ps.lb[j] = v
				ps.lbSrc[j] = c.Family
			}
		}
		if ps.p.vars[j].typ != Continuous {
			ps.roundInt(j)
		}
		ps.active[i] = false
		if !ps.checkBounds(j, c.Family) {
			return false, false
		}
		return true, true
	}
	minAct, maxAct := ps.activity(terms)
	if (c.Sense == LessEq || c.Sense == Equal) && minAct > rhs+tol ||
		(c.Sense == GreaterEq || c.Sense == Equal) && maxAct < rhs-tol {
		ps.conflict(c.Family, terms)
		return false, false
	}
	switch {
	case c.Sense != GreaterEq && !math.IsInf(minAct, 0) && minAct >= rhs-tol:
		// Forcing row: every variable sits at the bound of least activity.
		ps.force(terms, true)
	case c.Sense != LessEq && !math.IsInf(maxAct, 0) && maxAct <= rhs+tol:
		ps.force(terms, false)
	case c.Sense == LessEq && maxAct <= rhs, c.Sense == GreaterEq && minAct >= rhs:
	default:
		return false, true
	}
	ps.active[i] = false
	return true, true
}

// force fixes the variables of terms at the bounds that minimise (or
// maximise) the row activity.
func (ps *presolve) force(terms []Term, minimise bool) {
	for _, t := range terms {
		j := t.Var
		if (t.Coef > 0) == minimise {
			ps.ub[j] = ps.lb[j]
		} else {
			ps.lb[j] = ps.ub[j]
		}
		ps.fixed[j] = true
	}
}

func (ps *presolve) activity(terms []Term) (minAct, maxAct float64) {
	for _, t := range terms {
		lo, hi := t.Coef*ps.lb[t.Var], t.Coef*ps.ub[t.Var]
		if t.Coef < 0 {
			lo, hi = hi, lo
		}
		minAct += lo
		maxAct += hi
	}
	return minAct, maxAct
}

func (ps *presolve) roundInt(j int) {
	if !math.IsInf(ps.lb[j], 0) {
		ps.lb[j] = math.Ceil(ps.lb[j] - ps.intTol)
	}
	if !math.IsInf(ps.ub[j], 0) {
		ps.ub[j] = math.Floor(ps.ub[j] + ps.intTol)
	}
}

// checkBounds validates the bounds of variable j after they were changed
// by family, fixing the variable if they coincide.
func (ps *presolve) checkBounds(j int, family string) bool {
	lb, ub := ps.lb[j], ps.ub[j]
	tol := ps.feasTol * math.Max(1, math.Abs(lb))
	if lb > ub+tol {
		ps.status = Infeasible
		ps.addConflict(family, ps.lbSrc[j], ps.ubSrc[j])
		return false
	}
	if ub-lb <= tol {
		if math.IsInf(lb, 0) {
			return true
		}
		ps.ub[j] = lb
		ps.fixed[j] = true
	}
	return true
}

func (ps *presolve) conflict(family string, terms []Term) {
	ps.status = Infeasible
	ps.addConflict(family)
	for _, t := range terms {
		ps.addConflict(ps.lbSrc[t.Var], ps.ubSrc[t.Var])
	}
}

func (ps *presolve) addConflict(families ...string) {
	for _, f := range families {
		if f == "" {
			continue
		}
		dup := false
		for _, g := range ps.conflicts {
			if g == f {
				dup = true
				break
			}
		}
		if !dup {
			ps.conflicts = append(ps.conflicts, f)
		}
	}
	sort.Strings(ps.conflicts)
}

// columns fixes variables that no remaining row refers to.
func (ps *presolve) columns() {
	used := make([]bool, len(ps.lb))
	for i, c := range ps.p.cons {
		if !ps.active[i] {
			continue
		}
		for _, t := range c.Expr.Terms {
			used[t.Var] = true
		}
	}
	cost := make([]float64, len(ps.lb))
	for _, t := range ps.p.obj.Terms {
		cost[t.Var] += t.Coef
	}
	for j := range ps.lb {
		if ps.fixed[j] || used[j] {
			continue
		}
		lb, ub := ps.lb[j], ps.ub[j]
		var v float64
		switch {
		case cost[j] > 0:
			if math.IsInf(lb, -1) {
				ps.status = Unbounded
				return
			}
			v = lb
		case cost[j] < 0:
			if math.IsInf(ub, 1) {
				ps.status = Unbounded
				return
			}
			v = ub
		case !math.IsInf(lb, -1):
			v = lb
		case !math.IsInf(ub, 1):
			v = ub
		}
		ps.lb[j], ps.ub[j] = v, v
		ps.fixed[j] = true
	}
}
