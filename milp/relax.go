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
	"math"
	"sort"
)

// artificialTol is the largest artificial value, relative to the scaled
// right-hand side, that still counts as feasible.
const artificialTol = 1e-6

type relaxation struct {
	status    Status
	obj       float64
	x         []float64
	conflicts []string
	err       error
}

// solveRelaxation presolves the continuous relaxation of p under the given
// bounds and solves what remains with the bounded simplex method.
func solveRelaxation(ctx context.Context, p *Problem, lb, ub []float64, o Options) relaxation {
	ps := newPresolve(p, lb, ub, o)
	ps.run()
	switch ps.status {
	case Infeasible:
		return relaxation{status: Infeasible, conflicts: ps.conflicts}
	case Unbounded:
		return relaxation{status: Unbounded}
	}
	// Fixed variables keep their value; the rest are overwritten below.
	x := make([]float64, len(p.vars))
	col := make([]int, len(p.vars))
	var cols []int
	for j := range x {
		col[j] = -1
		if ps.fixed[j] {
			x[j] = ps.lb[j]
			continue
		}
		col[j] = len(cols)
		cols = append(cols, j)
	}
	var (
		rows   [][]float64
		senses []Sense
		rhs    []float64
		src    []int
	)
	for i, c := range p.cons {
		if !ps.active[i] {
			continue
		}
		terms, b := ps.residual(c)
		row := make([]float64, len(cols))
		for _, t := range terms {
			row[col[t.Var]] += t.Coef
		}
		s, b := normalize(row, c.Sense, b)
		rows = append(rows, row)
		senses = append(senses, s)
		rhs = append(rhs, b)
		src = append(src, i)
	}
	if len(rows) == 0 {
		return relaxation{status: Optimal, obj: p.obj.Eval(x), x: x}
	}

	cost := make([]float64, len(cols))
	for _, t := range p.obj.Terms {
		if k := col[t.Var]; k >= 0 {
			cost[k] += t.Coef
		}
	}
	if cmax := maxAbs(cost); cmax > 0 {
		for k := range cost {
			cost[k] /= cmax
		}
	}
	lbs := make([]float64, len(cols))
	ubs := make([]float64, len(cols))
	for k, j := range cols {
		lbs[k], ubs[k] = ps.lb[j], ps.ub[j]
	}

	t := newTableau(rows, senses, rhs, lbs, ubs, o)
	status, bad, err := t.solve(ctx, cost)
	switch status {
	case Optimal:
	case Infeasible:
		r := relaxation{status: Infeasible}
		for _, i := range bad {
			r.conflicts = appendUnique(r.conflicts, p.cons[src[i]].Family)
		}
		sort.Strings(r.conflicts)
		return r
	default:
		return relaxation{status: status, err: err}
	}
	for k, j := range cols {
		// Clamp round-off outside of the bounds.
		x[j] = math.Max(ps.lb[j], math.Min(ps.ub[j], t.x[k]))
	}
	obj := p.obj.Eval(x)
	if math.IsNaN(obj) || math.IsInf(obj, 0) {
		return relaxation{status: Numerical, err: errNonFinite}
	}
	return relaxation{status: Optimal, obj: obj, x: x}
}

func appendUnique(s []string, v string) []string {
	for _, w := range s {
		if w == v {
			return s
		}
	}
	return append(s, v)
}

func maxAbs(v []float64) float64 {
	var max float64
	for _, a := range v {
		max = math.Max(max, math.Abs(a))
	}
	return max
}

// normalize scales row to unit maximum coefficient, flipping the sense
// when the scale is negative so that the right-hand side is non-negative.
func normalize(row []float64, s Sense, rhs float64) (Sense, float64) {
	f := 1.0
	if max := maxAbs(row); max > 0 {
		f = 1 / max
	}
	if rhs < 0 {
		f = -f
		switch s {
		case LessEq:
			s = GreaterEq
		case GreaterEq:
			s = LessEq
		}
	}
	for k := range row {
		row[k] *= f
	}
	return s, rhs * f
}
