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
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// errIterations is returned when the simplex method exceeds its pivot budget.
	errIterations = errors.New("milp: simplex iteration limit reached")

	errNonFinite = errors.New("milp: relaxation objective is not finite")
)

type varState uint8

const (
	atLower varState = iota
	atUpper
	// atZero marks a free variable outside of the basis.
	atZero
	inBasis
)

// tableau is a dense simplex tableau over columns with explicit bounds.
// Every row holds a logical column, and rows whose logical could not absorb
// the initial residual also hold an artificial column. Rows and columns
// refer to the tableau; the caller maps them back to problem variables.
type tableau struct {
	m, n    int
	a       [][]float64 // B⁻¹A, one slice per row
	beta    []float64   // B⁻¹b
	lb, ub  []float64
	x       []float64
	cost    []float64
	d       []float64 // reduced costs
	state   []varState
	basis   []int
	artRow  map[int]int // artificial column -> row
	rhs     []float64   // right-hand side magnitudes
	nStruct int

	feasTol, optTol, pivTol float64

	iter       int
	maxIter    int
	degenerate int
	nz         []int
}

// blandAfter is the number of consecutive degenerate pivots after which
// pricing switches to the smallest-index rule.
const blandAfter = 50

// dropTol is the magnitude below which tableau entries are set to zero.
const dropTol = 1e-12

// newTableau builds the tableau for min cost·x s.t. rows[i]·x + s_i = rhs[i]
// with lb ≤ x ≤ ub. The logical s_i is bounded to [0, ∞) for ≤ rows,
// (-∞, 0] for ≥ rows and [0, 0] for equality rows.
func newTableau(rows [][]float64, senses []Sense, rhs, lb, ub []float64, o Options) *tableau {
	m, ns := len(rows), len(lb)
	t := &tableau{
		m:       m,
		nStruct: ns,
		feasTol: math.Max(o.Tolerance, 1e-9),
		optTol:  math.Max(o.Tolerance, 1e-9),
		pivTol:  1e-9,
		artRow:  make(map[int]int),
		basis:   make([]int, m),
		beta:    append([]float64(nil), rhs...),
		rhs:     make([]float64, m),
	}
	for i, b := range rhs {
		t.rhs[i] = math.Abs(b)
	}
	x := make([]float64, ns+m)
	state := make([]varState, ns+m)
	for j := 0; j < ns; j++ {
		switch {
		case !math.IsInf(lb[j], -1):
			x[j], state[j] = lb[j], atLower
		case !math.IsInf(ub[j], 1):
			x[j], state[j] = ub[j], atUpper
		default:
			state[j] = atZero
		}
	}
	t.lb = append(append([]float64(nil), lb...), make([]float64, m)...)
	t.ub = append(append([]float64(nil), ub...), make([]float64, m)...)
	var arts []int
	for i, r := range rows {
		s := ns + i
		switch senses[i] {
		case LessEq:
			t.ub[s] = math.Inf(1)
		case GreaterEq:
			t.lb[s] = math.Inf(-1)
		}
		resid := rhs[i] - floats.Dot(r, x[:ns])
		if resid >= t.lb[s]-t.feasTol && resid <= t.ub[s]+t.feasTol {
			x[s] = math.Max(t.lb[s], math.Min(t.ub[s], resid))
			state[s] = inBasis
			t.basis[i] = s
			continue
		}
		// The logical sits at zero and an artificial takes the residual.
		if senses[i] == GreaterEq {
			state[s] = atUpper
		}
		arts = append(arts, i)
	}
	t.n = ns + m + len(arts)
	t.a = make([][]float64, m)
	for i, r := range rows {
		row := make([]float64, t.n)
		copy(row, r)
		row[ns+i] = 1
		t.a[i] = row
	}
	for q, i := range arts {
		k := ns + m + q
		resid := rhs[i] - floats.Dot(rows[i], x[:ns])
		if resid < 0 {
			floats.Scale(-1, t.a[i][:ns+m])
			t.beta[i] = -t.beta[i]
		}
		t.a[i][k] = 1
		t.basis[i] = k
		t.artRow[k] = i
		t.lb = append(t.lb, 0)
		t.ub = append(t.ub, math.Inf(1))
		x = append(x, math.Abs(resid))
		state = append(state, inBasis)
	}
	t.x, t.state = x, state
	t.cost = make([]float64, t.n)
	t.d = make([]float64, t.n)
	t.maxIter = 20*(t.m+t.n) + 10000
	return t
}

// solve runs phase one, if any artificial is present, followed by phase two
// with the given structural costs. When phase one ends with artificials
// above zero, their rows are returned with Infeasible.
func (t *tableau) solve(ctx context.Context, cost []float64) (Status, []int, error) {
	if len(t.artRow) > 0 {
		for k := range t.artRow {
			t.cost[k] = 1
		}
		status, err := t.iterate(ctx)
		if status != Optimal {
			if status == Unbounded {
				return Numerical, nil, fmt.Errorf("milp: phase one is unbounded")
			}
			return status, nil, err
		}
		t.refresh()
		var rows []int
		for k, i := range t.artRow {
			if t.x[k] > artificialTol*math.Max(1, t.rhs[i]) {
				rows = append(rows, i)
			}
		}
		if len(rows) > 0 {
			return Infeasible, rows, nil
		}
		for k := range t.artRow {
			t.cost[k] = 0
			t.ub[k] = 0
			if t.state[k] != inBasis {
				t.x[k], t.state[k] = 0, atLower
			}
		}
	}
	copy(t.cost, cost)
	status, err := t.iterate(ctx)
	if status == Optimal {
		t.refresh()
	}
	return status, nil, err
}

// pricing computes the reduced costs of the current basis.
func (t *tableau) pricing() {
	copy(t.d, t.cost)
	for i, k := range t.basis {
		if c := t.cost[k]; c != 0 {
			floats.AddScaled(t.d, -c, t.a[i])
		}
	}
	for _, k := range t.basis {
		t.d[k] = 0
	}
}

func (t *tableau) iterate(ctx context.Context) (Status, error) {
	t.pricing()
	t.degenerate = 0
	for {
		if t.iter%64 == 0 && ctx.Err() != nil {
			return TimeLimit, nil
		}
		if t.iter >= t.maxIter {
			return Numerical, errIterations
		}
		t.iter++
		q, dir := t.entering()
		if q < 0 {
			return Optimal, nil
		}
		r, step, ok := t.ratio(q, dir)
		if !ok {
			return Unbounded, nil
		}
		if step <= t.feasTol {
			t.degenerate++
		} else {
			t.degenerate = 0
		}
		for i, k := range t.basis {
			if a := t.a[i][q]; a != 0 {
				t.x[k] -= a * dir * step
			}
		}
		t.x[q] += dir * step
		if r < 0 {
			// Bound flip.
			if dir > 0 {
				t.x[q], t.state[q] = t.ub[q], atUpper
			} else {
				t.x[q], t.state[q] = t.lb[q], atLower
			}
			continue
		}
		leave := t.basis[r]
		if t.a[r][q]*dir > 0 {
			t.x[leave], t.state[leave] = t.lb[leave], atLower
		} else {
			t.x[leave], t.state[leave] = t.ub[leave], atUpper
		}
		if math.IsInf(t.x[leave], 0) {
			t.x[leave], t.state[leave] = 0, atZero
		}
		t.pivot(r, q)
	}
}

// entering selects the column with the largest improving reduced cost, or
// the first improving column while the method is stalling. It returns -1
// at optimality.
func (t *tableau) entering() (int, float64) {
	bland := t.degenerate > blandAfter
	best, q, dir := t.optTol, -1, 0.0
	for j := 0; j < t.n; j++ {
		var s float64
		dj := t.d[j]
		switch t.state[j] {
		case atLower:
			if dj < -t.optTol && t.ub[j] > t.lb[j] {
				s = 1
			}
		case atUpper:
			if dj > t.optTol && t.ub[j] > t.lb[j] {
				s = -1
			}
		case atZero:
			if dj < -t.optTol {
				s = 1
			} else if dj > t.optTol {
				s = -1
			}
		}
		if s == 0 {
			continue
		}
		if bland {
			return j, s
		}
		if math.Abs(dj) > best {
			best, q, dir = math.Abs(dj), j, s
		}
	}
	return q, dir
}

// ratio performs a two-pass ratio test for column q moving in direction
// dir. It returns the pivot row, or -1 if q reaches its opposite bound
// first, and the step length. ok is false if the step is unlimited.
func (t *tableau) ratio(q int, dir float64) (r int, step float64, ok bool) {
	limit := func(i int, tol float64) (float64, bool) {
		alpha := t.a[i][q] * dir
		if math.Abs(alpha) <= t.pivTol {
			return 0, false
		}
		k := t.basis[i]
		if alpha > 0 {
			if math.IsInf(t.lb[k], -1) {
				return 0, false
			}
			return math.Max(0, (t.x[k]-t.lb[k]+tol)/alpha), true
		}
		if math.IsInf(t.ub[k], 1) {
			return 0, false
		}
		return math.Max(0, (t.ub[k]-t.x[k]+tol)/-alpha), true
	}
	theta := math.Inf(1)
	for i := 0; i < t.m; i++ {
		if l, found := limit(i, t.feasTol); found && l < theta {
			theta = l
		}
	}
	flip := t.ub[q] - t.lb[q]
	if flip <= theta {
		if math.IsInf(flip, 1) {
			return -1, 0, false
		}
		return -1, flip, true
	}
	r = -1
	var bestAlpha float64
	for i := 0; i < t.m; i++ {
		l, found := limit(i, 0)
		if !found || l > theta {
			continue
		}
		if a := math.Abs(t.a[i][q]); a > bestAlpha {
			r, bestAlpha, step = i, a, l
		}
	}
	return r, step, true
}

// pivot brings column q into the basis in row r.
func (t *tableau) pivot(r, q int) {
	prow := t.a[r]
	piv := prow[q]
	floats.Scale(1/piv, prow)
	t.beta[r] /= piv
	t.nz = t.nz[:0]
	for j, v := range prow {
		if v != 0 {
			t.nz = append(t.nz, j)
		}
	}
	prow[q] = 1
	eliminate := func(row []float64, f float64) {
		for _, j := range t.nz {
			v := row[j] - f*prow[j]
			if math.Abs(v) < dropTol {
				v = 0
			}
			row[j] = v
		}
		row[q] = 0
	}
	for i, row := range t.a {
		if i == r {
			continue
		}
		if f := row[q]; f != 0 {
			eliminate(row, f)
			t.beta[i] -= f * t.beta[r]
		}
	}
	if f := t.d[q]; f != 0 {
		eliminate(t.d, f)
	}
	t.state[q] = inBasis
	t.basis[r] = q
}

// refresh recomputes the basic values from the nonbasic ones.
func (t *tableau) refresh() {
	xn := append([]float64(nil), t.x...)
	for _, k := range t.basis {
		xn[k] = 0
	}
	for i, k := range t.basis {
		t.x[k] = t.beta[i] - floats.Dot(t.a[i], xn)
	}
}
