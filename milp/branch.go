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
	"container/heap"
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

type node struct {
	lb, ub []float64
	bound  float64
	depth  int
}

// nodeQueue orders open nodes by their parent bound.
type nodeQueue []*node

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].bound < q[j].bound }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(*node)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}

// relax solves node relaxations.
var relax = solveRelaxation

func relGap(obj, bound float64) float64 {
	return math.Abs(obj-bound) / math.Max(1e-10, math.Abs(obj))
}

// branchAndBound dives depth-first until an incumbent is found and then
// explores the open node with the lowest bound.
func (s *Simplex) branchAndBound(ctx context.Context, p *Problem, o Options) (*Solution, error) {
	log := s.log()
	var incumbent []float64
	incObj := math.Inf(1)
	if ws := o.WarmStart; len(ws) == len(p.vars) {
		if p.integral(ws, o.IntegralityTolerance) && len(p.Check(ws, 1e-6)) == 0 {
			incumbent = append([]float64(nil), ws...)
			incObj = p.obj.Eval(ws)
			log.WithField("objective", incObj).Debug("milp: warm start accepted as incumbent")
		}
	}

	lb, ub := p.bounds()
	root := relax(ctx, p, lb, ub, o)
	switch root.status {
	case Infeasible, Unbounded:
		return &Solution{Status: root.status, Conflicts: root.conflicts}, nil
	case TimeLimit:
		if incumbent == nil {
			return &Solution{Status: TimeLimit}, nil
		}
		p.roundIntegers(incumbent)
		return &Solution{Status: Feasible, X: incumbent, Objective: p.obj.Eval(incumbent), Bound: math.Inf(-1)}, nil
	case Numerical:
		return &Solution{Status: Numerical}, root.err
	}

	var (
		stack  = []*node{{lb: lb, ub: ub, bound: root.obj}}
		queue  nodeQueue
		nodes  int
		cached = &root
		status = Optimal

		// Nodes whose relaxation failed, the lowest of their bounds and
		// the last failure.
		skipped   int
		skipBound = math.Inf(1)
		skipErr   error
	)
	open := func() int { return len(stack) + len(queue) }
	pop := func() *node {
		if incumbent == nil && len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			return n
		}
		for _, n := range stack {
			heap.Push(&queue, n)
		}
		stack = nil
		return heap.Pop(&queue).(*node)
	}
	bestBound := func() float64 {
		b := math.Inf(1)
		for _, n := range stack {
			b = math.Min(b, n.bound)
		}
		if len(queue) > 0 {
			b = math.Min(b, queue[0].bound)
		}
		return b
	}
	prune := func(bound float64) bool {
		if incumbent == nil {
			return false
		}
		return bound >= incObj-o.MIPGap*math.Max(1e-10, math.Abs(incObj))-o.Tolerance
	}

	for open() > 0 {
		if ctx.Err() != nil || (o.MaxNodes > 0 && nodes >= o.MaxNodes) {
			status = TimeLimit
			break
		}
		if incumbent != nil && relGap(incObj, math.Min(incObj, bestBound())) <= o.MIPGap {
			break
		}
		n := pop()
		if prune(n.bound) {
			continue
		}
		nodes++
		var r relaxation
		if cached != nil {
			r, cached = *cached, nil
		} else {
			r = relax(ctx, p, n.lb, n.ub, o)
		}
		if r.status == TimeLimit {
			status = TimeLimit
			heap.Push(&queue, n)
			break
		}
		if r.status == Numerical {
			log.WithError(r.err).WithField("depth", n.depth).Warn("milp: node relaxation failed; skipping node")
			skipped++
			skipBound = math.Min(skipBound, n.bound)
			skipErr = r.err
			continue
		}
		if r.status != Optimal || prune(r.obj) {
			continue
		}
		j, frac := p.mostFractional(r.x, o.IntegralityTolerance)
		if j < 0 {
			incumbent, incObj = r.x, r.obj
			log.WithFields(logrus.Fields{"objective": incObj, "nodes": nodes}).Debug("milp: new incumbent")
			continue
		}
		down := &node{lb: n.lb, ub: append([]float64(nil), n.ub...), bound: r.obj, depth: n.depth + 1}
		down.ub[j] = math.Floor(r.x[j])
		up := &node{lb: append([]float64(nil), n.lb...), ub: n.ub, bound: r.obj, depth: n.depth + 1}
		up.lb[j] = math.Ceil(r.x[j])
		first, second := down, up
		if frac >= 0.5 {
			first, second = up, down
		}
		if incumbent == nil {
			stack = append(stack, second, first)
		} else {
			heap.Push(&queue, first)
			heap.Push(&queue, second)
		}
	}

	sol := &Solution{Nodes: nodes}
	if incumbent == nil {
		switch {
		case status == TimeLimit:
			sol.Status = TimeLimit
		case skipped > 0:
			// The failed subtrees may hold every feasible point.
			sol.Status = Numerical
			return sol, fmt.Errorf("milp: %d node relaxations failed: %w", skipped, skipErr)
		default:
			sol.Status = Infeasible
		}
		return sol, nil
	}
	p.roundIntegers(incumbent)
	sol.X = incumbent
	sol.Objective = p.obj.Eval(incumbent)
	sol.Bound = math.Min(sol.Objective, bestBound())
	if open() == 0 {
		sol.Bound = sol.Objective
	}
	sol.Bound = math.Min(sol.Bound, skipBound)
	sol.Status = Optimal
	if (status == TimeLimit || skipped > 0) && relGap(sol.Objective, sol.Bound) > o.MIPGap {
		sol.Status = Feasible
	}
	return sol, nil
}

// mostFractional returns the integer variable of x furthest from an
// integer, and its fractional part, or -1 if x is integral.
func (p *Problem) mostFractional(x []float64, tol float64) (int, float64) {
	best, bestDist, bestFrac := -1, tol, 0.0
	for j, v := range p.vars {
		if v.typ == Continuous {
			continue
		}
		f := x[j] - math.Floor(x[j])
		d := math.Min(f, 1-f)
		if d > bestDist {
			best, bestDist, bestFrac = j, d, f
		}
	}
	return best, bestFrac
}

func (p *Problem) integral(x []float64, tol float64) bool {
	j, _ := p.mostFractional(x, tol)
	return j < 0
}

func (p *Problem) roundIntegers(x []float64) {
	for j, v := range p.vars {
		if v.typ != Continuous {
			x[j] = math.Round(x[j])
		}
	}
}
