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
	"reflect"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

func different(a, b, tol float64) bool {
	return math.Abs(a-b) > tol*math.Max(1, math.Abs(b))
}

func TestLP(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Continuous)
	y := p.NewVar("y", 0, Inf, Continuous)
	var e1, e2 LinExpr
	e1.Add(x, 1).Add(y, 1)
	e2.Add(x, 1).Add(y, 3)
	p.AddConstraint("a", e1, LessEq, 4)
	p.AddConstraint("b", e2, LessEq, 6)
	p.AddConstraint("c", Expr(x, 1), LessEq, 3)
	var obj LinExpr
	obj.Add(x, -3).Add(y, -2)
	p.SetObjective(obj)

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal {
		t.Fatalf("status: %v", sol.Status)
	}
	if different(sol.Objective, -11, 1e-8) {
		t.Errorf("objective: have %g, want -11", sol.Objective)
	}
	if different(sol.Value(x), 3, 1e-8) || different(sol.Value(y), 1, 1e-8) {
		t.Errorf("solution: have (%g, %g), want (3, 1)", sol.Value(x), sol.Value(y))
	}
}

func TestLPFreeVariable(t *testing.T) {
	p := NewProblem()
	z := p.NewVar("z", math.Inf(-1), Inf, Continuous)
	x := p.NewVar("x", 1, 5, Continuous)
	var e LinExpr
	e.Add(z, 1).Add(x, -1)
	p.AddConstraint("def", e, Equal, -2)
	p.SetObjective(Expr(z, 1))

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal || different(sol.Value(z), -1, 1e-8) || different(sol.Value(x), 1, 1e-8) {
		t.Errorf("have status %v z=%g x=%g, want optimal z=-1 x=1", sol.Status, sol.Value(z), sol.Value(x))
	}
}

// A free variable defined as a sum of bounded costs takes the value of
// the sum rather than its lower bound.
func TestLPFreeAggregate(t *testing.T) {
	p := NewProblem()
	total := p.NewVar("total", math.Inf(-1), Inf, Continuous)
	parts := p.NewBlock("part", 0, Inf, Continuous, 3)
	def := Expr(total, 1)
	for i := 0; i < 3; i++ {
		def.Add(parts.At(i), -float64(i+1))
		p.AddConstraint("min_part", Expr(parts.At(i), 1), GreaterEq, 2)
	}
	var both LinExpr
	both.Add(parts.At(0), 1).Add(parts.At(1), 1)
	p.AddConstraint("pair", both, GreaterEq, 5)
	p.AddConstraint("total_def", def, Equal, 0)
	p.SetObjective(Expr(total, 1))

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	// part = (3, 2, 2): 3 + 4 + 6.
	if sol.Status != Optimal || different(sol.Value(total), 13, 1e-8) || different(sol.Objective, 13, 1e-8) {
		t.Errorf("have status %v total=%g objective=%g, want optimal 13", sol.Status, sol.Value(total), sol.Objective)
	}
	if v := p.Check(sol.X, 1e-8); len(v) > 0 {
		t.Errorf("violations: %+v", v)
	}
}

// Beale's example cycles under the largest-coefficient rule without an
// anti-cycling fallback.
func TestLPDegenerate(t *testing.T) {
	p := NewProblem()
	x := p.NewBlock("x", 0, Inf, Continuous, 4)
	row := func(name string, c []float64, rhs float64) {
		var e LinExpr
		for i, v := range c {
			e.Add(x.At(i), v)
		}
		p.AddConstraint(name, e, LessEq, rhs)
	}
	row("r1", []float64{0.25, -8, -1, 9}, 0)
	row("r2", []float64{0.5, -12, -0.5, 3}, 0)
	row("r3", []float64{0, 0, 1, 0}, 1)
	var obj LinExpr
	for i, v := range []float64{-0.75, 20, -0.5, 6} {
		obj.Add(x.At(i), v)
	}
	p.SetObjective(obj)

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal || different(sol.Objective, -1.25, 1e-8) {
		t.Errorf("have status %v objective %g, want optimal -1.25", sol.Status, sol.Objective)
	}
}

// The bounded simplex agrees with the gonum standard-form simplex on
// random feasible and bounded problems.
func TestLPRandom(t *testing.T) {
	const n, nLess, nGreater = 6, 4, 2
	rnd := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		p := NewProblem()
		x := p.NewBlock("x", 0, 5, Continuous, n)
		var (
			g    []float64
			h    []float64
			cost = make([]float64, n)
		)
		var obj LinExpr
		for j := range cost {
			cost[j] = 2*rnd.Float64() - 1
			obj.Add(x.At(j), cost[j])
		}
		p.SetObjective(obj)
		// Every row holds at x = 1.
		for i := 0; i < nLess+nGreater+1; i++ {
			a := make([]float64, n)
			var e LinExpr
			var at1 float64
			for j := range a {
				a[j] = 2*rnd.Float64() - 1
				e.Add(x.At(j), a[j])
				at1 += a[j]
			}
			switch {
			case i < nLess:
				rhs := at1 + rnd.Float64()
				p.AddConstraint("less", e, LessEq, rhs)
				g, h = append(g, a...), append(h, rhs)
			case i < nLess+nGreater:
				rhs := at1 - rnd.Float64()
				p.AddConstraint("greater", e, GreaterEq, rhs)
				for j := range a {
					a[j] = -a[j]
				}
				g, h = append(g, a...), append(h, -rhs)
			default:
				p.AddConstraint("equal", e, Equal, at1)
				g, h = append(g, a...), append(h, at1)
				for j := range a {
					a[j] = -a[j]
				}
				g, h = append(g, a...), append(h, -at1)
			}
		}
		for j := 0; j < n; j++ {
			lo := make([]float64, n)
			lo[j] = -1
			hi := make([]float64, n)
			hi[j] = 1
			g, h = append(g, lo...), append(h, 0)
			g, h = append(g, hi...), append(h, 5)
		}
		c, A, b := lp.Convert(cost, mat.NewDense(len(h), n, g), h, nil, nil)
		want, _, err := lp.Simplex(c, A, b, 1e-10, nil)
		if err != nil {
			t.Logf("trial %d: gonum simplex: %v", trial, err)
			continue
		}

		sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if sol.Status != Optimal || different(sol.Objective, want, 1e-7) {
			t.Errorf("trial %d: have status %v objective %g, want optimal %g", trial, sol.Status, sol.Objective, want)
		}
		if v := p.Check(sol.X, 1e-7); len(v) > 0 {
			t.Errorf("trial %d: violations %+v", trial, v)
		}
	}
}

func TestLPCancelled(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Continuous)
	y := p.NewVar("y", 0, Inf, Continuous)
	var e1, e2 LinExpr
	e1.Add(x, 1).Add(y, 1)
	e2.Add(x, 1).Add(y, 3)
	p.AddConstraint("a", e1, GreaterEq, 4)
	p.AddConstraint("b", e2, GreaterEq, 6)
	p.SetObjective(e1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := new(Simplex).Solve(ctx, p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != TimeLimit || sol.X != nil {
		t.Errorf("have status %v, want time_limit without values", sol.Status)
	}
}

func TestPresolveConflict(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Continuous)
	y := p.NewVar("y", 0, Inf, Continuous)
	var e LinExpr
	e.Add(x, 1).Add(y, 1)
	p.AddConstraint("demand", e, GreaterEq, 10)
	p.AddConstraint("capx", Expr(x, 1), LessEq, 3)
	p.AddConstraint("capy", Expr(y, 2), LessEq, 8)
	p.SetObjective(e)

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Infeasible {
		t.Fatalf("status: have %v, want infeasible", sol.Status)
	}
	want := []string{"capx", "capy", "demand"}
	if !reflect.DeepEqual(sol.Conflicts, want) {
		t.Errorf("conflicts: have %v, want %v", sol.Conflicts, want)
	}
}

func TestInfeasibleArtificial(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Continuous)
	y := p.NewVar("y", 0, Inf, Continuous)
	var e LinExpr
	e.Add(x, 1).Add(y, 1)
	p.AddConstraint("a", e, Equal, 5)
	p.AddConstraint("b", e, Equal, 3)

	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Infeasible {
		t.Fatalf("status: have %v, want infeasible", sol.Status)
	}
	if len(sol.Conflicts) == 0 {
		t.Error("no conflicting families reported")
	}
}

func TestUnbounded(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Continuous)
	y := p.NewVar("y", 0, Inf, Continuous)
	var e LinExpr
	e.Add(x, 1).Add(y, -1)
	p.AddConstraint("a", e, LessEq, 1)
	p.SetObjective(Expr(x, -1))
	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Unbounded {
		t.Errorf("status: have %v, want unbounded", sol.Status)
	}

	q := NewProblem()
	z := q.NewVar("z", 0, Inf, Continuous)
	q.SetObjective(Expr(z, -1))
	sol, err = new(Simplex).Solve(context.Background(), q, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Unbounded {
		t.Errorf("presolve status: have %v, want unbounded", sol.Status)
	}
}

func knapsack() (*Problem, Block) {
	p := NewProblem()
	b := p.NewBlock("item", 0, 1, Binary, 4)
	value := []float64{8, 11, 6, 4}
	weight := []float64{5, 7, 4, 3}
	var w, obj LinExpr
	for i := range value {
		w.Add(b.At(i), weight[i])
		obj.Add(b.At(i), -value[i])
	}
	p.AddConstraint("weight", w, LessEq, 14)
	p.SetObjective(obj)
	return p, b
}

func TestBranchAndBound(t *testing.T) {
	p, b := knapsack()
	o := DefaultOptions()
	o.MIPGap = 0
	sol, err := new(Simplex).Solve(context.Background(), p, o)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal {
		t.Fatalf("status: %v", sol.Status)
	}
	if different(sol.Objective, -21, 1e-8) {
		t.Errorf("objective: have %g, want -21", sol.Objective)
	}
	want := []float64{0, 1, 1, 1}
	if !reflect.DeepEqual(b.Values(sol.X), want) {
		t.Errorf("items: have %v, want %v", b.Values(sol.X), want)
	}
	if sol.Nodes < 2 {
		t.Errorf("nodes: have %d, want branching", sol.Nodes)
	}
}

func TestBranchAndBoundGeneralInteger(t *testing.T) {
	p := NewProblem()
	x := p.NewVar("x", 0, Inf, Integer)
	y := p.NewVar("y", 0, Inf, Integer)
	var e LinExpr
	e.Add(x, 2).Add(y, 2)
	p.AddConstraint("cover", e, GreaterEq, 3)
	var obj LinExpr
	obj.Add(x, 1).Add(y, 1)
	p.SetObjective(obj)
	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Optimal || different(sol.Objective, 2, 1e-8) {
		t.Errorf("have status %v objective %g, want optimal 2", sol.Status, sol.Objective)
	}
}

func TestBranchAndBoundLimits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := knapsack()
	sol, err := new(Simplex).Solve(ctx, p, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != TimeLimit || sol.X != nil {
		t.Errorf("no incumbent: have status %v, want time_limit without values", sol.Status)
	}

	o := DefaultOptions()
	o.WarmStart = []float64{0, 1, 1, 1}
	sol, err = new(Simplex).Solve(ctx, p, o)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Feasible || different(sol.Objective, -21, 1e-8) {
		t.Errorf("warm start: have status %v objective %g, want feasible -21", sol.Status, sol.Objective)
	}
}

func TestBlock(t *testing.T) {
	p := NewProblem()
	p.NewVar("before", 0, 1, Continuous)
	b := p.NewBlock("flow", 0, Inf, Continuous, 2, 3)
	if b.Len() != 6 {
		t.Fatalf("len: have %d, want 6", b.Len())
	}
	if v := b.At(1, 2); v != 6 || p.Name(v) != "flow[1,2]" {
		t.Errorf("have %d %q, want 6 flow[1,2]", v, p.Name(v))
	}
	empty := p.NewBlock("none", 0, 1, Binary, 0, 3)
	if !empty.Empty() || p.NumVars() != 7 {
		t.Errorf("empty block created %d variables", p.NumVars()-7)
	}
}

func TestMerged(t *testing.T) {
	var e LinExpr
	e.Add(2, 1).Add(0, 3).Add(2, -1).AddConst(4)
	m := e.Merged()
	want := LinExpr{Terms: []Term{{Var: 0, Coef: 3}}, Constant: 4}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("have %+v, want %+v", m, want)
	}
	if v := e.Eval([]float64{1, 0, 5}); v != 7 {
		t.Errorf("eval: have %g, want 7", v)
	}
}

func TestWithout(t *testing.T) {
	p, _ := knapsack()
	q := p.Without("weight")
	if q.NumConstraints() != 0 || p.NumConstraints() != 1 {
		t.Errorf("have %d and %d constraints", q.NumConstraints(), p.NumConstraints())
	}
}

// Subtrees whose relaxation fails are not proof of infeasibility.
func TestBranchAndBoundNumerical(t *testing.T) {
	calls := 0
	relax = func(ctx context.Context, p *Problem, lb, ub []float64, o Options) relaxation {
		calls++
		if calls == 1 {
			return solveRelaxation(ctx, p, lb, ub, o)
		}
		return relaxation{status: Numerical, err: errIterations}
	}
	defer func() { relax = solveRelaxation }()

	p, _ := knapsack()
	sol, err := new(Simplex).Solve(context.Background(), p, DefaultOptions())
	if sol == nil || sol.Status != Numerical {
		t.Fatalf("have %+v, want numerical", sol)
	}
	if err == nil {
		t.Error("missing error")
	}

	o := DefaultOptions()
	o.WarmStart = []float64{1, 1, 0, 0}
	calls = 0
	sol, err = new(Simplex).Solve(context.Background(), p, o)
	if err != nil {
		t.Fatal(err)
	}
	if sol.Status != Feasible || different(sol.Objective, -19, 1e-8) {
		t.Errorf("warm start: have status %v objective %g, want feasible -19", sol.Status, sol.Objective)
	}
}
