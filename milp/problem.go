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
	"fmt"
	"math"
	"sort"
	"strings"
)

// VarType is the domain of a decision variable.
type VarType int

// Variable domains.
const (
	Continuous VarType = iota
	Integer
	Binary
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Sense is the relation between the two sides of a constraint.
type Sense int

// Constraint senses.
const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Inf is a convenience for unbounded variable limits.
var Inf = math.Inf(1)

type variable struct {
	name   string
	lb, ub float64
	typ    VarType
}

// Constraint is a linear constraint Expr (Sense) Rhs. The constant part of
// the expression has already been moved to Rhs.
type Constraint struct {
	Family string
	Expr   LinExpr
	Sense  Sense
	Rhs    float64
}

// Problem is a minimisation problem with linear constraints and a linear
// objective over continuous, integer and binary variables.
type Problem struct {
	vars []variable
	cons []Constraint
	obj  LinExpr
}

// NewProblem returns an empty problem.
func NewProblem() *Problem {
	return new(Problem)
}

// NewVar adds a variable with the given bounds and domain.
// Binary variables are always bounded to [0, 1].
func (p *Problem) NewVar(name string, lb, ub float64, t VarType) Var {
	if t == Binary {
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	}
	p.vars = append(p.vars, variable{name: name, lb: lb, ub: ub, typ: t})
	return Var(len(p.vars) - 1)
}

// NewBlock adds one variable for every element of an array with the given
// dimensions. A block with any zero dimension holds no variables.
func (p *Problem) NewBlock(name string, lb, ub float64, t VarType, dims ...int) Block {
	b := Block{Name: name, first: Var(len(p.vars)), dims: append([]int(nil), dims...)}
	n := b.Len()
	if n == 0 {
		return b
	}
	idx := make([]int, len(dims))
	for i := 0; i < n; i++ {
		p.NewVar(blockName(name, idx), lb, ub, t)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < dims[d] {
				break
			}
			idx[d] = 0
		}
	}
	return b
}

func blockName(name string, idx []int) string {
	if len(idx) == 0 {
		return name
	}
	s := make([]string, len(idx))
	for i, v := range idx {
		s[i] = fmt.Sprint(v)
	}
	return name + "[" + strings.Join(s, ",") + "]"
}

// AddConstraint adds lhs (sense) rhs to the problem, tagged with family.
func (p *Problem) AddConstraint(family string, lhs LinExpr, s Sense, rhs float64) {
	e := lhs.Merged()
	rhs -= e.Constant
	e.Constant = 0
	p.cons = append(p.cons, Constraint{Family: family, Expr: e, Sense: s, Rhs: rhs})
}

// SetObjective sets the expression to be minimised.
func (p *Problem) SetObjective(e LinExpr) {
	p.obj = e.Merged()
}

// Objective returns the objective expression.
func (p *Problem) Objective() LinExpr { return p.obj }

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// NumConstraints returns the number of constraints.
func (p *Problem) NumConstraints() int { return len(p.cons) }

// Constraints returns the constraints of the problem. The returned slice
// must not be modified.
func (p *Problem) Constraints() []Constraint { return p.cons }

// Name returns the name of v.
func (p *Problem) Name(v Var) string { return p.vars[v].name }

// Type returns the domain of v.
func (p *Problem) Type(v Var) VarType { return p.vars[v].typ }

// Bounds returns the bounds of v.
func (p *Problem) Bounds(v Var) (lb, ub float64) { return p.vars[v].lb, p.vars[v].ub }

// SetBounds changes the bounds of v.
func (p *Problem) SetBounds(v Var, lb, ub float64) {
	p.vars[v].lb, p.vars[v].ub = lb, ub
}

// IsMIP reports whether the problem has any integer or binary variables.
func (p *Problem) IsMIP() bool {
	for _, v := range p.vars {
		if v.typ != Continuous {
			return true
		}
	}
	return false
}

// Families returns the sorted names of the constraint families present.
func (p *Problem) Families() []string {
	seen := make(map[string]bool)
	var f []string
	for _, c := range p.cons {
		if !seen[c.Family] {
			seen[c.Family] = true
			f = append(f, c.Family)
		}
	}
	sort.Strings(f)
	return f
}

// Without returns a copy of p that omits all constraints belonging to the
// given families. Variables and the objective are shared by value.
func (p *Problem) Without(families ...string) *Problem {
	drop := make(map[string]bool, len(families))
	for _, f := range families {
		drop[f] = true
	}
	o := &Problem{vars: append([]variable(nil), p.vars...), obj: p.obj}
	for _, c := range p.cons {
		if !drop[c.Family] {
			o.cons = append(o.cons, c)
		}
	}
	return o
}

// Violation describes a constraint that is not satisfied by a point.
type Violation struct {
	Family string
	Index  int
	Amount float64
}

// Check returns the constraints and bounds violated by x by more than tol,
// scaled by the magnitude of the right-hand side.
func (p *Problem) Check(x []float64, tol float64) []Violation {
	var out []Violation
	for i, c := range p.cons {
		lhs := c.Expr.Eval(x)
		t := tol * math.Max(1, math.Abs(c.Rhs))
		var viol float64
		switch c.Sense {
		case LessEq:
			viol = lhs - c.Rhs
		case GreaterEq:
			viol = c.Rhs - lhs
		case Equal:
			viol = math.Abs(lhs - c.Rhs)
		}
		if viol > t {
			out = append(out, Violation{Family: c.Family, Index: i, Amount: viol})
		}
	}
	for i, v := range p.vars {
		t := tol * math.Max(1, math.Abs(x[i]))
		if x[i] < v.lb-t || x[i] > v.ub+t {
			out = append(out, Violation{Family: "bounds", Index: i, Amount: math.Max(v.lb-x[i], x[i]-v.ub)})
		}
	}
	return out
}

// Block is a dense array of variables created by Problem.NewBlock.
type Block struct {
	Name  string
	first Var
	dims  []int
}

// Len returns the number of variables in b.
func (b Block) Len() int {
	if b.dims == nil {
		return 0
	}
	n := 1
	for _, d := range b.dims {
		n *= d
	}
	return n
}

// Empty reports whether b holds no variables.
func (b Block) Empty() bool { return b.Len() == 0 }

// Dims returns the dimensions of b.
func (b Block) Dims() []int { return b.dims }

// At returns the variable at the given index. It panics if the index
// is out of range.
func (b Block) At(idx ...int) Var {
	if len(idx) != len(b.dims) {
		panic(fmt.Errorf("milp: block %s has %d dimensions, got index %v", b.Name, len(b.dims), idx))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= b.dims[i] {
			panic(fmt.Errorf("milp: index %v out of range for block %s%v", idx, b.Name, b.dims))
		}
		off = off*b.dims[i] + v
	}
	return b.first + Var(off)
}

// Values returns the values of all variables in b from x, in row-major order.
func (b Block) Values(x []float64) []float64 {
	n := b.Len()
	if n == 0 {
		return nil
	}
	return append([]float64(nil), x[b.first:int(b.first)+n]...)
}

// Relaxed returns a copy of p with every variable continuous.
func (p *Problem) Relaxed() *Problem {
	o := &Problem{vars: append([]variable(nil), p.vars...), cons: p.cons, obj: p.obj}
	for i := range o.vars {
		o.vars[i].typ = Continuous
	}
	return o
}
