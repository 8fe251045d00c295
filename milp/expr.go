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

// Package milp holds a small linear-expression algebra and a mixed-integer
// linear programming solver built on the gonum simplex implementation.
package milp

import (
	"fmt"
	"sort"
	"strings"
)

// Var identifies a decision variable within a Problem.
type Var int

// Term is a single coefficient-variable product.
type Term struct {
	Var  Var
	Coef float64
}

// LinExpr is a linear expression: the sum of its terms plus a constant.
// The zero value is the empty expression.
type LinExpr struct {
	Terms    []Term
	Constant float64
}

// Expr returns the expression coef·v.
func Expr(v Var, coef float64) LinExpr {
	return LinExpr{Terms: []Term{{Var: v, Coef: coef}}}
}

// Const returns a constant expression.
func Const(c float64) LinExpr {
	return LinExpr{Constant: c}
}

// Add adds coef·v to e and returns e for chaining. Zero coefficients
// are dropped.
func (e *LinExpr) Add(v Var, coef float64) *LinExpr {
	if coef != 0 {
		e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	}
	return e
}

// AddConst adds c to the constant part of e.
func (e *LinExpr) AddConst(c float64) *LinExpr {
	e.Constant += c
	return e
}

// AddExpr adds scale·o to e.
func (e *LinExpr) AddExpr(o LinExpr, scale float64) *LinExpr {
	if scale == 0 {
		return e
	}
	for _, t := range o.Terms {
		e.Add(t.Var, t.Coef*scale)
	}
	e.Constant += o.Constant * scale
	return e
}

// Scaled returns a copy of e multiplied by s.
func (e LinExpr) Scaled(s float64) LinExpr {
	var o LinExpr
	o.AddExpr(e, s)
	return o
}

// Copy returns a deep copy of e.
func (e LinExpr) Copy() LinExpr {
	return LinExpr{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant}
}

// Eval evaluates e at the point x, which is indexed by Var.
func (e LinExpr) Eval(x []float64) float64 {
	v := e.Constant
	for _, t := range e.Terms {
		v += t.Coef * x[t.Var]
	}
	return v
}

// Merged returns e with duplicate variables combined, zero coefficients
// removed and terms sorted by variable.
func (e LinExpr) Merged() LinExpr {
	if len(e.Terms) == 0 {
		return LinExpr{Constant: e.Constant}
	}
	terms := append([]Term(nil), e.Terms...)
	sort.Slice(terms, func(i, j int) bool { return terms[i].Var < terms[j].Var })
	out := terms[:0]
	for _, t := range terms {
		if n := len(out); n > 0 && out[n-1].Var == t.Var {
			out[n-1].Coef += t.Coef
			continue
		}
		out = append(out, t)
	}
	merged := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			merged = append(merged, t)
		}
	}
	return LinExpr{Terms: merged, Constant: e.Constant}
}

// String formats e using the variable names of p, or raw indices if p is nil.
func (e LinExpr) String(p *Problem) string {
	var b strings.Builder
	for i, t := range e.Terms {
		if i > 0 {
			b.WriteString(" + ")
		}
		if p != nil {
			fmt.Fprintf(&b, "%g·%s", t.Coef, p.Name(t.Var))
		} else {
			fmt.Fprintf(&b, "%g·x%d", t.Coef, t.Var)
		}
	}
	if e.Constant != 0 || len(e.Terms) == 0 {
		if len(e.Terms) > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%g", e.Constant)
	}
	return b.String()
}

// Sum returns the sum of the given expressions.
func Sum(exprs ...LinExpr) LinExpr {
	var o LinExpr
	for _, e := range exprs {
		o.AddExpr(e, 1)
	}
	return o
}
