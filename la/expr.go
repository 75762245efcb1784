// Package la provides sparse linear expressions, relational atoms and
// variable assignments over exact rational arithmetic. It is the data
// layer shared by the simplex engine and the MIP driver.
package la

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Var identifies a variable. Ordinary variables are non-negative and
// allocated by the owning solver; UnitVar is reserved for the constant
// term of an expression.
type Var int

// UnitVar is the pseudo-variable carrying the constant term of an
// expression. It always evaluates to 1 and is never a real variable.
const UnitVar Var = -1

// Expr is a sparse linear expression: a mapping from variables to
// non-zero rational coefficients. The constant term, if any, is stored
// under UnitVar. The zero expression has no terms at all.
//
// All operations return fresh expressions and copy every rational they
// store, so an Expr never aliases caller-owned values.
type Expr struct {
	terms map[Var]*big.Rat
}

// NewExpr returns the zero expression.
func NewExpr() *Expr {
	return &Expr{terms: make(map[Var]*big.Rat)}
}

// Variable returns the expression consisting of v with coefficient 1.
func Variable(v Var) *Expr {
	e := NewExpr()
	e.terms[v] = big.NewRat(1, 1)
	return e
}

// Constant returns the expression consisting of the constant c.
func Constant(c *big.Rat) *Expr {
	return Term(c, UnitVar)
}

// Term returns the expression c*v. A zero coefficient yields the zero
// expression.
func Term(c *big.Rat, v Var) *Expr {
	e := NewExpr()
	if c.Sign() != 0 {
		e.terms[v] = new(big.Rat).Set(c)
	}
	return e
}

// Copy returns a deep copy of e.
func (e *Expr) Copy() *Expr {
	out := NewExpr()
	for v, c := range e.terms {
		out.terms[v] = new(big.Rat).Set(c)
	}
	return out
}

// add accumulates c into the coefficient of v, dropping the entry when
// it cancels to zero.
func (e *Expr) add(v Var, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	cur, ok := e.terms[v]
	if !ok {
		e.terms[v] = new(big.Rat).Set(c)
		return
	}
	cur.Add(cur, c)
	if cur.Sign() == 0 {
		delete(e.terms, v)
	}
}

// Add returns e + o.
func (e *Expr) Add(o *Expr) *Expr {
	out := e.Copy()
	for v, c := range o.terms {
		out.add(v, c)
	}
	return out
}

// Sub returns e - o.
func (e *Expr) Sub(o *Expr) *Expr {
	out := e.Copy()
	neg := new(big.Rat)
	for v, c := range o.terms {
		out.add(v, neg.Neg(c))
	}
	return out
}

// Scale returns k * e.
func (e *Expr) Scale(k *big.Rat) *Expr {
	out := NewExpr()
	if k.Sign() == 0 {
		return out
	}
	for v, c := range e.terms {
		out.terms[v] = new(big.Rat).Mul(c, k)
	}
	return out
}

// Neg returns -e.
func (e *Expr) Neg() *Expr {
	out := NewExpr()
	for v, c := range e.terms {
		out.terms[v] = new(big.Rat).Neg(c)
	}
	return out
}

// Coeff returns a copy of the coefficient of v, zero if absent.
func (e *Expr) Coeff(v Var) *big.Rat {
	if c, ok := e.terms[v]; ok {
		return new(big.Rat).Set(c)
	}
	return new(big.Rat)
}

// ConstTerm returns a copy of the constant term.
func (e *Expr) ConstTerm() *big.Rat {
	return e.Coeff(UnitVar)
}

// WithoutConst returns e with its constant term removed.
func (e *Expr) WithoutConst() *Expr {
	out := e.Copy()
	delete(out.terms, UnitVar)
	return out
}

// SingleTerm reports whether e is exactly one non-constant term and, if
// so, returns its variable and coefficient.
func (e *Expr) SingleTerm() (Var, *big.Rat, bool) {
	if len(e.terms) != 1 {
		return 0, nil, false
	}
	for v, c := range e.terms {
		if v == UnitVar {
			return 0, nil, false
		}
		return v, new(big.Rat).Set(c), true
	}
	return 0, nil, false
}

// IsZero reports whether e has no terms.
func (e *Expr) IsZero() bool {
	return len(e.terms) == 0
}

// Len returns the number of stored terms, the constant included.
func (e *Expr) Len() int {
	return len(e.terms)
}

// Vars returns the variables of e in ascending order, UnitVar excluded.
// Scans over expressions iterate this order so that index-based
// tie-breaking stays deterministic.
func (e *Expr) Vars() []Var {
	vs := make([]Var, 0, len(e.terms))
	for v := range e.terms {
		if v == UnitVar {
			continue
		}
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

// Subst returns e with every occurrence of v replaced by def.
func (e *Expr) Subst(v Var, def *Expr) *Expr {
	c, ok := e.terms[v]
	if !ok {
		return e.Copy()
	}
	k := new(big.Rat).Set(c)
	out := e.Copy()
	delete(out.terms, v)
	tmp := new(big.Rat)
	for dv, dc := range def.terms {
		out.add(dv, tmp.Mul(k, dc))
	}
	return out
}

// Eval evaluates e under the assignment m. UnitVar contributes its
// coefficient as-is; variables missing from m count as zero.
func (e *Expr) Eval(m Model) *big.Rat {
	sum := new(big.Rat)
	tmp := new(big.Rat)
	for v, c := range e.terms {
		if v == UnitVar {
			sum.Add(sum, c)
			continue
		}
		if val, ok := m[v]; ok {
			sum.Add(sum, tmp.Mul(c, val))
		}
	}
	return sum
}

// String renders e as "2*x0 - 1/3*x2 + 5" with terms in variable order
// and the constant last.
func (e *Expr) String() string {
	if len(e.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	first := true
	writeTerm := func(c *big.Rat, body string) {
		neg := c.Sign() < 0
		abs := new(big.Rat).Abs(c)
		switch {
		case first && neg:
			b.WriteString("-")
		case !first && neg:
			b.WriteString(" - ")
		case !first:
			b.WriteString(" + ")
		}
		first = false
		if body == "" {
			b.WriteString(abs.RatString())
			return
		}
		if abs.Cmp(big.NewRat(1, 1)) != 0 {
			b.WriteString(abs.RatString())
			b.WriteString("*")
		}
		b.WriteString(body)
	}
	for _, v := range e.Vars() {
		writeTerm(e.terms[v], "x"+strconv.Itoa(int(v)))
	}
	if c, ok := e.terms[UnitVar]; ok {
		writeTerm(c, "")
	}
	return b.String()
}

// Model maps variables to their current rational values.
type Model map[Var]*big.Rat

// Value returns the value of v under m. UnitVar evaluates to 1 and
// unknown variables to 0. The result is a copy.
func (m Model) Value(v Var) *big.Rat {
	if v == UnitVar {
		return big.NewRat(1, 1)
	}
	if r, ok := m[v]; ok {
		return new(big.Rat).Set(r)
	}
	return new(big.Rat)
}

// Copy returns a deep copy of m.
func (m Model) Copy() Model {
	out := make(Model, len(m))
	for v, r := range m {
		out[v] = new(big.Rat).Set(r)
	}
	return out
}
