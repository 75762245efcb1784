package simplex

import (
	"math/big"

	"github.com/chotong/toysolver/la"
)

// atLower reports whether x currently sits exactly on a finite lower
// bound.
func (s *Solver) atLower(x la.Var) bool {
	l, ok := s.lb[x]
	return ok && s.model[x].Cmp(l) == 0
}

func (s *Solver) atUpper(x la.Var) bool {
	u, ok := s.ub[x]
	return ok && s.model[x].Cmp(u) == 0
}

// CanDeriveGomoryCut reports whether a Gomory mixed-integer cut can be
// derived from the row of x: x must be basic with a fractional value,
// and every non-basic variable of its row must sit exactly on a finite
// bound. When the precondition fails no cut is fabricated.
func CanDeriveGomoryCut(s *Solver, x la.Var) bool {
	row, ok := s.tableau[x]
	if !ok || x == ObjVar {
		return false
	}
	if s.model[x].IsInt() {
		return false
	}
	for _, xj := range row.Vars() {
		if !s.atLower(xj) && !s.atUpper(xj) {
			return false
		}
	}
	return true
}

// DeriveGomoryCut derives a valid cutting plane from the basic row of
// x. The cut excludes the current fractional assignment but no
// integer-feasible point; the coefficient formulas differ for integer
// vs continuous non-basic variables and for lower-active vs
// upper-active ones. The call is read-only: the caller asserts the
// returned atom into whichever solver owns the search.
func DeriveGomoryCut(s *Solver, ivs map[la.Var]bool, x la.Var) (la.Atom, bool) {
	if !CanDeriveGomoryCut(s, x) {
		return la.Atom{}, false
	}

	f0 := la.Frac(s.model[x])
	oneMinusF0 := new(big.Rat).SetInt64(1)
	oneMinusF0.Sub(oneMinusF0, f0)

	row := s.tableau[x]
	lhs := la.NewExpr()
	for _, xj := range row.Vars() {
		d := row.Coeff(xj)
		if s.atLower(xj) {
			// contribute g*(xj - lb)
			g := gomoryCoeff(d, f0, oneMinusF0, ivs[xj])
			l := s.lb[xj]
			lhs = lhs.Add(la.Term(g, xj))
			lhs = lhs.Sub(la.Constant(new(big.Rat).Mul(g, l)))
		} else {
			// substituting xj = ub - y flips the row coefficient;
			// contribute g*(ub - xj)
			g := gomoryCoeff(new(big.Rat).Neg(d), f0, oneMinusF0, ivs[xj])
			u := s.ub[xj]
			lhs = lhs.Add(la.Constant(new(big.Rat).Mul(g, u)))
			lhs = lhs.Sub(la.Term(g, xj))
		}
	}
	return la.AtomGE(lhs, la.Constant(big.NewRat(1, 1))), true
}

// gomoryCoeff returns the cut coefficient for a substituted row term
// d*y with y >= 0 and y = 0 at the current point, where the basic
// variable equals beta0 + d*y + ..., f0 = frac(beta0).
func gomoryCoeff(d, f0, oneMinusF0 *big.Rat, integral bool) *big.Rat {
	g := new(big.Rat)
	if integral {
		fj := la.Frac(g.Neg(d))
		oneMinusFj := new(big.Rat).SetInt64(1)
		oneMinusFj.Sub(oneMinusFj, fj)
		if fj.Cmp(f0) <= 0 {
			return g.Quo(fj, f0)
		}
		return g.Quo(oneMinusFj, oneMinusF0)
	}
	if d.Sign() <= 0 {
		g.Neg(d)
		return g.Quo(g, f0)
	}
	return g.Quo(d, oneMinusF0)
}
