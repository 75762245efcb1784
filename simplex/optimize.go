package simplex

import (
	"math/big"

	"github.com/chotong/toysolver/la"
)

// Check runs primal simplex until every basic variable sits within its
// bounds. It returns false, and marks the solver permanently
// infeasible, when some violated row has no eligible entering
// variable. Non-basic variables are always within bounds, so a true
// return means the whole assignment is feasible.
func (s *Solver) Check() bool {
	if !s.ok {
		return false
	}
	for {
		xi, below, found := s.pickViolated()
		if !found {
			return true
		}
		xj, ok := s.pickEntering(s.tableau[xi], below)
		if !ok {
			s.log.Debug().Int("var", int(xi)).Msg("no entering variable, infeasible")
			s.ok = false
			return false
		}
		target := s.lb[xi]
		if !below {
			target = s.ub[xi]
		}
		s.pivotAndUpdate(xi, xj, target)
	}
}

// DualSimplex repairs primal feasibility while preserving dual
// feasibility, as after asserting constraints on a previously optimal
// basis. objLimit, when non-nil, is a cutoff: since the objective only
// degrades during dual pivoting, the search stops with false as soon
// as the objective can no longer beat the cutoff in the optimization
// direction. The cutoff return does not mark the solver infeasible.
func (s *Solver) DualSimplex(objLimit *big.Rat) bool {
	if !s.ok {
		return false
	}
	for {
		if objLimit != nil && s.pastLimit(objLimit) {
			return false
		}
		xi, below, found := s.pickViolated()
		if !found {
			return true
		}
		xj, ok := s.pickEnteringDual(s.tableau[xi], below)
		if !ok {
			s.ok = false
			return false
		}
		target := s.lb[xi]
		if !below {
			target = s.ub[xi]
		}
		s.pivotAndUpdate(xi, xj, target)
	}
}

// Optimize drives the objective to its optimum. It first repairs
// feasibility with Check; it then repeatedly picks the lowest-indexed
// movable non-basic variable whose objective coefficient allows
// improvement and moves it as far as the primal ratio test permits.
func (s *Solver) Optimize() Result {
	if !s.Check() {
		return Unsat
	}
	for {
		xj, increase, found := s.pickEnteringObj()
		if !found {
			return Optimum
		}
		if !s.improveStep(xj, increase) {
			return Unbounded
		}
	}
}

// pickViolated returns the lowest-indexed basic variable whose
// assignment violates one of its bounds, and whether the violation is
// below the lower bound.
func (s *Solver) pickViolated() (la.Var, bool, bool) {
	var best la.Var
	below := false
	found := false
	for x := range s.tableau {
		if x == ObjVar {
			continue
		}
		if found && x >= best {
			continue
		}
		v := s.model[x]
		if l, ok := s.lb[x]; ok && v.Cmp(l) < 0 {
			best, below, found = x, true, true
			continue
		}
		if u, ok := s.ub[x]; ok && v.Cmp(u) > 0 {
			best, below, found = x, false, true
		}
	}
	return best, below, found
}

func (s *Solver) canIncrease(x la.Var) bool {
	u, ok := s.ub[x]
	return !ok || s.model[x].Cmp(u) < 0
}

func (s *Solver) canDecrease(x la.Var) bool {
	l, ok := s.lb[x]
	return !ok || s.model[x].Cmp(l) > 0
}

// eligible reports whether xj may enter when the leaving row's basic
// variable is violated below (true) or above (false) its bound, given
// xj's row coefficient.
func (s *Solver) eligible(a *big.Rat, xj la.Var, below bool) bool {
	pos := a.Sign() > 0
	if below {
		return (pos && s.canIncrease(xj)) || (!pos && s.canDecrease(xj))
	}
	return (pos && s.canDecrease(xj)) || (!pos && s.canIncrease(xj))
}

// pickEntering scans the row in ascending variable order and returns
// the first eligible entering variable.
func (s *Solver) pickEntering(row *la.Expr, below bool) (la.Var, bool) {
	for _, xj := range row.Vars() {
		if s.eligible(row.Coeff(xj), xj, below) {
			return xj, true
		}
	}
	return 0, false
}

// pickEnteringDual applies the dual ratio test: among eligible
// entering variables it picks the one minimizing |obj_j / a_ij|, ties
// broken by the lowest variable index. This keeps the basis dual
// feasible while the violated row is repaired.
func (s *Solver) pickEnteringDual(row *la.Expr, below bool) (la.Var, bool) {
	obj := s.tableau[ObjVar]
	var best la.Var
	var bestRatio *big.Rat
	for _, xj := range row.Vars() {
		a := row.Coeff(xj)
		if !s.eligible(a, xj, below) {
			continue
		}
		r := new(big.Rat).Quo(obj.Coeff(xj), a)
		r.Abs(r)
		if bestRatio == nil || r.Cmp(bestRatio) < 0 {
			best, bestRatio = xj, r
		}
	}
	return best, bestRatio != nil
}

// pickEnteringObj returns the lowest-indexed non-basic variable in the
// objective row whose coefficient sign promises improvement and whose
// bound does not already block movement in that direction, together
// with the movement direction.
func (s *Solver) pickEnteringObj() (la.Var, bool, bool) {
	obj := s.tableau[ObjVar]
	for _, xj := range obj.Vars() {
		c := obj.Coeff(xj)
		if c.Sign() == 0 {
			continue
		}
		increase := c.Sign() < 0
		if s.dir == Maximize {
			increase = !increase
		}
		if increase && s.canIncrease(xj) {
			return xj, true, true
		}
		if !increase && s.canDecrease(xj) {
			return xj, false, true
		}
	}
	return 0, false, false
}

// improveStep moves xj in the improving direction as far as the primal
// ratio test allows. The blocking constraint is either xj's own
// opposite bound (a bound flip, no pivot) or the first basic row
// driven to one of its bounds, ties broken by the lowest row index.
// Returns false when nothing blocks the movement, i.e. the problem is
// unbounded.
func (s *Solver) improveStep(xj la.Var, increase bool) bool {
	var bestStep *big.Rat
	blocker := xj
	var target *big.Rat

	// xj's own opposite bound limits the step first.
	if increase {
		if u, ok := s.ub[xj]; ok {
			bestStep = new(big.Rat).Sub(u, s.model[xj])
			target = u
		}
	} else {
		if l, ok := s.lb[xj]; ok {
			bestStep = new(big.Rat).Sub(s.model[xj], l)
			target = l
		}
	}

	for _, xi := range s.basicVars() {
		a := s.tableau[xi].Coeff(xj)
		if a.Sign() == 0 {
			continue
		}
		// rate of change of xi per unit step of xj
		rate := a
		if !increase {
			rate = new(big.Rat).Neg(a)
		}
		var step, bound *big.Rat
		if rate.Sign() > 0 {
			u, ok := s.ub[xi]
			if !ok {
				continue
			}
			step = new(big.Rat).Sub(u, s.model[xi])
			step.Quo(step, rate)
			bound = u
		} else {
			l, ok := s.lb[xi]
			if !ok {
				continue
			}
			step = new(big.Rat).Sub(s.model[xi], l)
			step.Quo(step, new(big.Rat).Neg(rate))
			bound = l
		}
		if bestStep == nil || step.Cmp(bestStep) < 0 {
			bestStep, blocker, target = step, xi, bound
		}
	}

	if bestStep == nil {
		return false
	}
	if blocker == xj {
		s.updateNonbasic(xj, target)
		return true
	}
	s.pivotAndUpdate(blocker, xj, target)
	return true
}

// pastLimit reports whether the current objective value can no longer
// beat limit in the optimization direction.
func (s *Solver) pastLimit(limit *big.Rat) bool {
	cmp := s.model[ObjVar].Cmp(limit)
	if s.dir == Maximize {
		return cmp <= 0
	}
	return cmp >= 0
}

// pivotAndUpdate pivots the basic xi with the non-basic xj, driving xi
// exactly to the value v. The row of xi is solved for xj, the new
// definition is substituted into every remaining row (objective
// included) and every assignment is shifted by the induced delta in
// the same pass. This is the engine's single hot path.
func (s *Solver) pivotAndUpdate(xi, xj la.Var, v *big.Rat) {
	row := s.tableau[xi]
	aij := row.Coeff(xj)

	theta := new(big.Rat).Sub(v, s.model[xi])
	theta.Quo(theta, aij)

	s.model[xi] = new(big.Rat).Set(v)
	s.model[xj].Add(s.model[xj], theta)
	for xk, rk := range s.tableau {
		if xk == xi {
			continue
		}
		a := rk.Coeff(xj)
		if a.Sign() == 0 {
			continue
		}
		s.model[xk].Add(s.model[xk], a.Mul(a, theta))
	}

	// xj = (xi - (row - aij*xj)) / aij
	rest := row.Sub(la.Term(aij, xj))
	def := la.Variable(xi).Sub(rest).Scale(new(big.Rat).Inv(aij))
	delete(s.tableau, xi)
	for xk, rk := range s.tableau {
		if rk.Coeff(xj).Sign() != 0 {
			s.tableau[xk] = rk.Subst(xj, def)
		}
	}
	s.tableau[xj] = def
}
