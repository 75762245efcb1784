// Package simplex implements an incremental LP solver over exact
// rational arithmetic.
//
// The engine keeps a tableau of basic-variable definitions, bound maps
// and a full assignment (the model). Constraints are asserted
// incrementally as atoms or bounds; primal simplex repairs feasibility,
// dual simplex re-optimizes after new constraints, and the primal
// ratio-test loop drives the objective to its optimum. All tie-breaks
// pick the lowest variable index so runs are reproducible.
package simplex

import (
	"math/big"
	"sort"

	"github.com/rs/zerolog"

	"github.com/chotong/toysolver/la"
	"github.com/chotong/toysolver/logger"
)

// ObjVar is the sentinel variable indexing the objective row of the
// tableau. It is never allocated by NewVar and never pivots.
const ObjVar la.Var = -2

// OptDir selects the optimization direction.
type OptDir int

const (
	Minimize OptDir = iota
	Maximize
)

func (d OptDir) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Result is the outcome of an optimization call.
type Result int

const (
	// Unsat means the constraints are infeasible.
	Unsat Result = iota
	// Optimum means an optimal feasible assignment was found.
	Optimum
	// Unbounded means the objective can improve without limit.
	Unbounded
	// ObjLimit means the search stopped because the objective could
	// no longer beat the supplied cutoff. Internal to the MIP driver.
	ObjLimit
)

func (r Result) String() string {
	switch r {
	case Unsat:
		return "unsat"
	case Optimum:
		return "optimum"
	case Unbounded:
		return "unbounded"
	case ObjLimit:
		return "objective limit"
	}
	return "unknown"
}

// Solver is an incremental simplex engine. The zero value is not
// usable; construct with New.
//
// Once a contradiction is detected the solver turns permanently
// infeasible: every later Check/DualSimplex/Optimize call reports
// failure without touching the tableau. Backtracking is done by
// cloning before asserting, not by un-asserting.
type Solver struct {
	tableau map[la.Var]*la.Expr
	lb, ub  map[la.Var]*big.Rat
	model   la.Model
	nvars   int
	dir     OptDir
	ok      bool
	log     zerolog.Logger
}

// New returns an empty solver with a zero objective and direction
// Minimize.
func New() *Solver {
	s := &Solver{
		tableau: make(map[la.Var]*la.Expr),
		lb:      make(map[la.Var]*big.Rat),
		ub:      make(map[la.Var]*big.Rat),
		model:   make(la.Model),
		dir:     Minimize,
		ok:      true,
		log:     zerolog.Nop(),
	}
	s.tableau[ObjVar] = la.NewExpr()
	s.model[ObjVar] = new(big.Rat)
	return s
}

// SetLogger installs a line sink for diagnostics. A nil sink silences
// the solver.
func (s *Solver) SetLogger(sink logger.Sink) {
	s.log = logger.New(sink)
}

// NewVar allocates a fresh variable with assignment 0 and no bounds.
func (s *Solver) NewVar() la.Var {
	v := la.Var(s.nvars)
	s.nvars++
	s.model[v] = new(big.Rat)
	return v
}

// NumVars returns the number of allocated variables.
func (s *Solver) NumVars() int {
	return s.nvars
}

// SetOptDir sets the optimization direction.
func (s *Solver) SetOptDir(d OptDir) {
	s.dir = d
}

// Dir returns the optimization direction.
func (s *Solver) Dir() OptDir {
	return s.dir
}

// IsBasic reports whether x currently has a tableau row.
func (s *Solver) IsBasic(x la.Var) bool {
	_, ok := s.tableau[x]
	return ok
}

// LB returns a copy of the lower bound of x, or nil if unbounded.
func (s *Solver) LB(x la.Var) *big.Rat {
	if l, ok := s.lb[x]; ok {
		return new(big.Rat).Set(l)
	}
	return nil
}

// UB returns a copy of the upper bound of x, or nil if unbounded.
func (s *Solver) UB(x la.Var) *big.Rat {
	if u, ok := s.ub[x]; ok {
		return new(big.Rat).Set(u)
	}
	return nil
}

// Value returns a copy of the current assignment of x.
func (s *Solver) Value(x la.Var) *big.Rat {
	return s.model.Value(x)
}

// Row returns a copy of the defining expression of the basic variable
// x, or nil if x is non-basic.
func (s *Solver) Row(x la.Var) *la.Expr {
	if row, ok := s.tableau[x]; ok {
		return row.Copy()
	}
	return nil
}

// Model returns a copy of the current assignment of every ordinary
// variable, slacks included.
func (s *Solver) Model() la.Model {
	out := make(la.Model, s.nvars)
	for v := la.Var(0); int(v) < s.nvars; v++ {
		out[v] = s.model.Value(v)
	}
	return out
}

// ObjValue returns a copy of the current objective value.
func (s *Solver) ObjValue() *big.Rat {
	return s.model.Value(ObjVar)
}

// Clone returns a deep copy of the solver: tableau, bounds, model,
// variable counter and direction. The logger is not copied; the clone
// starts silent. Clones never renumber variables, so index-based
// tie-breaks agree across the whole branch-and-bound tree.
func (s *Solver) Clone() *Solver {
	out := &Solver{
		tableau: make(map[la.Var]*la.Expr, len(s.tableau)),
		lb:      make(map[la.Var]*big.Rat, len(s.lb)),
		ub:      make(map[la.Var]*big.Rat, len(s.ub)),
		model:   s.model.Copy(),
		nvars:   s.nvars,
		dir:     s.dir,
		ok:      s.ok,
		log:     zerolog.Nop(),
	}
	for v, row := range s.tableau {
		out.tableau[v] = row.Copy()
	}
	for v, r := range s.lb {
		out.lb[v] = new(big.Rat).Set(r)
	}
	for v, r := range s.ub {
		out.ub[v] = new(big.Rat).Set(r)
	}
	return out
}

// SetObj installs e as the objective. Basic-variable definitions are
// substituted in so the objective row stays expressed in non-basic
// variables only.
func (s *Solver) SetObj(e *la.Expr) {
	row := s.substituteDefs(e)
	s.tableau[ObjVar] = row
	s.model[ObjVar] = row.Eval(s.model)
}

// AssertAtom normalizes a to "variable REL constant" and asserts the
// resulting bounds. A bare single-variable side reuses that variable;
// anything else gets a fresh slack variable defined by the linear
// combination and inserted as a new tableau row.
func (s *Solver) AssertAtom(a la.Atom) {
	e := a.LHS.Sub(a.RHS)
	op := a.Op
	c := e.ConstTerm()
	c.Neg(c)
	lhs := e.WithoutConst()

	var x la.Var
	if v, k, single := lhs.SingleTerm(); single {
		x = v
		if k.Sign() < 0 {
			op = op.Flip()
		}
		if k.Cmp(ratOne) != 0 {
			c.Quo(c, k)
		}
	} else {
		def := s.substituteDefs(lhs)
		x = s.NewVar()
		s.tableau[x] = def
		s.model[x] = def.Eval(s.model)
	}

	switch op {
	case la.Le:
		s.AssertUpper(x, c)
	case la.Ge:
		s.AssertLower(x, c)
	case la.Eql:
		s.AssertLower(x, c)
		s.AssertUpper(x, c)
	}
}

// AssertLower tightens the lower bound of x to l. Bounds only ever
// tighten; a bound weaker than the current one is ignored. A
// contradiction with the upper bound marks the solver permanently
// infeasible.
func (s *Solver) AssertLower(x la.Var, l *big.Rat) {
	if cur, ok := s.lb[x]; ok && l.Cmp(cur) <= 0 {
		return
	}
	l = new(big.Rat).Set(l)
	s.lb[x] = l
	if u, ok := s.ub[x]; ok && l.Cmp(u) > 0 {
		s.log.Debug().Int("var", int(x)).Msg("lower bound contradicts upper bound")
		s.ok = false
		return
	}
	if !s.IsBasic(x) && s.model[x].Cmp(l) < 0 {
		s.updateNonbasic(x, l)
	}
}

// AssertUpper tightens the upper bound of x to u, mirroring
// AssertLower.
func (s *Solver) AssertUpper(x la.Var, u *big.Rat) {
	if cur, ok := s.ub[x]; ok && u.Cmp(cur) >= 0 {
		return
	}
	u = new(big.Rat).Set(u)
	s.ub[x] = u
	if l, ok := s.lb[x]; ok && u.Cmp(l) < 0 {
		s.log.Debug().Int("var", int(x)).Msg("upper bound contradicts lower bound")
		s.ok = false
		return
	}
	if !s.IsBasic(x) && s.model[x].Cmp(u) > 0 {
		s.updateNonbasic(x, u)
	}
}

// updateNonbasic re-assigns the non-basic variable x to v and
// propagates the delta through every basic row, the objective
// included. No pivot happens here.
func (s *Solver) updateNonbasic(x la.Var, v *big.Rat) {
	delta := new(big.Rat).Sub(v, s.model[x])
	if delta.Sign() == 0 {
		return
	}
	s.model[x] = new(big.Rat).Set(v)
	for xk, row := range s.tableau {
		a := row.Coeff(x)
		if a.Sign() == 0 {
			continue
		}
		s.model[xk].Add(s.model[xk], a.Mul(a, delta))
	}
}

// substituteDefs replaces every basic variable occurring in e by its
// tableau definition, yielding an expression over non-basic variables.
func (s *Solver) substituteDefs(e *la.Expr) *la.Expr {
	out := e.Copy()
	for _, v := range e.Vars() {
		if def, ok := s.tableau[v]; ok {
			out = out.Subst(v, def)
		}
	}
	return out
}

// basicVars returns the basic variables in ascending order, ObjVar
// excluded.
func (s *Solver) basicVars() []la.Var {
	vs := make([]la.Var, 0, len(s.tableau))
	for v := range s.tableau {
		if v == ObjVar {
			continue
		}
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

var ratOne = big.NewRat(1, 1)
