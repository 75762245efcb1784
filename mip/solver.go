// Package mip solves mixed-integer programs by branch-and-bound over
// the exact-rational simplex engine.
//
// A Solver wraps an LP together with the set of variables required to
// take integer values. The search runs on a configurable number of
// workers; every subproblem owns its own engine clone and the workers
// share nothing but the incumbent and the node pool. Results are exact
// rationals end to end.
package mip

import (
	"errors"
	"math/big"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/chotong/toysolver/la"
	"github.com/chotong/toysolver/logger"
	"github.com/chotong/toysolver/simplex"
)

// ErrNoSolution is returned by Model and ObjValue when the last
// Optimize call did not produce an optimal solution.
var ErrNoSolution = errors.New("mip: no solution available")

// SolutionFunc is called by Optimize each time a new incumbent is
// found, with the assignment and its objective value. Calls are
// serialized; the arguments are owned by the callee.
type SolutionFunc func(m la.Model, obj *big.Rat)

// Solver is a mixed-integer optimizer over a relaxation lp and a set
// of integer variables. It is not safe for concurrent use; the
// parallelism lives inside Optimize.
type Solver struct {
	lp      *simplex.Solver
	ivs     map[la.Var]bool
	ivList  []la.Var
	nthread int
	showRat bool
	log     zerolog.Logger

	model  la.Model
	objVal *big.Rat
}

// New wraps a copy of lp for mixed-integer optimization; the caller's
// solver is never touched. Fractional bounds on integer variables are
// tightened to the enclosed integers up front, so the root relaxation
// already reflects integrality where a bound alone decides it.
func New(lp *simplex.Solver, ivs []la.Var) *Solver {
	s := &Solver{
		lp:      lp.Clone(),
		ivs:     make(map[la.Var]bool, len(ivs)),
		nthread: runtime.NumCPU(),
		log:     zerolog.Nop(),
	}
	for _, x := range ivs {
		if s.ivs[x] {
			continue
		}
		s.ivs[x] = true
		s.ivList = append(s.ivList, x)
		if l := s.lp.LB(x); l != nil && !l.IsInt() {
			s.lp.AssertLower(x, la.Ceil(l))
		}
		if u := s.lp.UB(x); u != nil && !u.IsInt() {
			s.lp.AssertUpper(x, la.Floor(u))
		}
	}
	return s
}

// SetNThread sets the number of search workers. Values <= 0 select
// runtime.NumCPU().
func (s *Solver) SetNThread(n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	s.nthread = n
}

// SetLogger installs a line sink for search diagnostics. A nil sink
// silences the solver.
func (s *Solver) SetLogger(sink logger.Sink) {
	s.log = logger.New(sink)
}

// SetShowRational selects exact rational rendering of objective values
// in log lines instead of the default decimal approximation.
func (s *Solver) SetShowRational(b bool) {
	s.showRat = b
}

// Optimize solves the mixed-integer program. cb, when non-nil, is
// invoked on every incumbent improvement.
//
// An unbounded relaxation does not settle the question when integer
// variables exist: the integer constraints alone can still be
// infeasible. That case is decided by a feasibility probe, a full
// search under a zero objective, and reported as Unbounded or Unsat
// accordingly.
func (s *Solver) Optimize(cb SolutionFunc) (simplex.Result, error) {
	s.model = nil
	s.objVal = nil

	objRow := s.lp.Row(simplex.ObjVar)
	switch r := s.lp.Optimize(); r {
	case simplex.Unsat:
		return simplex.Unsat, nil
	case simplex.Unbounded:
		if len(s.ivList) == 0 {
			return simplex.Unbounded, nil
		}
		probe := s.lp.Clone()
		probe.SetObj(la.NewExpr())
		if probe.Optimize() != simplex.Optimum {
			return simplex.Unsat, nil
		}
		m, _, found, err := s.branchAndBound(probe, cb)
		if err != nil {
			return simplex.Unsat, err
		}
		if !found {
			return simplex.Unsat, nil
		}
		s.model = m
		// the probe searched under a zero objective, so its own
		// objective value is meaningless; evaluate the real one
		s.objVal = objRow.Eval(m)
		return simplex.Unbounded, nil
	case simplex.Optimum:
		m, obj, found, err := s.branchAndBound(s.lp.Clone(), cb)
		if err != nil {
			return simplex.Unsat, err
		}
		if !found {
			return simplex.Unsat, nil
		}
		s.model = m
		s.objVal = obj
		return simplex.Optimum, nil
	default:
		return r, nil
	}
}

// Model returns the assignment of the last Optimize call, or
// ErrNoSolution when none is available.
func (s *Solver) Model() (la.Model, error) {
	if s.model == nil {
		return nil, ErrNoSolution
	}
	return s.model.Copy(), nil
}

// ObjValue returns the objective value of the last Optimize call, or
// ErrNoSolution when none is available.
func (s *Solver) ObjValue() (*big.Rat, error) {
	if s.objVal == nil {
		return nil, ErrNoSolution
	}
	return new(big.Rat).Set(s.objVal), nil
}
