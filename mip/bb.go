package mip

import (
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chotong/toysolver/la"
	"github.com/chotong/toysolver/simplex"
)

// cutPeriod selects the tree depths at which a cutting plane is tried
// before branching.
const cutPeriod = 100

// progressEvery is how often the coordinator reports search progress.
const progressEvery = 2 * time.Second

type solution struct {
	model la.Model
	obj   *big.Rat
}

// branchAndBound searches the tree rooted at the given engine, which
// must already hold an optimal solution of the relaxation. It runs
// s.nthread workers; the calling goroutine is the coordinator, which
// alone accepts incumbents, invokes the callback and logs progress.
// It returns the best integer-feasible solution found, or ok=false
// when none exists.
func (s *Solver) branchAndBound(root *simplex.Solver, cb SolutionFunc) (la.Model, *big.Rat, bool, error) {
	inc := &incumbent{dir: root.Dir()}
	pool := newNodePool()
	pool.put(&node{lp: root, depth: 0, bound: root.ObjValue()})

	solCh := make(chan solution, s.nthread)
	var g errgroup.Group
	for i := 0; i < s.nthread; i++ {
		g.Go(func() error {
			for {
				n, ok := pool.pick()
				if !ok {
					return nil
				}
				err := s.processNode(pool, inc, solCh, n)
				pool.finish(n)
				if err != nil {
					pool.abort()
					return err
				}
			}
		})
	}
	workers := make(chan error, 1)
	go func() { workers <- g.Wait() }()

	ticker := time.NewTicker(progressEvery)
	defer ticker.Stop()
	for {
		select {
		case sol := <-solCh:
			s.acceptSolution(inc, sol, cb)
		case <-ticker.C:
			s.logProgress(pool, inc, root.Dir())
		case err := <-workers:
			for {
				select {
				case sol := <-solCh:
					s.acceptSolution(inc, sol, cb)
				default:
					m, obj, found := inc.snapshot()
					return m, obj, found, err
				}
			}
		}
	}
}

// processNode re-optimizes one subproblem and either prunes it,
// offers it to the coordinator as a candidate incumbent, tightens it
// with a cutting plane, or splits it on its most fractional variable.
func (s *Solver) processNode(pool *nodePool, inc *incumbent, solCh chan<- solution, n *node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mip: worker panic: %v", r)
		}
	}()

	// The incumbent doubles as an objective cutoff: a subproblem that
	// cannot strictly beat it is fathomed without reaching its optimum.
	if !n.lp.DualSimplex(inc.limit()) {
		return nil
	}

	fvs := s.fractionalVars(n.lp)
	if len(fvs) == 0 {
		// Candidates go to the coordinator, which does the
		// compare-and-accept. Deciding here and sending later would
		// let two workers' reports cross on the channel.
		solCh <- solution{model: n.lp.Model(), obj: n.lp.ObjValue()}
		return nil
	}

	if n.depth%cutPeriod == 0 {
		for _, x := range fvs {
			if !simplex.CanDeriveGomoryCut(n.lp, x) {
				continue
			}
			cut, ok := simplex.DeriveGomoryCut(n.lp, s.ivs, x)
			if !ok {
				continue
			}
			s.log.Debug().Int("depth", n.depth).Int("var", int(x)).Msg("gomory cut")
			bound := n.lp.ObjValue()
			n.lp.AssertAtom(cut)
			pool.put(&node{lp: n.lp, depth: n.depth + 1, bound: bound})
			return nil
		}
	}

	x := s.pickBranchVar(n.lp, fvs)
	v := n.lp.Value(x)
	bound := n.lp.ObjValue()

	lo := n.lp.Clone()
	lo.AssertUpper(x, la.Floor(v))
	pool.put(&node{lp: lo, depth: n.depth + 1, bound: bound})

	hi := n.lp
	hi.AssertLower(x, la.Ceil(v))
	pool.put(&node{lp: hi, depth: n.depth + 1, bound: new(big.Rat).Set(bound)})
	return nil
}

// fractionalVars returns the integer variables whose current value is
// not integral, in ascending index order.
func (s *Solver) fractionalVars(lp *simplex.Solver) []la.Var {
	var out []la.Var
	for _, x := range s.ivList {
		if !lp.Value(x).IsInt() {
			out = append(out, x)
		}
	}
	return out
}

// pickBranchVar returns the candidate farthest from its nearest
// integer, ties broken by the lowest index.
func (s *Solver) pickBranchVar(lp *simplex.Solver, fvs []la.Var) la.Var {
	best := fvs[0]
	bestDist := la.IntDistance(lp.Value(best))
	for _, x := range fvs[1:] {
		d := la.IntDistance(lp.Value(x))
		if d.Cmp(bestDist) > 0 {
			best, bestDist = x, d
		}
	}
	return best
}

// acceptSolution installs a candidate as the incumbent when it is
// strictly better. The incumbent cell keeps the candidate's map and
// objective for itself; the callback receives copies.
func (s *Solver) acceptSolution(inc *incumbent, sol solution, cb SolutionFunc) {
	if !inc.tryReplace(sol.model, sol.obj) {
		return
	}
	s.log.Info().Str("objective", s.fmtRat(sol.obj)).Msg("new incumbent")
	if cb != nil {
		cb(sol.model.Copy(), new(big.Rat).Set(sol.obj))
	}
}

func (s *Solver) logProgress(pool *nodePool, inc *incumbent, dir simplex.OptDir) {
	visited, open, dual := pool.stats(dir)
	ev := s.log.Info().Int("visited", visited).Int("open", open)
	_, primal, found := inc.snapshot()
	if found {
		ev = ev.Str("primal", s.fmtRat(primal))
	}
	if dual != nil {
		ev = ev.Str("dual", s.fmtRat(dual))
	}
	if found && dual != nil && primal.Sign() != 0 {
		gap := new(big.Rat).Sub(primal, dual)
		gap.Abs(gap)
		gap.Quo(gap, new(big.Rat).Abs(primal))
		f, _ := gap.Float64()
		ev = ev.Float64("gap", f)
	}
	ev.Msg("search progress")
}

func (s *Solver) fmtRat(r *big.Rat) string {
	if s.showRat {
		return r.RatString()
	}
	return r.FloatString(6)
}
