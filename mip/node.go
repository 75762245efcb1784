package mip

import (
	"math/big"
	"sync"

	"github.com/chotong/toysolver/la"
	"github.com/chotong/toysolver/simplex"
)

// node is one branch-and-bound subproblem. Each node owns its engine
// clone outright, so workers never share simplex state. bound is the
// parent's relaxation objective at branch time; it is written before
// the node enters the pool and never after.
type node struct {
	lp    *simplex.Solver
	depth int
	bound *big.Rat
}

// incumbent guards the best integer-feasible solution found so far.
// The coordinator alone replaces it; workers read it for the pruning
// cutoff. The stored map and objective belong to the cell and are
// never handed out without copying.
type incumbent struct {
	mu    sync.Mutex
	dir   simplex.OptDir
	model la.Model
	obj   *big.Rat
}

// limit returns a copy of the current incumbent objective, usable as a
// dual-simplex cutoff, or nil when nothing was found yet.
func (inc *incumbent) limit() *big.Rat {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.obj == nil {
		return nil
	}
	return new(big.Rat).Set(inc.obj)
}

// tryReplace installs (m, obj) as the incumbent when obj strictly
// improves on the current one in the optimization direction. It
// reports whether the replacement happened.
func (inc *incumbent) tryReplace(m la.Model, obj *big.Rat) bool {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.obj != nil {
		cmp := obj.Cmp(inc.obj)
		if inc.dir == simplex.Minimize && cmp >= 0 {
			return false
		}
		if inc.dir == simplex.Maximize && cmp <= 0 {
			return false
		}
	}
	inc.model = m
	inc.obj = obj
	return true
}

// snapshot returns copies of the incumbent, or ok=false when none
// exists.
func (inc *incumbent) snapshot() (la.Model, *big.Rat, bool) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.obj == nil {
		return nil, nil, false
	}
	return inc.model.Copy(), new(big.Rat).Set(inc.obj), true
}
