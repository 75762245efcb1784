package simplex

import (
	"fmt"
	"math"
	"math/big"

	"gonum.org/v1/gonum/mat"

	"github.com/chotong/toysolver/la"
)

// FromDense builds a solver from the dense form
//
//	optimize  c·x
//	subject to rowLB <= A*x <= rowUB, colLB <= x <= colUB
//
// and returns it together with the allocated variables in column
// order. Bound entries of ±Inf mean "no bound"; nil rowLB/rowUB/colLB/
// colUB slices mean no bounds on that side at all. Every finite float
// is converted to an exact rational, so the engine solves precisely
// the problem stated by the floats.
func FromDense(dir OptDir, c []float64, a *mat.Dense, rowLB, rowUB, colLB, colUB []float64) (*Solver, []la.Var, error) {
	rows, cols := a.Dims()
	if len(c) != cols {
		return nil, nil, fmt.Errorf("simplex: objective has %d entries, matrix has %d columns", len(c), cols)
	}
	for name, b := range map[string][]float64{"rowLB": rowLB, "rowUB": rowUB} {
		if b != nil && len(b) != rows {
			return nil, nil, fmt.Errorf("simplex: %s has %d entries, matrix has %d rows", name, len(b), rows)
		}
	}
	for name, b := range map[string][]float64{"colLB": colLB, "colUB": colUB} {
		if b != nil && len(b) != cols {
			return nil, nil, fmt.Errorf("simplex: %s has %d entries, matrix has %d columns", name, len(b), cols)
		}
	}

	s := New()
	s.SetOptDir(dir)
	xs := make([]la.Var, cols)
	for j := range xs {
		xs[j] = s.NewVar()
	}

	toRat := func(f float64) (*big.Rat, error) {
		r := new(big.Rat).SetFloat64(f)
		if r == nil {
			return nil, fmt.Errorf("simplex: %v is not a finite coefficient", f)
		}
		return r, nil
	}

	obj := la.NewExpr()
	for j, cj := range c {
		r, err := toRat(cj)
		if err != nil {
			return nil, nil, err
		}
		obj = obj.Add(la.Term(r, xs[j]))
	}
	s.SetObj(obj)

	for j := range xs {
		if colLB != nil && !math.IsInf(colLB[j], -1) {
			r, err := toRat(colLB[j])
			if err != nil {
				return nil, nil, err
			}
			s.AssertLower(xs[j], r)
		}
		if colUB != nil && !math.IsInf(colUB[j], 1) {
			r, err := toRat(colUB[j])
			if err != nil {
				return nil, nil, err
			}
			s.AssertUpper(xs[j], r)
		}
	}

	for i := 0; i < rows; i++ {
		e := la.NewExpr()
		for j := 0; j < cols; j++ {
			if a.At(i, j) == 0 {
				continue
			}
			r, err := toRat(a.At(i, j))
			if err != nil {
				return nil, nil, err
			}
			e = e.Add(la.Term(r, xs[j]))
		}
		if rowLB != nil && !math.IsInf(rowLB[i], -1) {
			r, err := toRat(rowLB[i])
			if err != nil {
				return nil, nil, err
			}
			s.AssertAtom(la.AtomGE(e, la.Constant(r)))
		}
		if rowUB != nil && !math.IsInf(rowUB[i], 1) {
			r, err := toRat(rowUB[i])
			if err != nil {
				return nil, nil, err
			}
			s.AssertAtom(la.AtomLE(e, la.Constant(r)))
		}
	}
	return s, xs, nil
}
