package simplex

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/chotong/toysolver/la"
)

func rat(a, b int64) *big.Rat { return big.NewRat(a, b) }

// checkTableau verifies that every basic row, the objective included,
// evaluates to the assignment of its basic variable.
func checkTableau(t *testing.T, s *Solver) {
	t.Helper()
	for x, row := range s.tableau {
		assert.Equal(t, 0, row.Eval(s.model).Cmp(s.model[x]), "row of variable %d", int(x))
	}
}

// checkFeasible verifies that every assignment respects its bounds.
func checkFeasible(t *testing.T, s *Solver) {
	t.Helper()
	for x, v := range s.model {
		if l, ok := s.lb[x]; ok {
			assert.True(t, v.Cmp(l) >= 0, "variable %d below lower bound", int(x))
		}
		if u, ok := s.ub[x]; ok {
			assert.True(t, v.Cmp(u) <= 0, "variable %d above upper bound", int(x))
		}
	}
}

func TestCheckEqualitySystem(t *testing.T) {
	s := New()
	x := s.NewVar()
	y := s.NewVar()
	z := s.NewVar()

	a1 := la.AtomEq(
		la.Term(rat(7, 1), x).Add(la.Term(rat(12, 1), y)).Add(la.Term(rat(31, 1), z)),
		la.Constant(rat(17, 1)),
	)
	a2 := la.AtomEq(
		la.Term(rat(3, 1), x).Add(la.Term(rat(5, 1), y)).Add(la.Term(rat(14, 1), z)),
		la.Constant(rat(7, 1)),
	)
	s.AssertAtom(a1)
	s.AssertAtom(a2)
	s.AssertLower(x, rat(1, 1))
	s.AssertUpper(x, rat(40, 1))
	s.AssertLower(y, rat(-50, 1))
	s.AssertUpper(y, rat(50, 1))

	require.True(t, s.Check())
	m := s.Model()
	assert.True(t, a1.Holds(m))
	assert.True(t, a2.Holds(m))
	checkTableau(t, s)
	checkFeasible(t, s)
}

func TestOptimizeBoundedColumns(t *testing.T) {
	// minimize -x1 - 2*x2 - 3*x3 - x4
	// s.t. -x1 + x2 + x3 + 10*x4 <= 20
	//       x1 - 3*x2 + x3       <= 30
	//            x2       - 3.5*x4 = 0
	// 0 <= x1 <= 40, x2 >= 0, x3 >= 0, 2 <= x4 <= 3
	s := New()
	x1 := s.NewVar()
	x2 := s.NewVar()
	x3 := s.NewVar()
	x4 := s.NewVar()

	obj := la.Term(rat(-1, 1), x1).
		Add(la.Term(rat(-2, 1), x2)).
		Add(la.Term(rat(-3, 1), x3)).
		Add(la.Term(rat(-1, 1), x4))
	s.SetObj(obj)

	s.AssertAtom(la.AtomLE(
		la.Term(rat(-1, 1), x1).Add(la.Variable(x2)).Add(la.Variable(x3)).Add(la.Term(rat(10, 1), x4)),
		la.Constant(rat(20, 1)),
	))
	s.AssertAtom(la.AtomLE(
		la.Variable(x1).Add(la.Term(rat(-3, 1), x2)).Add(la.Variable(x3)),
		la.Constant(rat(30, 1)),
	))
	s.AssertAtom(la.AtomEq(
		la.Variable(x2).Add(la.Term(rat(-7, 2), x4)),
		la.Constant(rat(0, 1)),
	))
	s.AssertLower(x1, rat(0, 1))
	s.AssertUpper(x1, rat(40, 1))
	s.AssertLower(x2, rat(0, 1))
	s.AssertLower(x3, rat(0, 1))
	s.AssertLower(x4, rat(2, 1))
	s.AssertUpper(x4, rat(3, 1))

	require.Equal(t, Optimum, s.Optimize())
	assert.Equal(t, 0, s.ObjValue().Cmp(rat(-3005, 24)))
	assert.Equal(t, 0, obj.Eval(s.Model()).Cmp(rat(-3005, 24)))
	checkTableau(t, s)
	checkFeasible(t, s)

	// optimal means no entering variable remains
	_, _, found := s.pickEnteringObj()
	assert.False(t, found)
}

func TestFromDense(t *testing.T) {
	// minimize 3*x1 + 4*x2 + 5*x3
	// s.t. x1 + 2*x2 + 3*x3 >= 5, 2*x1 + 2*x2 + x3 >= 6, x >= 0
	a := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		2, 2, 1,
	})
	s, xs, err := FromDense(
		Minimize,
		[]float64{3, 4, 5},
		a,
		[]float64{5, 6}, nil,
		[]float64{0, 0, 0}, nil,
	)
	require.NoError(t, err)
	require.Len(t, xs, 3)

	require.Equal(t, Optimum, s.Optimize())
	assert.Equal(t, 0, s.ObjValue().Cmp(rat(11, 1)))
	checkTableau(t, s)
	checkFeasible(t, s)

	_, _, found := s.pickEnteringObj()
	assert.False(t, found)
}

func TestFromDenseDimensionMismatch(t *testing.T) {
	a := mat.NewDense(2, 3, nil)
	_, _, err := FromDense(Minimize, []float64{1, 2}, a, nil, nil, nil, nil)
	assert.Error(t, err)
	_, _, err = FromDense(Minimize, []float64{1, 2, 3}, a, []float64{1}, nil, nil, nil)
	assert.Error(t, err)
	_, _, err = FromDense(Minimize, []float64{1, 2, 3}, a, nil, nil, []float64{0, 0}, nil)
	assert.Error(t, err)
}

func TestDualSimplexReoptimizes(t *testing.T) {
	s := New()
	x1 := s.NewVar()
	x2 := s.NewVar()
	x3 := s.NewVar()
	s.SetObj(la.Term(rat(3, 1), x1).Add(la.Term(rat(4, 1), x2)).Add(la.Term(rat(5, 1), x3)))
	s.AssertAtom(la.AtomGE(
		la.Variable(x1).Add(la.Term(rat(2, 1), x2)).Add(la.Term(rat(3, 1), x3)),
		la.Constant(rat(5, 1)),
	))
	s.AssertAtom(la.AtomGE(
		la.Term(rat(2, 1), x1).Add(la.Term(rat(2, 1), x2)).Add(la.Variable(x3)),
		la.Constant(rat(6, 1)),
	))
	for _, x := range []la.Var{x1, x2, x3} {
		s.AssertLower(x, rat(0, 1))
	}
	require.Equal(t, Optimum, s.Optimize())
	require.Equal(t, 0, s.ObjValue().Cmp(rat(11, 1)))

	// the optimum has x1 = 1; forcing x1 >= 2 moves it to 23/2
	s.AssertLower(x1, rat(2, 1))
	require.True(t, s.DualSimplex(nil))
	assert.Equal(t, 0, s.ObjValue().Cmp(rat(23, 2)))
	checkTableau(t, s)
	checkFeasible(t, s)
}

func TestDualSimplexObjLimit(t *testing.T) {
	s := New()
	x1 := s.NewVar()
	x2 := s.NewVar()
	x3 := s.NewVar()
	s.SetObj(la.Term(rat(3, 1), x1).Add(la.Term(rat(4, 1), x2)).Add(la.Term(rat(5, 1), x3)))
	s.AssertAtom(la.AtomGE(
		la.Variable(x1).Add(la.Term(rat(2, 1), x2)).Add(la.Term(rat(3, 1), x3)),
		la.Constant(rat(5, 1)),
	))
	s.AssertAtom(la.AtomGE(
		la.Term(rat(2, 1), x1).Add(la.Term(rat(2, 1), x2)).Add(la.Variable(x3)),
		la.Constant(rat(6, 1)),
	))
	for _, x := range []la.Var{x1, x2, x3} {
		s.AssertLower(x, rat(0, 1))
	}
	require.Equal(t, Optimum, s.Optimize())

	// re-optimizing after x1 >= 2 would end at 23/2, past the cutoff
	s.AssertLower(x1, rat(2, 1))
	assert.False(t, s.DualSimplex(rat(45, 4)))

	// a cutoff stop is not a contradiction
	assert.True(t, s.Check())
	checkFeasible(t, s)
}

func TestOptimizeUnbounded(t *testing.T) {
	s := New()
	x := s.NewVar()
	s.SetOptDir(Maximize)
	s.SetObj(la.Variable(x))
	s.AssertLower(x, rat(0, 1))
	assert.Equal(t, Unbounded, s.Optimize())
}

func TestAssertAtomReusesSingleVariable(t *testing.T) {
	s := New()
	x := s.NewVar()
	before := s.NumVars()

	// 2*x <= 10 becomes x <= 5 on x itself
	s.AssertAtom(la.AtomLE(la.Term(rat(2, 1), x), la.Constant(rat(10, 1))))
	assert.Equal(t, before, s.NumVars())
	require.NotNil(t, s.UB(x))
	assert.Equal(t, 0, s.UB(x).Cmp(rat(5, 1)))

	// a negative coefficient flips the operator
	s.AssertAtom(la.AtomLE(la.Term(rat(-1, 1), x), la.Constant(rat(-3, 1))))
	require.NotNil(t, s.LB(x))
	assert.Equal(t, 0, s.LB(x).Cmp(rat(3, 1)))

	// a multi-term side gets a slack variable
	y := s.NewVar()
	n := s.NumVars()
	s.AssertAtom(la.AtomLE(la.Variable(x).Add(la.Variable(y)), la.Constant(rat(7, 1))))
	assert.Equal(t, n+1, s.NumVars())
}

func TestBoundsOnlyTighten(t *testing.T) {
	s := New()
	x := s.NewVar()
	s.AssertLower(x, rat(2, 1))
	s.AssertLower(x, rat(1, 1))
	assert.Equal(t, 0, s.LB(x).Cmp(rat(2, 1)))

	s.AssertUpper(x, rat(5, 1))
	s.AssertUpper(x, rat(9, 1))
	assert.Equal(t, 0, s.UB(x).Cmp(rat(5, 1)))

	// tightening moves a non-basic assignment onto the bound
	assert.Equal(t, 0, s.Value(x).Cmp(rat(2, 1)))
}

func TestContradictionIsSticky(t *testing.T) {
	s := New()
	x := s.NewVar()
	s.AssertLower(x, rat(3, 1))
	s.AssertUpper(x, rat(2, 1))

	assert.False(t, s.Check())
	assert.False(t, s.Check())
	assert.False(t, s.DualSimplex(nil))
	assert.Equal(t, Unsat, s.Optimize())
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	x := s.NewVar()
	y := s.NewVar()
	s.SetObj(la.Variable(x).Add(la.Variable(y)))
	s.AssertAtom(la.AtomLE(la.Variable(x).Add(la.Variable(y)), la.Constant(rat(4, 1))))
	require.True(t, s.Check())

	c := s.Clone()
	assert.Equal(t, s.NumVars(), c.NumVars())
	assert.Equal(t, s.Dir(), c.Dir())

	c.AssertLower(x, rat(10, 1))
	assert.Nil(t, s.LB(x))
	assert.Equal(t, 0, s.Value(x).Sign())
	assert.Equal(t, 0, c.Value(x).Cmp(rat(10, 1)))
}

func TestMaximizeMirrorsMinimize(t *testing.T) {
	build := func(dir OptDir, sign int64) *Solver {
		s := New()
		x := s.NewVar()
		y := s.NewVar()
		s.SetOptDir(dir)
		s.SetObj(la.Term(rat(sign*3, 1), x).Add(la.Term(rat(sign*2, 1), y)))
		s.AssertAtom(la.AtomLE(
			la.Variable(x).Add(la.Variable(y)), la.Constant(rat(4, 1)),
		))
		s.AssertAtom(la.AtomLE(
			la.Variable(x).Add(la.Term(rat(3, 1), y)), la.Constant(rat(6, 1)),
		))
		s.AssertLower(x, rat(0, 1))
		s.AssertLower(y, rat(0, 1))
		return s
	}

	mx := build(Maximize, 1)
	require.Equal(t, Optimum, mx.Optimize())
	mn := build(Minimize, -1)
	require.Equal(t, Optimum, mn.Optimize())
	assert.Equal(t, 0, mx.ObjValue().Cmp(new(big.Rat).Neg(mn.ObjValue())))
	assert.Equal(t, 0, mx.ObjValue().Cmp(rat(12, 1)))
}
