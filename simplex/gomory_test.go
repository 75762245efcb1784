package simplex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotong/toysolver/la"
)

// Maximize x + y over x + y <= 3/2, 0 <= x, y <= 1 with y integer. The
// relaxation puts y at 1/2; the cut derived from y's row must exclude
// that point and re-optimization lands on an integral y.
func TestDeriveGomoryCut(t *testing.T) {
	s := New()
	x := s.NewVar()
	y := s.NewVar()
	s.SetOptDir(Maximize)
	s.SetObj(la.Variable(x).Add(la.Variable(y)))
	s.AssertAtom(la.AtomLE(la.Variable(x).Add(la.Variable(y)), la.Constant(rat(3, 2))))
	s.AssertLower(x, rat(0, 1))
	s.AssertUpper(x, rat(1, 1))
	s.AssertLower(y, rat(0, 1))
	s.AssertUpper(y, rat(1, 1))

	require.Equal(t, Optimum, s.Optimize())
	require.Equal(t, 0, s.ObjValue().Cmp(rat(3, 2)))
	require.Equal(t, 0, s.Value(y).Cmp(rat(1, 2)))
	require.True(t, s.IsBasic(y))

	ivs := map[la.Var]bool{y: true}
	require.True(t, CanDeriveGomoryCut(s, y))
	cut, ok := DeriveGomoryCut(s, ivs, y)
	require.True(t, ok)

	// the cut must separate the fractional optimum
	full := s.model.Copy()
	assert.False(t, cut.Holds(full))

	// after the cut the optimum moves to (1/2, 1) with the same
	// objective and an integral y
	s.AssertAtom(cut)
	require.True(t, s.DualSimplex(nil))
	require.Equal(t, Optimum, s.Optimize())
	assert.Equal(t, 0, s.ObjValue().Cmp(rat(3, 2)))
	assert.Equal(t, 0, s.Value(x).Cmp(rat(1, 2)))
	assert.True(t, s.Value(y).IsInt())
}

func TestCanDeriveGomoryCutPreconditions(t *testing.T) {
	s := New()
	x := s.NewVar()
	y := s.NewVar()
	s.SetOptDir(Maximize)
	s.SetObj(la.Variable(x).Add(la.Variable(y)))
	s.AssertAtom(la.AtomLE(la.Variable(x).Add(la.Variable(y)), la.Constant(rat(3, 2))))
	s.AssertLower(x, rat(0, 1))
	s.AssertUpper(x, rat(1, 1))
	s.AssertLower(y, rat(0, 1))
	s.AssertUpper(y, rat(1, 1))
	require.Equal(t, Optimum, s.Optimize())

	// x sits on its bound: non-basic, no row to cut from
	assert.False(t, CanDeriveGomoryCut(s, x))
	// the objective row never yields a cut
	assert.False(t, CanDeriveGomoryCut(s, ObjVar))

	// integral basic value: nothing to separate
	s2 := New()
	a := s2.NewVar()
	b := s2.NewVar()
	s2.AssertAtom(la.AtomEq(la.Variable(a).Add(la.Variable(b)), la.Constant(rat(2, 1))))
	s2.AssertLower(a, rat(0, 1))
	s2.AssertLower(b, rat(0, 1))
	require.True(t, s2.Check())
	for _, v := range []la.Var{a, b} {
		if s2.IsBasic(v) {
			assert.False(t, CanDeriveGomoryCut(s2, v))
		}
	}
}
