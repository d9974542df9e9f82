package constraints

import (
	"math/big"
	"testing"

	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/expr"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	arrays.ResetArena()
	m.Run()
}

// sym builds a width-bit symbolic value from byte-wide reads: whole
// bytes concatenate little-endian, and a sub-byte width extracts the
// low bits of a single read.
func sym(name string, width expr.Width) *expr.Expr {
	n := (int(width) + 7) / 8
	a := arrays.NewSymbolicArray(name, uint64(n), 32, 8)
	u := arrays.NewUpdateList(a)
	v := arrays.Read(expr.CreateZero(32), a, u)
	for i := 1; i < n; i++ {
		hi := arrays.Read(expr.CreateIntConstant(big.NewInt(int64(i)), 32), a, u)
		v = expr.CreateConcat(hi, v)
	}
	if expr.Width(n*8) != width {
		v = expr.CreateExtract(v, 0, width)
	}
	return v
}

func i(v int64, w expr.Width) *expr.Expr {
	return expr.CreateIntConstant(big.NewInt(v), w)
}

func TestNaiveSolverComputeValidityOfTautology(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 4)
	query := expr.CreateEq(x, x)
	v, err := s.ComputeValidity(nil, query)
	require.NoError(t, err)
	require.Equal(t, True, v)
}

func TestNaiveSolverComputeValidityOfContradiction(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 4)
	query := expr.CreateEq(x, expr.CreateAdd(x, i(1, 4)))
	v, err := s.ComputeValidity(nil, query)
	require.NoError(t, err)
	require.Equal(t, False, v)
}

func TestNaiveSolverComputeValidityUnknownWhenSplit(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 4)
	query := expr.CreateEq(x, i(3, 4))
	v, err := s.ComputeValidity(nil, query)
	require.NoError(t, err)
	require.Equal(t, Unknown, v)
}

func TestNaiveSolverComputeValueRespectsConstraints(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 4)
	cs := []*expr.Expr{expr.CreateEq(x, i(5, 4))}
	val, err := s.ComputeValue(cs, x)
	require.NoError(t, err)
	require.True(t, val.IsConstant())
	require.Equal(t, int64(5), val.IntValue().Int64())
}

func TestNaiveSolverComputeValueFailsOnUnsatisfiableConstraints(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 4)
	cs := []*expr.Expr{
		expr.CreateEq(x, i(1, 4)),
		expr.CreateEq(x, i(2, 4)),
	}
	_, err := s.ComputeValue(cs, x)
	require.ErrorIs(t, err, ErrSolverFailure)
}

func TestNaiveSolverTooWideReadFails(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 32)
	_, err := s.ComputeValue(nil, x)
	require.ErrorIs(t, err, ErrSolverFailure)
}

func TestNaiveSolverComputeInitialValues(t *testing.T) {
	s := NewNaiveSolver()
	x := sym("x", 8)
	obj := arrays.NewSymbolicArray("buf", 1, 32, 8)
	cs := []*expr.Expr{expr.CreateEq(x, i(7, 8))}
	values, ok, err := s.ComputeInitialValues(cs, []*arrays.Array{obj})
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, values, 1)
	require.Len(t, values[0], 1)
}

func TestManagerMustBeTrueAfterAddingEquality(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	m.Add(expr.CreateEq(x, i(6, 4)))
	ok, err := m.MustBeTrue(expr.CreateEq(x, i(6, 4)))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManagerMustBeFalseAfterAddingEquality(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	m.Add(expr.CreateEq(x, i(6, 4)))
	ok, err := m.MustBeFalse(expr.CreateEq(x, i(7, 4)))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManagerMayBeTrueAndMayBeFalseBeforeConstraining(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	q := expr.CreateEq(x, i(2, 4))
	mayTrue, err := m.MayBeTrue(q)
	require.NoError(t, err)
	require.True(t, mayTrue)
	mayFalse, err := m.MayBeFalse(q)
	require.NoError(t, err)
	require.True(t, mayFalse)
}

func TestManagerGetValue(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	m.Add(expr.CreateEq(x, i(9, 4)))
	v, err := m.GetValue(x)
	require.NoError(t, err)
	require.True(t, v.IsConstant())
	require.Equal(t, int64(9), v.IntValue().Int64())
}

func TestManagerSetReturnsSnapshot(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	m.Add(expr.CreateEq(x, i(1, 4)))
	snap := m.Set()
	require.Len(t, snap, 1)
	m.Add(expr.CreateEq(x, i(2, 4)))
	require.Len(t, snap, 1)
	require.Len(t, m.Set(), 2)
}

func TestManagerSubstitutesKnownEqualityIntoNewConstraint(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	x := sym("x", 4)
	y := sym("y", 4)
	m.Add(expr.CreateEq(i(3, 4), x))
	m.Add(expr.CreateEq(y, x))
	ok, err := m.MustBeTrue(expr.CreateEq(y, i(3, 4)))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRewriteFloatOfFloatEqualityBetweenIdenticalExpressions(t *testing.T) {
	sem := expr.Single
	a := sym("a", 32)
	f := expr.CreateUIntToFp(a, sem)
	rewritten := RewriteFloat(expr.CreateEq(f, f))
	require.True(t, isTrue(evalConcrete(rewritten, map[*expr.Expr]*expr.Expr{})))
}

func TestRewriteFloatOfDifferentCastWidthsIsUnsatisfiable(t *testing.T) {
	sem := expr.Single
	a := sym("a", 16)
	b := sym("b", 32)
	lhs := expr.CreateUIntToFp(a, sem)
	rhs := expr.CreateSIntToFp(b, sem)
	rewritten := RewriteFloat(expr.CreateEq(lhs, rhs))
	require.Same(t, expr.CreateFalse(), rewritten)
}

func TestRewriteFloatFOneIsNegatedEquality(t *testing.T) {
	sem := expr.Single
	a := sym("a", 8)
	f := expr.CreateUIntToFp(a, sem)
	rewritten := RewriteFloat(expr.CreateFOne(f, f))
	require.True(t, isTrue(expr.CreateNot(rewritten)))
}

func TestRewriteFloatResidualComparisonBecomesBooleanConstant(t *testing.T) {
	a := sym("a", 8)
	b := sym("b", 8)
	cmp := expr.CreateFOlt(expr.CreateUIntToFp(a, expr.Single), expr.CreateUIntToFp(b, expr.Single))
	rewritten := RewriteFloat(cmp)
	require.True(t, rewritten.IsConstant())
}

func TestRewriteFloatResidualComparisonRespectsNegatedPolarity(t *testing.T) {
	a := sym("a", 8)
	b := sym("b", 8)
	cmp := expr.CreateFOlt(expr.CreateUIntToFp(a, expr.Single), expr.CreateUIntToFp(b, expr.Single))
	require.Same(t, expr.CreateTrue(), rewritePolarity(cmp, false))
	require.Same(t, expr.CreateFalse(), rewritePolarity(cmp, true))
}

func TestRewriteFloatFusesMatchingMinTreesAsUnconditionallyEqual(t *testing.T) {
	a := expr.CreateUIntToFp(sym("a", 8), expr.Single)
	b := expr.CreateUIntToFp(sym("b", 8), expr.Single)
	min1 := expr.CreateSelect(expr.CreateFOlt(a, b), a, b)
	min2 := expr.CreateSelect(expr.CreateFOlt(b, a), b, a)

	rewritten := RewriteFloat(expr.CreateFUeq(min1, min2))
	require.Same(t, expr.CreateTrue(), rewritten)
}

func TestFuseConstraintsDetectsContradictoryFloatPair(t *testing.T) {
	a := expr.CreateUIntToFp(sym("a", 8), expr.Single)
	b := expr.CreateUIntToFp(sym("b", 8), expr.Single)
	lt := expr.CreateFOlt(a, b)

	// {¬(a<b), (a<b)} can never both hold; fusion must collapse the
	// rewritten set to unsatisfiable even though each constraint alone
	// rewrites to a bare boolean constant.
	fused := RewriteSet([]*expr.Expr{expr.CreateNot(lt), lt})
	require.Same(t, expr.CreateFalse(), fused[0])
}

func TestFuseConstraintsLeavesUnrelatedPairAlone(t *testing.T) {
	x := sym("x", 4)
	c1 := expr.CreateEq(x, i(1, 4))
	c2 := expr.CreateUlt(x, i(8, 4))

	fused := RewriteSet([]*expr.Expr{c1, c2})
	require.Same(t, c1, fused[0])
	require.Same(t, c2, fused[1])
}

func TestRewriteQueryRoundTripsIntegerQuery(t *testing.T) {
	x := sym("x", 4)
	c := expr.CreateEq(x, i(6, 4))
	q := expr.CreateUlt(x, i(7, 4))

	cs, query := RewriteQuery([]*expr.Expr{c}, q)
	require.Len(t, cs, 1)
	require.Same(t, c, cs[0])
	require.Same(t, q, query)
}

func TestManagerRewritesFloatQueryBeforeSolving(t *testing.T) {
	m := NewManager(NewNaiveSolver())
	a := expr.CreateUIntToFp(sym("a", 4), expr.Single)
	b := expr.CreateUIntToFp(sym("b", 4), expr.Single)

	// Eq(FAdd(a,b), FAdd(b,a)) reaches the solver as a pure integer
	// condition; the back-end never sees an FP node.
	ok, err := m.MustBeTrue(expr.CreateEq(expr.CreateFAdd(a, b), expr.CreateFAdd(b, a)))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRecognizeMinMaxRejectsMismatchedShapesAndOperands(t *testing.T) {
	a := expr.CreateUIntToFp(sym("a", 8), expr.Single)
	b := expr.CreateUIntToFp(sym("b", 8), expr.Single)
	c := expr.CreateUIntToFp(sym("c", 8), expr.Single)

	min := expr.CreateSelect(expr.CreateFOlt(a, b), a, b)
	maxDifferentOperands := expr.CreateSelect(expr.CreateFOlt(a, c), c, a)

	isMinL, opsL, okL := recognizeMinMax(min)
	require.True(t, okL)
	require.True(t, isMinL)

	isMinR, opsR, okR := recognizeMinMax(maxDifferentOperands)
	require.True(t, okR)
	require.False(t, isMinR, "Select(FOlt(a,c), c, a) is the max shape, not min")
	require.False(t, sameOperandPair(opsL, opsR), "operand sets {a,b} and {a,c} must not be considered the same pair")
}
