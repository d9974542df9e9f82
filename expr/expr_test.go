package expr

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ResetArena()
	m.Run()
}

func i(v int64, w Width) *Expr { return CreateIntConstant(big.NewInt(v), w) }

// symbolic returns an opaque non-constant node distinct per (width, tag),
// standing in for a genuinely symbolic value in tests that only care that
// the operand isn't foldable away.
func symbolic(width Width, tag int64) *Expr {
	return CreateNotOptimized(CreateIntConstant(big.NewInt(tag), width))
}

func TestHashConsingDeduplicatesIdenticalConstants(t *testing.T) {
	a := i(42, 32)
	b := i(42, 32)
	require.Same(t, a, b, "two constructions of the same constant must be the same node")
}

func TestHashConsingDistinguishesDifferentWidths(t *testing.T) {
	a := i(1, 8)
	b := i(1, 16)
	require.NotSame(t, a, b)
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestCreateAddFoldsConstants(t *testing.T) {
	sum := CreateAdd(i(2, 32), i(3, 32))
	require.True(t, sum.IsConstant())
	require.Equal(t, int64(5), sum.IntValue().Int64())
}

func TestCreateAddIdentityElimination(t *testing.T) {
	sym := symbolic(32, 1)
	sum := CreateAdd(sym, CreateZero(32))
	require.Same(t, sym, sum)
}

func TestCreateAddWraparound(t *testing.T) {
	maxByte := i(255, 8)
	sum := CreateAdd(maxByte, i(1, 8))
	require.Equal(t, int64(0), sum.IntValue().Int64())
}

func TestCreateSubSelfIsZero(t *testing.T) {
	sym := symbolic(32, 2)
	diff := CreateSub(sym, sym)
	require.True(t, diff.IsConstant())
	require.Equal(t, int64(0), diff.IntValue().Int64())
}

func TestCreateMulByZero(t *testing.T) {
	sym := symbolic(32, 3)
	require.True(t, CreateMul(sym, CreateZero(32)).IsConstant())
}

func TestCreateSDivSignedSemantics(t *testing.T) {
	negSeven := CreateIntConstant(big.NewInt(-7), 8)
	two := i(2, 8)
	q := CreateSDiv(negSeven, two)
	require.Equal(t, int64(-3), asSigned(q.IntValue(), 8).Int64())
}

func TestCreateSltUsesSignedInterpretation(t *testing.T) {
	negOne := CreateIntConstant(big.NewInt(-1), 8) // 0xff
	zero := CreateZero(8)
	lt := CreateSlt(negOne, zero)
	require.True(t, lt.IntValue().Sign() != 0, "-1 should be less than 0 under signed comparison")
	ult := CreateUlt(negOne, zero)
	require.False(t, ult.IntValue().Sign() != 0, "0xff should not be less than 0 under unsigned comparison")
}

func TestCreateAddIdentityEliminationEitherOrder(t *testing.T) {
	sym := symbolic(32, 21)
	require.Same(t, sym, CreateAdd(CreateZero(32), sym))
	require.Same(t, sym, CreateAdd(sym, CreateZero(32)))
}

func TestCreateAndOrIdentityAndAnnihilator(t *testing.T) {
	sym := symbolic(8, 22)
	ones := CreateIntConstant(big.NewInt(0xff), 8)
	zero := CreateZero(8)

	require.Same(t, sym, CreateAnd(sym, ones))
	require.Same(t, sym, CreateAnd(ones, sym))
	require.True(t, CreateAnd(sym, zero).IsConstant())
	require.Same(t, sym, CreateOr(sym, zero))
	require.Same(t, sym, CreateOr(zero, sym))
	require.Same(t, ones, CreateOr(sym, ones))
}

func TestCreateUDivByPowerOfTwoStrengthReduces(t *testing.T) {
	sym := symbolic(32, 23)
	q := CreateUDiv(sym, i(8, 32))
	require.Equal(t, KindLShr, q.Kind())

	SetDivideOptimization(false)
	defer SetDivideOptimization(true)
	q = CreateUDiv(sym, i(8, 32))
	require.Equal(t, KindUDiv, q.Kind())
}

func TestCreateURemByPowerOfTwoBecomesMask(t *testing.T) {
	sym := symbolic(32, 24)
	r := CreateURem(sym, i(8, 32))
	require.Equal(t, KindAnd, r.Kind())
}

func TestCreateEqReflexivity(t *testing.T) {
	sym := symbolic(32, 4)
	eq := CreateEq(sym, sym)
	require.Same(t, CreateTrue(), eq)
}

func TestCreateNotDoubleNegation(t *testing.T) {
	sym := symbolic(8, 5)
	require.Same(t, sym, CreateNot(CreateNot(sym)))
}

func TestCreateSelectConstantCondition(t *testing.T) {
	then := symbolic(32, 101)
	els := symbolic(32, 102)
	require.Same(t, then, CreateSelect(CreateTrue(), then, els))
	require.Same(t, els, CreateSelect(CreateFalse(), then, els))
}

func TestCreateSelectSameBranchesCollapse(t *testing.T) {
	cond := symbolic(Bool, 6)
	branch := symbolic(32, 7)
	require.Same(t, branch, CreateSelect(cond, branch, branch))
}

func TestCreateExtractWholeValueIsIdentity(t *testing.T) {
	sym := symbolic(32, 8)
	require.Same(t, sym, CreateExtract(sym, 0, 32))
}

func TestCreateExtractOfExtractCollapses(t *testing.T) {
	sym := symbolic(32, 9)
	inner := CreateExtract(sym, 8, 16)
	outer := CreateExtract(inner, 4, 8)
	require.Equal(t, KindExtract, outer.Kind())
	require.Same(t, sym, outer.Kid(0))
	require.Equal(t, uint32(12), outer.ExtractOffset())
}

func TestEveryBinaryKindFoldsConstantOperands(t *testing.T) {
	type binOp struct {
		name string
		fn   func(a, b *Expr) *Expr
	}
	ops := []binOp{
		{"Add", CreateAdd}, {"Sub", CreateSub}, {"Mul", CreateMul},
		{"UDiv", CreateUDiv}, {"SDiv", CreateSDiv}, {"URem", CreateURem}, {"SRem", CreateSRem},
		{"Shl", CreateShl}, {"LShr", CreateLShr}, {"AShr", CreateAShr},
		{"And", CreateAnd}, {"Or", CreateOr}, {"Xor", CreateXor},
		{"Eq", CreateEq}, {"Ne", CreateNe},
		{"Ult", CreateUlt}, {"Ule", CreateUle}, {"Ugt", CreateUgt}, {"Uge", CreateUge},
		{"Slt", CreateSlt}, {"Sle", CreateSle}, {"Sgt", CreateSgt}, {"Sge", CreateSge},
	}
	operands := []int64{0, 1, 2, 7, 127, 128, 255}
	for _, op := range ops {
		for _, x := range operands {
			for _, y := range operands {
				r := op.fn(i(x, 8), i(y, 8))
				require.True(t, r.IsConstant(), "%s(%d, %d) must fold to a constant", op.name, x, y)
			}
		}
	}
}

func TestCreateConcatFoldsConstants(t *testing.T) {
	hi := i(0x12, 8)
	lo := i(0x34, 8)
	v := CreateConcat(hi, lo)
	require.Equal(t, int64(0x1234), v.IntValue().Int64())
}

func TestCreateFAddConstantFolding(t *testing.T) {
	a := CreateFloatConstant(big.NewFloat(1.5), Double)
	b := CreateFloatConstant(big.NewFloat(2.25), Double)
	sum := CreateFAdd(a, b)
	v, isNaN := sum.FloatValue()
	require.False(t, isNaN)
	f, _ := v.Float64()
	require.Equal(t, 3.75, f)
}

func TestCreateFDivByZeroProducesNaNConstant(t *testing.T) {
	zero := CreateFloatConstant(big.NewFloat(0), Double)
	sum := CreateFDiv(zero, zero)
	_, isNaN := sum.FloatValue()
	require.True(t, isNaN)
	require.Equal(t, CatNaN, sum.Category())
}

func TestCreateFSqrtOfNegativeIsNaN(t *testing.T) {
	neg := CreateFloatConstant(big.NewFloat(-4), Double)
	r := CreateFSqrt(neg)
	_, isNaN := r.FloatValue()
	require.True(t, isNaN)
}

func TestCreateFOeqUnorderedWithNaNIsFalse(t *testing.T) {
	nan := CreateNaN(Double)
	one := CreateFloatConstant(big.NewFloat(1), Double)
	require.Same(t, CreateFalse(), CreateFOeq(nan, one))
	require.Same(t, CreateTrue(), CreateFUne(nan, one))
}

func TestCreateZExtCollapsesNested(t *testing.T) {
	sym := symbolic(8, 10)
	once := CreateZExt(sym, 16)
	twice := CreateZExt(once, 32)
	require.Equal(t, KindZExt, twice.Kind())
	require.Same(t, sym, twice.Kid(0))
	require.Equal(t, Width(32), twice.Width())
}

func TestConcurrentCreateInternsConsistently(t *testing.T) {
	// Every worker builds the same expression sequence; interning must
	// hand all of them the same nodes, with no torn arena or table
	// state. Run with -race to check the allocator locking.
	const workers = 8
	const rounds = 200

	results := make([][]*Expr, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := make([]*Expr, 0, rounds*2)
			for r := int64(0); r < rounds; r++ {
				c := CreateIntConstant(big.NewInt(r%13), 32)
				sym := CreateNotOptimized(CreateIntConstant(big.NewInt(r%7), 32))
				out = append(out, CreateAdd(c, sym), CreateEq(sym, c))
			}
			results[w] = out
		}()
	}
	wg.Wait()

	for w := 1; w < workers; w++ {
		require.Equal(t, len(results[0]), len(results[w]))
		for i := range results[0] {
			require.Same(t, results[0][i], results[w][i])
		}
	}
}

func TestCreateReadResolvesConstantIndexAgainstKnownWrite(t *testing.T) {
	src := &fakeUpdateList{}
	idx := i(4, 32)
	val := i(99, 8)
	src.prepend(idx, val)

	r := CreateRead(i(4, 32), src)
	require.Same(t, val, r)
}

func TestCreateReadFallsThroughDistinctConstantWrites(t *testing.T) {
	src := &fakeUpdateList{}
	src.prepend(i(4, 32), i(1, 8))
	src.prepend(i(5, 32), i(2, 8)) // most recent write, to a different constant index.

	r := CreateRead(i(4, 32), src)
	require.Same(t, i(1, 8), r)
}

func TestCreateReadOnUnresolvableIndexStaysSymbolic(t *testing.T) {
	src := &fakeUpdateList{}
	symbolicIndex := allocRaw(KindRead, 32)
	src.prepend(symbolicIndex, i(7, 8))

	r := CreateRead(i(4, 32), src)
	require.Equal(t, KindRead, r.Kind())
}

// fakeUpdateList is a minimal ReadSource used only by this package's own
// tests; the real implementation lives in the arrays package.
type fakeUpdateList struct {
	nodes []fakeUpdateNode
}

type fakeUpdateNode struct {
	index, value *Expr
}

func (f *fakeUpdateList) prepend(index, value *Expr) {
	f.nodes = append([]fakeUpdateNode{{index, value}}, f.nodes...)
}

func (f *fakeUpdateList) ArrayIdentity() uintptr { return uintptr(0) }

func (f *fakeUpdateList) Head() (index, value *Expr, tail ReadSource, ok bool) {
	if len(f.nodes) == 0 {
		return nil, nil, nil, false
	}
	rest := &fakeUpdateList{nodes: f.nodes[1:]}
	return f.nodes[0].index, f.nodes[0].value, rest, true
}

func (f *fakeUpdateList) Hash() uint32 { return uint32(len(f.nodes)) }
