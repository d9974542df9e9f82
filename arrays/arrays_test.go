package arrays

import (
	"math/big"
	"sync"
	"testing"

	"github.com/dslab-symex/symexec/expr"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	ResetArena()
	m.Run()
}

func idx(v int64) *expr.Expr { return expr.CreateIntConstant(big.NewInt(v), 32) }
func byteVal(v int64) *expr.Expr { return expr.CreateIntConstant(big.NewInt(v), 8) }

func TestArrayIdentityNotContent(t *testing.T) {
	a := NewSymbolicArray("buf", 16, 32, 8)
	b := NewSymbolicArray("buf", 16, 32, 8)
	require.NotSame(t, a, b, "two distinct Array allocations are never equal, same name notwithstanding")
	require.Same(t, a, a)
}

func TestUpdateListPersistence(t *testing.T) {
	a := NewSymbolicArray("buf", 16, 32, 8)
	base := NewUpdateList(a)
	extended := base.Extend(idx(0), byteVal(7))

	require.False(t, base.Equal(extended))
	_, _, _, ok := base.Head()
	require.False(t, ok, "the base snapshot must not observe writes made after it was taken")
	_, v, _, ok := extended.Head()
	require.True(t, ok)
	require.Same(t, byteVal(7), v)
}

func TestReadResolvesAgainstNewestMatchingWrite(t *testing.T) {
	a := NewSymbolicArray("buf", 16, 32, 8)
	u := NewUpdateList(a)
	u = u.Extend(idx(0), byteVal(1))
	u = u.Extend(idx(0), byteVal(2)) // overwrite.

	r := Read(idx(0), a, u)
	require.Same(t, byteVal(2), r)
}

func TestReadFallsThroughToConstantArrayContent(t *testing.T) {
	values := []*expr.Expr{byteVal(10), byteVal(20), byteVal(30)}
	a := NewConstantArray("table", 8, values)
	u := NewUpdateList(a)

	r := Read(idx(1), a, u)
	require.Same(t, byteVal(20), r)
}

func TestReadPrefersWriteOverConstantBase(t *testing.T) {
	values := []*expr.Expr{byteVal(10), byteVal(20), byteVal(30)}
	a := NewConstantArray("table", 8, values)
	u := NewUpdateList(a).Extend(idx(1), byteVal(99))

	r := Read(idx(1), a, u)
	require.Same(t, byteVal(99), r)
}

func TestReadConstantArrayFallbackRespectsConstArrayOpt(t *testing.T) {
	values := []*expr.Expr{byteVal(10), byteVal(20), byteVal(30)}
	a := NewConstantArray("table", 8, values)
	u := NewUpdateList(a)

	SetConstArrayOptEnabled(false)
	defer SetConstArrayOptEnabled(true)

	r := Read(idx(1), a, u)
	require.Equal(t, expr.KindRead, r.Kind(), "with const-array-opt off the read stays a symbolic Read")
}

func TestConcurrentExtendKeepsChainsIntact(t *testing.T) {
	// Workers grow independent histories over the same shared node
	// arena; each chain must stay fully walkable with its own writes in
	// order. Run with -race to check the arena locking.
	const workers = 8
	const writes = 100

	a := NewSymbolicArray("buf", 16, 32, 8)
	chains := make([]UpdateList, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			u := NewUpdateList(a)
			for i := int64(0); i < writes; i++ {
				u = u.Extend(idx(i%16), byteVal((int64(w)*writes+i)%251))
			}
			chains[w] = u
		}()
	}
	wg.Wait()

	for w, u := range chains {
		for i := int64(writes - 1); i >= 0; i-- {
			index, value, tail, ok := u.Head()
			require.True(t, ok)
			require.Same(t, idx(i%16), index)
			require.Same(t, byteVal((int64(w)*writes+i)%251), value)
			u = tail.(UpdateList)
		}
		_, _, _, ok := u.Head()
		require.False(t, ok, "chain must end after exactly the writes this worker made")
	}
}

func TestReadOverSymbolicIndexStaysSymbolicWhenUnresolved(t *testing.T) {
	a := NewSymbolicArray("buf", 16, 32, 8)
	u := NewUpdateList(a)
	symbolicIndex := expr.CreateNotOptimized(idx(5))
	u = u.Extend(symbolicIndex, byteVal(1))

	r := Read(idx(0), a, u)
	require.Equal(t, expr.KindRead, r.Kind())
}
