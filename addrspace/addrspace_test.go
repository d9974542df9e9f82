package addrspace

import (
	"math/big"
	"testing"

	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/memory"
	"github.com/stretchr/testify/require"
)

func obj(addr, size uint64, name string) *memory.MemoryObject {
	return &memory.MemoryObject{Address: addr, Size: size, Name: name}
}

func TestLookupFindsContainingObject(t *testing.T) {
	s := New()
	o := obj(0x1000, 16, "a")
	st := memory.NewObjectState(o)
	s.Bind(o, st)

	require.Same(t, st, s.Lookup(0x1000))
	require.Same(t, st, s.Lookup(0x100f))
	require.Nil(t, s.Lookup(0x1010))
	require.Nil(t, s.Lookup(0xfff))
}

func TestLookupZeroSizeObjectOnlyAtBase(t *testing.T) {
	s := New()
	o := obj(0x2000, 0, "z")
	st := memory.NewObjectState(o)
	s.Bind(o, st)

	require.Same(t, st, s.Lookup(0x2000))
	require.Nil(t, s.Lookup(0x2001))
}

func TestLookupPicksNearestObjectBelowAddress(t *testing.T) {
	s := New()
	lo := obj(0x1000, 16, "lo")
	hi := obj(0x2000, 16, "hi")
	s.Bind(lo, memory.NewObjectState(lo))
	s.Bind(hi, memory.NewObjectState(hi))

	require.Nil(t, s.Lookup(0x1800), "address between the two objects belongs to neither")
}

func TestLookupExact(t *testing.T) {
	s := New()
	o := obj(0x3000, 32, "e")
	st := memory.NewObjectState(o)
	s.Bind(o, st)

	got, ok := s.LookupExact(0x3000)
	require.True(t, ok)
	require.Same(t, st, got)

	_, ok = s.LookupExact(0x3001)
	require.False(t, ok)
}

func TestUnbindRemovesObject(t *testing.T) {
	s := New()
	o := obj(0x4000, 8, "u")
	s.Bind(o, memory.NewObjectState(o))
	require.Equal(t, 1, s.Len())

	s.Unbind(0x4000)
	require.Equal(t, 0, s.Len())
	require.Nil(t, s.Lookup(0x4000))
}

func TestForkIsIndependent(t *testing.T) {
	s := New()
	o := obj(0x5000, 8, "f")
	s.Bind(o, memory.NewObjectState(o))

	forked := s.Fork(1)
	require.Equal(t, uint64(1), forked.CowKey())
	require.Equal(t, uint64(0), s.CowKey())

	extra := obj(0x6000, 8, "extra")
	forked.Bind(extra, memory.NewObjectState(extra))

	require.Equal(t, 2, forked.Len())
	require.Equal(t, 1, s.Len(), "binding into the fork must not affect the original space")
}

func TestGetWriteableClonesSharedStateLazily(t *testing.T) {
	s := New()
	o := obj(0x7000, 4, "shared")
	st := memory.NewObjectState(o)
	st.InitializeZero()
	s.Bind(o, st)

	forked := s.Fork(1)

	w, ok := forked.GetWriteable(0x7000)
	require.True(t, ok)
	require.NotSame(t, st, w, "a state bound before the fork is shared and must be cloned")
	require.Same(t, w, forked.Lookup(0x7000), "the clone must be rebound in place")
	require.Same(t, st, s.Lookup(0x7000), "the original space keeps its own binding")

	again, ok := forked.GetWriteable(0x7000)
	require.True(t, ok)
	require.Same(t, w, again, "a second writeable request must not clone again")
}

func TestDoubleForkSiblingsWriteIndependently(t *testing.T) {
	byteAt := func(v int64) *expr.Expr { return expr.CreateIntConstant(big.NewInt(v), 8) }
	zero := expr.CreateIntConstant(big.NewInt(0), 32)

	s := New()
	o := obj(0x8000, 1, "shared")
	st := memory.NewObjectState(o)
	st.InitializeZero()
	s.Bind(o, st)

	left := s.Fork(1)
	right := s.Fork(2)
	require.Equal(t, 3, st.RefCount(), "the parent and both forks reference the pre-fork state")

	lw, ok := left.GetWriteable(0x8000)
	require.True(t, ok)
	rw, ok := right.GetWriteable(0x8000)
	require.True(t, ok)
	require.NotSame(t, st, lw)
	require.NotSame(t, st, rw)
	require.NotSame(t, lw, rw, "each sibling must get its own writeable clone")

	require.NoError(t, lw.Write8(zero, byteAt(1), nil))
	require.NoError(t, rw.Write8(zero, byteAt(2), nil))

	require.Same(t, byteAt(0), s.Lookup(0x8000).Read8(zero, nil), "the parent keeps the pre-fork content")
	require.Same(t, byteAt(1), left.Lookup(0x8000).Read8(zero, nil))
	require.Same(t, byteAt(2), right.Lookup(0x8000).Read8(zero, nil))

	require.Equal(t, 1, st.RefCount(), "after both siblings rebind clones, only the parent still binds the original")
}

func TestGetWriteableMissingAddress(t *testing.T) {
	s := New()
	_, ok := s.GetWriteable(0x9999)
	require.False(t, ok)
}

func TestEachVisitsInAscendingAddressOrder(t *testing.T) {
	s := New()
	addrs := []uint64{0x3000, 0x1000, 0x2000}
	for _, a := range addrs {
		o := obj(a, 8, "n")
		s.Bind(o, memory.NewObjectState(o))
	}

	var seen []uint64
	s.Each(func(addr uint64, state *memory.ObjectState) bool {
		seen = append(seen, addr)
		return true
	})
	require.Equal(t, []uint64{0x1000, 0x2000, 0x3000}, seen)
}

func TestEachStopsEarly(t *testing.T) {
	s := New()
	for _, a := range []uint64{0x1000, 0x2000, 0x3000} {
		o := obj(a, 8, "n")
		s.Bind(o, memory.NewObjectState(o))
	}

	count := 0
	s.Each(func(addr uint64, state *memory.ObjectState) bool {
		count++
		return addr < 0x2000
	})
	require.Equal(t, 2, count)
}
