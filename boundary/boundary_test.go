package boundary

import (
	"testing"

	"github.com/dslab-symex/symexec/diag"
	"github.com/dslab-symex/symexec/exec"
	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/options"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	m.Run()
}

func newState() *exec.ExecutionState {
	return exec.NewExecutionState(options.Default(), diag.NewStream())
}

func TestEndpointTableAllocatesLowestFreeKey(t *testing.T) {
	tbl := NewEndpointTable[int32, string](3)
	a := tbl.Insert("stdin-like")
	b := tbl.Insert("second")
	require.Equal(t, int32(3), a)
	require.Equal(t, int32(4), b)
	tbl.Delete(a)
	c := tbl.Insert("third")
	require.Equal(t, int32(3), c)
}

func TestEndpointTableInsertAtOverwrites(t *testing.T) {
	tbl := NewEndpointTable[int32, string](0)
	tbl.InsertAt(10, "a")
	tbl.InsertAt(10, "b")
	v, ok := tbl.Lookup(10)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestEndpointTableRangeIsAscending(t *testing.T) {
	tbl := NewEndpointTable[int32, string](0)
	tbl.InsertAt(5, "e")
	tbl.InsertAt(1, "a")
	tbl.InsertAt(3, "c")
	var seen []int32
	tbl.Range(func(k int32, v string) bool {
		seen = append(seen, k)
		return true
	})
	require.Equal(t, []int32{1, 3, 5}, seen)
}

func TestStreamBufferWriteThenRead(t *testing.T) {
	s := newState()
	buf := NewStreamBuffer(s)
	n, err := buf.Write(s, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	out := make([]byte, 5)
	got, wouldBlock := buf.TryRead(out)
	require.False(t, wouldBlock)
	require.Equal(t, 5, got)
	require.Equal(t, "hello", string(out))
}

func TestStreamBufferTryReadBlocksWhenEmptyAndOpen(t *testing.T) {
	s := newState()
	buf := NewStreamBuffer(s)
	_, wouldBlock := buf.TryRead(make([]byte, 4))
	require.True(t, wouldBlock)
}

func TestStreamBufferCloseWakesReaders(t *testing.T) {
	s := newState()
	buf := NewStreamBuffer(s)
	tid, err := s.NewThread(1, nil)
	require.NoError(t, err)
	s.Sleep(tid, buf.Readers())
	wl, ok := s.WaitList(buf.Readers())
	require.True(t, ok)
	require.Len(t, wl.Threads, 1)

	buf.Close(s)
	wl, ok = s.WaitList(buf.Readers())
	require.True(t, ok)
	require.Len(t, wl.Threads, 0)
	require.True(t, buf.Closed())
}

func TestStreamBufferWriteAfterCloseFails(t *testing.T) {
	s := newState()
	buf := NewStreamBuffer(s)
	buf.Close(s)
	_, err := buf.Write(s, []byte("x"))
	require.ErrorIs(t, err, ErrClosed)
}
