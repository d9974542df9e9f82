package boundary

import (
	"errors"

	"github.com/dslab-symex/symexec/exec"
)

// StreamBuffer is a producer/consumer byte buffer with separate
// reader and writer wait-lists — the shared backing for a pipe or a
// stream socket, with no framing or addressing of its own. Unlike a
// POSIX pipe it isn't capacity-bounded; backpressure is a concern for
// a POSIX personality built on top, not this primitive.
type StreamBuffer struct {
	data    []byte
	closed  bool
	readers exec.WaitListID
	writers exec.WaitListID
}

// NewStreamBuffer returns an empty, open buffer with fresh reader/writer
// wait-lists registered on s.
func NewStreamBuffer(s *exec.ExecutionState) *StreamBuffer {
	return &StreamBuffer{readers: s.NewWaitList(), writers: s.NewWaitList()}
}

// Write appends p to the buffer and wakes every thread waiting to read,
// returning an error once the buffer has been closed.
func (b *StreamBuffer) Write(s *exec.ExecutionState, p []byte) (int, error) {
	if b.closed {
		return 0, ErrClosed
	}
	b.data = append(b.data, p...)
	s.NotifyAll(b.readers)
	return len(p), nil
}

// TryRead drains up to len(p) bytes into p without blocking, returning
// the number of bytes copied and whether the buffer is empty AND open
// (the caller's cue to put tid to sleep on Readers() instead of
// returning 0 as EOF).
func (b *StreamBuffer) TryRead(p []byte) (n int, wouldBlock bool) {
	if len(b.data) == 0 {
		return 0, !b.closed
	}
	n = copy(p, b.data)
	b.data = b.data[n:]
	return n, false
}

// Close marks the buffer closed and wakes every waiting reader and
// writer so they observe ErrClosed / EOF rather than sleeping forever.
func (b *StreamBuffer) Close(s *exec.ExecutionState) {
	b.closed = true
	s.NotifyAll(b.readers)
	s.NotifyAll(b.writers)
}

// Closed reports whether Close has been called.
func (b *StreamBuffer) Closed() bool { return b.closed }

// Readers and Writers expose the wait-list ids a caller blocks a thread
// on via ExecutionState.Sleep when TryRead/Write indicate blocking is
// needed.
func (b *StreamBuffer) Readers() exec.WaitListID { return b.readers }
func (b *StreamBuffer) Writers() exec.WaitListID { return b.writers }

// ErrClosed is returned by Write on a closed StreamBuffer.
var ErrClosed = errors.New("boundary: stream buffer closed")
