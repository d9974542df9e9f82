package exec

import (
	"errors"
	"fmt"
)

// ErrNotWaiting is returned by NotifyOne when the named thread is not
// parked on the given waiting list.
var ErrNotWaiting = errors.New("exec: thread not waiting on that list")

// Sleep marks tid disabled and parks it on wl. The caller surrenders
// control by scheduling a different enabled thread next.
func (s *ExecutionState) Sleep(tid ThreadID, wl WaitListID) {
	th := s.mustThread(tid)
	th.Enabled = false
	th.WaitingOn = wl
	list := s.waitListOrCreate(wl)
	list.Threads = append(list.Threads, tid)
}

// NotifyOne removes tid from wl and re-enables it. It is an error for
// tid not to be on the list.
func (s *ExecutionState) NotifyOne(wl WaitListID, tid ThreadID) error {
	list, ok := s.waitLists[wl]
	if !ok || !list.remove(tid) {
		return ErrNotWaiting
	}
	th := s.mustThread(tid)
	th.Enabled = true
	th.WaitingOn = noWaitList
	return nil
}

// NotifyAll re-enables every thread parked on wl and empties it.
func (s *ExecutionState) NotifyAll(wl WaitListID) {
	list, ok := s.waitLists[wl]
	if !ok {
		return
	}
	for _, tid := range list.Threads {
		th := s.mustThread(tid)
		th.Enabled = true
		th.WaitingOn = noWaitList
	}
	list.Threads = nil
}

// Preempt records a voluntary preemption of the currently scheduled
// thread; it is the caller's responsibility to then Schedule a
// different enabled thread.
func (s *ExecutionState) Preempt() {
	s.mustThread(s.CurrentThread).Preemptions++
}

// Schedule deterministically transitions the currently running thread
// pointer to next. Scheduling an
// unknown thread is an internal invariant violation: the outer
// interpreter must only ever schedule a thread it has observed in this
// state's table.
func (s *ExecutionState) Schedule(next ThreadID) {
	th, ok := s.threads[next]
	if !ok {
		panic("BUG: exec: schedule to unknown thread")
	}
	s.CurrentThread = next
	s.CurrentProcess = th.ProcessID
}

// Barrier joins tid to an n-thread barrier on wl: if n-1 threads are
// already waiting, tid is the nth and final arrival, so the race log
// is reset (isGlobal selects which reset, see
// memory.MemoryLog.Reset/ResetLocal) and every waiter including tid
// is notified; otherwise tid sleeps on wl.
//
// More than n arrivals indicates a scheduling bug upstream rather than
// a modelled program behavior, so it panics with a "BUG: " prefix
// instead of blocking or erroring recoverably.
func (s *ExecutionState) Barrier(tid ThreadID, wl WaitListID, n int, isGlobal bool) {
	list := s.waitListOrCreate(wl)
	switch {
	case len(list.Threads) == n-1:
		if isGlobal {
			s.RaceLog.Reset()
		} else {
			s.RaceLog.ResetLocal()
		}
		list.Threads = append(list.Threads, tid)
		s.NotifyAll(wl)
	case len(list.Threads) >= n:
		panic(fmt.Sprintf("BUG: exec: barrier overflow: %d threads arrived for a barrier of %d", len(list.Threads)+1, n))
	default:
		s.Sleep(tid, wl)
	}
}
