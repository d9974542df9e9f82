package exec

import (
	"fmt"

	"github.com/dslab-symex/symexec/expr"
)

// Fork duplicates s into a true and a false branch state: the
// thread/process/wait-list tables are deep-copied in
// O(threads+processes), every address space's CowKey is bumped
// (invalidating cached writeable views — see ObjectState.Clone and
// AddressSpace.Fork), and the parent's weight is split so the two
// children's weights sum to it exactly (the false branch receives the
// remainder so integer/float rounding never loses weight).
func (s *ExecutionState) Fork() (trueState, falseState *ExecutionState) {
	trueState = s.clone()
	falseState = s.clone()

	half := s.Weight / 2
	trueState.Weight = half
	falseState.Weight = s.Weight - half

	trueState.ForkPath = appendBool(s.ForkPath, false)
	falseState.ForkPath = appendBool(s.ForkPath, true)

	return trueState, falseState
}

func appendBool(path []bool, v bool) []bool {
	out := make([]bool, len(path)+1)
	copy(out, path)
	out[len(path)] = v
	return out
}

// clone returns a deep copy of s's mutable tables, sharing the address
// pool (one address range common to every path forked from the same
// run) and the race log (diagnostics are reported against the
// run, not re-derived per path).
func (s *ExecutionState) clone() *ExecutionState {
	next := &ExecutionState{
		Constraints:    append([]*expr.Expr(nil), s.Constraints...),
		threads:        make(map[ThreadID]*Thread, len(s.threads)),
		processes:      make(map[ProcessID]*Process, len(s.processes)),
		waitLists:      make(map[WaitListID]*WaitList, len(s.waitLists)),
		nextThreadID:   s.nextThreadID,
		nextProcessID:  s.nextProcessID,
		nextWaitListID: s.nextWaitListID,
		CurrentThread:  s.CurrentThread,
		CurrentProcess: s.CurrentProcess,
		Depth:          s.Depth + 1,
		StateTime:      s.StateTime,
		ForkPath:       append([]bool(nil), s.ForkPath...),
		Addresses:      s.Addresses,
		RaceLog:        s.RaceLog,
		Opts:           s.Opts,
		cowKey:         s.cowKey + 1,
	}
	for id, p := range s.processes {
		next.processes[id] = p.clone(next.cowKey)
	}
	for id, t := range s.threads {
		clone := *t
		clone.AddressSpace = t.AddressSpace.Fork(next.cowKey)
		clone.Stack = make([]StackFrame, len(t.Stack))
		for i, f := range t.Stack {
			clone.Stack[i] = f.clone()
		}
		next.threads[id] = &clone
	}
	for id, l := range s.waitLists {
		next.waitLists[id] = l.clone()
	}
	for _, ws := range s.Workgroups {
		next.Workgroups = append(next.Workgroups, ws.Fork(next.cowKey))
	}
	return next
}

// ForkProcess duplicates pid's address space into a new child process
// and initialises the fork-path suffix (parent extends with false,
// child with true).
func (s *ExecutionState) ForkProcess(pid ProcessID) (ProcessID, error) {
	parent, ok := s.processes[pid]
	if !ok {
		return 0, fmt.Errorf("exec: unknown process %d", pid)
	}
	prefix := append([]bool(nil), parent.ForkPath...)
	parent.ForkPath = appendBool(prefix, false)

	s.cowKey++
	// The parent's own space re-forks onto the new key too: its cached
	// writeable views must be invalidated along with the child's, or a
	// post-fork parent write would mutate an ObjectState the child
	// still shares.
	parent.AddressSpace = parent.AddressSpace.Fork(s.cowKey)
	childID := s.nextProcessID
	s.nextProcessID++
	child := &Process{
		ID:           childID,
		ParentID:     pid,
		AddressSpace: parent.AddressSpace.Fork(s.cowKey),
		ForkPath:     appendBool(prefix, true),
	}
	parent.Children = append(parent.Children, childID)
	s.processes[childID] = child
	return childID, nil
}

// TerminateProcess removes pid and re-parents its children to the
// init reaper (process 1), notifying any of the children's threads
// that were sleeping so the scheduler can reconsider them under their
// new parent.
func (s *ExecutionState) TerminateProcess(pid ProcessID) {
	proc, ok := s.processes[pid]
	if !ok {
		return
	}
	reaper, hasReaper := s.processes[reaperProcessID]
	for _, childID := range proc.Children {
		child, ok := s.processes[childID]
		if !ok {
			continue
		}
		child.ParentID = reaperProcessID
		if hasReaper {
			reaper.Children = append(reaper.Children, childID)
		}
		for _, tid := range child.Threads {
			th, ok := s.threads[tid]
			if ok && !th.Enabled && th.WaitingOn != noWaitList {
				s.NotifyAll(th.WaitingOn)
			}
		}
	}
	delete(s.processes, pid)
}
