// Package exec implements threads, processes, waiting lists, and the
// ExecutionState: the per-path snapshot that is forked on every
// symbolic branch, scheduled cooperatively within a single path, and
// optionally merged back together.
package exec

import (
	"fmt"

	"github.com/dslab-symex/symexec/addrpool"
	"github.com/dslab-symex/symexec/addrspace"
	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/diag"
	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/memory"
	"github.com/dslab-symex/symexec/options"
)

// reaperProcessID is the conventional "init" process to which
// TerminateProcess re-parents orphaned children.
const reaperProcessID ProcessID = 1

// entryThreadID and entryProcessID name the ids NewExecutionState
// assigns to the thread/process created for the entry function.
const (
	entryProcessID ProcessID = reaperProcessID
	entryThreadID  ThreadID  = 1
)

// ExecutionState is one exploration path: the unit forked on
// branches. It owns the constraint set, the thread/process/wait-list
// tables (realised as integer handles into maps rather than
// internal/arena.Arena, since these tables must deep-copy in
// O(threads+processes) on Fork), the currently scheduled
// thread/process, the branch weight, a virtual clock, the workgroup
// address spaces, an address pool, and the fork-path suffix.
type ExecutionState struct {
	// Constraints is the append-only, implicitly-conjoined constraint
	// multiset. The constraint manager (package constraints) owns
	// simplification against it; this package only stores and clones it.
	Constraints []*expr.Expr

	threads   map[ThreadID]*Thread
	processes map[ProcessID]*Process
	waitLists map[WaitListID]*WaitList

	nextThreadID   ThreadID
	nextProcessID  ProcessID
	nextWaitListID WaitListID

	CurrentThread  ThreadID
	CurrentProcess ProcessID

	Depth     int
	Weight    float64
	StateTime uint64
	ForkPath  []bool

	// Workgroups is the ordered list of workgroup-scoped address
	// spaces for data-parallel models.
	Workgroups []*addrspace.AddressSpace

	Addresses *addrpool.Pool
	RaceLog   *memory.MemoryLog

	// Opts is the engine configuration this state was created under,
	// carried on the state so the outer interpreter can consult
	// per-state policy (MaxForkWidth, fault injection) without a side
	// channel.
	Opts options.CoreOptions

	cowKey uint64
}

// NewExecutionState returns the single initial state for the entry
// function: one process (id 1, doubling as the init reaper), one
// thread (id 1), weight 1, and the virtual clock at
// opts.BaseVirtualTime.
func NewExecutionState(opts options.CoreOptions, stream *diag.Stream) *ExecutionState {
	// Engine startup is the one place the process-wide option flags are
	// initialised; tests reset them through the packages' own
	// ResetArena functions.
	expr.SetDivideOptimization(opts.OptimizeDivides)
	arrays.SetConstantArraysEnabled(opts.UseConstantArrays)
	arrays.SetConstArrayOptEnabled(opts.UseConstantArrayOpt)

	s := &ExecutionState{
		threads:        map[ThreadID]*Thread{},
		processes:      map[ProcessID]*Process{},
		waitLists:      map[WaitListID]*WaitList{},
		nextThreadID:   entryThreadID + 1,
		nextProcessID:  entryProcessID + 1,
		nextWaitListID: 1,
		CurrentThread:  entryThreadID,
		CurrentProcess: entryProcessID,
		Weight:         1,
		StateTime:      opts.BaseVirtualTime,
		Addresses:      addrpool.New(opts),
		RaceLog:        memory.NewMemoryLog(stream),
		Opts:           opts,
	}
	proc := &Process{ID: entryProcessID, ParentID: entryProcessID, AddressSpace: addrspace.New()}
	proc.Threads = []ThreadID{entryThreadID}
	th := &Thread{ID: entryThreadID, ProcessID: entryProcessID, Enabled: true, AddressSpace: addrspace.New()}
	s.processes[entryProcessID] = proc
	s.threads[entryThreadID] = th
	return s
}

// Thread looks up a thread by id.
func (s *ExecutionState) Thread(id ThreadID) (*Thread, bool) { t, ok := s.threads[id]; return t, ok }

// Process looks up a process by id.
func (s *ExecutionState) Process(id ProcessID) (*Process, bool) {
	p, ok := s.processes[id]
	return p, ok
}

// WaitList looks up a waiting list by id.
func (s *ExecutionState) WaitList(id WaitListID) (*WaitList, bool) {
	w, ok := s.waitLists[id]
	return w, ok
}

// NewWaitList allocates a fresh, empty waiting list and returns its id.
func (s *ExecutionState) NewWaitList() WaitListID {
	id := s.nextWaitListID
	s.nextWaitListID++
	s.waitLists[id] = &WaitList{ID: id}
	return id
}

// NewThread allocates a fresh thread in process pid and enables it.
func (s *ExecutionState) NewThread(pid ProcessID, space *addrspace.AddressSpace) (ThreadID, error) {
	proc, ok := s.processes[pid]
	if !ok {
		return 0, fmt.Errorf("exec: unknown process %d", pid)
	}
	id := s.nextThreadID
	s.nextThreadID++
	s.threads[id] = &Thread{ID: id, ProcessID: pid, Enabled: true, AddressSpace: space}
	proc.Threads = append(proc.Threads, id)
	return id, nil
}

// AccessContext returns the memory.AccessContext for the currently
// scheduled thread, so a caller performing a Read8/Write8/Read/Write
// against an ObjectState bound in this state's address spaces logs that
// access under the right thread/workgroup identity against RaceLog,
// instead of a caller having to thread those fields through by hand.
// isSetupPhase lets a caller doing pre-scheduling initialization (e.g.
// populating argv/environment objects before the entry thread starts
// running cooperatively) suppress race reporting for that access.
func (s *ExecutionState) AccessContext(isSetupPhase bool) *memory.AccessContext {
	th := s.mustThread(s.CurrentThread)
	return &memory.AccessContext{
		ThreadID:     uint64(th.ID),
		WorkgroupID:  th.WorkgroupID,
		IsSetupPhase: isSetupPhase,
		Log:          s.RaceLog,
	}
}

func (s *ExecutionState) mustThread(tid ThreadID) *Thread {
	th, ok := s.threads[tid]
	if !ok {
		panic("BUG: exec: unknown thread id")
	}
	return th
}

func (s *ExecutionState) waitListOrCreate(id WaitListID) *WaitList {
	if l, ok := s.waitLists[id]; ok {
		return l
	}
	l := &WaitList{ID: id}
	s.waitLists[id] = l
	return l
}
