package exec

import (
	"github.com/dslab-symex/symexec/addrspace"
	"github.com/dslab-symex/symexec/expr"
)

// ThreadID is a stable handle into an ExecutionState's thread table.
type ThreadID uint64

// ProcessID is a stable handle into an ExecutionState's process table.
type ProcessID uint64

// noWaitList is the sentinel WaitListID meaning "not waiting".
const noWaitList WaitListID = 0

// Thread is a single schedulable control-flow strand: a program
// counter, a call stack, and a thread-local address space.
type Thread struct {
	ID          ThreadID
	ProcessID   ProcessID
	PC          uint64
	PrevPC      uint64 // for phi resolution on the instruction just left
	WorkgroupID uint64

	AddressSpace *addrspace.AddressSpace
	Stack        []StackFrame

	Enabled   bool
	WaitingOn WaitListID // valid only when !Enabled

	// Preemptions counts calls to ExecutionState.Preempt while this
	// thread was running. Diagnostic only.
	Preemptions int
}

// StackFrame is one call-stack entry. StackFrames are value-copied on
// branch — Allocas and Registers are copied
// shallowly here (the MemoryObjects/Exprs they reference are themselves
// immutable or copy-on-write, so a shallow copy is sufficient; see
// ExecutionState.clone).
type StackFrame struct {
	CallerPC uint64
	Callee   string
	ModuleID uint64

	// Allocas are the addresses of MemoryObjects allocated in this
	// frame, unbound from the owning address space when the frame pops.
	Allocas []uint64

	// Registers holds one IR-value per virtual register of the callee,
	// keyed by register index.
	Registers map[uint64]*expr.Expr

	// VarArgObject is the address of this frame's vararg MemoryObject,
	// or 0 if the callee takes no varargs.
	VarArgObject uint64
}

func (f StackFrame) clone() StackFrame {
	regs := make(map[uint64]*expr.Expr, len(f.Registers))
	for k, v := range f.Registers {
		regs[k] = v
	}
	clone := f
	clone.Allocas = append([]uint64(nil), f.Allocas...)
	clone.Registers = regs
	return clone
}

// Process groups the threads sharing one address space and parentage.
// Process id 1 is the conventional "init" reaper:
// TerminateProcess re-parents orphaned children to it.
type Process struct {
	ID       ProcessID
	ParentID ProcessID
	Children []ProcessID
	Threads  []ThreadID

	AddressSpace *addrspace.AddressSpace

	// ForkPath records, for each ancestor ForkProcess call, whether this
	// process is the parent (false) or child (true) branch.
	ForkPath []bool
}

func (p Process) clone(cowKey uint64) *Process {
	clone := p
	clone.Children = append([]ProcessID(nil), p.Children...)
	clone.Threads = append([]ThreadID(nil), p.Threads...)
	clone.ForkPath = append([]bool(nil), p.ForkPath...)
	clone.AddressSpace = p.AddressSpace.Fork(cowKey)
	return &clone
}
