package exec

import (
	"math/big"

	"github.com/dslab-symex/symexec/addrspace"
	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/memory"
)

// Merge attempts to combine a and b into one state. Two states may
// merge when: they have the same scheduled thread and process; their
// stacks have the same shape (same callee at every frame); and every
// process's address space binds the same object addresses in both
// states. The differing constraint-set suffixes are
// computed by a plain slice comparison against their longest common
// prefix (there is no separate symbolic-input stream to compare —
// package constraints is the only later producer of new constraints,
// so prefix agreement is an equivalent eligibility test); if either
// suffix contains a floating-point comparison the merge is refused
// outright — merging must never approximate an FP decision.
//
// On success the returned state's constraint set is the shared prefix
// plus Or(inA, inB) where inA/inB are the conjunctions of each suffix;
// MergeRegisters then wraps every differing register and memory cell in
// Select(inA, a, b).
func Merge(a, b *ExecutionState) (*ExecutionState, bool) {
	if a.CurrentThread != b.CurrentThread || a.CurrentProcess != b.CurrentProcess {
		return nil, false
	}
	if !sameStackShape(a, b) {
		return nil, false
	}
	if !sameBoundObjects(a, b) {
		return nil, false
	}

	prefixLen := commonPrefixLen(a.Constraints, b.Constraints)
	suffixA := a.Constraints[prefixLen:]
	suffixB := b.Constraints[prefixLen:]
	for _, c := range suffixA {
		if containsFloatCompare(c) {
			return nil, false
		}
	}
	for _, c := range suffixB {
		if containsFloatCompare(c) {
			return nil, false
		}
	}

	inA, inB := conjunction(suffixA), conjunction(suffixB)
	merged := a.clone()
	merged.Constraints = append(append([]*expr.Expr(nil), a.Constraints[:prefixLen]...),
		expr.CreateOr(inA, inB))
	MergeRegisters(merged, a, b, inA, inB)
	return merged, true
}

// MergeRegisters wraps every register and memory cell that differs
// between a and b in Select(inA, valueFromA, valueFromB), writing the
// result into merged (a fresh clone of a). It is
// exported so a caller that built its own prefix/suffix split (e.g. a
// different conjunction policy than Merge's own) can still reuse the
// same per-cell fusion.
//
// merged, a and b must agree on thread/process/workgroup shape, which
// Merge has already checked via sameStackShape/sameBoundObjects before
// calling this; a caller invoking it directly is responsible for the
// same precondition.
func MergeRegisters(merged, a, b *ExecutionState, inA, inB *expr.Expr) {
	for id, ta := range a.threads {
		tb, ok := b.threads[id]
		if !ok {
			continue
		}
		tm := merged.threads[id]
		for i := range ta.Stack {
			mergeRegisterFrame(tm.Stack[i].Registers, ta.Stack[i].Registers, tb.Stack[i].Registers, inA, inB)
		}
	}
	for id, pa := range a.processes {
		pb, ok := b.processes[id]
		if !ok {
			continue
		}
		mergeAddressSpace(merged.processes[id].AddressSpace, pa.AddressSpace, pb.AddressSpace, inA, inB)
	}
	for i, wsA := range a.Workgroups {
		if i >= len(b.Workgroups) || i >= len(merged.Workgroups) {
			continue
		}
		mergeAddressSpace(merged.Workgroups[i], wsA, b.Workgroups[i], inA, inB)
	}
}

func mergeRegisterFrame(dst, ra, rb map[uint64]*expr.Expr, inA, inB *expr.Expr) {
	for reg, va := range ra {
		vb, ok := rb[reg]
		if !ok || va == vb {
			continue
		}
		dst[reg] = expr.CreateSelect(inA, va, vb)
	}
}

// mergeAddressSpace wraps every object byte bound in both a and b that
// differs between them in Select(inA, byteFromA, byteFromB), binding the
// fused ObjectState into dst. Objects bound in a but not b (or vice
// versa) were already ruled out by sameBoundObjects before Merge ever
// reaches this point. dst's unchanged entries are left exactly as
// merged := a.clone() set them up (the same ObjectState a itself still
// references) rather than cloned needlessly.
func mergeAddressSpace(dst, a, b *addrspace.AddressSpace, inA, inB *expr.Expr) {
	a.Each(func(addr uint64, stateA *memory.ObjectState) bool {
		stateB, ok := b.LookupExact(addr)
		if !ok {
			return true
		}
		if fused := mergeObjectBytes(stateA, stateB, inA, inB); fused != nil {
			dst.Bind(stateA.Object, fused)
		}
		return true
	})
}

// mergeObjectBytes returns a clone of a with every byte that differs
// from b's rewritten to Select(inA, byteFromA, byteFromB), or nil if
// every byte already agrees (no clone needed; the caller keeps a's
// existing binding). a/b are never mutated: neither may be shared with
// another ExecutionState this Merge call didn't clone.
func mergeObjectBytes(a, b *memory.ObjectState, inA, inB *expr.Expr) *memory.ObjectState {
	var fused *memory.ObjectState
	for i := uint64(0); i < a.Object.Size; i++ {
		offset := expr.CreateIntConstant(new(big.Int).SetUint64(i), 32)
		va := a.Read8(offset, nil)
		vb := b.Read8(offset, nil)
		if va == vb {
			continue
		}
		if fused == nil {
			fused = a.Clone()
		}
		_ = fused.Write8(offset, expr.CreateSelect(inA, va, vb), nil)
	}
	return fused
}

func sameStackShape(a, b *ExecutionState) bool {
	if len(a.threads) != len(b.threads) {
		return false
	}
	for id, ta := range a.threads {
		tb, ok := b.threads[id]
		if !ok || len(ta.Stack) != len(tb.Stack) {
			return false
		}
		for i := range ta.Stack {
			if ta.Stack[i].Callee != tb.Stack[i].Callee || ta.Stack[i].ModuleID != tb.Stack[i].ModuleID {
				return false
			}
		}
	}
	return true
}

// sameBoundObjects checks that, for every MemoryObject address either
// state has bound, the other state binds it too.
func sameBoundObjects(a, b *ExecutionState) bool {
	if len(a.processes) != len(b.processes) {
		return false
	}
	for id, pa := range a.processes {
		pb, ok := b.processes[id]
		if !ok {
			return false
		}
		addrsA := boundAddresses(pa)
		addrsB := boundAddresses(pb)
		if len(addrsA) != len(addrsB) {
			return false
		}
		for addr := range addrsA {
			if !addrsB[addr] {
				return false
			}
		}
	}
	return true
}

func boundAddresses(p *Process) map[uint64]bool {
	out := map[uint64]bool{}
	p.AddressSpace.Each(func(addr uint64, _ *memory.ObjectState) bool {
		out[addr] = true
		return true
	})
	return out
}

func commonPrefixLen(a, b []*expr.Expr) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func conjunction(cs []*expr.Expr) *expr.Expr {
	if len(cs) == 0 {
		return expr.CreateTrue()
	}
	acc := cs[0]
	for _, c := range cs[1:] {
		acc = expr.CreateAnd(acc, c)
	}
	return acc
}

func containsFloatCompare(e *expr.Expr) bool {
	if e.Kind().IsFloatCompare() {
		return true
	}
	for i := 0; i < e.NumKids(); i++ {
		if containsFloatCompare(e.Kid(i)) {
			return true
		}
	}
	return false
}
