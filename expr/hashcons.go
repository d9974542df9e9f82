package expr

import "sync"

// table is the hash-cons table: every node returned by an alloc* function
// is interned here first, so two structurally identical expressions are
// always the same *Expr. This is what lets Select/Read/Eq simplifications
// below compare operands with exprEqual's cheap hash-then-pointer path
// instead of a full recursive structural walk in the common case.
var table = map[uint32][]*Expr{}

// mu guards table and the package arena. Finished Expr nodes are
// immutable and safely read without locking, but building one mutates
// both shared structures, and states are stepped on concurrent
// explorer workers — the same sharing that puts a mutex on
// memory.MemoryLog and addrpool.Pool. Each alloc* function holds mu
// across its arena slot and the intern that publishes it.
var mu sync.Mutex

// intern returns the canonical node structurally equal to candidate,
// inserting candidate itself if none exists yet. The caller holds mu.
func intern(candidate *Expr) *Expr {
	bucket := table[candidate.hash]
	for _, existing := range bucket {
		if structurallyEqual(existing, candidate) {
			return existing
		}
	}
	table[candidate.hash] = append(bucket, candidate)
	return candidate
}

func structurallyEqual(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a.kind != b.kind || a.width != b.width || a.sem != b.sem || a.cat != b.cat || a.offset != b.offset {
		return false
	}
	n, _ := perKindArity(a.kind)
	for i := 0; i < n; i++ {
		if a.kids[i] != b.kids[i] { // kids are already-canonical pointers, so pointer compare suffices.
			return false
		}
	}
	switch a.kind {
	case KindIntConstant:
		return a.intVal.Cmp(b.intVal) == 0
	case KindFloatConstant:
		if a.isNaN || b.isNaN {
			return a.isNaN == b.isNaN && a.sem == b.sem
		}
		return a.floatVal.Cmp(b.floatVal) == 0
	case KindRead:
		return a.updates == b.updates || (a.updates != nil && b.updates != nil && a.updates.ArrayIdentity() == b.updates.ArrayIdentity() && a.updates.Hash() == b.updates.Hash())
	}
	return true
}

// exprEqual reports whether two (already-canonical) expressions are
// structurally identical. Since every Expr this package hands out is
// interned, pointer equality is both necessary and sufficient.
func exprEqual(a, b *Expr) bool { return a == b }
