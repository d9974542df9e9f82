package arrays

import (
	"sync"
	"unsafe"

	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/internal/arena"
)

// updateNode is one write in an array's history: index -> value, plus
// the write that preceded it. Arena-allocated so a long-lived
// execution state's write history doesn't churn the GC with one heap
// object per store instruction.
type updateNode struct {
	index, value *expr.Expr
	next         arena.ID // arena.Invalid for the oldest write.
	hasNext      bool
	hash         uint32
}

var nodes = arena.New[updateNode]()

// nodesMu guards nodes. Update lists belonging to different execution
// states share this one arena, and states are stepped on concurrent
// explorer workers — the same sharing that puts a mutex on
// memory.MemoryLog and addrpool.Pool. Alloc grows the arena's page
// slice, so reads through At take the lock too.
var nodesMu sync.Mutex

// ResetArena discards every UpdateList node allocated so far and
// restores the engine-option flags to their defaults; tests use this
// for a clean state between cases.
func ResetArena() {
	nodesMu.Lock()
	defer nodesMu.Unlock()
	nodes.Reset()
	constantArraysEnabled = true
	constArrayOptEnabled = true
}

// UpdateList is an immutable, persistent write history over a single
// Array. Two UpdateLists are equal iff they share the same Array and
// the same head write, which Equal checks directly without walking the
// chain.
type UpdateList struct {
	array *Array
	head  arena.ID
	has   bool
}

// NewUpdateList returns the empty history over array (no writes yet).
func NewUpdateList(array *Array) UpdateList {
	return UpdateList{array: array, head: arena.Invalid, has: false}
}

// Extend returns a new UpdateList with (index, value) as its newest
// write, leaving the receiver unchanged — histories are persistent, so
// an older snapshot of an ExecutionState can keep referencing the list
// as it was before the extension.
func (u UpdateList) Extend(index, value *expr.Expr) UpdateList {
	hash := combineHash(index.Hash(), value.Hash(), u.Hash())
	nodesMu.Lock()
	defer nodesMu.Unlock()
	id, n := nodes.Alloc()
	n.index = index
	n.value = value
	n.next = u.head
	n.hasNext = u.has
	n.hash = hash
	return UpdateList{array: u.array, head: id, has: true}
}

// Equal reports whether u and other are the same array and write chain.
func (u UpdateList) Equal(other UpdateList) bool {
	return u.array == other.array && u.has == other.has && (!u.has || u.head == other.head)
}

// ArrayIdentity implements expr.ReadSource.
func (u UpdateList) ArrayIdentity() uintptr { return uintptr(unsafe.Pointer(u.array)) }

// Head implements expr.ReadSource: the most recent write, or ok=false if
// the history is empty.
func (u UpdateList) Head() (index, value *expr.Expr, tail expr.ReadSource, ok bool) {
	if !u.has {
		return nil, nil, nil, false
	}
	nodesMu.Lock()
	n := nodes.At(u.head)
	index, value = n.index, n.value
	rest := UpdateList{array: u.array, head: n.next, has: n.hasNext}
	nodesMu.Unlock()
	return index, value, rest, true
}

// Hash implements expr.ReadSource.
func (u UpdateList) Hash() uint32 {
	if !u.has {
		return uint32(u.ArrayIdentity())
	}
	nodesMu.Lock()
	defer nodesMu.Unlock()
	return nodes.At(u.head).hash
}

func combineHash(a, b, c uint32) uint32 {
	const prime32 = 16777619
	h := uint32(2166136261)
	h = (h ^ a) * prime32
	h = (h ^ b) * prime32
	h = (h ^ c) * prime32
	return h
}

// constantArraysEnabled and constArrayOptEnabled are the two
// array-related engine options, held as process-wide state:
// initialised once at engine startup (exec.NewExecutionState threads
// them from CoreOptions) and restored to defaults by ResetArena for
// tests. The first selects whether freshly initialised object content
// is backed by a constant Array at all (package memory consults it);
// the second gates Read's resolution of a constant index directly
// against a constant Array's initial content.
var (
	constantArraysEnabled = true
	constArrayOptEnabled  = true
)

// SetConstantArraysEnabled is called at engine startup from
// CoreOptions.UseConstantArrays.
func SetConstantArraysEnabled(enabled bool) { constantArraysEnabled = enabled }

// ConstantArraysEnabled reports whether initialised object content may
// be backed by constant Arrays; package memory's InitializeZero/
// InitializeRandom fall back to a symbolic array plus concrete writes
// when disabled.
func ConstantArraysEnabled() bool { return constantArraysEnabled }

// SetConstArrayOptEnabled is called at engine startup from
// CoreOptions.UseConstantArrayOpt.
func SetConstArrayOptEnabled(enabled bool) { constArrayOptEnabled = enabled }

// Read resolves a Read of index against u, falling through to the
// backing Array's constant content (if any) when the update history
// leaves the index genuinely unresolved — the case expr.CreateRead alone
// cannot handle, since package expr has no notion of a concrete array's
// base content.
func Read(index *expr.Expr, array *Array, u UpdateList) *expr.Expr {
	result := expr.CreateRead(index, u)
	if !constArrayOptEnabled || result.Kind() != expr.KindRead || array.IsSymbolic || !index.IsConstant() {
		return result
	}
	if v := array.ConstantAt(index.IntValue().Uint64()); v != nil {
		return v
	}
	return result
}
