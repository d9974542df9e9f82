// Package addrspace implements the address space: the ordered,
// copy-on-write domain mapping addresses to the MemoryObjects and
// ObjectStates one execution path currently sees.
package addrspace

import (
	"github.com/dslab-symex/symexec/memory"
	"github.com/google/btree"
)

const btreeDegree = 32

// entry is the ordered-map item: objects are keyed by their base
// address so Lookup can binary-search down to the containing object
// in a single descend.
type entry struct {
	addr  uint64
	state *memory.ObjectState
}

func (e *entry) Less(than btree.Item) bool {
	return e.addr < than.(*entry).addr
}

// AddressSpace is the per-state ordered map of bound objects. It is
// represented by a google/btree.BTree, which is itself copy-on-write
// internally (Clone is O(log n) and shares nodes until one of the two
// trees next mutates them); CowKey layers a second, coarser epoch on
// top of that so memory.ObjectState sharing decisions (see
// ObjectState.Clone) can be judged against the AddressSpace that
// currently owns them.
type AddressSpace struct {
	tree   *btree.BTree
	cowKey uint64
}

// New returns an empty AddressSpace at copy-on-write epoch 0.
func New() *AddressSpace {
	return &AddressSpace{tree: btree.New(btreeDegree), cowKey: 0}
}

// CowKey returns the epoch this AddressSpace was stamped with at Fork
// time (or 0 for a space created directly by New).
func (s *AddressSpace) CowKey() uint64 { return s.cowKey }

// Len returns the number of bound objects.
func (s *AddressSpace) Len() int { return s.tree.Len() }

// Bind installs state at obj's base address, replacing any prior
// binding at the same address. state is Retained (its refCount reflects
// how many AddressSpaces currently reference it) and stamped with this
// AddressSpace's cowKey; whatever state Bind displaces is Released.
func (s *AddressSpace) Bind(obj *memory.MemoryObject, state *memory.ObjectState) {
	prev := s.tree.ReplaceOrInsert(&entry{addr: obj.Address, state: state})
	state.Retain()
	state.SetCowOwner(s.cowKey)
	if prev != nil {
		prev.(*entry).state.Release()
	}
}

// Unbind removes whatever object is bound at exactly addr, Releasing its
// ObjectState.
func (s *AddressSpace) Unbind(addr uint64) {
	if item := s.tree.Delete(&entry{addr: addr}); item != nil {
		item.(*entry).state.Release()
	}
}

// Lookup returns the ObjectState whose MemoryObject's [Address,
// Address+Size) range contains addr, or nil if no bound object does.
func (s *AddressSpace) Lookup(addr uint64) *memory.ObjectState {
	var found *entry
	s.tree.DescendLessOrEqual(&entry{addr: addr}, func(i btree.Item) bool {
		found = i.(*entry)
		return false
	})
	if found == nil {
		return nil
	}
	obj := found.state.Object
	if addr >= obj.Address && addr < obj.Address+obj.Size {
		return found.state
	}
	// Zero-size objects occupy no range but are still addressable at
	// exactly their own base address.
	if obj.Size == 0 && addr == obj.Address {
		return found.state
	}
	return nil
}

// LookupExact returns the ObjectState bound at exactly addr, ignoring
// object size.
func (s *AddressSpace) LookupExact(addr uint64) (*memory.ObjectState, bool) {
	item := s.tree.Get(&entry{addr: addr})
	if item == nil {
		return nil, false
	}
	return item.(*entry).state, true
}

// Each calls fn for every bound (address, ObjectState) pair in
// ascending address order, stopping early if fn returns false.
func (s *AddressSpace) Each(fn func(addr uint64, state *memory.ObjectState) bool) {
	s.tree.Ascend(func(i btree.Item) bool {
		e := i.(*entry)
		return fn(e.addr, e.state)
	})
}

// GetWriteable returns an ObjectState for the object containing addr
// that is safe to mutate through this AddressSpace: if the bound state
// is already owned by this space's cowKey it is returned directly;
// otherwise it is still shared with some other space (a Fork sibling or
// ancestor), so a clone is made, rebound in its place, and stamped with
// this space's key — copy-on-write deferred to the first write. The
// second return is false if no bound object contains addr.
func (s *AddressSpace) GetWriteable(addr uint64) (*memory.ObjectState, bool) {
	state := s.Lookup(addr)
	if state == nil {
		return nil, false
	}
	// Owned by this epoch and bound in exactly one space: already
	// exclusive. Fork retains every aliased binding, so RefCount really
	// is the number of spaces currently referencing the state.
	if state.CowOwner() == s.cowKey && state.RefCount() == 1 {
		return state, true
	}
	clone := state.Clone()
	s.Bind(state.Object, clone)
	return clone, true
}

// Fork returns an independent snapshot of s stamped with nextCowKey.
// The underlying tree is cloned via btree's own copy-on-write Clone;
// every bound ObjectState is Retained, since the snapshot is one more
// AddressSpace referencing it and RefCount must keep meaning what
// Bind's doc comment says. The cost of actually diverging content is
// still deferred to the first write against a shared ObjectState.
func (s *AddressSpace) Fork(nextCowKey uint64) *AddressSpace {
	next := &AddressSpace{tree: s.tree.Clone(), cowKey: nextCowKey}
	next.tree.Ascend(func(i btree.Item) bool {
		i.(*entry).state.Retain()
		return true
	})
	return next
}
