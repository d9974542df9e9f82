// Package memory implements MemoryObject and ObjectState: the
// descriptor for one allocation and the byte-addressed symbolic
// content backing it, built on package arrays' update lists.
package memory

import (
	"errors"
	"math/big"
	"math/rand"

	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/diag"
	"github.com/dslab-symex/symexec/expr"
)

// ErrReadOnly is returned by Write8 against an object marked
// read-only. The check happens before the write is applied, never
// after.
var ErrReadOnly = errors.New("memory: write to read-only object")

// MemoryObject is the immutable descriptor of one allocation: address,
// size, and provenance.
type MemoryObject struct {
	ID        uint64
	Address   uint64
	Size      uint64
	Name      string
	IsLocal   bool
	IsGlobal  bool
	IsFixed   bool
	ReadOnly  bool
	AllocSite diag.StackFrame
}

// BoundsCheckOffset returns the symbolic condition "offset is within
// [0, Size)".
func (o *MemoryObject) BoundsCheckOffset(offset *expr.Expr) *expr.Expr {
	size := expr.CreateIntConstant(new(big.Int).SetUint64(o.Size), offset.Width())
	return expr.CreateUlt(offset, size)
}

// BoundsCheckPointer returns the symbolic in-bounds condition for a
// full pointer value: a size-0 object is valid only at exactly its own
// address, otherwise the pointer must fall within
// [Address, Address+Size).
func (o *MemoryObject) BoundsCheckPointer(pointer *expr.Expr) *expr.Expr {
	base := expr.CreateIntConstant(new(big.Int).SetUint64(o.Address), pointer.Width())
	if o.Size == 0 {
		return expr.CreateEq(pointer, base)
	}
	offset := expr.CreateSub(pointer, base)
	return o.BoundsCheckOffset(offset)
}

// ObjectState is the mutable, per-ExecutionState content of a
// MemoryObject: a byte array plus its write history, copy-on-write
// shared across states until one of them writes to it (the sharing
// itself is addrspace's responsibility; ObjectState only owns the
// content).
//
// array/updates is the authoritative array-theory representation: every
// write is always folded into it, and Read8 can always fall back to it.
// concreteStore/concreteValid/flushed/knownSymbolic are a per-byte
// fast-path cache layered on top. Cache invariant: for a given byte i, at most one of
// concreteValid[i] and knownSymbolic[i]!=nil holds; a byte that is
// neither concrete nor known-symbolic is flushed[i]==true, meaning its
// authoritative content must come from array/updates. The cache never
// disagrees with array/updates since every write updates both.
type ObjectState struct {
	Object  *MemoryObject
	array   *arrays.Array
	updates arrays.UpdateList

	concreteStore []byte
	concreteValid []bool
	flushed       []bool
	knownSymbolic []*expr.Expr

	// addrspace.AddressSpace calls Retain/Release as it binds/unbinds a
	// state and SetCowOwner as it binds one, so refCount tracks how
	// many AddressSpaces currently reference this ObjectState and
	// copyOnWriteOwner records which one last bound it.
	copyOnWriteOwner uint64
	refCount         int
}

// AccessContext carries the identity of whoever is performing a Read8
// or Write8 call, so those calls can log themselves against a
// MemoryLog rather than requiring a caller to replay the access into
// the log separately. A nil AccessContext (or one with a nil Log)
// skips logging entirely — race detection is part of the access path,
// but setup is exempt.
type AccessContext struct {
	ThreadID     uint64
	WorkgroupID  uint64
	IsSetupPhase bool
	Log          *MemoryLog
}

// NewObjectState returns symbolic (fully unconstrained) content for
// obj. Every byte starts flushed: its only content lives in the empty
// update list over the fully symbolic array.
func NewObjectState(obj *MemoryObject) *ObjectState {
	arr := arrays.NewSymbolicArray(obj.Name, obj.Size, 32, 8)
	flushed := make([]bool, obj.Size)
	for i := range flushed {
		flushed[i] = true
	}
	return &ObjectState{
		Object:        obj,
		array:         arr,
		updates:       arrays.NewUpdateList(arr),
		concreteStore: make([]byte, obj.Size),
		concreteValid: make([]bool, obj.Size),
		flushed:       flushed,
		knownSymbolic: make([]*expr.Expr, obj.Size),
		refCount:      0,
	}
}

// InitializeZero replaces the object's content with all-zero bytes,
// marking every byte concrete in the fast-path cache.
func (s *ObjectState) InitializeZero() {
	values := make([]*expr.Expr, s.Object.Size)
	zero := expr.CreateZero(8)
	for i := range values {
		values[i] = zero
	}
	s.initializeConcrete(values)
}

// InitializeRandom fills the object's content with random concrete
// bytes.
func (s *ObjectState) InitializeRandom(rng *rand.Rand) {
	values := make([]*expr.Expr, s.Object.Size)
	for i := range values {
		values[i] = expr.CreateIntConstant(big.NewInt(int64(rng.Intn(256))), 8)
	}
	s.initializeConcrete(values)
}

// initializeConcrete rebacks the object with the given per-byte
// constants. With constant arrays enabled the bytes become a constant
// Array's initial content; disabled, the fallback is a fresh symbolic
// array whose update list records one concrete write per byte.
func (s *ObjectState) initializeConcrete(values []*expr.Expr) {
	if arrays.ConstantArraysEnabled() {
		s.array = arrays.NewConstantArray(s.Object.Name, 8, values)
		s.updates = arrays.NewUpdateList(s.array)
	} else {
		s.array = arrays.NewSymbolicArray(s.Object.Name, s.Object.Size, 32, 8)
		s.updates = arrays.NewUpdateList(s.array)
		for i, v := range values {
			s.updates = s.updates.Extend(expr.CreateIntConstant(big.NewInt(int64(i)), 32), v)
		}
	}
	for i, v := range values {
		s.concreteStore[i] = byte(v.IntValue().Uint64())
		s.concreteValid[i] = true
		s.flushed[i] = false
		s.knownSymbolic[i] = nil
	}
}

// constOffset reports the constant value of offset, so Read8/Write8
// can decide whether the fast-path cache applies: a symbolic offset
// skips the cache (and the memory log) entirely, falling straight
// through to the array/updates representation, since no single cache
// slot can be charged for an access that might land on any byte.
func constOffset(offset *expr.Expr) (uint64, bool) {
	if offset.Kind() != expr.KindIntConstant {
		return 0, false
	}
	return offset.IntValue().Uint64(), true
}

// Read8 returns the symbolic byte at offset, consulting the fast-path
// cache for a constant offset before falling back to array/updates.
// When ac is non-nil and carries a Log, a constant-offset read is
// recorded against it.
func (s *ObjectState) Read8(offset *expr.Expr, ac *AccessContext) *expr.Expr {
	if idx, ok := constOffset(offset); ok && idx < uint64(len(s.flushed)) {
		if ac != nil && ac.Log != nil {
			ac.Log.LogRead(ac.ThreadID, ac.WorkgroupID, ac.IsSetupPhase, s.Object, idx)
		}
		if s.concreteValid[idx] {
			return expr.CreateIntConstant(new(big.Int).SetUint64(uint64(s.concreteStore[idx])), 8)
		}
		if s.knownSymbolic[idx] != nil {
			return s.knownSymbolic[idx]
		}
	}
	return arrays.Read(offset, s.array, s.updates)
}

// Write8 stores value at offset, failing if the object is read-only.
// The check runs before the update list is extended. A constant offset
// updates the fast-path cache directly; a symbolic offset invalidates
// the whole cache (every byte becomes flushed) since any byte could be
// the one that changed.
func (s *ObjectState) Write8(offset, value *expr.Expr, ac *AccessContext) error {
	if s.Object.ReadOnly {
		return ErrReadOnly
	}
	if idx, ok := constOffset(offset); ok && idx < uint64(len(s.flushed)) {
		if ac != nil && ac.Log != nil {
			ac.Log.LogWrite(ac.ThreadID, ac.WorkgroupID, ac.IsSetupPhase, s.Object, idx)
		}
		if value.Kind() == expr.KindIntConstant {
			s.concreteStore[idx] = byte(value.IntValue().Uint64())
			s.concreteValid[idx] = true
			s.knownSymbolic[idx] = nil
		} else {
			s.concreteValid[idx] = false
			s.knownSymbolic[idx] = value
		}
		s.flushed[idx] = false
	} else {
		for i := range s.flushed {
			s.flushed[i] = true
			s.concreteValid[i] = false
			s.knownSymbolic[i] = nil
		}
	}
	s.updates = s.updates.Extend(offset, value)
	return nil
}

// Read composes width/8 Read8 calls into a single value: width==Bool
// is special-cased to a single-bit Extract over one Read8 (there is no
// narrower Read8 to compose), and any other width must be an exact
// multiple of 8. Bytes are assembled little-endian (byte 0 is least
// significant).
func (s *ObjectState) Read(offset *expr.Expr, width expr.Width, ac *AccessContext) *expr.Expr {
	if width == expr.Bool {
		bit := s.Read8(offset, ac)
		return expr.CreateExtract(bit, 0, expr.Bool)
	}
	if width%8 != 0 {
		panic("BUG: memory: read width is not a multiple of 8")
	}
	numBytes := uint64(width / 8)
	result := s.readByteAt(offset, 0, ac)
	for i := uint64(1); i < numBytes; i++ {
		hi := s.readByteAt(offset, i, ac)
		result = expr.CreateConcat(hi, result)
	}
	return result
}

// Write decomposes value into width/8 Write8 calls, the inverse of Read.
func (s *ObjectState) Write(offset, value *expr.Expr, ac *AccessContext) error {
	width := value.Width()
	if width == expr.Bool {
		byteOffset := s.offsetPlus(offset, 0)
		extended := expr.CreateZExt(value, 8)
		return s.Write8(byteOffset, extended, ac)
	}
	if width%8 != 0 {
		panic("BUG: memory: write width is not a multiple of 8")
	}
	numBytes := uint64(width / 8)
	for i := uint64(0); i < numBytes; i++ {
		byteOffset := s.offsetPlus(offset, i)
		byteVal := expr.CreateExtract(value, uint32(i*8), 8)
		if err := s.Write8(byteOffset, byteVal, ac); err != nil {
			return err
		}
	}
	return nil
}

// readByteAt reads the byte at offset+i, where i is a little-endian byte
// index into the value being assembled.
func (s *ObjectState) readByteAt(offset *expr.Expr, i uint64, ac *AccessContext) *expr.Expr {
	return s.Read8(s.offsetPlus(offset, i), ac)
}

// offsetPlus returns offset+i, folding eagerly when offset is already a
// constant so constOffset's fast path keeps firing across a whole
// multi-byte access instead of degrading to the symbolic-offset path.
func (s *ObjectState) offsetPlus(offset *expr.Expr, i uint64) *expr.Expr {
	if i == 0 {
		return offset
	}
	delta := expr.CreateIntConstant(new(big.Int).SetUint64(i), offset.Width())
	return expr.CreateAdd(offset, delta)
}

// CowOwner returns the cowKey of whichever AddressSpace last bound this
// state (0 if none has).
func (s *ObjectState) CowOwner() uint64 { return s.copyOnWriteOwner }

// SetCowOwner records which AddressSpace's cowKey currently owns this
// binding; called by addrspace.AddressSpace.Bind.
func (s *ObjectState) SetCowOwner(cowKey uint64) { s.copyOnWriteOwner = cowKey }

// Retain increments the count of AddressSpaces referencing this state;
// called by addrspace.AddressSpace.Bind.
func (s *ObjectState) Retain() { s.refCount++ }

// Release decrements the reference count and returns its new value;
// called by addrspace.AddressSpace.Unbind/Bind (on whatever state a Bind
// replaces).
func (s *ObjectState) Release() int {
	s.refCount--
	return s.refCount
}

// RefCount returns the current AddressSpace reference count.
func (s *ObjectState) RefCount() int { return s.refCount }

// Clone returns an independent ObjectState sharing the same write
// history (copy-on-write: the first subsequent Write8 on either copy
// only extends that copy's own updates field, since UpdateList.Extend
// never mutates the receiver). The fast-path cache slices are deep
// copied, since (unlike array/updates) they are mutated in place by
// index assignment and would otherwise corrupt a sibling clone's
// state. The clone starts with refCount 0 and no cowKey owner: it
// isn't bound into any AddressSpace yet.
func (s *ObjectState) Clone() *ObjectState {
	clone := *s
	clone.concreteStore = append([]byte(nil), s.concreteStore...)
	clone.concreteValid = append([]bool(nil), s.concreteValid...)
	clone.flushed = append([]bool(nil), s.flushed...)
	clone.knownSymbolic = append([]*expr.Expr(nil), s.knownSymbolic...)
	clone.copyOnWriteOwner = 0
	clone.refCount = 0
	return &clone
}
