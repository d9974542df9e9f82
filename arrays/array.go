// Package arrays implements the update-list/array model: symbolic
// arrays identified by pointer, and the persistent, immutable write
// histories (UpdateList) that a Read expression walks when it cannot
// resolve against a known write at construction time.
package arrays

import (
	"unsafe"

	"github.com/dslab-symex/symexec/expr"
)

// Array is a named, fixed-size byte-addressable domain. Two Arrays
// are equal iff they are the same allocation — identity, never
// content.
type Array struct {
	Name string

	// Size is the number of addressable elements (bytes).
	Size uint64

	// DomainWidth is the bit width of a valid index expression. A field
	// rather than a constant so a 64-bit address space can use 64-bit
	// indices without a second Array type.
	DomainWidth expr.Width

	// RangeWidth is the bit width of a stored element, 8 for the
	// byte-addressed memory model this module targets.
	RangeWidth expr.Width

	// IsSymbolic marks an array with no fixed initial content: every
	// Read not resolved by the update list stays a genuinely symbolic
	// expr.Read. A concrete (non-symbolic) Array instead backs reads
	// through ConstantValues.
	IsSymbolic bool

	// ConstantValues holds the initial per-index content of a concrete
	// array (len == Size), consulted only when the update list has no
	// entry for a given constant index.
	ConstantValues []*expr.Expr
}

// NewSymbolicArray creates a named array with no initial content.
func NewSymbolicArray(name string, size uint64, domainWidth, rangeWidth expr.Width) *Array {
	return &Array{Name: name, Size: size, DomainWidth: domainWidth, RangeWidth: rangeWidth, IsSymbolic: true}
}

// NewConstantArray creates an array whose initial content is fully
// specified; its Size is len(values).
func NewConstantArray(name string, rangeWidth expr.Width, values []*expr.Expr) *Array {
	return &Array{
		Name:           name,
		Size:           uint64(len(values)),
		DomainWidth:    32,
		RangeWidth:     rangeWidth,
		IsSymbolic:     false,
		ConstantValues: values,
	}
}

// ConstantAt returns the array's initial value at a constant index, or
// nil if idx is out of range or the array is symbolic.
func (a *Array) ConstantAt(idx uint64) *expr.Expr {
	if a.IsSymbolic || idx >= uint64(len(a.ConstantValues)) {
		return nil
	}
	return a.ConstantValues[idx]
}

// Identity returns the value an expr.ReadSource's ArrayIdentity reports
// for a UpdateList built over a, letting a caller outside this package
// (package constraints' ComputeInitialValues) match a Read expression
// back to the Array it was read from.
func (a *Array) Identity() uintptr { return uintptr(unsafe.Pointer(a)) }
