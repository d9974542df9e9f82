package expr

import "math/big"

// Expr is an immutable node of the expression DAG. Expressions are
// shared by reference, never deep-copied; an *Expr is simply shared by
// holding the pointer, with the garbage collector doing lifetime
// bookkeeping.
//
// Since Go doesn't have union types, this one flattened struct serves
// all kinds, and each field has a different meaning depending on Kind.
type Expr struct {
	kind Kind
	hash uint32

	// width is the bit-vector width of this expression's result. For
	// floating-point kinds this is sem.Width().
	width Width
	sem   FPSemantics // meaningful only when kind is a float kind.
	cat   FPCategory  // meaningful only when kind is a float kind.

	kids [3]*Expr // operands; see perKindArity below for counts.

	// Leaf payloads.
	intVal   *big.Int   // KindIntConstant
	floatVal *big.Float // KindFloatConstant; nil when isNaN is true.
	isNaN    bool       // KindFloatConstant: math/big.Float cannot represent NaN.

	// KindRead.
	updates ReadSource

	// KindExtract.
	offset uint32

	// KindNotOptimized wraps exactly one kid (kids[0]); no extra payload.
}

// ReadSource is the minimal view of an arrays.UpdateList that package
// expr needs: a Read expression's simplification walks the update
// history looking for a provably-equal index, but package expr cannot
// import package arrays (arrays.Array's contents are themselves Exprs)
// without a cycle. arrays.UpdateList implements this interface.
type ReadSource interface {
	// ArrayIdentity distinguishes one backing Array from another; two
	// ReadSources over different arrays are never structurally equal.
	ArrayIdentity() uintptr
	// Head returns the newest write (index, value, tail) triple, or
	// ok=false if there have been no writes since the array's creation.
	Head() (index, value *Expr, tail ReadSource, ok bool)
	// Hash participates in the owning Read expression's cached hash.
	Hash() uint32
}

// Kind returns the operator/leaf tag of e.
func (e *Expr) Kind() Kind { return e.kind }

// Width returns the bit-vector width of e's result (Bool for width-1
// boolean-typed expressions).
func (e *Expr) Width() Width { return e.width }

// FPSemantics returns the floating-point semantics of e. It panics if e is
// not a floating-point-kinded expression.
func (e *Expr) FPSemantics() FPSemantics {
	if !e.isFloatTyped() {
		panic("BUG: FPSemantics on non-float Expr")
	}
	return e.sem
}

// Category returns the conservative FPCategory bitset of e. It panics if e
// is not a floating-point-kinded expression.
func (e *Expr) Category() FPCategory {
	if !e.isFloatTyped() {
		panic("BUG: Category on non-float Expr")
	}
	return e.cat
}

// Hash returns the cached 32-bit structural hash; structural equality
// implies hash equality.
func (e *Expr) Hash() uint32 { return e.hash }

// NumKids returns the number of operands e carries.
func (e *Expr) NumKids() int {
	n, _ := perKindArity(e.kind)
	return n
}

// Kid returns the i'th operand of e.
func (e *Expr) Kid(i int) *Expr {
	if i < 0 || i >= e.NumKids() {
		panic("BUG: Expr.Kid index out of range")
	}
	return e.kids[i]
}

// IsConstant reports whether e is a leaf constant (integer or float).
func (e *Expr) IsConstant() bool {
	return e.kind == KindIntConstant || e.kind == KindFloatConstant
}

// IsBool reports whether e has bit-vector width 1.
func (e *Expr) IsBool() bool { return !e.isFloatTyped() && e.width == Bool }

// IntValue returns the constant's value for a KindIntConstant expression.
// It panics for any other kind.
func (e *Expr) IntValue() *big.Int {
	if e.kind != KindIntConstant {
		panic("BUG: IntValue on non-IntConstant Expr")
	}
	return e.intVal
}

// FloatValue returns the constant's value for a KindFloatConstant
// expression and whether it is NaN. When IsNaN is true the *big.Float
// return is nil: math/big.Float has no NaN representation.
func (e *Expr) FloatValue() (v *big.Float, isNaN bool) {
	if e.kind != KindFloatConstant {
		panic("BUG: FloatValue on non-FloatConstant Expr")
	}
	return e.floatVal, e.isNaN
}

// ExtractOffset returns the bit offset of a KindExtract expression.
func (e *Expr) ExtractOffset() uint32 {
	if e.kind != KindExtract {
		panic("BUG: ExtractOffset on non-Extract Expr")
	}
	return e.offset
}

// ReadIndex returns the index operand and backing source of a KindRead
// expression.
func (e *Expr) ReadIndex() (index *Expr, source ReadSource) {
	if e.kind != KindRead {
		panic("BUG: ReadIndex on non-Read Expr")
	}
	return e.kids[0], e.updates
}

func (e *Expr) isFloatTyped() bool {
	switch e.kind {
	case KindFloatConstant:
		return true
	case KindFAdd, KindFSub, KindFMul, KindFDiv, KindFRem, KindFSqrt, KindFSin, KindFCos,
		KindFpExt, KindFpTrunc, KindUIntToFp, KindSIntToFp:
		return true
	case KindSelect:
		return e.kids[1].isFloatTyped()
	}
	return false
}

// perKindArity returns the fixed number of kid operands for a given Kind,
// and whether that Kind is a leaf (no kids, payload only).
func perKindArity(k Kind) (n int, isLeaf bool) {
	switch k {
	case KindIntConstant, KindFloatConstant:
		return 0, true
	case KindRead:
		return 1, false // kids[0] = index
	case KindNot, KindZExt, KindSExt, KindExtract, KindFpExt, KindFpTrunc,
		KindUIntToFp, KindSIntToFp, KindFpToUInt, KindFpToSInt,
		KindFSqrt, KindFSin, KindFCos, KindNotOptimized, KindFOrd1:
		return 1, false
	case KindSelect:
		return 3, false
	case KindConcat:
		return 2, false
	default:
		return 2, false // all remaining binary arithmetic/comparison kinds.
	}
}
