package expr

import "math/big"

// create_bv.go is the externally-callable "create" layer for
// bit-vector expressions: every constructor here applies
// canonicalization and peephole rules before ever calling allocRaw,
// and folds eagerly whenever every operand is already a constant.
// Callers outside this package never see an un-simplified node.

// CreateIntConstant returns the canonical width-bit constant for v.
func CreateIntConstant(v *big.Int, width Width) *Expr {
	return allocIntConstant(v, width)
}

// CreateZero returns the all-zero constant of width.
func CreateZero(width Width) *Expr { return CreateIntConstant(big.NewInt(0), width) }

// CreateTrue and CreateFalse are the two Bool-width constants used
// pervasively by the comparison and Select constructors below.
func CreateTrue() *Expr  { return CreateIntConstant(big.NewInt(1), Bool) }
func CreateFalse() *Expr { return CreateIntConstant(big.NewInt(0), Bool) }

func canonicalizeCommutative(k Kind, a, b *Expr) (*Expr, *Expr) {
	if k.isCommutative() && !a.IsConstant() && b.IsConstant() {
		return b, a
	}
	return a, b
}

func bothConst(a, b *Expr) bool { return a.kind == KindIntConstant && b.kind == KindIntConstant }

func CreateAdd(a, b *Expr) *Expr {
	w := a.width
	a, b = canonicalizeCommutative(KindAdd, a, b)
	if isZeroConst(a) {
		return b
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldAdd(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateXor(a, b) // 1-bit addition is XOR.
	}
	// (k+x)+c and (k-x)+c: canonicalizeCommutative already rotated any
	// lone constant into a, so a genuinely nested leading constant can
	// only show up as b's left kid here.
	if a.kind == KindIntConstant {
		if b.kind == KindAdd && b.kids[0].kind == KindIntConstant {
			return CreateAdd(CreateIntConstant(foldAdd(a.intVal, b.kids[0].intVal, w), w), b.kids[1])
		}
		if b.kind == KindSub && b.kids[0].kind == KindIntConstant {
			return CreateSub(CreateIntConstant(foldAdd(a.intVal, b.kids[0].intVal, w), w), b.kids[1])
		}
	}
	return allocRaw(KindAdd, w, a, b)
}

func CreateSub(a, b *Expr) *Expr {
	w := a.width
	if isZeroConst(b) {
		return a
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldSub(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateXor(a, b) // 1-bit subtraction is also XOR.
	}
	if exprEqual(a, b) {
		return CreateZero(w)
	}
	// (k+x)-c and (k-x)-c: Sub isn't commutative so the constant can
	// only be nested on the left operand, never rotated in from b.
	if b.kind == KindIntConstant {
		if a.kind == KindAdd && a.kids[0].kind == KindIntConstant {
			return CreateAdd(CreateIntConstant(foldSub(a.kids[0].intVal, b.intVal, w), w), a.kids[1])
		}
		if a.kind == KindSub && a.kids[0].kind == KindIntConstant {
			return CreateSub(CreateIntConstant(foldSub(a.kids[0].intVal, b.intVal, w), w), a.kids[1])
		}
	}
	return allocRaw(KindSub, w, a, b)
}

func CreateMul(a, b *Expr) *Expr {
	w := a.width
	a, b = canonicalizeCommutative(KindMul, a, b)
	if isZeroConst(a) {
		return CreateZero(w)
	}
	if isOneConst(a) {
		return b
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldMul(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateAnd(a, b) // 1-bit multiplication is AND.
	}
	return allocRaw(KindMul, w, a, b)
}

func CreateUDiv(a, b *Expr) *Expr {
	w := a.width
	if isOneConst(b) {
		return a
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldUDiv(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return a // dividing by a nonzero 1-bit value (i.e. 1) is the identity.
	}
	if divideOptimization {
		if k, ok := exactLog2(b); ok {
			return CreateLShr(a, CreateIntConstant(big.NewInt(int64(k)), w))
		}
	}
	return allocRaw(KindUDiv, w, a, b)
}

func CreateSDiv(a, b *Expr) *Expr {
	w := a.width
	if isOneConst(b) {
		return a
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldSDiv(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return a
	}
	return allocRaw(KindSDiv, w, a, b)
}

func CreateURem(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return CreateIntConstant(foldURem(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateZero(w) // x % 1 == 0 for all 1-bit x.
	}
	if divideOptimization {
		if _, ok := exactLog2(b); ok {
			mask := new(big.Int).Sub(b.intVal, big1)
			return CreateAnd(a, CreateIntConstant(mask, w))
		}
	}
	return allocRaw(KindURem, w, a, b)
}

// divideOptimization gates the unsigned divide/remainder-by-power-of-
// two strength reductions above. Process-wide state:
// SetDivideOptimization is called once at engine startup
// (exec.NewExecutionState threads it from CoreOptions) and ResetArena
// restores the default for tests.
var divideOptimization = true

// SetDivideOptimization enables or disables the divide strength
// reductions; called at engine startup from CoreOptions.OptimizeDivides.
func SetDivideOptimization(enabled bool) { divideOptimization = enabled }

// exactLog2 reports k such that e is the constant 2^k, for nonzero
// power-of-two constants only.
func exactLog2(e *Expr) (uint, bool) {
	if e.kind != KindIntConstant || e.intVal.Sign() <= 0 {
		return 0, false
	}
	bits := uint(e.intVal.BitLen())
	if e.intVal.TrailingZeroBits() != bits-1 {
		return 0, false
	}
	return bits - 1, true
}

func CreateSRem(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return CreateIntConstant(foldSRem(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateZero(w)
	}
	return allocRaw(KindSRem, w, a, b)
}

func CreateShl(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return CreateIntConstant(foldShl(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateAnd(a, CreateNot(b)) // 1-bit shl: result set iff shifting by 0, i.e. b == 0.
	}
	return allocRaw(KindShl, w, a, b)
}

func CreateLShr(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return CreateIntConstant(foldLShr(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return CreateAnd(a, CreateNot(b))
	}
	return allocRaw(KindLShr, w, a, b)
}

func CreateAShr(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return CreateIntConstant(foldAShr(a.intVal, b.intVal, w), w)
	}
	if w == Bool {
		return a // arithmetic shift of a 1-bit value by any amount is the identity.
	}
	return allocRaw(KindAShr, w, a, b)
}

func CreateAnd(a, b *Expr) *Expr {
	w := a.width
	a, b = canonicalizeCommutative(KindAnd, a, b)
	if isZeroConst(a) {
		return CreateZero(w)
	}
	if isAllOnesConst(a, w) {
		return b
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldAnd(a.intVal, b.intVal, w), w)
	}
	return allocRaw(KindAnd, w, a, b)
}

func CreateOr(a, b *Expr) *Expr {
	w := a.width
	a, b = canonicalizeCommutative(KindOr, a, b)
	if isZeroConst(a) {
		return b
	}
	if isAllOnesConst(a, w) {
		return CreateIntConstant(allOnes(w), w)
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldOr(a.intVal, b.intVal, w), w)
	}
	return allocRaw(KindOr, w, a, b)
}

func CreateXor(a, b *Expr) *Expr {
	w := a.width
	a, b = canonicalizeCommutative(KindXor, a, b)
	if isZeroConst(a) {
		return b
	}
	if bothConst(a, b) {
		return CreateIntConstant(foldXor(a.intVal, b.intVal, w), w)
	}
	return allocRaw(KindXor, w, a, b)
}

func CreateNot(a *Expr) *Expr {
	w := a.width
	if a.kind == KindIntConstant {
		return CreateIntConstant(foldNot(a.intVal, w), w)
	}
	if a.kind == KindNot {
		return a.kids[0] // double negation cancels.
	}
	return allocRaw(KindNot, w, a)
}

func isZeroConst(e *Expr) bool {
	return e.kind == KindIntConstant && e.intVal.Sign() == 0
}

func isOneConst(e *Expr) bool {
	return e.kind == KindIntConstant && e.intVal.Cmp(big1) == 0
}

func allOnes(w Width) *big.Int {
	return new(big.Int).Sub(modulus(w), big1)
}

func isAllOnesConst(e *Expr, w Width) bool {
	return e.kind == KindIntConstant && e.intVal.Cmp(allOnes(w)) == 0
}

// comparisons

func CreateEq(a, b *Expr) *Expr {
	a, b = canonicalizeCommutative(KindEq, a, b)
	if a.kind == KindIntConstant && b.kind == KindIntConstant {
		return boolExpr(foldEq(a.intVal, b.intVal))
	}
	// Eq(1, boolExpr) / Eq(0, boolExpr) collapse to the operand or its
	// negation.
	if a.kind == KindIntConstant && b.width == Bool {
		if isOneConst(a) {
			return b
		}
		if isZeroConst(a) {
			return CreateNot(b)
		}
	}
	if exprEqual(a, b) {
		return CreateTrue()
	}
	// Eq(c, SExt/ZExt(x, T)): x only ranges over the narrow width, so the
	// equality can only ever hold for values of c that are actually in
	// the extension's image. Lower to Eq(x, trunc(c)) when c round-trips
	// back through the extension unchanged, else the equality is
	// unsatisfiable regardless of x.
	if a.kind == KindIntConstant {
		if rewritten, ok := rewriteEqAgainstExtension(a, b); ok {
			return rewritten
		}
	}
	if b.kind == KindIntConstant {
		if rewritten, ok := rewriteEqAgainstExtension(b, a); ok {
			return rewritten
		}
	}
	return allocRaw(KindEq, Bool, a, b)
}

// rewriteEqAgainstExtension implements CreateEq's Eq(c, SExt/ZExt(x, T))
// rule: ext must be a SExt or ZExt node and c its matching-width constant.
func rewriteEqAgainstExtension(c, ext *Expr) (*Expr, bool) {
	var signed bool
	switch ext.kind {
	case KindZExt:
		signed = false
	case KindSExt:
		signed = true
	default:
		return nil, false
	}
	x := ext.kids[0]
	narrow := truncate(c.intVal, x.width)
	var roundTripped *big.Int
	if signed {
		roundTripped = fromSigned(asSigned(narrow, x.width), c.width)
	} else {
		roundTripped = narrow
	}
	if roundTripped.Cmp(c.intVal) != 0 {
		return CreateFalse(), true
	}
	return CreateEq(x, CreateIntConstant(narrow, x.width)), true
}

func CreateNe(a, b *Expr) *Expr {
	return CreateNot(CreateEq(a, b))
}

func CreateUlt(a, b *Expr) *Expr {
	if bothConst(a, b) {
		return boolExpr(foldUlt(a.intVal, b.intVal))
	}
	if exprEqual(a, b) {
		return CreateFalse()
	}
	return allocRaw(KindUlt, Bool, a, b)
}

func CreateUle(a, b *Expr) *Expr {
	if bothConst(a, b) {
		return boolExpr(foldUle(a.intVal, b.intVal))
	}
	if exprEqual(a, b) {
		return CreateTrue()
	}
	return allocRaw(KindUle, Bool, a, b)
}

// CreateUgt and CreateUge are rewritten in terms of Ult/Ule with
// swapped operands: only the "less-than" family exists as primitive IR
// kinds, and KindUgt/KindUge exist only as Kind tags for Format, never
// as allocated nodes.
func CreateUgt(a, b *Expr) *Expr { return CreateUlt(b, a) }
func CreateUge(a, b *Expr) *Expr { return CreateUle(b, a) }

func CreateSlt(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return boolExpr(foldSlt(a.intVal, b.intVal, w))
	}
	if exprEqual(a, b) {
		return CreateFalse()
	}
	return allocRaw(KindSlt, Bool, a, b)
}

func CreateSle(a, b *Expr) *Expr {
	w := a.width
	if bothConst(a, b) {
		return boolExpr(foldSle(a.intVal, b.intVal, w))
	}
	if exprEqual(a, b) {
		return CreateTrue()
	}
	return allocRaw(KindSle, Bool, a, b)
}

func CreateSgt(a, b *Expr) *Expr { return CreateSlt(b, a) }
func CreateSge(a, b *Expr) *Expr { return CreateSle(b, a) }

func boolExpr(v *big.Int) *Expr {
	if v.Sign() != 0 {
		return CreateTrue()
	}
	return CreateFalse()
}

// casts

func CreateZExt(a *Expr, width Width) *Expr {
	if a.width == width {
		return a
	}
	if a.kind == KindIntConstant {
		return CreateIntConstant(a.intVal, width)
	}
	if a.kind == KindZExt {
		return CreateZExt(a.kids[0], width) // collapse nested ZExt.
	}
	return allocRaw(KindZExt, width, a)
}

func CreateSExt(a *Expr, width Width) *Expr {
	if a.width == width {
		return a
	}
	if a.kind == KindIntConstant {
		return CreateIntConstant(fromSigned(asSigned(a.intVal, a.width), width), width)
	}
	if a.kind == KindSExt {
		return CreateSExt(a.kids[0], width)
	}
	return allocRaw(KindSExt, width, a)
}
