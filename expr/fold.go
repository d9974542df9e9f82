package expr

import "math/big"

// This file holds the arbitrary-precision arithmetic helpers constant
// folding is built on, with math/big.Int as the integer
// representation.
//
// Integers are stored canonically as the unsigned residue in
// [0, 2^width); signed interpretation (for SDiv/SRem/Slt/.../AShr) is
// computed on demand by asSigned.

var big1 = big.NewInt(1)

// modulus returns 2^width as a big.Int.
func modulus(width Width) *big.Int {
	return new(big.Int).Lsh(big1, uint(width))
}

// truncate reduces v modulo 2^width into the canonical unsigned range.
func truncate(v *big.Int, width Width) *big.Int {
	m := modulus(width)
	r := new(big.Int).Mod(v, m)
	if r.Sign() < 0 { // big.Int.Mod already returns a non-negative result for positive modulus, kept for clarity.
		r.Add(r, m)
	}
	return r
}

// asSigned reinterprets the canonical unsigned residue v (which must
// already be truncated to width bits) as two's-complement signed.
func asSigned(v *big.Int, width Width) *big.Int {
	half := new(big.Int).Lsh(big1, uint(width)-1)
	if v.Cmp(half) >= 0 {
		return new(big.Int).Sub(v, modulus(width))
	}
	return new(big.Int).Set(v)
}

func fromSigned(v *big.Int, width Width) *big.Int {
	return truncate(v, width)
}

func foldAdd(a, b *big.Int, w Width) *big.Int {
	return truncate(new(big.Int).Add(a, b), w)
}

func foldSub(a, b *big.Int, w Width) *big.Int {
	return truncate(new(big.Int).Sub(a, b), w)
}

func foldMul(a, b *big.Int, w Width) *big.Int {
	return truncate(new(big.Int).Mul(a, b), w)
}

func foldUDiv(a, b *big.Int, w Width) *big.Int {
	if b.Sign() == 0 {
		return truncate(big.NewInt(0), w) // spec treats div-by-zero as a user-program fault, handled by the interpreter layer, not by folding.
	}
	return truncate(new(big.Int).Div(a, b), w)
}

func foldSDiv(a, b *big.Int, w Width) *big.Int {
	sa, sb := asSigned(a, w), asSigned(b, w)
	if sb.Sign() == 0 {
		return truncate(big.NewInt(0), w)
	}
	q := new(big.Int).Quo(sa, sb) // truncated division, matching machine SDiv semantics.
	return fromSigned(q, w)
}

func foldURem(a, b *big.Int, w Width) *big.Int {
	if b.Sign() == 0 {
		return truncate(big.NewInt(0), w)
	}
	return truncate(new(big.Int).Mod(a, b), w)
}

func foldSRem(a, b *big.Int, w Width) *big.Int {
	sa, sb := asSigned(a, w), asSigned(b, w)
	if sb.Sign() == 0 {
		return truncate(big.NewInt(0), w)
	}
	r := new(big.Int).Rem(sa, sb)
	return fromSigned(r, w)
}

func foldShl(a, b *big.Int, w Width) *big.Int {
	shift := shiftAmount(b, w)
	return truncate(new(big.Int).Lsh(a, shift), w)
}

func foldLShr(a, b *big.Int, w Width) *big.Int {
	shift := shiftAmount(b, w)
	return truncate(new(big.Int).Rsh(a, shift), w)
}

func foldAShr(a, b *big.Int, w Width) *big.Int {
	shift := shiftAmount(b, w)
	sa := asSigned(a, w)
	return fromSigned(new(big.Int).Rsh(sa, shift), w)
}

// shiftAmount saturates an out-of-range shift to the width, matching the
// common machine convention (shifting by >= width yields all-zero/sign-fill).
func shiftAmount(b *big.Int, w Width) uint {
	if !b.IsUint64() || b.Uint64() >= uint64(w) {
		return uint(w)
	}
	return uint(b.Uint64())
}

func foldAnd(a, b *big.Int, w Width) *big.Int { return truncate(new(big.Int).And(a, b), w) }
func foldOr(a, b *big.Int, w Width) *big.Int  { return truncate(new(big.Int).Or(a, b), w) }
func foldXor(a, b *big.Int, w Width) *big.Int { return truncate(new(big.Int).Xor(a, b), w) }
func foldNot(a *big.Int, w Width) *big.Int {
	return truncate(new(big.Int).Not(a), w)
}

func boolOf(v bool) *big.Int {
	if v {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func foldEq(a, b *big.Int) *big.Int  { return boolOf(a.Cmp(b) == 0) }
func foldNe(a, b *big.Int) *big.Int  { return boolOf(a.Cmp(b) != 0) }
func foldUlt(a, b *big.Int) *big.Int { return boolOf(a.Cmp(b) < 0) }
func foldUle(a, b *big.Int) *big.Int { return boolOf(a.Cmp(b) <= 0) }
func foldUgt(a, b *big.Int) *big.Int { return boolOf(a.Cmp(b) > 0) }
func foldUge(a, b *big.Int) *big.Int { return boolOf(a.Cmp(b) >= 0) }

func foldSlt(a, b *big.Int, w Width) *big.Int {
	return boolOf(asSigned(a, w).Cmp(asSigned(b, w)) < 0)
}
func foldSle(a, b *big.Int, w Width) *big.Int {
	return boolOf(asSigned(a, w).Cmp(asSigned(b, w)) <= 0)
}
func foldSgt(a, b *big.Int, w Width) *big.Int {
	return boolOf(asSigned(a, w).Cmp(asSigned(b, w)) > 0)
}
func foldSge(a, b *big.Int, w Width) *big.Int {
	return boolOf(asSigned(a, w).Cmp(asSigned(b, w)) >= 0)
}

// roundToSemantics returns a copy of v rounded to sem's mantissa precision.
func roundToSemantics(v *big.Float, sem FPSemantics) *big.Float {
	r := new(big.Float).SetPrec(sem.precision())
	r.Set(v)
	return r
}

// categoryOfConstant classifies a finite/zero/infinite big.Float constant
// into the FPCategory bitset. NaN is handled separately by allocNaN since
// big.Float cannot hold it.
func categoryOfConstant(v *big.Float) FPCategory {
	switch {
	case v.IsInf():
		if v.Signbit() {
			return CatNegInf
		}
		return CatPosInf
	case v.Sign() == 0:
		return CatZero
	case v.Signbit():
		return CatNegNormal
	default:
		return CatPosNormal
	}
}
