package expr

import (
	"math"
	"math/big"
)

// create_fp.go is the floating-point half of the create layer: eager
// constant folding via math/big.Float where exact, conservative
// FPCategory propagation via fpcategory.go everywhere else, and the
// ordered/unordered comparison family.

// CreateFloatConstant returns the canonical constant for v rounded to
// sem's precision.
func CreateFloatConstant(v *big.Float, sem FPSemantics) *Expr {
	return allocFloatConstant(v, sem)
}

// CreateNaN returns the canonical NaN constant of the given semantics.
func CreateNaN(sem FPSemantics) *Expr { return allocNaN(sem) }

// floatOpOrNaN runs f and reports isNaN=true instead of propagating the
// panic math/big.Float raises for an invalid operation (inf-inf, 0*inf,
// 0/0, inf/inf): those are exactly the IEEE-754 cases defined to produce
// NaN, which big.Float has no value for.
func floatOpOrNaN(f func() *big.Float) (v *big.Float, isNaN bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(big.ErrNaN); ok {
				isNaN = true
				return
			}
			panic(r)
		}
	}()
	return f(), false
}

func bothFiniteConst(a, b *Expr) bool {
	return a.kind == KindFloatConstant && b.kind == KindFloatConstant && !a.isNaN && !b.isNaN
}

func eitherNaN(a, b *Expr) bool {
	return (a.kind == KindFloatConstant && a.isNaN) || (b.kind == KindFloatConstant && b.isNaN)
}

func createFloatBinary(k Kind, a, b *Expr, fold func(x, y *big.Float, prec uint) (*big.Float, bool), cat func(a, b FPCategory) FPCategory) *Expr {
	sem := a.sem
	if eitherNaN(a, b) {
		return allocNaN(sem)
	}
	if bothFiniteConst(a, b) {
		v, isNaN := fold(a.floatVal, b.floatVal, sem.precision())
		if isNaN {
			return allocNaN(sem)
		}
		return allocFloatConstant(v, sem)
	}
	return allocFloat(k, sem, cat(a.Category(), b.Category()), a, b)
}

func CreateFAdd(a, b *Expr) *Expr {
	return createFloatBinary(KindFAdd, a, b, func(x, y *big.Float, prec uint) (*big.Float, bool) {
		return floatOpOrNaN(func() *big.Float { return new(big.Float).SetPrec(prec).Add(x, y) })
	}, catFAdd)
}

func CreateFSub(a, b *Expr) *Expr {
	return createFloatBinary(KindFSub, a, b, func(x, y *big.Float, prec uint) (*big.Float, bool) {
		return floatOpOrNaN(func() *big.Float { return new(big.Float).SetPrec(prec).Sub(x, y) })
	}, catFSub)
}

func CreateFMul(a, b *Expr) *Expr {
	return createFloatBinary(KindFMul, a, b, func(x, y *big.Float, prec uint) (*big.Float, bool) {
		return floatOpOrNaN(func() *big.Float { return new(big.Float).SetPrec(prec).Mul(x, y) })
	}, catFMul)
}

func CreateFDiv(a, b *Expr) *Expr {
	return createFloatBinary(KindFDiv, a, b, func(x, y *big.Float, prec uint) (*big.Float, bool) {
		return floatOpOrNaN(func() *big.Float { return new(big.Float).SetPrec(prec).Quo(x, y) })
	}, catFDiv)
}

func CreateFRem(a, b *Expr) *Expr {
	return createFloatBinary(KindFRem, a, b, foldFRem, catFRem)
}

func foldFRem(x, y *big.Float, prec uint) (*big.Float, bool) {
	if y.Sign() == 0 {
		return nil, true
	}
	q, ok := floatOpOrNaN(func() *big.Float { return new(big.Float).SetPrec(prec + 64).Quo(x, y) })
	if ok {
		return nil, true
	}
	qi, _ := q.Int(nil) // truncate toward zero, matching IEEE-754 remainder's truncating quotient.
	qf := new(big.Float).SetPrec(prec).SetInt(qi)
	prod := new(big.Float).SetPrec(prec).Mul(qf, y)
	return new(big.Float).SetPrec(prec).Sub(x, prod), false
}

func CreateFSqrt(a *Expr) *Expr {
	sem := a.sem
	if a.kind == KindFloatConstant && !a.isNaN {
		if a.floatVal.Sign() < 0 {
			return allocNaN(sem)
		}
		v := new(big.Float).SetPrec(sem.precision()).Sqrt(a.floatVal)
		return allocFloatConstant(v, sem)
	}
	if a.isNaN {
		return allocNaN(sem)
	}
	return allocFloat(KindFSqrt, sem, catFSqrt(a.Category()), a)
}

func createFloatTranscendental(k Kind, a *Expr, fn func(float64) float64) *Expr {
	sem := a.sem
	if a.kind == KindFloatConstant && !a.isNaN {
		f64, _ := a.floatVal.Float64()
		if math.IsInf(f64, 0) {
			return allocNaN(sem)
		}
		// Folding through float64 loses precision for Extended/Quad constants;
		// acceptable here since Sin/Cos are rarely solver-relevant beyond
		// category tracking, unlike the exact integer/Add/Mul paths above.
		v := new(big.Float).SetPrec(sem.precision()).SetFloat64(fn(f64))
		return allocFloatConstant(v, sem)
	}
	if a.isNaN {
		return allocNaN(sem)
	}
	return allocFloat(k, sem, catFTranscendental(a.Category()), a)
}

func CreateFSin(a *Expr) *Expr { return createFloatTranscendental(KindFSin, a, math.Sin) }
func CreateFCos(a *Expr) *Expr { return createFloatTranscendental(KindFCos, a, math.Cos) }

// ordered / unordered comparisons

func cmpFinite(a, b *Expr) int { return a.floatVal.Cmp(b.floatVal) }

func createFloatCompare(k Kind, a, b *Expr, orderedResult func(c int) bool, unorderedResult bool) *Expr {
	if eitherNaN(a, b) {
		return boolExpr(big.NewInt(boolToInt(unorderedResult)))
	}
	if bothFiniteConst(a, b) {
		return boolExpr(big.NewInt(boolToInt(orderedResult(cmpFinite(a, b)))))
	}
	return allocRaw(k, Bool, a, b)
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func CreateFOeq(a, b *Expr) *Expr { return createFloatCompare(KindFOeq, a, b, func(c int) bool { return c == 0 }, false) }
func CreateFOlt(a, b *Expr) *Expr { return createFloatCompare(KindFOlt, a, b, func(c int) bool { return c < 0 }, false) }
func CreateFOle(a, b *Expr) *Expr { return createFloatCompare(KindFOle, a, b, func(c int) bool { return c <= 0 }, false) }
func CreateFOgt(a, b *Expr) *Expr { return createFloatCompare(KindFOgt, a, b, func(c int) bool { return c > 0 }, false) }
func CreateFOge(a, b *Expr) *Expr { return createFloatCompare(KindFOge, a, b, func(c int) bool { return c >= 0 }, false) }
func CreateFOne(a, b *Expr) *Expr { return createFloatCompare(KindFOne, a, b, func(c int) bool { return c != 0 }, false) }

func CreateFUeq(a, b *Expr) *Expr { return createFloatCompare(KindFUeq, a, b, func(c int) bool { return c == 0 }, true) }
func CreateFUlt(a, b *Expr) *Expr { return createFloatCompare(KindFUlt, a, b, func(c int) bool { return c < 0 }, true) }
func CreateFUle(a, b *Expr) *Expr { return createFloatCompare(KindFUle, a, b, func(c int) bool { return c <= 0 }, true) }
func CreateFUgt(a, b *Expr) *Expr { return createFloatCompare(KindFUgt, a, b, func(c int) bool { return c > 0 }, true) }
func CreateFUge(a, b *Expr) *Expr { return createFloatCompare(KindFUge, a, b, func(c int) bool { return c >= 0 }, true) }
func CreateFUne(a, b *Expr) *Expr { return createFloatCompare(KindFUne, a, b, func(c int) bool { return c != 0 }, true) }

// CreateFOrd reports whether neither operand is NaN.
func CreateFOrd(a, b *Expr) *Expr {
	if a.kind == KindFloatConstant && b.kind == KindFloatConstant {
		return boolExpr(big.NewInt(boolToInt(!a.isNaN && !b.isNaN)))
	}
	return allocRaw(KindFOrd, Bool, a, b)
}

// CreateFUno reports whether either operand is NaN.
func CreateFUno(a, b *Expr) *Expr {
	if a.kind == KindFloatConstant && b.kind == KindFloatConstant {
		return boolExpr(big.NewInt(boolToInt(a.isNaN || b.isNaN)))
	}
	return allocRaw(KindFUno, Bool, a, b)
}

// CreateFOrd1 is the single-operand ordered predicate: true iff x is
// known not to be NaN.
func CreateFOrd1(x *Expr) *Expr {
	if x.kind == KindFloatConstant {
		return boolExpr(big.NewInt(boolToInt(!x.isNaN)))
	}
	if x.Category() == CatNaN {
		return CreateFalse()
	}
	if !x.Category().has(CatNaN) {
		return CreateTrue()
	}
	return allocRaw(KindFOrd1, Bool, x)
}

// casts between bit-vector and floating-point domains

func CreateFpExt(x *Expr, sem FPSemantics) *Expr {
	if x.sem == sem {
		return x
	}
	if x.kind == KindFloatConstant {
		if x.isNaN {
			return allocNaN(sem)
		}
		return allocFloatConstant(x.floatVal, sem)
	}
	return allocFloat(KindFpExt, sem, x.cat, x)
}

func CreateFpTrunc(x *Expr, sem FPSemantics) *Expr {
	if x.sem == sem {
		return x
	}
	if x.kind == KindFloatConstant {
		if x.isNaN {
			return allocNaN(sem)
		}
		return allocFloatConstant(x.floatVal, sem)
	}
	return allocFloat(KindFpTrunc, sem, x.cat, x)
}

func CreateUIntToFp(x *Expr, sem FPSemantics) *Expr {
	if x.kind == KindIntConstant {
		v := new(big.Float).SetPrec(sem.precision()).SetInt(x.intVal)
		return allocFloatConstant(v, sem)
	}
	return allocFloat(KindUIntToFp, sem, CatZero|CatPosNormal, x)
}

func CreateSIntToFp(x *Expr, sem FPSemantics) *Expr {
	if x.kind == KindIntConstant {
		signed := asSigned(x.intVal, x.width)
		v := new(big.Float).SetPrec(sem.precision()).SetInt(signed)
		return allocFloatConstant(v, sem)
	}
	return allocFloat(KindSIntToFp, sem, CatZero|CatPosNormal|CatNegNormal, x)
}

func CreateFpToUInt(x *Expr, width Width) *Expr {
	if x.kind == KindFloatConstant && !x.isNaN {
		i, _ := x.floatVal.Int(nil)
		if i.Sign() < 0 {
			i = big.NewInt(0)
		}
		return CreateIntConstant(i, width)
	}
	return allocRaw(KindFpToUInt, width, x)
}

func CreateFpToSInt(x *Expr, width Width) *Expr {
	if x.kind == KindFloatConstant && !x.isNaN {
		i, _ := x.floatVal.Int(nil)
		return CreateIntConstant(fromSigned(i, width), width)
	}
	return allocRaw(KindFpToSInt, width, x)
}
