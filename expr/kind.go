package expr

// Kind identifies the operator (or leaf tag) of an Expr: one Expr
// struct carries fields for every Kind, and Kind selects which are
// meaningful.
type Kind uint32

const (
	KindInvalid Kind = iota

	// Leaves.
	KindIntConstant
	KindFloatConstant
	KindRead

	// Casts.
	KindZExt
	KindSExt
	KindExtract
	KindFpExt
	KindFpTrunc
	KindUIntToFp
	KindSIntToFp
	KindFpToUInt
	KindFpToSInt

	// Boolean / bitwise.
	KindNot
	KindAnd
	KindOr
	KindXor

	// Bit-vector arithmetic.
	KindAdd
	KindSub
	KindMul
	KindUDiv
	KindSDiv
	KindURem
	KindSRem
	KindShl
	KindLShr
	KindAShr

	// Floating-point arithmetic.
	KindFAdd
	KindFSub
	KindFMul
	KindFDiv
	KindFRem
	KindFSqrt
	KindFSin
	KindFCos

	// Bit-vector comparisons.
	KindEq
	KindNe
	KindUlt
	KindUle
	KindUgt
	KindUge
	KindSlt
	KindSle
	KindSgt
	KindSge

	// Floating-point comparisons.
	KindFOeq
	KindFOlt
	KindFOle
	KindFOgt
	KindFOge
	KindFOne
	KindFOrd
	KindFUno
	KindFUeq
	KindFUlt
	KindFUle
	KindFUgt
	KindFUge
	KindFUne
	KindFOrd1

	// Structural.
	KindSelect
	KindConcat
	KindNotOptimized

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:      "invalid",
	KindIntConstant:  "IntConstant",
	KindFloatConstant: "FloatConstant",
	KindRead:         "Read",
	KindZExt:         "ZExt",
	KindSExt:         "SExt",
	KindExtract:      "Extract",
	KindFpExt:        "FpExt",
	KindFpTrunc:      "FpTrunc",
	KindUIntToFp:     "UIntToFp",
	KindSIntToFp:     "SIntToFp",
	KindFpToUInt:     "FpToUInt",
	KindFpToSInt:     "FpToSInt",
	KindNot:          "Not",
	KindAnd:          "And",
	KindOr:           "Or",
	KindXor:          "Xor",
	KindAdd:          "Add",
	KindSub:          "Sub",
	KindMul:          "Mul",
	KindUDiv:         "UDiv",
	KindSDiv:         "SDiv",
	KindURem:         "URem",
	KindSRem:         "SRem",
	KindShl:          "Shl",
	KindLShr:         "LShr",
	KindAShr:         "AShr",
	KindFAdd:         "FAdd",
	KindFSub:         "FSub",
	KindFMul:         "FMul",
	KindFDiv:         "FDiv",
	KindFRem:         "FRem",
	KindFSqrt:        "FSqrt",
	KindFSin:         "FSin",
	KindFCos:         "FCos",
	KindEq:           "Eq",
	KindNe:           "Ne",
	KindUlt:          "Ult",
	KindUle:          "Ule",
	KindUgt:          "Ugt",
	KindUge:          "Uge",
	KindSlt:          "Slt",
	KindSle:          "Sle",
	KindSgt:          "Sgt",
	KindSge:          "Sge",
	KindFOeq:         "FOeq",
	KindFOlt:         "FOlt",
	KindFOle:         "FOle",
	KindFOgt:         "FOgt",
	KindFOge:         "FOge",
	KindFOne:         "FOne",
	KindFOrd:         "FOrd",
	KindFUno:         "FUno",
	KindFUeq:         "FUeq",
	KindFUlt:         "FUlt",
	KindFUle:         "FUle",
	KindFUgt:         "FUgt",
	KindFUge:         "FUge",
	KindFUne:         "FUne",
	KindFOrd1:        "FOrd1",
	KindSelect:       "Select",
	KindConcat:       "Concat",
	KindNotOptimized: "NotOptimized",
}

func (k Kind) String() string {
	if k < kindCount {
		if n := kindNames[k]; n != "" {
			return n
		}
	}
	return "unknown-kind"
}

// isFloatCompare reports whether k is one of the ordered/unordered
// floating-point comparison kinds.
func (k Kind) isFloatCompare() bool {
	switch k {
	case KindFOeq, KindFOlt, KindFOle, KindFOgt, KindFOge, KindFOne,
		KindFOrd, KindFUno, KindFUeq, KindFUlt, KindFUle, KindFUgt,
		KindFUge, KindFUne, KindFOrd1:
		return true
	default:
		return false
	}
}

// IsFloatCompare reports whether k is one of the ordered/unordered
// floating-point comparison kinds, exported for callers outside this
// package that need to reject FP comparisons (e.g. the
// merge-eligibility check in package exec).
func (k Kind) IsFloatCompare() bool { return k.isFloatCompare() }

// isFloatArith reports whether k is one of the FP arithmetic kinds.
func (k Kind) isFloatArith() bool {
	switch k {
	case KindFAdd, KindFSub, KindFMul, KindFDiv, KindFRem, KindFSqrt, KindFSin, KindFCos:
		return true
	default:
		return false
	}
}

// isCommutative reports whether operand order does not affect the
// result, used by the canonicalization rule that rotates a constant
// operand, if any, to the left.
func (k Kind) isCommutative() bool {
	switch k {
	case KindAdd, KindMul, KindAnd, KindOr, KindXor, KindEq, KindNe,
		KindFAdd, KindFMul:
		return true
	default:
		return false
	}
}
