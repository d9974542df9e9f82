package expr

import "math/big"

// computeHash produces the cached 32-bit hash using FNV-1a folded over
// the kind, width, and each operand's own cached hash. Structural
// equality implies hash equality because every input to the fold is
// itself derived from structural content; collisions are allowed.
func computeHash(k Kind, width Width, kids []*Expr) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619

	h := uint32(offset32)
	h = (h ^ uint32(k)) * prime32
	h = (h ^ uint32(width)) * prime32
	for _, kid := range kids {
		if kid == nil {
			continue
		}
		h = (h ^ kid.hash) * prime32
	}
	return h
}

func hashIntConstant(v *big.Int, width Width) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	h = (h ^ uint32(KindIntConstant)) * prime32
	h = (h ^ uint32(width)) * prime32
	for _, b := range v.Bytes() {
		h = (h ^ uint32(b)) * prime32
	}
	if v.Sign() < 0 {
		h ^= 0xffffffff
	}
	return h
}

func hashFloatConstant(v *big.Float, sem FPSemantics) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	h = (h ^ uint32(KindFloatConstant)) * prime32
	h = (h ^ uint32(sem)) * prime32
	mantissa := new(big.Int)
	exp := v.MantExp(nil) // populates exponent via side channel below
	v.Int(mantissa)       // best-effort integer part, enough to vary the hash
	for _, b := range mantissa.Bytes() {
		h = (h ^ uint32(b)) * prime32
	}
	h = (h ^ uint32(int32(exp))) * prime32
	return h
}

func hashNaNConstant(sem FPSemantics) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	h = (h ^ uint32(KindFloatConstant)) * prime32
	h = (h ^ uint32(sem)) * prime32
	h = (h ^ 0x4e614e00) * prime32 // "NaN\0" salt so NaN never collides with a finite value's hash path.
	return h
}
