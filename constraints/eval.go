package constraints

import "github.com/dslab-symex/symexec/expr"

// collectReads walks e (and, for a Read node, its index sub-expression
// too) appending every distinct KindRead node reached to *out, in
// first-encountered order. KindRead is the only true free variable
// this IR produces — every other leaf is already a constant — so the
// reads collected here are exactly the naive solver's enumeration
// domain.
func collectReads(e *expr.Expr, seen map[*expr.Expr]bool, out *[]*expr.Expr) {
	if e == nil || seen[e] {
		return
	}
	if e.Kind() == expr.KindRead {
		seen[e] = true
		*out = append(*out, e)
		idx, _ := e.ReadIndex()
		collectReads(idx, seen, out)
		return
	}
	seen[e] = true
	for i := 0; i < e.NumKids(); i++ {
		collectReads(e.Kid(i), seen, out)
	}
}

// collectReadsAll is collectReads over every expression in es.
func collectReadsAll(es []*expr.Expr) []*expr.Expr {
	seen := map[*expr.Expr]bool{}
	var out []*expr.Expr
	for _, e := range es {
		collectReads(e, seen, &out)
	}
	return out
}

// evalConcrete substitutes every KindRead node present in assign with
// its assigned concrete value and reduces e to a single constant Expr
// by rebuilding it bottom-up through the Create* constructors — the
// same constant-folding the create layer already performs collapses
// every concrete sub-expression as it's built, so this never needs its
// own arithmetic. A Read with no entry in assign evaluates to zero.
func evalConcrete(e *expr.Expr, assign map[*expr.Expr]*expr.Expr) *expr.Expr {
	if e.IsConstant() {
		return e
	}
	if e.Kind() == expr.KindRead {
		if v, ok := assign[e]; ok {
			return v
		}
		return expr.CreateZero(e.Width())
	}

	kids := make([]*expr.Expr, e.NumKids())
	for i := range kids {
		kids[i] = evalConcrete(e.Kid(i), assign)
	}
	return reconstruct(e, kids)
}

// reconstruct rebuilds e's node with replacement operands kids through
// the matching Create* constructor, reading any fixed metadata (target
// width, FP semantics, extract offset) off the original e. kids need
// not be concrete — this is also used by Manager.substitute to rebuild
// a partially-rewritten symbolic expression.
func reconstruct(e *expr.Expr, kids []*expr.Expr) *expr.Expr {
	switch e.Kind() {
	case expr.KindNotOptimized:
		return kids[0]
	case expr.KindZExt:
		return expr.CreateZExt(kids[0], e.Width())
	case expr.KindSExt:
		return expr.CreateSExt(kids[0], e.Width())
	case expr.KindExtract:
		return expr.CreateExtract(kids[0], e.ExtractOffset(), e.Width())
	case expr.KindFpExt:
		return expr.CreateFpExt(kids[0], e.FPSemantics())
	case expr.KindFpTrunc:
		return expr.CreateFpTrunc(kids[0], e.FPSemantics())
	case expr.KindUIntToFp:
		return expr.CreateUIntToFp(kids[0], e.FPSemantics())
	case expr.KindSIntToFp:
		return expr.CreateSIntToFp(kids[0], e.FPSemantics())
	case expr.KindFpToUInt:
		return expr.CreateFpToUInt(kids[0], e.Width())
	case expr.KindFpToSInt:
		return expr.CreateFpToSInt(kids[0], e.Width())
	case expr.KindNot:
		return expr.CreateNot(kids[0])
	case expr.KindAnd:
		return expr.CreateAnd(kids[0], kids[1])
	case expr.KindOr:
		return expr.CreateOr(kids[0], kids[1])
	case expr.KindXor:
		return expr.CreateXor(kids[0], kids[1])
	case expr.KindAdd:
		return expr.CreateAdd(kids[0], kids[1])
	case expr.KindSub:
		return expr.CreateSub(kids[0], kids[1])
	case expr.KindMul:
		return expr.CreateMul(kids[0], kids[1])
	case expr.KindUDiv:
		return expr.CreateUDiv(kids[0], kids[1])
	case expr.KindSDiv:
		return expr.CreateSDiv(kids[0], kids[1])
	case expr.KindURem:
		return expr.CreateURem(kids[0], kids[1])
	case expr.KindSRem:
		return expr.CreateSRem(kids[0], kids[1])
	case expr.KindShl:
		return expr.CreateShl(kids[0], kids[1])
	case expr.KindLShr:
		return expr.CreateLShr(kids[0], kids[1])
	case expr.KindAShr:
		return expr.CreateAShr(kids[0], kids[1])
	case expr.KindFAdd:
		return expr.CreateFAdd(kids[0], kids[1])
	case expr.KindFSub:
		return expr.CreateFSub(kids[0], kids[1])
	case expr.KindFMul:
		return expr.CreateFMul(kids[0], kids[1])
	case expr.KindFDiv:
		return expr.CreateFDiv(kids[0], kids[1])
	case expr.KindFRem:
		return expr.CreateFRem(kids[0], kids[1])
	case expr.KindFSqrt:
		return expr.CreateFSqrt(kids[0])
	case expr.KindFSin:
		return expr.CreateFSin(kids[0])
	case expr.KindFCos:
		return expr.CreateFCos(kids[0])
	case expr.KindEq:
		return expr.CreateEq(kids[0], kids[1])
	case expr.KindNe:
		return expr.CreateNe(kids[0], kids[1])
	case expr.KindUlt:
		return expr.CreateUlt(kids[0], kids[1])
	case expr.KindUle:
		return expr.CreateUle(kids[0], kids[1])
	case expr.KindUgt:
		return expr.CreateUgt(kids[0], kids[1])
	case expr.KindUge:
		return expr.CreateUge(kids[0], kids[1])
	case expr.KindSlt:
		return expr.CreateSlt(kids[0], kids[1])
	case expr.KindSle:
		return expr.CreateSle(kids[0], kids[1])
	case expr.KindSgt:
		return expr.CreateSgt(kids[0], kids[1])
	case expr.KindSge:
		return expr.CreateSge(kids[0], kids[1])
	case expr.KindFOeq:
		return expr.CreateFOeq(kids[0], kids[1])
	case expr.KindFOlt:
		return expr.CreateFOlt(kids[0], kids[1])
	case expr.KindFOle:
		return expr.CreateFOle(kids[0], kids[1])
	case expr.KindFOgt:
		return expr.CreateFOgt(kids[0], kids[1])
	case expr.KindFOge:
		return expr.CreateFOge(kids[0], kids[1])
	case expr.KindFOne:
		return expr.CreateFOne(kids[0], kids[1])
	case expr.KindFOrd:
		return expr.CreateFOrd(kids[0], kids[1])
	case expr.KindFUno:
		return expr.CreateFUno(kids[0], kids[1])
	case expr.KindFUeq:
		return expr.CreateFUeq(kids[0], kids[1])
	case expr.KindFUlt:
		return expr.CreateFUlt(kids[0], kids[1])
	case expr.KindFUle:
		return expr.CreateFUle(kids[0], kids[1])
	case expr.KindFUgt:
		return expr.CreateFUgt(kids[0], kids[1])
	case expr.KindFUge:
		return expr.CreateFUge(kids[0], kids[1])
	case expr.KindFUne:
		return expr.CreateFUne(kids[0], kids[1])
	case expr.KindFOrd1:
		return expr.CreateFOrd1(kids[0])
	case expr.KindSelect:
		return expr.CreateSelect(kids[0], kids[1], kids[2])
	case expr.KindConcat:
		return expr.CreateConcat(kids[0], kids[1])
	default:
		panic("BUG: constraints: evalConcrete: unhandled kind " + e.Kind().String())
	}
}

// isTrue reports whether the already-concrete boolean e holds.
func isTrue(e *expr.Expr) bool {
	return e.IsConstant() && e.IntValue().Sign() != 0
}
