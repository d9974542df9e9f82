package constraints

import "github.com/dslab-symex/symexec/expr"

// RewriteFloat rewrites the floating-point sub-formulas of e into
// pure integer/boolean expressions. The back-end naiveSolver
// (and any real SMT back-end behind the Solver interface) only
// understands bit-vector arithmetic, so a query's FP sub-expressions
// must be replaced by a sufficient integer condition before it is
// ever passed to ComputeValidity/ComputeTruth/ComputeValue.
//
// The rewriter never strengthens the query: where it cannot produce a
// precise equivalent it conservatively yields the boolean constant for
// "don't know" in the direction that keeps the query satisfiable
// (true in positive polarity, false negated) rather than invent a
// tighter constraint.
func RewriteFloat(e *expr.Expr) *expr.Expr {
	return rewritePolarity(e, false)
}

// rewritePolarity walks e tracking negation polarity through
// Not/Eq(0,·)/And so the residual-FP-becomes-boolean-constant
// fallback picks the right constant for its position.
func rewritePolarity(e *expr.Expr, negated bool) *expr.Expr {
	switch e.Kind() {
	case expr.KindNot:
		return expr.CreateNot(rewritePolarity(e.Kid(0), !negated))
	case expr.KindAnd:
		if e.IsBool() {
			return expr.CreateAnd(rewritePolarity(e.Kid(0), negated), rewritePolarity(e.Kid(1), negated))
		}
	case expr.KindEq:
		if isFloatTyped(e.Kid(0)) || isFloatTyped(e.Kid(1)) {
			return constrainEquality(e.Kid(0), e.Kid(1), false)
		}
		// Eq(0, x) is the canonical "logical not" encoding; preserve its
		// polarity-flipping role even though neither operand is FP.
		if isZeroConst(e.Kid(0)) {
			return expr.CreateEq(e.Kid(0), rewritePolarity(e.Kid(1), !negated))
		}
		return e
	case expr.KindFUeq:
		return constrainEquality(e.Kid(0), e.Kid(1), true)
	case expr.KindFOne:
		return expr.CreateNot(constrainEquality(e.Kid(0), e.Kid(1), false))
	}

	if e.Kind().IsFloatCompare() || isFloatTyped(e) {
		if negated {
			return expr.CreateFalse()
		}
		return expr.CreateTrue()
	}
	return e
}

func isZeroConst(e *expr.Expr) bool {
	return e.Kind() == expr.KindIntConstant && e.IntValue().Sign() == 0
}

func isFloatTyped(e *expr.Expr) bool {
	switch e.Kind() {
	case expr.KindFloatConstant, expr.KindFAdd, expr.KindFSub, expr.KindFMul, expr.KindFDiv, expr.KindFRem,
		expr.KindFSqrt, expr.KindFSin, expr.KindFCos, expr.KindFpExt, expr.KindFpTrunc,
		expr.KindUIntToFp, expr.KindSIntToFp:
		return true
	case expr.KindSelect:
		return isFloatTyped(e.Kid(1))
	default:
		return false
	}
}

// constrainEquality returns a sufficient integer condition for
// lhs == rhs (bitwise/unordered equality when isUnordered, ordered
// equality otherwise): for commutative operators both operand
// pairings are tried; casts require matching source widths/semantics.
func constrainEquality(lhs, rhs *expr.Expr, isUnordered bool) *expr.Expr {
	if lhs.Kind() != rhs.Kind() {
		return expr.CreateFalse()
	}
	switch lhs.Kind() {
	case expr.KindFAdd, expr.KindFMul, expr.KindFOeq:
		straight := expr.CreateAnd(
			constrainEquality(lhs.Kid(0), rhs.Kid(0), isUnordered),
			constrainEquality(lhs.Kid(1), rhs.Kid(1), isUnordered))
		swapped := expr.CreateAnd(
			constrainEquality(lhs.Kid(0), rhs.Kid(1), isUnordered),
			constrainEquality(lhs.Kid(1), rhs.Kid(0), isUnordered))
		return expr.CreateOr(straight, swapped)
	case expr.KindFSub, expr.KindFDiv, expr.KindFRem, expr.KindFOlt:
		return expr.CreateAnd(
			constrainEquality(lhs.Kid(0), rhs.Kid(0), isUnordered),
			constrainEquality(lhs.Kid(1), rhs.Kid(1), isUnordered))
	case expr.KindFpExt, expr.KindFpTrunc:
		if lhs.FPSemantics() != rhs.FPSemantics() {
			return expr.CreateFalse()
		}
		return constrainEquality(lhs.Kid(0), rhs.Kid(0), isUnordered)
	case expr.KindUIntToFp, expr.KindSIntToFp:
		if lhs.FPSemantics() != rhs.FPSemantics() {
			return expr.CreateFalse()
		}
		l, r := lhs.Kid(0), rhs.Kid(0)
		if l.Width() != r.Width() {
			return expr.CreateFalse()
		}
		return expr.CreateEq(l, r)
	case expr.KindFloatConstant:
		return boolOfFloatEq(lhs, rhs)
	case expr.KindNot:
		// Matching negations are equal iff their operands are.
		return constrainEquality(lhs.Kid(0), rhs.Kid(0), isUnordered)
	case expr.KindSelect:
		// Only reachable for unordered equality, and only fuses to True
		// when both sides are min/max trees of the same kind over the
		// same (order-independent) operand pair; anything else falls
		// through to the structural-equality fallback below.
		if isUnordered {
			if isMinL, opsL, okL := recognizeMinMax(lhs); okL {
				if isMinR, opsR, okR := recognizeMinMax(rhs); okR && isMinL == isMinR && sameOperandPair(opsL, opsR) {
					return expr.CreateTrue()
				}
			}
		}
	}
	// Not a floating-point-shaped node: the only equality provable
	// without further decomposition is structural identity, which the
	// hash-cons table reduces to pointer comparison.
	if lhs == rhs {
		return expr.CreateTrue()
	}
	return expr.CreateFalse()
}

// fuseConstraints returns the clause RewriteQuery conjoins onto c_i
// for every later constraint c_j — ¬sufficient(¬c_i, c_j): if ¬c_i and
// c_j are provably the same formula, asserting both c_i and c_j is
// contradictory, and the conjoined clause collapses the set to
// unsatisfiable; otherwise the clause is the constant true and changes
// nothing.
func fuseConstraints(e1, e2 *expr.Expr) *expr.Expr {
	return expr.CreateNot(constrainEquality(expr.CreateNot(e1), e2, false))
}

// RewriteQuery rewrites a full (constraint-set, query) pair ahead of a
// back-end call: the negated query joins the constraint list (a query
// asks "constraints entail expr", so ¬expr is one more constraint of
// the falsifying search), every entry is floating-point-rewritten, and
// each ordered pair is fused. The rewritten negated query is peeled
// back off and un-negated at the end.
func RewriteQuery(cs []*expr.Expr, query *expr.Expr) ([]*expr.Expr, *expr.Expr) {
	all := make([]*expr.Expr, 0, len(cs)+1)
	all = append(all, cs...)
	all = append(all, expr.CreateNot(query))
	rewritten := rewriteAndFuse(all)
	n := len(rewritten) - 1
	return rewritten[:n], expr.CreateNot(rewritten[n])
}

// RewriteSet rewrites and fuses a bare constraint set, for the
// model-producing queries (ComputeValue/ComputeInitialValues) that
// carry no validity expression to fold in.
func RewriteSet(cs []*expr.Expr) []*expr.Expr {
	return rewriteAndFuse(append([]*expr.Expr(nil), cs...))
}

func rewriteAndFuse(all []*expr.Expr) []*expr.Expr {
	out := make([]*expr.Expr, len(all))
	for i, c := range all {
		nc := RewriteFloat(c)
		for _, later := range all[i+1:] {
			nc = expr.CreateAnd(nc, fuseConstraints(c, later))
		}
		out[i] = nc
	}
	return out
}

func boolOfFloatEq(a, b *expr.Expr) *expr.Expr {
	av, aNaN := a.FloatValue()
	bv, bNaN := b.FloatValue()
	if aNaN || bNaN {
		if aNaN && bNaN {
			return expr.CreateTrue()
		}
		return expr.CreateFalse()
	}
	if av.Cmp(bv) == 0 {
		return expr.CreateTrue()
	}
	return expr.CreateFalse()
}

// recognizeMinMax detects the Select(a<b, a, b) / Select(a<b, b, a)
// shapes of floating-point min/max so the fused-equality rule above
// can treat a matching pair of min/max trees as unconditionally equal;
// reports ok=false when e isn't shaped like one.
func recognizeMinMax(e *expr.Expr) (isMin bool, operands [2]*expr.Expr, ok bool) {
	if e.Kind() != expr.KindSelect {
		return false, operands, false
	}
	cond := e.Kid(0)
	if cond.Kind() != expr.KindFOlt {
		return false, operands, false
	}
	a, b := cond.Kid(0), cond.Kid(1)
	then, els := e.Kid(1), e.Kid(2)
	if then == a && els == b {
		return true, [2]*expr.Expr{a, b}, true
	}
	if then == b && els == a {
		return false, [2]*expr.Expr{a, b}, true
	}
	return false, operands, false
}

// sameOperandPair reports whether a and b hold the same two operands,
// in either order.
func sameOperandPair(a, b [2]*expr.Expr) bool {
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}
