package expr

import "math/big"

// create_struct.go covers the "structural" kinds that don't fit the
// binary-arithmetic mold: Extract, Concat, Select, NotOptimized, and
// the Read-over-update-history lookup rule.

// CreateExtract returns the width-bit slice of x starting at bit offset.
// Extract(Extract(x, o1, w1), o2, w2) collapses to a single Extract at the
// combined offset, and extracting the whole value is the identity.
func CreateExtract(x *Expr, offset uint32, width Width) *Expr {
	if offset == 0 && width == x.width {
		return x
	}
	if x.kind == KindExtract {
		return CreateExtract(x.kids[0], offset+x.offset, width)
	}
	if x.kind == KindIntConstant {
		shifted := new(big.Int).Rsh(x.intVal, uint(offset))
		return CreateIntConstant(shifted, width)
	}
	if x.kind == KindConcat {
		// Extract entirely within one half of a Concat: descend instead of
		// wrapping the whole concat in an Extract node.
		hi, lo := x.kids[0], x.kids[1]
		if offset >= uint32(lo.width) {
			return CreateExtract(hi, offset-uint32(lo.width), width)
		}
		if offset+uint32(width) <= uint32(lo.width) {
			return CreateExtract(lo, offset, width)
		}
	}
	return allocExtract(x, offset, width)
}

// CreateConcat joins hi (most significant) and lo (least significant)
// into a single (hi.width+lo.width)-bit value. Two adjacent Extracts of
// the same source collapse back into a single wider Extract, and two
// constants fold directly.
func CreateConcat(hi, lo *Expr) *Expr {
	w := hi.width + lo.width
	if hi.kind == KindIntConstant && lo.kind == KindIntConstant {
		v := new(big.Int).Lsh(hi.intVal, uint(lo.width))
		v.Or(v, lo.intVal)
		return CreateIntConstant(v, w)
	}
	if hi.kind == KindExtract && lo.kind == KindExtract &&
		hi.kids[0] == lo.kids[0] && hi.offset == lo.offset+uint32(lo.width) {
		return CreateExtract(hi.kids[0], lo.offset, w)
	}
	return allocRaw(KindConcat, w, hi, lo)
}

// CreateSelect implements the ternary Select(cond, then, els) node,
// expanding to (cond & then) | (!cond & els) when the branches are
// themselves Bool, and short-circuiting when cond is a known constant.
func CreateSelect(cond, then, els *Expr) *Expr {
	if cond.kind == KindIntConstant {
		if cond.intVal.Sign() != 0 {
			return then
		}
		return els
	}
	if exprEqual(then, els) {
		return then
	}
	if then.width == Bool && !then.isFloatTyped() {
		return CreateOr(CreateAnd(cond, then), CreateAnd(CreateNot(cond), els))
	}
	return allocRaw(KindSelect, then.width, cond, then, els)
}

// CreateNotOptimized wraps x so simplification skips it — an escape
// hatch to pin a value for inspection without the simplifier folding
// it away.
func CreateNotOptimized(x *Expr) *Expr {
	if x.kind == KindNotOptimized {
		return x
	}
	return allocRaw(KindNotOptimized, x.width, x)
}

// CreateRead implements the Read-over-UpdateList simplification:
// walk the update history from newest to
// oldest, and if the first write whose index is provably equal to index
// is found before any write whose index cannot be proven either equal or
// distinct, return that write's value directly instead of allocating a
// Read node. The search stops as soon as it hits an entry it cannot
// resolve, since any earlier resolution would be unsound if a later
// (more recent, unresolved) write might also have touched this index.
func CreateRead(index *Expr, src ReadSource) *Expr {
	for {
		idx, val, tail, ok := src.Head()
		if !ok {
			break
		}
		switch {
		case exprEqual(idx, index):
			return val
		case provablyDistinct(idx, index):
			src = tail
			continue
		default:
			// Can't resolve this write one way or the other; give up and
			// allocate a genuine symbolic Read over the remaining history.
			return allocRead(index, src)
		}
	}
	return allocRead(index, src)
}

// provablyDistinct reports whether a and b are two constants with
// different values, the only index-distinctness this IR can prove without
// invoking the constraint solver.
func provablyDistinct(a, b *Expr) bool {
	return a.kind == KindIntConstant && b.kind == KindIntConstant && a.intVal.Cmp(b.intVal) != 0
}
