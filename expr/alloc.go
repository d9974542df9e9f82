package expr

import "math/big"

// arena backs every Expr node allocated by this package. Expr nodes
// are immutable and shared across every execution state, so a single
// package-level arena serves them all; no per-state arena is needed.
// Mutated only under mu (see hashcons.go).
var arena = newArena[Expr]()

// ResetArena discards every Expr allocated so far, along with the
// hash-cons table that interned them. Tests call this to get a clean
// hash-cons universe; production code does not need to, since Exprs are
// immutable and safely shared forever.
func ResetArena() {
	mu.Lock()
	defer mu.Unlock()
	arena.reset()
	table = map[uint32][]*Expr{}
	divideOptimization = true
}

// allocRaw is the "alloc" layer under the Create constructors: it
// bypasses simplification entirely and returns the interned node (the
// new one, or an existing structurally equal one) with the hash
// computed but no peephole rules applied. Only the Create*
// functions in this package may call it; external packages only ever
// see the results of Create*, never allocRaw directly.
func allocRaw(k Kind, width Width, kids ...*Expr) *Expr {
	if width > MaxWidth {
		panic("BUG: width exceeds MaxWidth")
	}
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = k
	e.width = width
	for i, kid := range kids {
		e.kids[i] = kid
	}
	e.hash = computeHash(k, width, kids)
	return intern(e)
}

func allocFloat(k Kind, sem FPSemantics, cat FPCategory, kids ...*Expr) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = k
	e.width = sem.Width()
	e.sem = sem
	e.cat = cat
	for i, kid := range kids {
		e.kids[i] = kid
	}
	e.hash = computeHash(k, e.width, kids) ^ uint32(sem)<<24
	return intern(e)
}

func allocIntConstant(v *big.Int, width Width) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = KindIntConstant
	e.width = width
	e.intVal = new(big.Int).Set(truncate(v, width))
	e.hash = hashIntConstant(e.intVal, width)
	return intern(e)
}

func allocFloatConstant(v *big.Float, sem FPSemantics) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = KindFloatConstant
	e.sem = sem
	e.width = sem.Width()
	e.floatVal = roundToSemantics(v, sem)
	e.cat = categoryOfConstant(e.floatVal)
	e.hash = hashFloatConstant(e.floatVal, sem)
	return intern(e)
}

// allocNaN allocates the canonical NaN constant for sem. All NaNs of a
// given semantics are treated as structurally equal: FUno/FOrd cannot
// distinguish NaN payloads and neither does this IR.
func allocNaN(sem FPSemantics) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = KindFloatConstant
	e.sem = sem
	e.width = sem.Width()
	e.isNaN = true
	e.cat = CatNaN
	e.hash = hashNaNConstant(sem)
	return intern(e)
}

func allocExtract(x *Expr, offsetBits uint32, width Width) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = KindExtract
	e.width = width
	e.offset = offsetBits
	e.kids[0] = x
	e.hash = computeHash(KindExtract, width, []*Expr{x}) ^ offsetBits*2654435761
	return intern(e)
}

func allocRead(index *Expr, src ReadSource) *Expr {
	mu.Lock()
	defer mu.Unlock()
	_, e := arena.alloc()
	e.kind = KindRead
	e.width = 8
	e.kids[0] = index
	e.updates = src
	e.hash = computeHash(KindRead, 8, []*Expr{index}) ^ src.Hash()
	return intern(e)
}
