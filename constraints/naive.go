package constraints

import (
	"math/big"

	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/expr"
)

// maxEnumeratedWidth bounds the width of a single Read this solver will
// enumerate; wider free variables make brute force infeasible.
const maxEnumeratedWidth = 8

// maxStateSpace bounds the total number of assignments tried across
// all free variables combined, so a query with many small variables
// fails fast rather than looping for a long time.
const maxStateSpace = 1 << 20

// naiveSolver is a bounded brute-force reference Solver: it enumerates
// every assignment of the free Read variables reachable from a query,
// up to maxEnumeratedWidth bits each and maxStateSpace assignments
// total, and reports ErrSolverFailure when the search space is too
// large to enumerate. It makes no completeness claim — it exists so
// the engine is exercisable end to end without an external SMT
// binding (see the package doc comment).
type naiveSolver struct{}

// NewNaiveSolver returns the bounded brute-force reference Solver.
func NewNaiveSolver() Solver { return naiveSolver{} }

// checkEnumerable reports an error if reads is too large to brute
// force within maxEnumeratedWidth/maxStateSpace.
func checkEnumerable(reads []*expr.Expr) error {
	space := 1
	for _, r := range reads {
		if r.Width() > maxEnumeratedWidth {
			return ErrSolverFailure
		}
		space *= 1 << r.Width()
		if space > maxStateSpace {
			return ErrSolverFailure
		}
	}
	return nil
}

// forEachAssignment calls visit with every full assignment of reads,
// stopping early if visit returns false.
func forEachAssignment(reads []*expr.Expr, visit func(map[*expr.Expr]*expr.Expr) bool) {
	assign := make(map[*expr.Expr]*expr.Expr, len(reads))
	var rec func(i int) bool
	rec = func(i int) bool {
		if i == len(reads) {
			return visit(assign)
		}
		r := reads[i]
		limit := int64(1) << r.Width()
		for v := int64(0); v < limit; v++ {
			assign[r] = expr.CreateIntConstant(big.NewInt(v), r.Width())
			if !rec(i + 1) {
				return false
			}
		}
		delete(assign, r)
		return true
	}
	rec(0)
}

func allHold(cs []*expr.Expr, assign map[*expr.Expr]*expr.Expr) bool {
	for _, c := range cs {
		if !isTrue(evalConcrete(c, assign)) {
			return false
		}
	}
	return true
}

// findModel returns the first assignment satisfying every constraint
// together with every expression in extra (all must hold), or
// ok=false if none exists within the bounded search space.
func findModel(constraints []*expr.Expr, extra ...*expr.Expr) (map[*expr.Expr]*expr.Expr, bool, error) {
	all := append(append([]*expr.Expr(nil), constraints...), extra...)
	reads := collectReadsAll(all)
	if err := checkEnumerable(reads); err != nil {
		return nil, false, err
	}
	var found map[*expr.Expr]*expr.Expr
	forEachAssignment(reads, func(assign map[*expr.Expr]*expr.Expr) bool {
		if allHold(all, assign) {
			found = make(map[*expr.Expr]*expr.Expr, len(assign))
			for k, v := range assign {
				found[k] = v
			}
			return false
		}
		return true
	})
	return found, found != nil, nil
}

func (s naiveSolver) ComputeValidity(cs []*expr.Expr, query *expr.Expr) (Validity, error) {
	// A model where constraints hold and query is false witnesses
	// "not always true"; one where constraints hold and query is true
	// witnesses "not always false". Absence of any satisfying model at
	// all makes the query vacuously valid.
	negQuery := expr.CreateEq(query, expr.CreateFalse())
	_, hasFalsifying, err := findModel(cs, negQuery)
	if err != nil {
		return Unknown, err
	}
	_, hasSatisfying, err := findModel(cs, query)
	if err != nil {
		return Unknown, err
	}
	switch {
	case !hasFalsifying:
		return True, nil // includes the case constraints are themselves unsatisfiable
	case !hasSatisfying:
		return False, nil
	default:
		return Unknown, nil
	}
}

func (s naiveSolver) ComputeTruth(cs []*expr.Expr, query *expr.Expr) (bool, error) {
	v, err := s.ComputeValidity(cs, query)
	return v == True, err
}

func (s naiveSolver) ComputeValue(cs []*expr.Expr, query *expr.Expr) (*expr.Expr, error) {
	// The query's own free Reads count toward the enumeration bound
	// even though the query itself need not hold.
	if err := checkEnumerable(collectReadsAll(append(append([]*expr.Expr(nil), cs...), query))); err != nil {
		return nil, err
	}
	assign, ok, err := findModel(cs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSolverFailure
	}
	return evalConcrete(query, assign), nil
}

func (s naiveSolver) ComputeInitialValues(cs []*expr.Expr, objects []*arrays.Array) ([][]byte, bool, error) {
	assign, ok, err := findModel(cs)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	reads := collectReadsAll(cs)
	values := make([][]byte, len(objects))
	for i, obj := range objects {
		bytes := make([]byte, obj.Size)
		for idx := uint64(0); idx < obj.Size; idx++ {
			bytes[idx] = byteForIndex(obj, idx, reads, assign)
		}
		values[i] = bytes
	}
	return values, true, nil
}

// byteForIndex looks for a Read of obj at the constant index idx among
// reads, returning its assigned value if found, the array's own
// constant content if not symbolic, or 0 otherwise.
func byteForIndex(obj *arrays.Array, idx uint64, reads []*expr.Expr, assign map[*expr.Expr]*expr.Expr) byte {
	for _, r := range reads {
		index, src := r.ReadIndex()
		if src.ArrayIdentity() != obj.Identity() || !index.IsConstant() {
			continue
		}
		if index.IntValue().Uint64() != idx {
			continue
		}
		if v, ok := assign[r]; ok {
			return byte(v.IntValue().Uint64())
		}
	}
	if v := obj.ConstantAt(idx); v != nil && v.IsConstant() {
		return byte(v.IntValue().Uint64())
	}
	return 0
}
