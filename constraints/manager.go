package constraints

import (
	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/expr"
)

// Manager is the per-state constraint set: an append-only,
// implicitly-conjoined multiset of width-1 expressions, backed by a
// Solver for the decision queries.
type Manager struct {
	solver Solver
	set    []*expr.Expr

	cache map[cacheKey]Validity
}

type cacheKey struct {
	setHash uint32
	queryID *expr.Expr
}

// NewManager returns an empty constraint set backed by solver.
func NewManager(solver Solver) *Manager {
	return &Manager{solver: solver, cache: map[cacheKey]Validity{}}
}

// Set returns the current constraint multiset, for callers (e.g.
// package exec's Fork/Merge) that need to snapshot or compare it.
func (m *Manager) Set() []*expr.Expr { return append([]*expr.Expr(nil), m.set...) }

// Add appends e after substituting known equalities of the form
// Eq(const, var) already in the set. The constraint is stored in its
// original (possibly floating-point) form: the FP rewrite runs at
// query time via RewriteQuery, so constraint fusion still sees the raw
// FP structure two related constraints share instead of the boolean
// constants rewriting collapses them to.
func (m *Manager) Add(e *expr.Expr) {
	e = m.substituteKnownEqualities(e)
	m.set = append(m.set, e)
	m.cache = map[cacheKey]Validity{}
}

// substituteKnownEqualities rewrites e by replacing any sub-expression
// matching a known Eq(const, var) constraint already in the set with
// that constant, one pass over the existing set (a fixed point is not
// pursued; iterating to one is an optimization, not a correctness
// requirement).
func (m *Manager) substituteKnownEqualities(e *expr.Expr) *expr.Expr {
	for _, c := range m.set {
		if c.Kind() != expr.KindEq {
			continue
		}
		lhs, rhs := c.Kid(0), c.Kid(1)
		if lhs.IsConstant() && !rhs.IsConstant() {
			e = substitute(e, rhs, lhs)
		} else if rhs.IsConstant() && !lhs.IsConstant() {
			e = substitute(e, lhs, rhs)
		}
	}
	return e
}

func substitute(e, from, to *expr.Expr) *expr.Expr {
	if e == from {
		return to
	}
	n := e.NumKids()
	if n == 0 {
		return e
	}
	changed := false
	kids := make([]*expr.Expr, n)
	for i := 0; i < n; i++ {
		kids[i] = substitute(e.Kid(i), from, to)
		if kids[i] != e.Kid(i) {
			changed = true
		}
	}
	if !changed {
		return e
	}
	return reconstruct(e, kids)
}

func (m *Manager) querySetHash() uint32 {
	h := uint32(2166136261)
	for _, c := range m.set {
		h = (h ^ c.Hash()) * 16777619
	}
	return h
}

func (m *Manager) validity(e *expr.Expr) (Validity, error) {
	key := cacheKey{setHash: m.querySetHash(), queryID: e}
	if v, ok := m.cache[key]; ok {
		return v, nil
	}
	cs, query := RewriteQuery(m.set, e)
	v, err := m.solver.ComputeValidity(cs, query)
	if err != nil {
		return Unknown, err
	}
	m.cache[key] = v
	return v, nil
}

// MustBeTrue reports whether e is implied true by the current set.
func (m *Manager) MustBeTrue(e *expr.Expr) (bool, error) {
	v, err := m.validity(e)
	return v == True, err
}

// MustBeFalse reports whether e is implied false by the current set.
func (m *Manager) MustBeFalse(e *expr.Expr) (bool, error) {
	v, err := m.validity(e)
	return v == False, err
}

// MayBeTrue reports whether e can be true under some model of the
// current set (i.e. is not implied false).
func (m *Manager) MayBeTrue(e *expr.Expr) (bool, error) {
	v, err := m.validity(e)
	return v != False, err
}

// MayBeFalse reports whether e can be false under some model of the
// current set (i.e. is not implied true).
func (m *Manager) MayBeFalse(e *expr.Expr) (bool, error) {
	v, err := m.validity(e)
	return v != True, err
}

// GetValue returns a concrete value e may take under the current
// constraints. Assuming the returned value is left to the caller
// (typically Add(Eq(value, e))); silently mutating the set inside a
// getter would surprise a reader of this API.
func (m *Manager) GetValue(e *expr.Expr) (*expr.Expr, error) {
	return m.solver.ComputeValue(RewriteSet(m.set), e)
}

// GetInitialValues returns a model for objects consistent with the
// current constraints.
func (m *Manager) GetInitialValues(objects []*arrays.Array) ([][]byte, bool, error) {
	return m.solver.ComputeInitialValues(RewriteSet(m.set), objects)
}
