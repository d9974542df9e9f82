// Package boundary exposes the primitives a POSIX personality builds
// on — stream buffers, an end-point table, and wait-list integration —
// without implementing fd semantics, sockets, or pipes itself.
package boundary

import "sort"

// EndpointTable is a generic, lowest-available-key table mapping small
// integer handles to endpoints (sockets, pipes, stream buffers, ...):
// Insert always returns the smallest unused key starting at a
// configurable floor, mirroring POSIX's "lowest available fd"
// allocation rule, while InsertAt allows dup2-style placement at a
// caller-chosen key.
type EndpointTable[K ~int32, V any] struct {
	floor   K
	entries map[K]V
}

// NewEndpointTable returns an empty table that allocates keys starting
// at floor (POSIX tables conventionally reserve the first few keys for
// stdio; callers needing that reserve should pass a floor above them).
func NewEndpointTable[K ~int32, V any](floor K) *EndpointTable[K, V] {
	return &EndpointTable[K, V]{floor: floor, entries: map[K]V{}}
}

// Insert stores v at the smallest unused key >= the table's floor,
// returning that key.
func (t *EndpointTable[K, V]) Insert(v V) K {
	k := t.floor
	for {
		if _, used := t.entries[k]; !used {
			t.entries[k] = v
			return k
		}
		k++
	}
}

// InsertAt stores v at exactly k, evicting whatever (if anything) was
// there before — the dup2 case.
func (t *EndpointTable[K, V]) InsertAt(k K, v V) {
	t.entries[k] = v
}

// Lookup returns the endpoint at k, if any.
func (t *EndpointTable[K, V]) Lookup(k K) (V, bool) {
	v, ok := t.entries[k]
	return v, ok
}

// Delete removes the endpoint at k, if present.
func (t *EndpointTable[K, V]) Delete(k K) {
	delete(t.entries, k)
}

// Range calls fn for every (key, value) pair in ascending key order,
// stopping early if fn returns false.
func (t *EndpointTable[K, V]) Range(fn func(k K, v V) bool) {
	keys := make([]K, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if !fn(k, t.entries[k]) {
			return
		}
	}
}

// Len reports the number of endpoints currently held.
func (t *EndpointTable[K, V]) Len() int { return len(t.entries) }
