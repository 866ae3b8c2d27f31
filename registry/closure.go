// Package registry maintains per-collection derived state: type, field and
// vocabulary indexes with transitive closure caches over the supertype and
// superproperty relations, held in a process-wide cache keyed by collection
// id and discarded only by explicit flush.
package registry

import (
	"fmt"
	"sort"

	"github.com/gklyne/annalist-sub001/errors"
)

// ClosureCache computes transitive closures over a directed relation. The
// relation graph is kept acyclic: a relation that would put a value in its
// own closure is rejected, so a value never appears in its own forward or
// reverse closure.
type ClosureCache struct {
	relation string
	fwd      map[string]map[string]bool
	rev      map[string]map[string]bool
}

// NewClosureCache creates an empty closure cache for the named relation.
// The relation URI is informational only.
func NewClosureCache(relation string) *ClosureCache {
	return &ClosureCache{
		relation: relation,
		fwd:      make(map[string]map[string]bool),
		rev:      make(map[string]map[string]bool),
	}
}

// Relation returns the relation URI this cache covers.
func (c *ClosureCache) Relation() string { return c.relation }

// AddRel records a direct relation v1 -> v2. It reports whether a new
// relation was added, and fails without change when the relation would
// relate a value to itself, directly or through the existing closure.
func (c *ClosureCache) AddRel(v1, v2 string) (bool, error) {
	if v1 == v2 {
		return false, errors.WrapValidation(errors.ErrMalformedData, "ClosureCache", "AddRel",
			fmt.Sprintf("relate %s %s to itself", c.relation, v1))
	}
	if c.closure(c.rev, v1)[v2] {
		return false, errors.WrapValidation(errors.ErrMalformedData, "ClosureCache", "AddRel",
			fmt.Sprintf("relate %s %s to %s creating a cycle", c.relation, v1, v2))
	}
	if c.fwd[v1][v2] {
		return false, nil
	}
	addDirect(c.fwd, v1, v2)
	addDirect(c.rev, v2, v1)
	return true, nil
}

// RemoveVal removes a value, dropping every direct relation that mentions
// it. It reports whether anything changed.
func (c *ClosureCache) RemoveVal(v string) bool {
	updated := false
	for v2 := range c.fwd[v] {
		removeDirect(c.rev, v2, v)
		updated = true
	}
	delete(c.fwd, v)
	for v1 := range c.rev[v] {
		removeDirect(c.fwd, v1, v)
		updated = true
	}
	delete(c.rev, v)
	return updated
}

// FwdClosure returns the sorted transitive closure of values reachable by
// following the relation forward from v. v itself is never included.
func (c *ClosureCache) FwdClosure(v string) []string {
	return sortedKeys(c.closure(c.fwd, v))
}

// RevClosure returns the sorted transitive closure of values from which v
// is reachable.
func (c *ClosureCache) RevClosure(v string) []string {
	return sortedKeys(c.closure(c.rev, v))
}

// Values returns the sorted set of values mentioned by any direct
// relation.
func (c *ClosureCache) Values() []string {
	vals := make(map[string]bool)
	for v := range c.fwd {
		vals[v] = true
	}
	for v := range c.rev {
		vals[v] = true
	}
	return sortedKeys(vals)
}

// closure walks the direct relation map iteratively. The visited set makes
// the walk safe even if the acyclicity invariant were violated externally.
func (c *ClosureCache) closure(rel map[string]map[string]bool, v string) map[string]bool {
	result := make(map[string]bool)
	stack := make([]string, 0, len(rel[v]))
	for next := range rel[v] {
		stack = append(stack, next)
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if result[cur] {
			continue
		}
		result[cur] = true
		for next := range rel[cur] {
			if !result[next] {
				stack = append(stack, next)
			}
		}
	}
	return result
}

func addDirect(rel map[string]map[string]bool, v1, v2 string) {
	if rel[v1] == nil {
		rel[v1] = make(map[string]bool)
	}
	rel[v1][v2] = true
}

func removeDirect(rel map[string]map[string]bool, v1, v2 string) {
	delete(rel[v1], v2)
	if len(rel[v1]) == 0 {
		delete(rel, v1)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
