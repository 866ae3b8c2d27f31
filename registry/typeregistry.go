package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/types"
)

// TypeRegistry indexes the record types visible to a collection: by type
// id, by declared type URI, and through the supertype closure. Population
// is lazy; the first query scans `_type` entities across the collection's
// inheritance chain.
//
// Closure queries operate on URIs and include URIs that have no defined
// type record; record queries return only types that are actually defined.
type TypeRegistry struct {
	mu         sync.RWMutex
	coll       *collection.Collection
	byID       map[string]types.RecordType
	idByURI    map[string]string
	supertypes *ClosureCache
	problems   []string
	populated  bool
}

// NewTypeRegistry creates an unpopulated type registry for a collection.
func NewTypeRegistry(coll *collection.Collection) *TypeRegistry {
	return &TypeRegistry{
		coll:       coll,
		byID:       make(map[string]types.RecordType),
		idByURI:    make(map[string]string),
		supertypes: NewClosureCache(annal.PropSupertypeURI),
	}
}

// ensure populates the registry on first use. Callers must not hold the
// lock.
func (r *TypeRegistry) ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.populated {
		return nil
	}
	ids, err := r.coll.EntityIDs(ctx, annal.TypeIDType, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := r.coll.Resolve(ctx, annal.TypeIDType, id, collection.ScopeAll)
		if err != nil {
			r.problems = append(r.problems, fmt.Sprintf("type %s: %v", id, err))
			continue
		}
		if e == nil {
			continue
		}
		r.loadLocked(types.NewRecordType(e.ID(), e.Values))
	}
	r.populated = true
	return nil
}

// loadLocked indexes one type record and its supertype relations. The
// write lock must be held.
func (r *TypeRegistry) loadLocked(rt types.RecordType) {
	uri := rt.TypeURI()
	if old, ok := r.byID[rt.ID]; ok {
		delete(r.idByURI, old.TypeURI())
		r.supertypes.RemoveVal(old.TypeURI())
	}
	r.byID[rt.ID] = rt
	r.idByURI[uri] = rt.ID
	r.supertypes.RemoveVal(uri)
	for _, st := range rt.SupertypeURIs() {
		if _, err := r.supertypes.AddRel(uri, st); err != nil {
			r.problems = append(r.problems, fmt.Sprintf("type %s: %v", rt.ID, err))
		}
	}
	// Restore relations from other types that reference this URI as a
	// supertype; RemoveVal above dropped them.
	for _, other := range r.byID {
		if other.ID == rt.ID {
			continue
		}
		for _, st := range other.SupertypeURIs() {
			if st == uri {
				if _, err := r.supertypes.AddRel(other.TypeURI(), uri); err != nil {
					r.problems = append(r.problems, fmt.Sprintf("type %s: %v", other.ID, err))
				}
			}
		}
	}
}

// SetType adds or replaces a type record in the registry.
func (r *TypeRegistry) SetType(ctx context.Context, rt types.RecordType) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked(rt)
	return nil
}

// RemoveType drops a type record from the registry. It reports whether the
// id was present.
func (r *TypeRegistry) RemoveType(ctx context.Context, typeID string) (bool, error) {
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.byID[typeID]
	if !ok {
		return false, nil
	}
	delete(r.byID, typeID)
	delete(r.idByURI, rt.TypeURI())
	r.supertypes.RemoveVal(rt.TypeURI())
	return true, nil
}

// Type returns the record type for an id, if defined.
func (r *TypeRegistry) Type(ctx context.Context, typeID string) (types.RecordType, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return types.RecordType{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byID[typeID]
	return rt, ok, nil
}

// TypeByURI returns the record type declaring a type URI, if defined.
func (r *TypeRegistry) TypeByURI(ctx context.Context, uri string) (types.RecordType, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return types.RecordType{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByURI[uri]
	if !ok {
		return types.RecordType{}, false, nil
	}
	return r.byID[id], true, nil
}

// Types returns the record types visible under a scope, in id order.
func (r *TypeRegistry) Types(ctx context.Context, scope collection.Scope) ([]types.RecordType, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	ids, err := r.coll.EntityIDs(ctx, annal.TypeIDType, scope)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]types.RecordType, 0, len(ids))
	for _, id := range ids {
		if rt, ok := r.byID[id]; ok {
			result = append(result, rt)
		}
	}
	return result, nil
}

// SupertypeURIs returns the transitive supertype URIs of a type URI,
// including URIs with no defined type record. The URI itself is not
// included.
func (r *TypeRegistry) SupertypeURIs(ctx context.Context, uri string) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supertypes.FwdClosure(uri), nil
}

// SubtypeURIs returns the transitive subtype URIs of a type URI.
func (r *TypeRegistry) SubtypeURIs(ctx context.Context, uri string) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.supertypes.RevClosure(uri), nil
}

// Supertypes returns the defined record types in the supertype closure of
// a type URI.
func (r *TypeRegistry) Supertypes(ctx context.Context, uri string) ([]types.RecordType, error) {
	uris, err := r.SupertypeURIs(ctx, uri)
	if err != nil {
		return nil, err
	}
	return r.typesForURIs(uris), nil
}

// Subtypes returns the defined record types in the subtype closure of a
// type URI.
func (r *TypeRegistry) Subtypes(ctx context.Context, uri string) ([]types.RecordType, error) {
	uris, err := r.SubtypeURIs(ctx, uri)
	if err != nil {
		return nil, err
	}
	return r.typesForURIs(uris), nil
}

func (r *TypeRegistry) typesForURIs(uris []string) []types.RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []types.RecordType
	for _, uri := range uris {
		if id, ok := r.idByURI[uri]; ok {
			result = append(result, r.byID[id])
		}
	}
	return result
}

// Problems returns diagnostics recorded during population, such as
// supertype declarations that would create a cycle.
func (r *TypeRegistry) Problems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.problems...)
}
