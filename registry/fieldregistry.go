package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/collection"
	"github.com/gklyne/annalist-sub001/types"
)

// FieldRegistry indexes the field definitions visible to a collection, by
// field id and by property URI, with a superproperty closure over declared
// superproperty URIs. Population is lazy, scanning `_field` entities across
// the inheritance chain on first use.
type FieldRegistry struct {
	mu              sync.RWMutex
	coll            *collection.Collection
	byID            map[string]types.RecordField
	idByPropertyURI map[string]string
	superproperties *ClosureCache
	problems        []string
	populated       bool
}

// NewFieldRegistry creates an unpopulated field registry for a collection.
func NewFieldRegistry(coll *collection.Collection) *FieldRegistry {
	return &FieldRegistry{
		coll:            coll,
		byID:            make(map[string]types.RecordField),
		idByPropertyURI: make(map[string]string),
		superproperties: NewClosureCache(annal.PropSuperpropertyURI),
	}
}

func (r *FieldRegistry) ensure(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.populated {
		return nil
	}
	ids, err := r.coll.EntityIDs(ctx, annal.TypeIDField, collection.ScopeAll)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := r.coll.Resolve(ctx, annal.TypeIDField, id, collection.ScopeAll)
		if err != nil {
			r.problems = append(r.problems, fmt.Sprintf("field %s: %v", id, err))
			continue
		}
		if e == nil {
			continue
		}
		r.loadLocked(types.NewRecordField(e.ID(), e.Values))
	}
	r.populated = true
	return nil
}

func (r *FieldRegistry) loadLocked(rf types.RecordField) {
	uri := rf.PropertyURI()
	if old, ok := r.byID[rf.ID]; ok {
		delete(r.idByPropertyURI, old.PropertyURI())
		r.superproperties.RemoveVal(old.PropertyURI())
	}
	r.byID[rf.ID] = rf
	if uri == "" {
		return
	}
	r.idByPropertyURI[uri] = rf.ID
	r.superproperties.RemoveVal(uri)
	for _, sp := range rf.SuperpropertyURIs() {
		if _, err := r.superproperties.AddRel(uri, sp); err != nil {
			r.problems = append(r.problems, fmt.Sprintf("field %s: %v", rf.ID, err))
		}
	}
	for _, other := range r.byID {
		if other.ID == rf.ID || other.PropertyURI() == "" {
			continue
		}
		for _, sp := range other.SuperpropertyURIs() {
			if sp == uri {
				if _, err := r.superproperties.AddRel(other.PropertyURI(), uri); err != nil {
					r.problems = append(r.problems, fmt.Sprintf("field %s: %v", other.ID, err))
				}
			}
		}
	}
}

// SetField adds or replaces a field definition in the registry.
func (r *FieldRegistry) SetField(ctx context.Context, rf types.RecordField) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked(rf)
	return nil
}

// RemoveField drops a field definition from the registry. It reports
// whether the id was present.
func (r *FieldRegistry) RemoveField(ctx context.Context, fieldID string) (bool, error) {
	if err := r.ensure(ctx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, ok := r.byID[fieldID]
	if !ok {
		return false, nil
	}
	delete(r.byID, fieldID)
	if rf.PropertyURI() != "" {
		delete(r.idByPropertyURI, rf.PropertyURI())
		r.superproperties.RemoveVal(rf.PropertyURI())
	}
	return true, nil
}

// Field returns the field definition for an id, if defined.
func (r *FieldRegistry) Field(ctx context.Context, fieldID string) (types.RecordField, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return types.RecordField{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rf, ok := r.byID[fieldID]
	return rf, ok, nil
}

// FieldByPropertyURI returns the field definition declaring a property
// URI, if defined.
func (r *FieldRegistry) FieldByPropertyURI(ctx context.Context, uri string) (types.RecordField, bool, error) {
	if err := r.ensure(ctx); err != nil {
		return types.RecordField{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByPropertyURI[uri]
	if !ok {
		return types.RecordField{}, false, nil
	}
	return r.byID[id], true, nil
}

// Fields returns the field definitions visible under a scope, in id order.
func (r *FieldRegistry) Fields(ctx context.Context, scope collection.Scope) ([]types.RecordField, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	ids, err := r.coll.EntityIDs(ctx, annal.TypeIDField, scope)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]types.RecordField, 0, len(ids))
	for _, id := range ids {
		if rf, ok := r.byID[id]; ok {
			result = append(result, rf)
		}
	}
	return result, nil
}

// SuperpropertyURIs returns the transitive superproperty URIs of a
// property URI, including URIs with no defined field. The URI itself is
// not included.
func (r *FieldRegistry) SuperpropertyURIs(ctx context.Context, uri string) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.superproperties.FwdClosure(uri), nil
}

// SubpropertyURIs returns the transitive subproperty URIs of a property
// URI.
func (r *FieldRegistry) SubpropertyURIs(ctx context.Context, uri string) ([]string, error) {
	if err := r.ensure(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.superproperties.RevClosure(uri), nil
}

// Problems returns diagnostics recorded during population.
func (r *FieldRegistry) Problems() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.problems...)
}
