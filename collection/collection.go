// Package collection models Annalist collections: containers of typed
// entities with their own configuration, linked by inheritance to parent
// collections and ultimately to the reserved site-data collection.
//
// A loaded Collection carries its resolved inheritance chain and the
// diagnostics gathered while building it. Entity lookups search the chain
// according to a caller-chosen scope.
package collection

import (
	"context"
	"fmt"
	"sort"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/store"
	"github.com/gklyne/annalist-sub001/types"
)

// Scope bounds an entity search within a collection's inheritance chain.
type Scope int

const (
	// ScopeOwn searches only the collection's own entities.
	ScopeOwn Scope = iota

	// ScopeAll searches the collection and its full inheritance chain,
	// ending at site data.
	ScopeAll

	// ScopeSite searches the site-data collection only.
	ScopeSite
)

func (s Scope) String() string {
	switch s {
	case ScopeOwn:
		return "own"
	case ScopeAll:
		return "all"
	case ScopeSite:
		return "site"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// link is one resolved step of an inheritance chain.
type link struct {
	id     string
	values types.Values
}

// Collection is a loaded collection with its resolved inheritance chain.
type Collection struct {
	id     string
	values types.Values
	site   *Site

	// chain holds this collection first, then each inherited parent in
	// order, ending with site data when reachable.
	chain []link

	// defaults are copied from the first chain member that defines them.
	defaultView string
	defaultList string
	defaultType string

	diagnostics []string
}

// ID returns the collection id.
func (c *Collection) ID() string { return c.id }

// Values returns the collection's metadata values.
func (c *Collection) Values() types.Values { return c.values }

// Label returns the collection's display label, falling back to the id.
func (c *Collection) Label() string {
	return c.values.StringOr(annal.PropLabel, c.id)
}

// Comment returns the collection's descriptive text.
func (c *Collection) Comment() string {
	return c.values.String(annal.PropComment)
}

// Chain returns the collection ids of the inheritance chain, starting with
// this collection.
func (c *Collection) Chain() []string {
	ids := make([]string, len(c.chain))
	for i, l := range c.chain {
		ids[i] = l.id
	}
	return ids
}

// Diagnostics returns the problems recorded while resolving the
// inheritance chain. An empty result means the chain is intact.
func (c *Collection) Diagnostics() []string {
	return append([]string(nil), c.diagnostics...)
}

// searchColls returns the collection ids to search for the given scope.
func (c *Collection) searchColls(scope Scope) []string {
	switch scope {
	case ScopeOwn:
		return []string{c.id}
	case ScopeSite:
		return []string{annal.SiteCollectionID}
	default:
		return c.Chain()
	}
}

// Resolve locates an entity by (type id, entity id) under the given scope,
// searching the inheritance chain in order. It returns (nil, nil) when no
// chain member holds the entity.
func (c *Collection) Resolve(ctx context.Context, typeID, entityID string, scope Scope) (*store.Entity, error) {
	for _, coll := range c.searchColls(scope) {
		e, err := c.site.store.Load(ctx, types.EntityRef{Coll: coll, TypeID: typeID, ID: entityID})
		if err != nil {
			return e, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

// Exists reports whether an entity is present under the given scope.
func (c *Collection) Exists(ctx context.Context, typeID, entityID string, scope Scope) (bool, error) {
	for _, coll := range c.searchColls(scope) {
		ok, err := c.site.store.Exists(ctx, types.EntityRef{Coll: coll, TypeID: typeID, ID: entityID})
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// EntityIDs returns the sorted ids of entities of a type visible under the
// given scope. Ids shadowed by a nearer chain member appear once.
func (c *Collection) EntityIDs(ctx context.Context, typeID string, scope Scope) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, coll := range c.searchColls(scope) {
		collIDs, err := c.site.store.ListIDs(ctx, coll, typeID)
		if err != nil {
			return nil, err
		}
		for _, id := range collIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// EntityTypes returns the sorted type ids with stored entities under the
// given scope.
func (c *Collection) EntityTypes(ctx context.Context, scope Scope) ([]string, error) {
	seen := make(map[string]bool)
	var typeIDs []string
	for _, coll := range c.searchColls(scope) {
		ids, err := c.site.store.ListTypes(ctx, coll)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				typeIDs = append(typeIDs, id)
			}
		}
	}
	sort.Strings(typeIDs)
	return typeIDs, nil
}

// typeRecord loads the type entity for a type id across the chain.
func (c *Collection) typeRecord(ctx context.Context, typeID string) (*types.RecordType, error) {
	if typeID == "" {
		return nil, nil
	}
	e, err := c.Resolve(ctx, annal.TypeIDType, typeID, ScopeAll)
	if err != nil || e == nil {
		return nil, err
	}
	rt := types.NewRecordType(e.ID(), e.Values)
	return &rt, nil
}

// DefaultView returns the view id used to display entities of a type: the
// type's declared view, else the built-in default view.
func (c *Collection) DefaultView(ctx context.Context, typeID string) (string, error) {
	rt, err := c.typeRecord(ctx, typeID)
	if err != nil {
		return "", err
	}
	if rt != nil {
		if viewID := rt.DefaultViewID(); viewID != "" {
			return viewID, nil
		}
	}
	return annal.DefaultViewID, nil
}

// DefaultList returns the list id used to enumerate entities of a type:
// the type's declared list, else the collection's inherited default list,
// else the built-in default for typed or untyped listing.
func (c *Collection) DefaultList(ctx context.Context, typeID string) (string, error) {
	rt, err := c.typeRecord(ctx, typeID)
	if err != nil {
		return "", err
	}
	if rt != nil {
		if listID := rt.DefaultListID(); listID != "" {
			return listID, nil
		}
	}
	if c.defaultList != "" {
		return c.defaultList, nil
	}
	if typeID != "" {
		return annal.DefaultListID, nil
	}
	return annal.DefaultListAllID, nil
}

// DisplayDefaults returns the collection-level default view and list ids
// copied from the first inheritance chain member that defines them. Empty
// strings mean no chain member declares a default.
func (c *Collection) DisplayDefaults() (viewID, listID string) {
	return c.defaultView, c.defaultList
}

// DefaultType returns the collection's inherited default type id, or the
// built-in default.
func (c *Collection) DefaultType() string {
	if c.defaultType != "" {
		return c.defaultType
	}
	return annal.DefaultTypeID
}

// SetInheritFrom updates the collection's parent pointer in its metadata
// values. The change is persisted by Site.Save.
func (c *Collection) SetInheritFrom(parentID string) {
	c.values[annal.PropInheritFrom] = parentID
}

// refString extracts a reference value stored either as a plain string or
// as a JSON-LD {"@id": ...} object.
func refString(v any) string {
	switch ref := v.(type) {
	case string:
		return ref
	case map[string]any:
		if id, ok := ref[annal.KeyID].(string); ok {
			return id
		}
	}
	return ""
}

// checkVersion fails when values record a software version newer than the
// running implementation.
func checkVersion(collID string, values types.Values) error {
	stored := values.String(annal.PropSoftwareVersion)
	if stored == "" {
		return nil
	}
	cmp, err := annal.CompareVersions(stored, annal.SoftwareVersion)
	if err != nil {
		return errors.WrapLoad(errors.ErrMalformedData, "Collection", "checkVersion",
			fmt.Sprintf("parse software version %q for collection %s", stored, collID))
	}
	if cmp > 0 {
		return errors.WrapVersion(errors.ErrNewerVersion, "Collection", "checkVersion",
			fmt.Sprintf("collection %s written by version %s, running %s",
				collID, stored, annal.SoftwareVersion))
	}
	return nil
}
