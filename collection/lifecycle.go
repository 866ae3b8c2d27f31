package collection

import (
	"context"
	"fmt"
	"strings"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// RenameEntity moves an entity within the collection, rewriting its
// stored identity: `@id` follows the new coordinates, `@type` swaps the
// old type's declared URIs for the new type's, and a URI derived from the
// old id is dropped while an explicitly chosen URI is preserved.
// Attachments move with the entity directory.
func (c *Collection) RenameEntity(ctx context.Context, oldTypeID, oldID, newTypeID, newID string) error {
	oldRef := types.EntityRef{Coll: c.id, TypeID: oldTypeID, ID: oldID}
	newRef := types.EntityRef{Coll: c.id, TypeID: newTypeID, ID: newID}

	e, err := c.site.store.Load(ctx, oldRef)
	if err != nil {
		return err
	}
	if e == nil {
		return errors.WrapNotFound(errors.ErrNotFound, "Collection", "RenameEntity",
			fmt.Sprintf("locate entity %s/%s", oldTypeID, oldID))
	}
	if err := c.site.store.Rename(ctx, oldRef, newRef); err != nil {
		return err
	}

	values := e.Values.Clone()
	values[annal.PropID] = newID
	values[annal.KeyID] = newTypeID + "/" + newID
	if oldTypeID != newTypeID {
		if err := c.swapTypeURIs(ctx, values, oldTypeID, newTypeID); err != nil {
			return err
		}
	}
	if uriDerivedFrom(values.String(annal.PropURI), oldTypeID, oldID) {
		delete(values, annal.PropURI)
	}
	return c.site.store.Save(ctx, newRef, values)
}

// CopyEntity duplicates an entity, attachments included, under new
// coordinates in this collection. The copy always sheds the source's
// declared URI: two entities must not claim the same identity.
func (c *Collection) CopyEntity(ctx context.Context, srcTypeID, srcID, dstTypeID, dstID string) error {
	dstRef := types.EntityRef{Coll: c.id, TypeID: dstTypeID, ID: dstID}

	src, err := c.Resolve(ctx, srcTypeID, srcID, ScopeAll)
	if err != nil {
		return err
	}
	if src == nil {
		return errors.WrapNotFound(errors.ErrNotFound, "Collection", "CopyEntity",
			fmt.Sprintf("locate entity %s/%s", srcTypeID, srcID))
	}

	values := src.Values.Clone()
	values[annal.PropID] = dstID
	values[annal.KeyID] = dstTypeID + "/" + dstID
	delete(values, annal.PropURI)
	if srcTypeID != dstTypeID {
		if err := c.swapTypeURIs(ctx, values, srcTypeID, dstTypeID); err != nil {
			return err
		}
	}
	if _, err := c.site.store.Create(ctx, dstRef, values); err != nil {
		return err
	}
	// Attachments come from wherever the source actually resolved,
	// which may be an inherited collection.
	return c.site.store.CopyFiles(ctx, src.Ref, dstRef)
}

// RenameType renames a type record and moves every instance of the type
// in this collection to the renamed type directory. Instances keep their
// declared type URIs; only their `@id` coordinates change.
func (c *Collection) RenameType(ctx context.Context, oldID, newID string) error {
	if !annal.ValidID(newID) {
		return errors.WrapValidation(errors.ErrInvalidID, "Collection", "RenameType",
			fmt.Sprintf("check type id %q", newID))
	}
	if err := c.RenameEntity(ctx, annal.TypeIDType, oldID, annal.TypeIDType, newID); err != nil {
		return err
	}
	ids, err := c.site.store.ListIDs(ctx, c.id, oldID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		oldRef := types.EntityRef{Coll: c.id, TypeID: oldID, ID: id}
		newRef := types.EntityRef{Coll: c.id, TypeID: newID, ID: id}
		if err := c.site.store.Rename(ctx, oldRef, newRef); err != nil {
			return err
		}
		e, err := c.site.store.Load(ctx, newRef)
		if err != nil {
			return err
		}
		e.Values[annal.KeyID] = newID + "/" + id
		if err := c.site.store.Save(ctx, newRef, e.Values); err != nil {
			return err
		}
	}
	return nil
}

// swapTypeURIs replaces the old type's declared URIs in @type with the
// new type's URI and declared supertypes. Types without a record leave
// @type untouched.
func (c *Collection) swapTypeURIs(ctx context.Context, values types.Values, oldTypeID, newTypeID string) error {
	oldType, err := c.typeRecord(ctx, oldTypeID)
	if err != nil {
		return err
	}
	newType, err := c.typeRecord(ctx, newTypeID)
	if err != nil {
		return err
	}

	drop := make(map[string]bool)
	if oldType != nil {
		drop[oldType.TypeURI()] = true
		for _, uri := range oldType.SupertypeURIs() {
			drop[uri] = true
		}
	}
	var typeList []any
	present := make(map[string]bool)
	for _, uri := range values.StringList(annal.KeyType) {
		if drop[uri] || present[uri] {
			continue
		}
		present[uri] = true
		typeList = append(typeList, uri)
	}
	if newType != nil {
		for _, uri := range append([]string{newType.TypeURI()}, newType.SupertypeURIs()...) {
			if uri != "" && !present[uri] {
				present[uri] = true
				typeList = append(typeList, uri)
			}
		}
	}
	values[annal.KeyType] = typeList
	return nil
}

// uriDerivedFrom reports whether a stored URI was minted from the
// entity's old coordinates rather than chosen by the user.
func uriDerivedFrom(uri, typeID, entityID string) bool {
	if uri == "" {
		return false
	}
	trimmed := strings.TrimSuffix(uri, "/")
	return strings.HasSuffix(trimmed, "/"+entityID) ||
		strings.HasSuffix(trimmed, "/"+typeID+"/"+entityID)
}
