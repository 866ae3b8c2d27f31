// Package store persists Annalist entities as JSON-LD documents under a
// deterministic filesystem layout, one document per entity plus optional
// attached binary resources beside it.
//
// Layout for a collection C rooted at <root>:
//
//	<root>/C/coll_meta.jsonld
//	<root>/C/d/<TYPE_ID>/<ENTITY_ID>/<meta file>
//	<root>/C/d/<TYPE_ID>/<ENTITY_ID>/<attachments...>
//
// Built-in types (_type, _view, _list, _field, _group, _user, _vocab) live
// in the same tree under their reserved type ids, with per-type metadata
// file names. Site-wide data lives in the reserved collection
// "_annalist_site".
//
// Metadata writes are atomic: the document is written to a uniquely named
// temporary file in the target directory and renamed into place, so
// concurrent readers see either the previous or the new document, never a
// partial one.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// Entity is a loaded entity handle: its coordinates, value dictionary and
// derived addressing information. The store owns the on-disk bytes; the
// handle owns its in-memory values for the duration of a request.
type Entity struct {
	Ref    types.EntityRef
	Values types.Values

	// URL is the entity's stable address under the store's base URL.
	URL string

	// Err carries the diagnostic message when the on-disk document was
	// malformed. The same text is recorded in Values under @error.
	Err string
}

// ID returns the entity id.
func (e *Entity) ID() string {
	return e.Ref.ID
}

// TypeID returns the entity's type id.
func (e *Entity) TypeID() string {
	return e.Ref.TypeID
}

// URI returns the entity's user-chosen URI, or "" when none is declared.
func (e *Entity) URI() string {
	return e.Values.String(annal.PropURI)
}

// Label returns the entity's rdfs:label, falling back to its id.
func (e *Entity) Label() string {
	return e.Values.StringOr(annal.PropLabel, e.Ref.ID)
}

// TypeURIs returns the entity's declared @type URIs.
func (e *Entity) TypeURIs() []string {
	return e.Values.StringList(annal.KeyType)
}

// checkRef validates every path coordinate of an entity reference against
// the id grammar. Host-supplied ids are joined into filesystem paths, so
// a coordinate carrying a path separator must never reach the layout
// helpers.
func checkRef(method string, ref types.EntityRef) error {
	if annal.ValidAnyID(ref.Coll) && annal.ValidAnyID(ref.TypeID) && annal.ValidAnyID(ref.ID) {
		return nil
	}
	return errors.WrapValidation(errors.ErrInvalidID, "Store", method,
		fmt.Sprintf("check entity reference %q", ref.String()))
}

// collDir returns the directory of a collection.
func (s *Store) collDir(coll string) string {
	return filepath.Join(s.root, coll)
}

// entityDir returns the directory holding an entity's metadata document
// and attachments.
func (s *Store) entityDir(ref types.EntityRef) string {
	return filepath.Join(s.root, ref.Coll, annal.CollDataDir, ref.TypeID, ref.ID)
}

// entityMetaPath returns the path of an entity's metadata document.
func (s *Store) entityMetaPath(ref types.EntityRef) string {
	return filepath.Join(s.entityDir(ref), annal.MetaFileName(ref.TypeID))
}

// entityURL returns the stable URL of an entity under the store base URL.
func (s *Store) entityURL(ref types.EntityRef) string {
	return s.baseURL + ref.Coll + "/" + annal.CollDataDir + "/" + ref.TypeID + "/" + ref.ID + "/"
}
