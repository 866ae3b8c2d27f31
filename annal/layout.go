package annal

import "regexp"

// Reserved collection and type identifiers. Ids beginning with "_" are
// reserved for built-in entities; user-chosen ids must not use them.
const (
	// SiteCollectionID is the reserved collection holding site-wide data,
	// the implicit root of every inheritance chain.
	SiteCollectionID = "_annalist_site"

	// Built-in configuration type ids.
	TypeIDType  = "_type"
	TypeIDView  = "_view"
	TypeIDList  = "_list"
	TypeIDField = "_field"
	TypeIDGroup = "_group"
	TypeIDUser  = "_user"
	TypeIDVocab = "_vocab"
	TypeIDEnum  = "_enum"
)

// On-disk names within a collection directory.
const (
	// CollDataDir is the subdirectory of a collection holding all typed
	// entity directories.
	CollDataDir = "d"

	CollMetaFile    = "coll_meta.jsonld"
	CollContextFile = "coll_context.jsonld"
	CollReadmeFile  = "README.md"

	EntityDataFile = "entity_data.jsonld"
	TypeMetaFile   = "type_meta.jsonld"
	ViewMetaFile   = "view_meta.jsonld"
	ListMetaFile   = "list_meta.jsonld"
	FieldMetaFile  = "field_meta.jsonld"
	GroupMetaFile  = "group_meta.jsonld"
	UserMetaFile   = "user_meta.jsonld"
	VocabMetaFile  = "vocab_meta.jsonld"
	EnumMetaFile   = "enum_meta.jsonld"
)

// metaFileNames maps built-in type ids to their metadata file names. Any
// type id not present here is user data stored as EntityDataFile.
var metaFileNames = map[string]string{
	TypeIDType:  TypeMetaFile,
	TypeIDView:  ViewMetaFile,
	TypeIDList:  ListMetaFile,
	TypeIDField: FieldMetaFile,
	TypeIDGroup: GroupMetaFile,
	TypeIDUser:  UserMetaFile,
	TypeIDVocab: VocabMetaFile,
	TypeIDEnum:  EnumMetaFile,
}

// MetaFileName returns the metadata file name used for entities of the
// given type id.
func MetaFileName(typeID string) string {
	if name, ok := metaFileNames[typeID]; ok {
		return name
	}
	return EntityDataFile
}

// Default view and list ids provided by site data.
const (
	DefaultViewID    = "Default_view"
	DefaultListID    = "Default_list"
	DefaultListAllID = "Default_list_all"
	DefaultTypeID    = "Default_type"
)

var (
	idPattern       = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	reservedPattern = regexp.MustCompile(`^_[A-Za-z0-9_]+$`)
)

// ValidID reports whether id is a well-formed user-assignable identifier.
// Reserved ids (leading underscore) are rejected.
func ValidID(id string) bool {
	return idPattern.MatchString(id) && !reservedPattern.MatchString(id)
}

// ValidAnyID reports whether id is well formed, permitting the reserved
// leading-underscore form used by built-in entities.
func ValidAnyID(id string) bool {
	return idPattern.MatchString(id)
}

// IsReservedID reports whether id names a built-in entity or type.
func IsReservedID(id string) bool {
	return reservedPattern.MatchString(id)
}
