package store

import (
	"strings"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/types"
)

// renamedProps maps legacy property names to their current names,
// applied to every entity on load. The legacy key is dropped; an existing
// value under the current name wins.
var renamedProps = map[string]string{
	annal.PropLegacyComment: annal.PropComment,
}

// renamedTypeProps maps legacy property names applied only to entities of
// a specific type id.
var renamedTypeProps = map[string]map[string]string{
	annal.TypeIDType: {
		annal.PropLegacySupertypeURIs: annal.PropSupertypeURI,
	},
	annal.TypeIDUser: {
		annal.PropLegacyUserPermission: annal.PropUserPermission,
	},
	annal.TypeIDField: {
		"annal:options_typeref":   annal.PropFieldRefType,
		"annal:target_field":      annal.PropFieldRefField,
		"annal:field_target_type": annal.PropFieldEntityType,
	},
}

// migrateValues rewrites legacy field names in loaded entity values.
// The input map is modified in place and returned.
func migrateValues(typeID string, values types.Values) types.Values {
	if values == nil {
		return nil
	}
	applyRenames(values, renamedProps)
	if renames, ok := renamedTypeProps[typeID]; ok {
		applyRenames(values, renames)
	}
	if typeID == annal.TypeIDUser {
		migrateUserPermissions(values)
	}
	return values
}

func applyRenames(values types.Values, renames map[string]string) {
	for legacy, current := range renames {
		legacyVal, ok := values[legacy]
		if !ok {
			continue
		}
		if _, present := values[current]; !present {
			values[current] = legacyVal
		}
		delete(values, legacy)
	}
}

// migrateUserPermissions rewrites a legacy space-separated permission
// string into a list of permission tokens.
func migrateUserPermissions(values types.Values) {
	s, ok := values[annal.PropUserPermission].(string)
	if !ok {
		return
	}
	fields := strings.Fields(s)
	tokens := make([]any, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, f)
	}
	values[annal.PropUserPermission] = tokens
}
