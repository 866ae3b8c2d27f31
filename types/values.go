// Package types contains the shared record model of the Annalist core:
// entity value dictionaries and the typed views over configuration records
// (types, views, lists, fields, groups, vocabularies, users).
//
// Entity values have no compile-time shape. They are JSON objects keyed by
// compact URIs and JSON-LD keywords, so the package models them as a tagged
// map with typed accessor helpers, and layers thin typed wrappers on top
// for each built-in record kind.
package types

import (
	"encoding/json"
	"fmt"
)

// Values is an entity value dictionary: a JSON object keyed by CURIEs
// (prefix:local) and reserved JSON-LD keywords (@id, @type, @context).
type Values map[string]any

// String returns the value of key as a string, or "" when absent or not a
// string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// StringOr returns the value of key as a string, or fallback when absent
// or not a string.
func (v Values) StringOr(key, fallback string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return fallback
}

// Bool returns the value of key as a bool, or false when absent.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// List returns the value of key as a slice, or nil when absent or not a
// list.
func (v Values) List(key string) []any {
	l, _ := v[key].([]any)
	return l
}

// StringList returns the value of key as a slice of strings, accepting
// either a JSON list of strings or a single string value.
func (v Values) StringList(key string) []string {
	switch val := v[key].(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}
	return nil
}

// ObjectList returns the value of key as a slice of JSON objects, skipping
// non-object members.
func (v Values) ObjectList(key string) []Values {
	list, ok := v[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Values, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, Values(obj))
		}
	}
	return out
}

// Object returns the value of key as a nested value dictionary, or nil.
func (v Values) Object(key string) Values {
	if obj, ok := v[key].(map[string]any); ok {
		return Values(obj)
	}
	return nil
}

// Has reports whether key is present with a non-nil value.
func (v Values) Has(key string) bool {
	val, ok := v[key]
	return ok && val != nil
}

// Clone returns a deep copy of the value dictionary via JSON round-trip,
// normalising all nested values to JSON shapes.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		// Non-JSON values cannot occur in stored entities; fall back to
		// a shallow copy for in-memory oddities.
		out := make(Values, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	}
	var out Values
	if err := json.Unmarshal(data, &out); err != nil {
		out = make(Values, len(v))
		for k, val := range v {
			out[k] = val
		}
	}
	return out
}

// Merge copies all entries of other into v, overwriting existing keys.
func (v Values) Merge(other Values) {
	for k, val := range other {
		v[k] = val
	}
}

// EntityRef identifies an entity by collection, type and entity id.
type EntityRef struct {
	Coll   string
	TypeID string
	ID     string
}

// String returns the reference in "coll/type/id" form.
func (r EntityRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Coll, r.TypeID, r.ID)
}
