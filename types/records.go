package types

import (
	"github.com/gklyne/annalist-sub001/annal"
)

// Record is a typed view over an entity value dictionary. The wrapper does
// not own the values: mutations through Values are visible to the holder
// of the underlying entity.
type Record struct {
	ID     string
	Values Values
}

// Label returns the record's rdfs:label, falling back to the record id.
func (r Record) Label() string {
	return r.Values.StringOr(annal.PropLabel, r.ID)
}

// Comment returns the record's descriptive comment text.
func (r Record) Comment() string {
	return r.Values.String(annal.PropComment)
}

// URI returns the record's explicitly declared URI, or "" when none is
// set.
func (r Record) URI() string {
	return r.Values.String(annal.PropURI)
}

// refList extracts a list of URI references stored either as plain strings
// or as {"@id": uri} objects.
func refList(values Values, key string) []string {
	list := values.List(key)
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch ref := item.(type) {
		case string:
			out = append(out, ref)
		case map[string]any:
			if id, ok := ref[annal.KeyID].(string); ok {
				out = append(out, id)
			}
		}
	}
	return out
}

// RecordType describes a type: its URI, declared supertype URIs, default
// view and list ids, and field aliases.
type RecordType struct {
	Record
}

// NewRecordType wraps entity values as a record type.
func NewRecordType(id string, values Values) RecordType {
	return RecordType{Record{ID: id, Values: values}}
}

// TypeURI returns the type's declared URI, defaulting to a CURIE in the
// collection's local namespace when none is declared.
func (t RecordType) TypeURI() string {
	if uri := t.Values.String(annal.PropURI); uri != "" {
		return uri
	}
	// Undeclared type URIs default to the type id in the annal namespace.
	return "annal:" + t.ID
}

// SupertypeURIs returns the type's directly declared supertype URIs.
func (t RecordType) SupertypeURIs() []string {
	return refList(t.Values, annal.PropSupertypeURI)
}

// DefaultViewID returns the view id declared for presenting entities of
// this type, or "" when none is declared.
func (t RecordType) DefaultViewID() string {
	return ExtractEntityID(t.Values.String(annal.PropTypeView))
}

// DefaultListID returns the list id declared for listing entities of this
// type, or "" when none is declared.
func (t RecordType) DefaultListID() string {
	return ExtractEntityID(t.Values.String(annal.PropTypeList))
}

// NSPrefix returns the namespace prefix contributed by this type to the
// collection's JSON-LD context, or "".
func (t RecordType) NSPrefix() string {
	return t.Values.String(annal.PropNSPrefix)
}

// Alias maps one property URI to another for fallback value retrieval:
// when Source has no value on an entity, the value of Target is used.
type Alias struct {
	Source string
	Target string
}

// Aliases returns the field aliases declared by this type.
func (t RecordType) Aliases() []Alias {
	objs := t.Values.ObjectList(annal.PropFieldAliases)
	out := make([]Alias, 0, len(objs))
	for _, obj := range objs {
		out = append(out, Alias{
			Source: obj.String(annal.PropAliasSource),
			Target: obj.String(annal.PropAliasTarget),
		})
	}
	return out
}

// FieldRef is one view-field or list-field reference: a field id with
// optional property URI and placement overrides.
type FieldRef struct {
	FieldID     string
	PropertyURI string
	Placement   string
}

func fieldRefs(values Values, key string) []FieldRef {
	objs := values.ObjectList(key)
	out := make([]FieldRef, 0, len(objs))
	for _, obj := range objs {
		out = append(out, FieldRef{
			FieldID:     ExtractEntityID(obj.String(annal.PropFieldID)),
			PropertyURI: obj.String(annal.PropPropertyURI),
			Placement:   obj.String(annal.PropFieldPlacement),
		})
	}
	return out
}

// RecordView describes an ordered field layout for presenting one entity.
type RecordView struct {
	Record
}

// NewRecordView wraps entity values as a record view.
func NewRecordView(id string, values Values) RecordView {
	return RecordView{Record{ID: id, Values: values}}
}

// Fields returns the view's ordered field references.
func (v RecordView) Fields() []FieldRef {
	return fieldRefs(v.Values, annal.PropViewFields)
}

// RecordTypeURI returns the target record-type URI the view applies to.
func (v RecordView) RecordTypeURI() string {
	return v.Values.String(annal.PropRecordType)
}

// OpenView reports whether the view permits adding fields not listed in
// the view description.
func (v RecordView) OpenView() bool {
	return v.Values.Bool(annal.PropOpenView)
}

// RecordList describes a tabular display over many entities: an ordered
// field layout plus a selector and drill-down defaults.
type RecordList struct {
	Record
}

// NewRecordList wraps entity values as a record list.
func NewRecordList(id string, values Values) RecordList {
	return RecordList{Record{ID: id, Values: values}}
}

// Fields returns the list's ordered field references.
func (l RecordList) Fields() []FieldRef {
	return fieldRefs(l.Values, annal.PropListFields)
}

// Selector returns the list's entity selector expression.
func (l RecordList) Selector() string {
	return l.Values.String(annal.PropListSelector)
}

// EntityTypeURI returns the list's declared entity type URI, or "".
func (l RecordList) EntityTypeURI() string {
	return l.Values.String(annal.PropRecordType)
}

// DefaultViewID returns the view used for row drill-down.
func (l RecordList) DefaultViewID() string {
	return ExtractEntityID(l.Values.String(annal.PropDefaultView))
}

// DefaultTypeID returns the target type id for "new" actions from this
// list.
func (l RecordList) DefaultTypeID() string {
	return ExtractEntityID(l.Values.String(annal.PropDefaultType))
}

// DisplayType returns the list display style ("List" or "Grid").
func (l RecordList) DisplayType() string {
	return ExtractEntityID(l.Values.StringOr(annal.PropDisplayType, "List"))
}

// RecordField describes one editable value: its property URI, render type,
// value mode and presentation hints.
type RecordField struct {
	Record
}

// NewRecordField wraps entity values as a record field.
func NewRecordField(id string, values Values) RecordField {
	return RecordField{Record{ID: id, Values: values}}
}

// PropertyURI returns the field's declared property URI.
func (f RecordField) PropertyURI() string {
	return f.Values.String(annal.PropPropertyURI)
}

// SuperpropertyURIs returns the field's declared superproperty URIs.
func (f RecordField) SuperpropertyURIs() []string {
	return refList(f.Values, annal.PropSuperpropertyURI)
}

// RenderType returns the field's render-type identifier.
func (f RecordField) RenderType() string {
	return ExtractEntityID(f.Values.String(annal.PropRenderType))
}

// ValueMode returns the field's value mode (Value_direct, Value_entity,
// Value_field, Value_import, Value_upload).
func (f RecordField) ValueMode() string {
	return ExtractEntityID(f.Values.StringOr(annal.PropValueMode, ValueModeDirect))
}

// ValueTypeURI returns the field's declared value type URI.
func (f RecordField) ValueTypeURI() string {
	return f.Values.String(annal.PropValueType)
}

// Placeholder returns the field's placeholder text.
func (f RecordField) Placeholder() string {
	return f.Values.String(annal.PropPlaceholder)
}

// Default returns the field's default value, or nil.
func (f RecordField) Default() any {
	return f.Values[annal.PropDefaultValue]
}

// Placement returns the field's placement hint.
func (f RecordField) Placement() string {
	return f.Values.String(annal.PropFieldPlacement)
}

// RefTypeID returns the type id of referenced entities for enumerated
// fields, or "".
func (f RecordField) RefTypeID() string {
	return ExtractEntityID(f.Values.String(annal.PropFieldRefType))
}

// RefFieldID returns the field id consulted on a referenced entity, or "".
func (f RecordField) RefFieldID() string {
	return ExtractEntityID(f.Values.String(annal.PropFieldRefField))
}

// GroupRef returns the legacy field-group reference, or "" when the field
// carries an inline sub-field list (or none at all).
func (f RecordField) GroupRef() string {
	return ExtractEntityID(f.Values.String(annal.PropGroupRef))
}

// InlineFields returns the field's inline sub-field references, the
// preferred representation for composite fields.
func (f RecordField) InlineFields() []FieldRef {
	return fieldRefs(f.Values, annal.PropFieldFields)
}

// EntityTypeURI returns the type URI of entities on which the field may
// appear, or "".
func (f RecordField) EntityTypeURI() string {
	return f.Values.String(annal.PropFieldEntityType)
}

// RepeatLabels returns the add and delete button labels for repeat fields.
func (f RecordField) RepeatLabels() (add, del string) {
	return f.Values.StringOr(annal.PropRepeatLabelAdd, "Add"),
		f.Values.StringOr(annal.PropRepeatLabelDel, "Remove")
}

// FieldGroup is the legacy named ordered field list, referenced from a
// field via group_ref. New writes inline the sub-field list instead.
type FieldGroup struct {
	Record
}

// NewFieldGroup wraps entity values as a field group.
func NewFieldGroup(id string, values Values) FieldGroup {
	return FieldGroup{Record{ID: id, Values: values}}
}

// Fields returns the group's ordered field references.
func (g FieldGroup) Fields() []FieldRef {
	return fieldRefs(g.Values, annal.PropGroupFields)
}

// Vocabulary declares a namespace prefix bound to a URI.
type Vocabulary struct {
	Record
}

// NewVocabulary wraps entity values as a vocabulary record. The record id
// is the declared prefix.
func NewVocabulary(id string, values Values) Vocabulary {
	return Vocabulary{Record{ID: id, Values: values}}
}

// Prefix returns the namespace prefix declared by this vocabulary.
func (v Vocabulary) Prefix() string {
	return v.ID
}

// NamespaceURI returns the namespace URI bound to the prefix.
func (v Vocabulary) NamespaceURI() string {
	return v.Values.String(annal.PropURI)
}

// User records the permissions granted to one authenticated user within a
// collection.
type User struct {
	Record
}

// NewUser wraps entity values as a user record.
func NewUser(id string, values Values) User {
	return User{Record{ID: id, Values: values}}
}

// UserURI returns the authenticated identity URI (typically mailto:).
func (u User) UserURI() string {
	return u.Values.String(annal.PropUserURI)
}

// Permissions returns the permission tokens granted to the user.
func (u User) Permissions() []string {
	return u.Values.StringList(annal.PropUserPermission)
}
