// Package annal defines the structural vocabulary of the Annalist data
// model: namespace IRIs, CURIE helpers, reserved identifiers, on-disk
// layout names and the software version recorded in collection metadata.
//
// Every stored entity keys its values by compact URIs (CURIEs) in these
// namespaces, so the constants here are the single source of truth for
// property names used across the store, registries, binder and context
// generator.
package annal

import "strings"

// Namespace base IRIs.
const (
	// AnnalBase is the Annalist structural vocabulary namespace.
	AnnalBase = "http://purl.org/annalist/2014/#"

	// RDFBase is the RDF syntax namespace.
	RDFBase = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// RDFSBase is the RDF Schema namespace.
	RDFSBase = "http://www.w3.org/2000/01/rdf-schema#"

	// OWLBase is the Web Ontology Language namespace.
	OWLBase = "http://www.w3.org/2002/07/owl#"

	// XSDBase is the XML Schema datatypes namespace.
	XSDBase = "http://www.w3.org/2001/XMLSchema#"
)

// FixedPrefixes lists the namespace prefixes that are always declared in a
// generated JSON-LD context, before any collection-defined vocabularies.
var FixedPrefixes = map[string]string{
	"annal": AnnalBase,
	"rdf":   RDFBase,
	"rdfs":  RDFSBase,
	"owl":   OWLBase,
	"xsd":   XSDBase,
}

// Reserved JSON-LD keywords that may appear as entity value keys alongside
// CURIE-keyed properties.
const (
	KeyID      = "@id"
	KeyType    = "@type"
	KeyContext = "@context"
	KeyError   = "@error"
	KeyMessage = "@message"
)

// Annalist structural property CURIEs. These are the keys used in stored
// entity documents.
const (
	PropID      = "annal:id"
	PropTypeID  = "annal:type_id"
	PropType    = "annal:type"
	PropURL     = "annal:url"
	PropURI     = "annal:uri"
	PropComment = "annal:meta_comment"

	// Collection metadata.
	PropSoftwareVersion = "annal:software_version"
	PropInheritFrom     = "annal:inherit_from"
	PropDefaultList     = "annal:default_list"
	PropDefaultView     = "annal:default_view"
	PropDefaultType     = "annal:default_type"

	// Record type properties.
	PropSupertypeURI = "annal:supertype_uri"
	PropTypeList     = "annal:type_list"
	PropTypeView     = "annal:type_view"
	PropFieldAliases = "annal:field_aliases"
	PropAliasSource  = "annal:alias_source"
	PropAliasTarget  = "annal:alias_target"
	PropNSPrefix     = "annal:ns_prefix"

	// Record view / list properties.
	PropViewFields   = "annal:view_fields"
	PropOpenView     = "annal:open_view"
	PropRecordType   = "annal:record_type"
	PropListFields   = "annal:list_fields"
	PropListSelector = "annal:list_entity_selector"
	PropDisplayType  = "annal:display_type"

	// View-field / list-field reference properties.
	PropFieldID        = "annal:field_id"
	PropFieldPlacement = "annal:field_placement"

	// Record field properties.
	PropPropertyURI      = "annal:property_uri"
	PropSuperpropertyURI = "annal:superproperty_uri"
	PropRenderType       = "annal:field_render_type"
	PropValueType        = "annal:field_value_type"
	PropValueMode        = "annal:field_value_mode"
	PropFieldEntityType  = "annal:field_entity_type"
	PropPlaceholder      = "annal:placeholder"
	PropDefaultValue     = "annal:default_value"
	PropFieldRefType     = "annal:field_ref_type"
	PropFieldRefField    = "annal:field_ref_field"
	PropFieldFields      = "annal:field_fields"
	PropGroupRef         = "annal:group_ref"
	PropGroupFields      = "annal:group_fields"
	PropRepeatLabelAdd   = "annal:repeat_label_add"
	PropRepeatLabelDel   = "annal:repeat_label_delete"

	// User record properties.
	PropUserURI        = "annal:user_uri"
	PropUserPermission = "annal:user_permission"

	// Attachment bookkeeping on entities with uploaded or imported files.
	PropResourceName = "annal:resource_name"
	PropResourceType = "annal:resource_type"

	// Deprecated property names, recognised only by the load-time
	// migration in the store.
	PropLegacyComment        = "annal:comment"
	PropLegacySupertypeURIs  = "annal:supertype_uris"
	PropLegacyUserPermission = "annal:user_permissions"
)

// RDFS property CURIEs used for labels and descriptive text.
const (
	PropLabel    = "rdfs:label"
	PropSeeAlso  = "rdfs:seeAlso"
	PropRDFSNote = "rdfs:comment"
)

// Annalist structural type URIs recorded in @type for built-in entities.
const (
	TypeCollection = "annal:Collection"
	TypeSiteData   = "annal:SiteData"
	TypeEntityData = "annal:EntityData"
	TypeType       = "annal:Type"
	TypeView       = "annal:View"
	TypeList       = "annal:List"
	TypeField      = "annal:Field"
	TypeGroup      = "annal:Field_group"
	TypeUser       = "annal:User"
	TypeVocabulary = "annal:Vocabulary"
	TypeEnum       = "annal:Enum"
)

// IsReservedKey reports whether a value key is a JSON-LD keyword rather
// than a CURIE-named property.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, "@")
}

// SplitCURIE splits a compact URI into prefix and local parts. The ok
// result is false when the value carries no prefix separator, or is an
// absolute http(s)/file URI rather than a CURIE.
func SplitCURIE(curie string) (prefix, local string, ok bool) {
	i := strings.Index(curie, ":")
	if i <= 0 {
		return "", "", false
	}
	prefix = curie[:i]
	switch prefix {
	case "http", "https", "file":
		return "", "", false
	}
	return prefix, curie[i+1:], true
}

// ExpandCURIE resolves a compact URI against a prefix table, returning the
// input unchanged when the prefix is unknown or the value is not a CURIE.
func ExpandCURIE(curie string, prefixes map[string]string) string {
	prefix, local, ok := SplitCURIE(curie)
	if !ok {
		return curie
	}
	base, found := prefixes[prefix]
	if !found {
		return curie
	}
	return base + local
}

// ValidVocabURI reports whether a vocabulary namespace URI ends with a
// character that makes CURIE concatenation well formed.
func ValidVocabURI(uri string) bool {
	if uri == "" {
		return false
	}
	switch uri[len(uri)-1] {
	case ':', '/', '?', '#':
		return true
	}
	return false
}
