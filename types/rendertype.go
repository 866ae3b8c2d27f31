package types

import "strings"

// Value mode identifiers, describing how a displayed value relates to
// storage.
const (
	ValueModeDirect = "Value_direct" // literal stored on the entity
	ValueModeEntity = "Value_entity" // reference to another entity
	ValueModeField  = "Value_field"  // reference to a field of another entity
	ValueModeImport = "Value_import" // URL import descriptor
	ValueModeUpload = "Value_upload" // file upload descriptor
)

// Render type identifiers for the widget families recognised by the core.
// Rendering itself is a host concern; the core uses these tags to drive
// value shape decisions and JSON-LD context generation.
const (
	RenderText         = "Text"
	RenderTextarea     = "Textarea"
	RenderCodearea     = "Codearea"
	RenderShowtext     = "Showtext"
	RenderMarkdown     = "Markdown"
	RenderShowMarkdown = "ShowMarkdown"
	RenderCheckBox     = "CheckBox"
	RenderPlacement    = "Placement"
	RenderEntityID     = "EntityId"
	RenderEntityTypeID = "EntityTypeId"
	RenderIdentifier   = "Identifier"
	RenderEntityRef    = "EntityRef"
	RenderURILink      = "URILink"
	RenderURIImage     = "URIImage"
	RenderRefAudio     = "RefAudio"
	RenderRefImage     = "RefImage"
	RenderEnum          = "Enum"
	RenderEnumOptional  = "Enum_optional"
	RenderEnumChoice    = "Enum_choice"
	RenderEnumChoiceOpt = "Enum_choice_opt"
	RenderViewChoice    = "View_choice"
	RenderTokenSet     = "TokenSet"
	RenderType         = "Type"
	RenderView         = "View"
	RenderList         = "List"
	RenderField        = "Field"
	RenderURIImport    = "URIImport"
	RenderFileUpload   = "FileUpload"
	RenderRefMulti     = "RefMultifield"
	RenderRepeatGroup  = "RepeatGroup"
	RenderRepeatRow    = "RepeatGroupRow"
	RenderGroupSeq     = "Group_Seq"
	RenderGroupSeqRow  = "Group_Seq_Row"
	RenderGroupSet     = "Group_Set"
	RenderGroupSetRow  = "Group_Set_Row"
)

// Render type classification, used for generating appropriate JSON-LD
// context values and for deciding how the binder treats stored values.

var renderTypeLiteral = map[string]bool{
	RenderText: true, RenderTextarea: true, RenderCodearea: true,
	RenderShowtext: true, RenderPlacement: true, RenderCheckBox: true,
	RenderMarkdown: true, RenderShowMarkdown: true,
	RenderEntityID: true, RenderEntityTypeID: true,
	RenderTokenSet: true,
}

var renderTypeID = map[string]bool{
	RenderIdentifier: true, RenderEntityRef: true,
	RenderRefAudio: true, RenderRefImage: true,
	RenderURILink: true, RenderURIImage: true,
	RenderRefMulti:     true,
	RenderGroupSet:     true,
	RenderGroupSetRow:  true,
	RenderEnum:          true,
	RenderEnumOptional:  true,
	RenderEnumChoice:    true,
	RenderEnumChoiceOpt: true,
	RenderViewChoice:    true,
	RenderType:         true, RenderView: true, RenderList: true, RenderField: true,
}

var renderTypeObject = map[string]bool{
	RenderURIImport: true, RenderFileUpload: true,
	RenderRepeatGroup: true, RenderRepeatRow: true,
	RenderGroupSeq: true, RenderGroupSeqRow: true,
}

var renderTypeSet = map[string]bool{
	RenderTokenSet: true, RenderGroupSet: true, RenderGroupSetRow: true,
}

var renderTypeList = map[string]bool{
	RenderRepeatGroup: true, RenderRepeatRow: true,
	RenderGroupSeq: true, RenderGroupSeqRow: true,
}

var renderTypeRepeat = map[string]bool{
	RenderRepeatGroup: true, RenderRepeatRow: true,
	RenderGroupSeq: true, RenderGroupSeqRow: true,
	RenderGroupSet: true, RenderGroupSetRow: true,
}

// IsRenderTypeLiteral reports whether the render type stores a literal
// (string) value on the entity.
func IsRenderTypeLiteral(renderType string) bool {
	return renderTypeLiteral[renderType]
}

// IsRenderTypeID reports whether the render type stores a URI reference
// value on the entity.
func IsRenderTypeID(renderType string) bool {
	return renderTypeID[renderType]
}

// IsRenderTypeObject reports whether the render type stores a complex
// (object) value on the entity.
func IsRenderTypeObject(renderType string) bool {
	return renderTypeObject[renderType]
}

// IsRenderTypeSet reports whether the render type stores a list value
// interpreted as an unordered set.
func IsRenderTypeSet(renderType string) bool {
	return renderTypeSet[renderType]
}

// IsRenderTypeList reports whether the render type stores a list value
// interpreted as an ordered list.
func IsRenderTypeList(renderType string) bool {
	return renderTypeList[renderType]
}

// IsRenderTypeRepeat reports whether the render type is a repeating group
// whose value is a sequence of member objects.
func IsRenderTypeRepeat(renderType string) bool {
	return renderTypeRepeat[renderType]
}

// ExtractEntityID returns the entity id part of a stored entity reference.
// References may be bare ids ("Default_view") or type-qualified paths
// ("_view/Default_view"); either way the final path segment is the id.
func ExtractEntityID(ref string) string {
	if ref == "" {
		return ""
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
