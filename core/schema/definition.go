// Package schema compiles client supplied model definitions into validators and
// runs those validators against record payloads.
package schema

import (
	"regexp"
)

// FieldType represents the field types a model definition may declare.
type FieldType string

const (
	FieldTypeString   FieldType = "string"   // Any JSON string
	FieldTypeInteger  FieldType = "integer"  // Whole numbers
	FieldTypeFloat    FieldType = "float"    // Any JSON number
	FieldTypeDecimal  FieldType = "decimal"  // Any JSON number, kept verbatim
	FieldTypeBoolean  FieldType = "boolean"  // true/false values
	FieldTypeDate     FieldType = "date"     // YYYY-MM-DD
	FieldTypeDatetime FieldType = "datetime" // RFC 3339 timestamp
	FieldTypeEmail    FieldType = "email"    // Bare e-mail address
	FieldTypeURL      FieldType = "url"      // Absolute http or https URL
	FieldTypeEnum     FieldType = "enum"     // One out of a set of pre-defined strings
	FieldTypeRegex    FieldType = "regex"    // String matching a pattern
	FieldTypeObject   FieldType = "object"   // JSON object, optionally with declared fields
	FieldTypeArray    FieldType = "array"    // JSON array, optionally with a declared item type
)

var fieldTypes = map[FieldType]struct{}{
	FieldTypeString:   {},
	FieldTypeInteger:  {},
	FieldTypeFloat:    {},
	FieldTypeDecimal:  {},
	FieldTypeBoolean:  {},
	FieldTypeDate:     {},
	FieldTypeDatetime: {},
	FieldTypeEmail:    {},
	FieldTypeURL:      {},
	FieldTypeEnum:     {},
	FieldTypeRegex:    {},
	FieldTypeObject:   {},
	FieldTypeArray:    {},
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Descriptor attribute names accepted by the meta-schema.
const (
	attrType        = "type"
	attrRequired    = "required"
	attrDescription = "description"
	attrChoices     = "choices"
	attrPattern     = "pattern"
	attrItems       = "items"
	attrFields      = "fields"
)

// FieldDescriptor defines a single field of a model definition.
type FieldDescriptor struct {
	Type FieldType `json:"type"`
	// Required fields must be present and non-null in every payload.
	Required bool `json:"required,omitempty"`
	// Description is informational only.
	Description string `json:"description,omitempty"`
	// Choices lists the allowed values of an enum field.
	Choices []string `json:"choices,omitempty"`
	// Pattern is the RE2 expression a regex field must match.
	Pattern string `json:"pattern,omitempty"`
	// Items describes every element of an array field.
	Items *FieldDescriptor `json:"items,omitempty"`
	// Fields describes the members of an object field.
	Fields Definition `json:"fields,omitempty"`

	pattern *regexp.Regexp
	choices map[string]struct{}
}

// Definition maps field names to their descriptors. It is the compiled form of
// the JSON document a client submits for a model.
type Definition map[string]*FieldDescriptor

// Issue locations, mirroring where in a request the offending value lives.
const (
	LocationBody   = "body"
	LocationQuery  = "query"
	LocationPath   = "path"
	LocationServer = "server"
)

// Issue codes.
const (
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInvalidDefinition  = "INVALID_DEFINITION"
	CodeUnknownType        = "UNKNOWN_TYPE"
	CodeUnknownAttribute   = "UNKNOWN_ATTRIBUTE"
	CodeRequiredMissing    = "REQUIRED_FIELD_MISSING"
	CodeNullValue          = "NULL_VALUE"
	CodeTypeMismatch       = "TYPE_MISMATCH"
	CodeFormatMismatch     = "FORMAT_MISMATCH"
	CodeEnumViolation      = "ENUM_VIOLATION"
	CodePatternMismatch    = "PATTERN_MISMATCH"
	CodeUnexpectedField    = "UNEXPECTED_FIELD"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeUnknownModel       = "UNKNOWN_MODEL"
	CodeStorageUnavailable = "STORAGE_ERROR"
)

// Issue represents a field level validation or operational problem.
type Issue struct {
	Location string `json:"location"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"-"`
}
