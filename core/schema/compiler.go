package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/asaidimu/go-daybed/utils"
)

// Options tune the behaviour of the validators a Compiler produces.
type Options struct {
	// RejectUnknownFields makes validators report payload fields that the
	// definition does not declare. By default such fields are passed through
	// unchecked and stored as-is.
	RejectUnknownFields bool
}

// Compiler turns raw model definitions into Validators. A Compiler holds no
// mutable state and can be shared between goroutines.
type Compiler struct {
	options Options
}

// NewCompiler creates a Compiler with the given options.
func NewCompiler(options Options) *Compiler {
	return &Compiler{options: options}
}

// Compile parses raw as a model definition, checks it against the definition
// meta-schema and builds a Validator from it. When the definition is malformed
// the returned validator is nil and every violation is reported as an issue
// located in the request body.
//
// Compilation is deterministic: the same definition, regardless of key order
// or whitespace, always yields a validator with the same hash and behaviour.
func (c *Compiler) Compile(raw []byte) (*Validator, []Issue) {
	value, err := utils.DecodeJSON(raw)
	if err != nil {
		return nil, []Issue{{
			Location: LocationBody,
			Field:    "body",
			Message:  err.Error(),
			Code:     CodeInvalidJSON,
		}}
	}
	return c.CompileValue(value)
}

// CompileValue is Compile for an already decoded definition.
func (c *Compiler) CompileValue(value any) (*Validator, []Issue) {
	check := &metaCheck{}
	definition := check.definition(value, "")
	if len(check.issues) > 0 {
		return nil, check.issues
	}

	canonical, err := utils.CanonicalJSON(value)
	if err != nil {
		return nil, []Issue{{
			Location: LocationBody,
			Field:    "body",
			Message:  err.Error(),
			Code:     CodeInvalidDefinition,
		}}
	}

	return &Validator{
		definition:    definition,
		canonical:     canonical,
		hash:          utils.ContentHash(canonical),
		rejectUnknown: c.options.RejectUnknownFields,
	}, nil
}

// metaCheck walks a decoded definition, collecting meta-schema issues.
type metaCheck struct {
	issues []Issue
}

func (m *metaCheck) addIssue(code, message, path string) {
	if path == "" {
		path = "body"
	}
	m.issues = append(m.issues, Issue{
		Location: LocationBody,
		Field:    path,
		Message:  message,
		Code:     code,
	})
}

// definition checks a mapping of field names to descriptors.
func (m *metaCheck) definition(value any, path string) Definition {
	fields, ok := value.(map[string]any)
	if !ok {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Definition must be a JSON object, got %s", jsonKind(value)), path)
		return nil
	}

	definition := make(Definition, len(fields))
	for _, name := range sortedKeys(fields) {
		if name == "" {
			m.addIssue(CodeInvalidDefinition, "Field names cannot be empty", path)
			continue
		}
		fieldPath := buildPath(path, name)
		if descriptor := m.descriptor(fields[name], fieldPath); descriptor != nil {
			definition[name] = descriptor
		}
	}
	return definition
}

// descriptor checks a single field descriptor.
func (m *metaCheck) descriptor(value any, path string) *FieldDescriptor {
	attrs, ok := value.(map[string]any)
	if !ok {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Field descriptor must be a JSON object, got %s", jsonKind(value)), path)
		return nil
	}

	start := len(m.issues)
	for _, key := range sortedKeys(attrs) {
		switch key {
		case attrType, attrRequired, attrDescription, attrChoices, attrPattern, attrItems, attrFields:
		default:
			m.addIssue(CodeUnknownAttribute, fmt.Sprintf("Unknown attribute '%s'", key), buildPath(path, key))
		}
	}

	d := &FieldDescriptor{}
	m.fieldType(attrs, d, path)

	if raw, exists := attrs[attrRequired]; exists {
		required, ok := raw.(bool)
		if !ok {
			m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Attribute 'required' must be a boolean, got %s", jsonKind(raw)), buildPath(path, attrRequired))
		}
		d.Required = required
	}

	if raw, exists := attrs[attrDescription]; exists {
		description, ok := raw.(string)
		if !ok {
			m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Attribute 'description' must be a string, got %s", jsonKind(raw)), buildPath(path, attrDescription))
		}
		d.Description = description
	}

	if raw, exists := attrs[attrChoices]; exists && m.appliesTo(d, FieldTypeEnum, attrChoices, path) {
		m.choices(raw, d, buildPath(path, attrChoices))
	}
	if d.Type == FieldTypeEnum && len(d.Choices) == 0 {
		if _, exists := attrs[attrChoices]; !exists {
			m.addIssue(CodeInvalidDefinition, "Enum fields must declare a non-empty 'choices' list", buildPath(path, attrChoices))
		}
	}

	if raw, exists := attrs[attrPattern]; exists && m.appliesTo(d, FieldTypeRegex, attrPattern, path) {
		m.pattern(raw, d, buildPath(path, attrPattern))
	}
	if d.Type == FieldTypeRegex && d.pattern == nil {
		if _, exists := attrs[attrPattern]; !exists {
			m.addIssue(CodeInvalidDefinition, "Regex fields must declare a 'pattern'", buildPath(path, attrPattern))
		}
	}

	if raw, exists := attrs[attrItems]; exists && m.appliesTo(d, FieldTypeArray, attrItems, path) {
		d.Items = m.descriptor(raw, buildPath(path, attrItems))
	}

	if raw, exists := attrs[attrFields]; exists && m.appliesTo(d, FieldTypeObject, attrFields, path) {
		d.Fields = m.definition(raw, buildPath(path, attrFields))
	}

	if len(m.issues) > start {
		return nil
	}
	return d
}

func (m *metaCheck) fieldType(attrs map[string]any, d *FieldDescriptor, path string) {
	typePath := buildPath(path, attrType)
	raw, exists := attrs[attrType]
	if !exists {
		m.addIssue(CodeInvalidDefinition, "Attribute 'type' is required", typePath)
		return
	}
	name, ok := raw.(string)
	if !ok {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Attribute 'type' must be a string, got %s", jsonKind(raw)), typePath)
		return
	}
	if !FieldType(name).Valid() {
		m.addIssue(CodeUnknownType, fmt.Sprintf("Unknown field type '%s'", name), typePath)
		return
	}
	d.Type = FieldType(name)
}

// appliesTo reports whether attr may be used on d. Type specific attributes on
// a descriptor whose type could not be resolved are skipped silently since the
// type itself has already been reported.
func (m *metaCheck) appliesTo(d *FieldDescriptor, want FieldType, attr, path string) bool {
	if d.Type == "" {
		return false
	}
	if d.Type != want {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Attribute '%s' only applies to %s fields", attr, want), buildPath(path, attr))
		return false
	}
	return true
}

func (m *metaCheck) choices(raw any, d *FieldDescriptor, path string) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		m.addIssue(CodeInvalidDefinition, "Attribute 'choices' must be a non-empty array of strings", path)
		return
	}
	d.choices = make(map[string]struct{}, len(items))
	for i, item := range items {
		choice, ok := item.(string)
		if !ok {
			m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Choice must be a string, got %s", jsonKind(item)), fmt.Sprintf("%s[%d]", path, i))
			continue
		}
		if _, dup := d.choices[choice]; dup {
			continue
		}
		d.choices[choice] = struct{}{}
		d.Choices = append(d.Choices, choice)
	}
}

func (m *metaCheck) pattern(raw any, d *FieldDescriptor, path string) {
	expr, ok := raw.(string)
	if !ok {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Attribute 'pattern' must be a string, got %s", jsonKind(raw)), path)
		return
	}
	compiled, err := regexp.Compile(expr)
	if err != nil {
		m.addIssue(CodeInvalidDefinition, fmt.Sprintf("Invalid pattern: %v", err), path)
		return
	}
	d.Pattern = expr
	d.pattern = compiled
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
