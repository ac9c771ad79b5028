package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/asaidimu/go-daybed/utils"
)

const dateLayout = "2006-01-02"

// Validator checks record payloads against a compiled definition. A Validator
// never changes after compilation and is safe for concurrent use; each call to
// Validate keeps its findings in a private validation run.
type Validator struct {
	definition    Definition
	canonical     []byte
	hash          string
	rejectUnknown bool
}

// Definition returns the compiled definition.
func (v *Validator) Definition() Definition {
	return v.definition
}

// Canonical returns the canonical JSON form of the definition the validator
// was compiled from. Callers must not modify the returned slice.
func (v *Validator) Canonical() []byte {
	return v.canonical
}

// Hash returns the content hash of the canonical definition. It identifies the
// definition version a validator belongs to.
func (v *Validator) Hash() string {
	return v.hash
}

// Validate checks payload against the definition. Every violated field yields
// one issue and all violations are collected in a single pass; an empty result
// means the payload is valid. A nil payload is validated as an empty object.
func (v *Validator) Validate(payload map[string]any) []Issue {
	if payload == nil {
		payload = map[string]any{}
	}
	run := &validation{rejectUnknown: v.rejectUnknown}
	run.validateData(v.definition, payload, "")
	return run.issues
}

// ValidateValue is Validate for an arbitrary decoded JSON value. Payloads that
// are not JSON objects are reported as a single body issue.
func (v *Validator) ValidateValue(value any) []Issue {
	payload, ok := value.(map[string]any)
	if !ok {
		return []Issue{{
			Location: LocationBody,
			Field:    "body",
			Message:  fmt.Sprintf("Payload must be a JSON object, got %s", jsonKind(value)),
			Code:     CodeTypeMismatch,
		}}
	}
	return v.Validate(payload)
}

// ParsePayload decodes a request body for validation. An empty body is treated
// as an empty object; malformed JSON yields a single generic body issue.
func ParsePayload(body []byte) (any, []Issue) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	value, err := utils.DecodeJSON(body)
	if err != nil {
		return nil, []Issue{{
			Location: LocationBody,
			Field:    "body",
			Message:  err.Error(),
			Code:     CodeInvalidJSON,
		}}
	}
	return value, nil
}

// validation holds the issues found by one Validate call.
type validation struct {
	rejectUnknown bool
	issues        []Issue
}

// validateData checks every declared field of data, then any undeclared ones.
func (r *validation) validateData(definition Definition, data map[string]any, path string) {
	for _, name := range sortedKeys(definition) {
		fieldDef := definition[name]
		if fieldDef == nil {
			continue
		}
		fieldPath := buildPath(path, name)
		value, exists := data[name]

		if !exists {
			if fieldDef.Required {
				r.addIssue(CodeRequiredMissing, fmt.Sprintf("Required field '%s' is missing", name), fieldPath)
			}
			continue
		}

		r.validateFieldValue(value, fieldDef, fieldPath)
	}

	if !r.rejectUnknown {
		return
	}
	for _, key := range sortedKeys(data) {
		if _, declared := definition[key]; !declared {
			r.addIssue(CodeUnexpectedField, fmt.Sprintf("Unexpected field '%s' not defined in schema", key), buildPath(path, key))
		}
	}
}

// validateFieldValue checks a single present value against its descriptor.
func (r *validation) validateFieldValue(value any, fieldDef *FieldDescriptor, path string) {
	if value == nil {
		if fieldDef.Required {
			r.addIssue(CodeNullValue, "Field cannot be null", path)
		}
		return
	}

	switch fieldDef.Type {
	case FieldTypeString:
		r.expectString(value, fieldDef.Type, path)
	case FieldTypeInteger:
		if !isInteger(value) {
			r.typeMismatch(fieldDef.Type, value, path)
		}
	case FieldTypeFloat, FieldTypeDecimal:
		if !isNumber(value) {
			r.typeMismatch(fieldDef.Type, value, path)
		}
	case FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			r.typeMismatch(fieldDef.Type, value, path)
		}
	case FieldTypeDate:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok {
			if _, err := time.Parse(dateLayout, s); err != nil {
				r.addIssue(CodeFormatMismatch, "Expected a date formatted as YYYY-MM-DD", path)
			}
		}
	case FieldTypeDatetime:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				r.addIssue(CodeFormatMismatch, "Expected an RFC 3339 date-time", path)
			}
		}
	case FieldTypeEmail:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok && !isEmail(s) {
			r.addIssue(CodeFormatMismatch, "Expected a valid e-mail address", path)
		}
	case FieldTypeURL:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok && !isURL(s) {
			r.addIssue(CodeFormatMismatch, "Expected an absolute http or https URL", path)
		}
	case FieldTypeEnum:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok {
			if _, allowed := fieldDef.choices[s]; !allowed {
				r.addIssue(CodeEnumViolation, fmt.Sprintf("Value must be one of: %s", strings.Join(fieldDef.Choices, ", ")), path)
			}
		}
	case FieldTypeRegex:
		if s, ok := r.expectString(value, fieldDef.Type, path); ok && !fieldDef.pattern.MatchString(s) {
			r.addIssue(CodePatternMismatch, fmt.Sprintf("Value does not match pattern '%s'", fieldDef.Pattern), path)
		}
	case FieldTypeObject:
		r.validateObjectField(value, fieldDef, path)
	case FieldTypeArray:
		r.validateArrayField(value, fieldDef, path)
	}
}

// validateObjectField validates an object and, when declared, its members.
func (r *validation) validateObjectField(value any, fieldDef *FieldDescriptor, path string) {
	objectData, ok := value.(map[string]any)
	if !ok {
		r.typeMismatch(fieldDef.Type, value, path)
		return
	}
	if fieldDef.Fields == nil {
		return
	}
	r.validateData(fieldDef.Fields, objectData, path)
}

// validateArrayField validates an array and, when declared, every element.
func (r *validation) validateArrayField(value any, fieldDef *FieldDescriptor, path string) {
	arrayValue, ok := value.([]any)
	if !ok {
		r.typeMismatch(fieldDef.Type, value, path)
		return
	}
	if fieldDef.Items == nil {
		return
	}
	for i, item := range arrayValue {
		r.validateFieldValue(item, fieldDef.Items, fmt.Sprintf("%s[%d]", path, i))
	}
}

func (r *validation) expectString(value any, expected FieldType, path string) (string, bool) {
	s, ok := value.(string)
	if !ok {
		r.typeMismatch(expected, value, path)
	}
	return s, ok
}

func (r *validation) typeMismatch(expected FieldType, value any, path string) {
	r.addIssue(CodeTypeMismatch, fmt.Sprintf("Expected %s, got %s", expected, jsonKind(value)), path)
}

// addIssue adds a new validation issue located in the request body.
func (r *validation) addIssue(code, message, path string) {
	r.issues = append(r.issues, Issue{
		Location: LocationBody,
		Field:    path,
		Message:  message,
		Code:     code,
	})
}

// buildPath constructs a dot-separated path string for error reporting.
func buildPath(basePath, fieldName string) string {
	if basePath == "" {
		return fieldName
	}
	return basePath + "." + fieldName
}

// isInteger accepts whole numbers of any magnitude and notation; 3, 3.0, 1e2
// and 12345678901234567890 are integers, 3.5 and "3" are not.
func isInteger(value any) bool {
	switch v := value.(type) {
	case json.Number:
		r, ok := numberValue(v)
		return ok && r.IsInt()
	case float64:
		return !math.IsInf(v, 0) && v == math.Trunc(v)
	case float32:
		return v == float32(math.Trunc(float64(v)))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case json.Number:
		_, ok := numberValue(v)
		return ok
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// numberValue parses a JSON number exactly, without the range limits of
// int64 or float64.
func numberValue(n json.Number) (*big.Rat, bool) {
	return new(big.Rat).SetString(string(n))
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// jsonKind names the JSON type of a decoded value for error messages.
func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}
