package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(issues []Issue) []string {
	fields := make([]string, 0, len(issues))
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	return fields
}

func TestCompile_ValidDefinition(t *testing.T) {
	c := NewCompiler(Options{})
	v, issues := c.Compile([]byte(`{
		"title": {"type": "string", "required": true, "description": "Book title"},
		"pages": {"type": "integer"},
		"genre": {"type": "enum", "choices": ["sf", "fantasy"]},
		"isbn": {"type": "regex", "pattern": "^[0-9-]+$"},
		"tags": {"type": "array", "items": {"type": "string"}},
		"author": {"type": "object", "fields": {"name": {"type": "string", "required": true}}}
	}`))
	require.Empty(t, issues)
	require.NotNil(t, v)

	def := v.Definition()
	assert.Len(t, def, 6)
	assert.Equal(t, FieldTypeString, def["title"].Type)
	assert.True(t, def["title"].Required)
	assert.Equal(t, []string{"sf", "fantasy"}, def["genre"].Choices)
	assert.Equal(t, FieldTypeString, def["tags"].Items.Type)
	assert.True(t, def["author"].Fields["name"].Required)
	assert.Len(t, v.Hash(), 64)
}

func TestCompile_IsDeterministic(t *testing.T) {
	c := NewCompiler(Options{})
	a, issues := c.Compile([]byte(`{"a": {"type": "string"}, "b": {"required": true, "type": "integer"}}`))
	require.Empty(t, issues)
	b, issues := c.Compile([]byte(`{ "b": {"type": "integer", "required": true},
		"a": {"type": "string"} }`))
	require.Empty(t, issues)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Canonical(), b.Canonical())

	payloads := []map[string]any{
		{},
		{"b": 1},
		{"a": "x", "b": "y"},
		{"a": 3, "b": nil},
	}
	for _, p := range payloads {
		assert.Equal(t, a.Validate(p), b.Validate(p))
	}
}

func TestCompile_MetaSchemaViolations(t *testing.T) {
	c := NewCompiler(Options{})

	t.Run("malformed JSON", func(t *testing.T) {
		v, issues := c.Compile([]byte(`{"title": `))
		assert.Nil(t, v)
		require.Len(t, issues, 1)
		assert.Equal(t, "body", issues[0].Field)
		assert.Equal(t, LocationBody, issues[0].Location)
		assert.Equal(t, CodeInvalidJSON, issues[0].Code)
	})

	t.Run("definition is not an object", func(t *testing.T) {
		_, issues := c.Compile([]byte(`["title"]`))
		require.Len(t, issues, 1)
		assert.Equal(t, "body", issues[0].Field)
		assert.Equal(t, CodeInvalidDefinition, issues[0].Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"title": {"type": "strang"}}`))
		require.Len(t, issues, 1)
		assert.Equal(t, "title.type", issues[0].Field)
		assert.Equal(t, CodeUnknownType, issues[0].Code)
	})

	t.Run("missing type and bad required", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"title": {"required": "yes"}}`))
		assert.Equal(t, []string{"title.type", "title.required"}, fieldsOf(issues))
	})

	t.Run("descriptor not an object", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"title": "string"}`))
		require.Len(t, issues, 1)
		assert.Equal(t, "title", issues[0].Field)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"title": {"type": "string", "max": 3}}`))
		require.Len(t, issues, 1)
		assert.Equal(t, "title.max", issues[0].Field)
		assert.Equal(t, CodeUnknownAttribute, issues[0].Code)
	})

	t.Run("all violations collected", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{
			"a": {"type": "nope"},
			"b": {"type": "enum"},
			"c": {"type": "regex", "pattern": "("},
			"d": {"type": "string", "items": {"type": "string"}},
			"e": {"type": "object", "fields": {"x": {"type": 1}}}
		}`))
		assert.Equal(t, []string{"a.type", "b.choices", "c.pattern", "d.items", "e.fields.x.type"}, fieldsOf(issues))
	})

	t.Run("bad choices", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"g": {"type": "enum", "choices": ["a", 2]}}`))
		assert.Equal(t, []string{"g.choices[1]"}, fieldsOf(issues))

		_, issues = c.Compile([]byte(`{"g": {"type": "enum", "choices": []}}`))
		assert.Equal(t, []string{"g.choices"}, fieldsOf(issues))
	})

	t.Run("empty field name", func(t *testing.T) {
		_, issues := c.Compile([]byte(`{"": {"type": "string"}}`))
		assert.Equal(t, []string{"body"}, fieldsOf(issues))
	})
}

func TestCompile_EmptyDefinition(t *testing.T) {
	v, issues := NewCompiler(Options{}).Compile([]byte(`{}`))
	require.Empty(t, issues)
	assert.Empty(t, v.Validate(map[string]any{"anything": true}))
}

func TestFieldType_Valid(t *testing.T) {
	assert.True(t, FieldTypeDatetime.Valid())
	assert.True(t, FieldType("array").Valid())
	assert.False(t, FieldType("int").Valid())
	assert.False(t, FieldType("").Valid())
}
