package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	value, err := DecodeJSON([]byte(`{"count": 3, "ratio": 0.5}`))
	require.NoError(t, err)

	object, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("3"), object["count"])
	assert.Equal(t, json.Number("0.5"), object["ratio"])

	_, err = DecodeJSON([]byte(`{"a":1} {"b":2}`))
	assert.ErrorContains(t, err, "unexpected data after top-level value")

	_, err = DecodeJSON([]byte(`{"a":`))
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a, err := DecodeJSON([]byte(`{"b": {"y": 1, "x": 2}, "a": [3, 1.50]}`))
	require.NoError(t, err)
	b, err := DecodeJSON([]byte(`{ "a": [3, 1.50], "b": {"x": 2, "y": 1} }`))
	require.NoError(t, err)

	ca, err := CanonicalJSON(a)
	require.NoError(t, err)
	cb, err := CanonicalJSON(b)
	require.NoError(t, err)

	assert.Equal(t, `{"a":[3,1.50],"b":{"x":2,"y":1}}`, string(ca))
	assert.Equal(t, ca, cb)
	assert.Equal(t, ContentHash(ca), ContentHash(cb))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentHash(nil))
	assert.Len(t, ContentHash([]byte("{}")), 64)
}
