package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON parses raw JSON bytes into a generic Go value.
//
// Numbers are decoded as json.Number rather than float64 so that integer and
// float values can be told apart during validation, and so that re-encoding the
// value never loses precision. Trailing data after the first JSON value is an
// error: `{"a":1} {"b":2}` is rejected rather than silently truncated.
//
// Example:
//
//	v, err := DecodeJSON([]byte(`{"count": 3}`))
//	// v is map[string]any{"count": json.Number("3")}
func DecodeJSON(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: unexpected data after top-level value")
	}
	return value, nil
}

// CanonicalJSON marshals a generic value into its canonical byte form.
//
// encoding/json writes map keys in sorted order, so two structurally equal
// values always produce identical bytes regardless of the key order of the
// document they were decoded from. json.Number values are written verbatim.
func CanonicalJSON(value any) ([]byte, error) {
	out, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("CanonicalJSON: %w", err)
	}
	return out, nil
}

// ContentHash returns the hex encoded SHA-256 digest of raw.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
