package model

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asaidimu/go-daybed/core/persistence"
)

func TestRandomToken(t *testing.T) {
	seen := map[string]struct{}{}
	for range 32 {
		token, err := RandomToken()
		require.NoError(t, err)
		assert.Len(t, token, 2*TokenBytes)
		_, err = hex.DecodeString(token)
		assert.NoError(t, err)
		seen[token] = struct{}{}
	}
	assert.Len(t, seen, 32)
}

func TestTokenManager_Authorize(t *testing.T) {
	m := NewTokenManager(persistence.NewMemoryStore(), nil)

	assert.NoError(t, m.Authorize("books", "0123456789abcdef", "0123456789abcdef"))
	assert.ErrorIs(t, m.Authorize("books", "0123456789abcdef", "0123456789abcdee"), ErrForbidden)
	assert.ErrorIs(t, m.Authorize("books", "0123456789abcdef", ""), ErrForbidden)
	assert.ErrorIs(t, m.Authorize("books", "0123456789abcdef", "0123"), ErrForbidden)
}

func TestTokenManager_ClaimAndLookup(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	m := NewTokenManager(store, func() (string, error) { return "first", nil })

	_, claimed, err := m.Lookup(ctx, "books")
	require.NoError(t, err)
	assert.False(t, claimed)

	token, err := m.Claim(ctx, "books", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "first", token)

	stored, claimed, err := m.Lookup(ctx, "books")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "first", stored)
}

func TestTokenManager_LostClaim(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryStore()
	_, err := store.ClaimModel(ctx, "books", "winner", json.RawMessage(`{"a":{"type":"string"}}`))
	require.NoError(t, err)

	m := NewTokenManager(store, func() (string, error) { return "loser", nil })
	_, err = m.Claim(ctx, "books", json.RawMessage(`{"b":{"type":"string"}}`))
	assert.ErrorIs(t, err, ErrForbidden)

	definition, err := store.GetDefinition(ctx, "books")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"type":"string"}}`, string(definition))
}

func TestTokenManager_GeneratorFailure(t *testing.T) {
	m := NewTokenManager(persistence.NewMemoryStore(), func() (string, error) {
		return "", errors.New("entropy exhausted")
	})
	_, err := m.Claim(context.Background(), "books", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrStorage)
}
