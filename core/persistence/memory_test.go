package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Definitions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetDefinition(ctx, "books")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetToken(ctx, "books")
	assert.ErrorIs(t, err, ErrNotFound)

	token, err := s.ClaimModel(ctx, "books", "t1", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	token, err = s.ClaimModel(ctx, "books", "t2", json.RawMessage(`{"b":2}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	def, err := s.GetDefinition(ctx, "books")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(def))

	require.NoError(t, s.PutDefinition(ctx, "books", json.RawMessage(`{"c":3}`)))
	def, err = s.GetDefinition(ctx, "books")
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":3}`, string(def))

	stored, err := s.GetToken(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "t1", stored)
}

func TestMemoryStore_Records(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id1, err := s.InsertRecord(ctx, "books", json.RawMessage(`{"title":"Dune"}`))
	require.NoError(t, err)
	id2, err := s.InsertRecord(ctx, "books", json.RawMessage(`{"title":"Emma"}`))
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "films", json.RawMessage(`{"title":"Alien"}`))
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	records, err := s.ListRecords(ctx, "books")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"title":"Dune"}`, string(records[0]))
	assert.JSONEq(t, `{"title":"Emma"}`, string(records[1]))

	records, err = s.ListRecords(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStore_ConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 16
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := s.ClaimModel(ctx, "race", string(rune('a'+i)), json.RawMessage(`{}`))
			assert.NoError(t, err)
			results[i] = token
		}(i)
	}
	wg.Wait()

	stored, err := s.GetToken(ctx, "race")
	require.NoError(t, err)
	for _, token := range results {
		assert.Equal(t, stored, token)
	}
}
