package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Ensure MemoryStore implements the DocumentStore interface.
var _ DocumentStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory DocumentStore used for tests and ephemeral
// deployments. Stored bytes are copied on the way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	definitions map[string]json.RawMessage
	tokens      map[string]string
	records     map[string]json.RawMessage
	index       map[string][]string // model -> record ids in insertion order
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		definitions: make(map[string]json.RawMessage),
		tokens:      make(map[string]string),
		records:     make(map[string]json.RawMessage),
		index:       make(map[string][]string),
	}
}

func (s *MemoryStore) GetDefinition(ctx context.Context, model string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	definition, ok := s.definitions[model]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(definition), nil
}

func (s *MemoryStore) PutDefinition(ctx context.Context, model string, definition json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.definitions[model] = clone(definition)
	return nil
}

func (s *MemoryStore) GetToken(ctx context.Context, model string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[model]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *MemoryStore) ClaimModel(ctx context.Context, model, token string, definition json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokens[model]; ok {
		return existing, nil
	}
	s.tokens[model] = token
	s.definitions[model] = clone(definition)
	return token, nil
}

func (s *MemoryStore) InsertRecord(ctx context.Context, model string, data json.RawMessage) (string, error) {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = clone(data)
	s.index[model] = append(s.index[model], id)
	return id, nil
}

func (s *MemoryStore) ListRecords(ctx context.Context, model string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.index[model]
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(s.records[id]))
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
