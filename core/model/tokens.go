package model

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/asaidimu/go-daybed/core/persistence"
)

// TokenBytes is the number of random bytes in an ownership token. Tokens are
// hex encoded, so every token is twice as many characters long.
const TokenBytes = 8

// TokenGenerator mints new ownership tokens.
type TokenGenerator func() (string, error)

// RandomToken returns TokenBytes bytes from crypto/rand, hex encoded.
func RandomToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenManager issues and checks the per-model ownership tokens. A model is
// unclaimed until its first definition is written, then claimed forever by
// the token minted for that write.
type TokenManager struct {
	store    persistence.DocumentStore
	generate TokenGenerator
}

// NewTokenManager creates a TokenManager. A nil generator defaults to RandomToken.
func NewTokenManager(store persistence.DocumentStore, generate TokenGenerator) *TokenManager {
	if generate == nil {
		generate = RandomToken
	}
	return &TokenManager{store: store, generate: generate}
}

// Lookup returns the stored token of model and whether the model is claimed.
func (m *TokenManager) Lookup(ctx context.Context, model string) (string, bool, error) {
	token, err := m.store.GetToken(ctx, model)
	if errors.Is(err, persistence.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageError(model, "read token", err)
	}
	return token, true, nil
}

// Authorize checks that provided matches the stored token of a claimed model.
func (m *TokenManager) Authorize(model, stored, provided string) error {
	if provided == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return forbiddenError(model)
	}
	return nil
}

// Claim mints a token and claims model with its first definition in a single
// conditional store write. The token is only returned when this call won the
// claim; a caller that lost a concurrent claim is refused like any other
// caller without the model's token.
func (m *TokenManager) Claim(ctx context.Context, model string, definition []byte) (string, error) {
	token, err := m.generate()
	if err != nil {
		return "", storageError(model, "generate token", err)
	}

	persisted, err := m.store.ClaimModel(ctx, model, token, definition)
	if err != nil {
		return "", storageError(model, "claim model", err)
	}
	if persisted != token {
		return "", forbiddenError(model)
	}
	return token, nil
}
