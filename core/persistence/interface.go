// Package persistence defines the document store the model registry and record
// facade are built on, together with an in-memory implementation and the event
// bus used to observe store backed operations.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when no document of the requested kind exists for a model.
var ErrNotFound = errors.New("document not found")

// Document kinds kept by a store. Every kind is indexed by model name.
const (
	KindDefinition = "definition"
	KindToken      = "token"
	KindData       = "data"
)

// DocumentStore is the narrow interface to the underlying document database.
// Implementations must be safe for concurrent use and must provide
// read-your-writes consistency: a successful write is visible to every read
// that starts after it returns.
type DocumentStore interface {
	// GetDefinition returns the current definition of model, or ErrNotFound.
	GetDefinition(ctx context.Context, model string) (json.RawMessage, error)

	// PutDefinition replaces the definition of model. It is only called for
	// models that have already been claimed.
	PutDefinition(ctx context.Context, model string, definition json.RawMessage) error

	// GetToken returns the ownership token of model, or ErrNotFound.
	GetToken(ctx context.Context, model string) (string, error)

	// ClaimModel stores token together with the first definition of model,
	// unless a token already exists. It returns the token persisted once the
	// call completes: token itself when this call won the claim, the existing
	// token otherwise, in which case the definition is left untouched.
	ClaimModel(ctx context.Context, model, token string, definition json.RawMessage) (string, error)

	// InsertRecord stores data for model and returns the new record id.
	InsertRecord(ctx context.Context, model string, data json.RawMessage) (string, error)

	// ListRecords returns the data of every record of model in the store's
	// native index order.
	ListRecords(ctx context.Context, model string) ([]json.RawMessage, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the resources held by the store.
	Close() error
}
