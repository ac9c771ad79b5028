package model

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/persistence"
)

// Records is the narrow facade through which validated records reach the
// store. Callers are expected to have checked that the model exists.
type Records struct {
	store  persistence.DocumentStore
	logger *zap.Logger
}

// NewRecords creates a Records facade over store.
func NewRecords(store persistence.DocumentStore, logger *zap.Logger) *Records {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Records{store: store, logger: logger}
}

// Put stores data as a new record of model and returns its id.
func (r *Records) Put(ctx context.Context, model string, data json.RawMessage) (string, error) {
	id, err := r.store.InsertRecord(ctx, model, data)
	if err != nil {
		r.logger.Error("Failed to insert record", zap.String("model", model), zap.Error(err))
		return "", storageError(model, "insert record", err)
	}
	r.logger.Debug("Record inserted", zap.String("model", model), zap.String("id", id))
	return id, nil
}

// ListByModel returns the data of every record of model in store order.
func (r *Records) ListByModel(ctx context.Context, model string) ([]json.RawMessage, error) {
	records, err := r.store.ListRecords(ctx, model)
	if err != nil {
		r.logger.Error("Failed to list records", zap.String("model", model), zap.Error(err))
		return nil, storageError(model, "list records", err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}
