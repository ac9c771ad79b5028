package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/persistence"
	"github.com/asaidimu/go-daybed/core/schema"
)

// Registry persists model definitions and serves the compiled validator of
// each model's current definition.
type Registry struct {
	store    persistence.DocumentStore
	tokens   *TokenManager
	compiler *schema.Compiler
	cache    *schema.Cache
	bus      *persistence.EventBus
	logger   *zap.Logger
}

// NewRegistry creates a Registry. The logger and bus are optional.
func NewRegistry(
	store persistence.DocumentStore,
	tokens *TokenManager,
	compiler *schema.Compiler,
	cache *schema.Cache,
	bus *persistence.EventBus,
	logger *zap.Logger,
) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:    store,
		tokens:   tokens,
		compiler: compiler,
		cache:    cache,
		bus:      bus,
		logger:   logger,
	}
}

// GetDefinition returns the current definition of model.
func (r *Registry) GetDefinition(ctx context.Context, model string) (json.RawMessage, error) {
	definition, err := r.store.GetDefinition(ctx, model)
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, notFoundError(model)
	}
	if err != nil {
		return nil, storageError(model, "read definition", err)
	}
	return definition, nil
}

// Exists reports whether a definition has ever been written for model.
func (r *Registry) Exists(ctx context.Context, model string) (bool, error) {
	_, err := r.GetDefinition(ctx, model)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PutDefinition creates or replaces the definition of model and returns the
// model's token.
//
// For an unclaimed model no token is needed: the definition is compiled, then
// claimed together with a fresh token. For a claimed model the provided token
// is checked before anything else, so a caller without the token learns
// nothing about whether its definition would have compiled. A rejected call
// never changes the stored definition.
func (r *Registry) PutDefinition(ctx context.Context, model string, raw []byte, token string) (string, error) {
	startTime := time.Now()
	result, created, err := r.putDefinition(ctx, model, raw, token)

	if err != nil {
		var issues []schema.Issue
		if modelErr, ok := AsError(err); ok {
			issues = modelErr.Issues
		}
		r.bus.Emit(persistence.NewEvent(persistence.ModelDefineFailed, "define", model, err, issues, startTime))
		r.logger.Info("Definition rejected",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", err
	}

	event := persistence.NewEvent(persistence.ModelDefineSuccess, "define", model, nil, nil, startTime)
	event.Created = created
	r.bus.Emit(event)
	r.logger.Info("Definition stored",
		zap.String("model", model),
		zap.Bool("created", created),
	)
	return result, nil
}

func (r *Registry) putDefinition(ctx context.Context, model string, raw []byte, token string) (string, bool, error) {
	stored, claimed, err := r.tokens.Lookup(ctx, model)
	if err != nil {
		return "", false, err
	}
	if claimed {
		if err := r.tokens.Authorize(model, stored, token); err != nil {
			return "", false, err
		}
	}

	// An empty body defines a model with no declared fields, as it does for records.
	value, issues := schema.ParsePayload(raw)
	if len(issues) > 0 {
		return "", false, metaSchemaError(model, issues)
	}
	validator, issues := r.compiler.CompileValue(value)
	if len(issues) > 0 {
		return "", false, metaSchemaError(model, issues)
	}
	canonical := validator.Canonical()

	if !claimed {
		minted, err := r.tokens.Claim(ctx, model, canonical)
		if err != nil {
			return "", false, err
		}
		r.cache.Store(model, canonical, validator)
		return minted, true, nil
	}

	if err := r.store.PutDefinition(ctx, model, canonical); err != nil {
		r.cache.Invalidate(model)
		return "", false, storageError(model, "write definition", err)
	}
	r.cache.Store(model, canonical, validator)
	return stored, false, nil
}

// Validator returns the compiled validator of the current definition of model.
// A stored definition that no longer compiles is reported as a storage error,
// since it can only come from a corrupted or foreign write.
func (r *Registry) Validator(ctx context.Context, model string) (*schema.Validator, error) {
	definition, err := r.GetDefinition(ctx, model)
	if err != nil {
		return nil, err
	}

	validator, issues := r.cache.Get(model, definition)
	if len(issues) > 0 {
		r.logger.Error("Stored definition does not compile",
			zap.String("model", model),
			zap.Int("issues", len(issues)),
		)
		return nil, storageError(model, "compile stored definition", fmt.Errorf("%s: %s", issues[0].Field, issues[0].Message))
	}
	return validator, nil
}
