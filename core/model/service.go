package model

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/core/persistence"
	"github.com/asaidimu/go-daybed/core/schema"
	"github.com/asaidimu/go-daybed/utils"
)

// Options configure a Service.
type Options struct {
	Schema    schema.Options
	CacheSize int
	Tokens    TokenGenerator
	Bus       *persistence.EventBus
	Logger    *zap.Logger
}

// Service runs the definition and record request flows. It wires the token
// manager, compiler, registry and record facade around a single store.
type Service struct {
	registry *Registry
	records  *Records
	bus      *persistence.EventBus
	logger   *zap.Logger
}

// NewService builds a Service over store.
func NewService(store persistence.DocumentStore, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	compiler := schema.NewCompiler(opts.Schema)
	cache, err := schema.NewCache(compiler, opts.CacheSize)
	if err != nil {
		return nil, err
	}

	tokens := NewTokenManager(store, opts.Tokens)
	return &Service{
		registry: NewRegistry(store, tokens, compiler, cache, opts.Bus, logger.Named("registry")),
		records:  NewRecords(store, logger.Named("records")),
		bus:      opts.Bus,
		logger:   logger,
	}, nil
}

// Registry returns the model registry the service writes through.
func (s *Service) Registry() *Registry {
	return s.registry
}

// DefineModel creates or replaces the definition of model and returns its token.
func (s *Service) DefineModel(ctx context.Context, model string, definition []byte, token string) (string, error) {
	return s.registry.PutDefinition(ctx, model, definition, token)
}

// Definition returns the stored definition of model.
func (s *Service) Definition(ctx context.Context, model string) (json.RawMessage, error) {
	return s.registry.GetDefinition(ctx, model)
}

// CreateRecord validates body against the current definition of model and
// stores it, returning the new record id. Every violated field is reported.
//
// The definition is read once per call. A redefinition racing with this call
// may land right after validation; the record is kept as validated.
func (s *Service) CreateRecord(ctx context.Context, model string, body []byte) (string, error) {
	startTime := time.Now()
	id, err := s.createRecord(ctx, model, body)

	if err != nil {
		var issues []schema.Issue
		if modelErr, ok := AsError(err); ok {
			issues = modelErr.Issues
		}
		s.bus.Emit(persistence.NewEvent(persistence.RecordCreateFailed, "create", model, err, issues, startTime))
		return "", err
	}

	event := persistence.NewEvent(persistence.RecordCreateSuccess, "create", model, nil, nil, startTime)
	event.RecordID = id
	s.bus.Emit(event)
	return id, nil
}

func (s *Service) createRecord(ctx context.Context, model string, body []byte) (string, error) {
	validator, err := s.registry.Validator(ctx, model)
	if err != nil {
		return "", err
	}

	payload, issues := schema.ParsePayload(body)
	if len(issues) > 0 {
		return "", validationError(model, issues)
	}
	if issues := validator.ValidateValue(payload); len(issues) > 0 {
		return "", validationError(model, issues)
	}

	data, err := utils.CanonicalJSON(payload)
	if err != nil {
		return "", storageError(model, "encode record", fmt.Errorf("encoding payload: %w", err))
	}
	return s.records.Put(ctx, model, data)
}

// ListRecords returns every record stored for model.
func (s *Service) ListRecords(ctx context.Context, model string) ([]json.RawMessage, error) {
	exists, err := s.registry.Exists(ctx, model)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFoundError(model)
	}
	return s.records.ListByModel(ctx, model)
}
