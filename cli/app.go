package cli

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/config"
	"github.com/asaidimu/go-daybed/core/model"
	"github.com/asaidimu/go-daybed/core/persistence"
	"github.com/asaidimu/go-daybed/core/schema"
	"github.com/asaidimu/go-daybed/redisstore"
	"github.com/asaidimu/go-daybed/sqlstore"
)

// app bundles what every command needs once the configuration is loaded.
type app struct {
	config  *config.Config
	logger  *zap.Logger
	store   persistence.DocumentStore
	bus     *persistence.EventBus
	service *model.Service
}

func loadApp(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	bus, err := persistence.NewEventBus()
	if err != nil {
		return nil, multierr.Combine(err, store.Close())
	}

	service, err := model.NewService(store, model.Options{
		Schema:    schema.Options{RejectUnknownFields: cfg.Schema.RejectUnknownFields},
		CacheSize: cfg.Schema.CacheSize,
		Bus:       bus,
		Logger:    logger,
	})
	if err != nil {
		return nil, multierr.Combine(err, store.Close())
	}

	return &app{config: cfg, logger: logger, store: store, bus: bus, service: service}, nil
}

// Close releases the store and flushes the logger.
func (a *app) Close() error {
	err := a.store.Close()
	// Sync reports EINVAL when stderr is a terminal.
	_ = a.logger.Sync()
	return err
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (persistence.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("Using the in-memory store; data is lost on exit")
		return persistence.NewMemoryStore(), nil
	case config.DriverRedis:
		store, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		}, logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite, config.DriverPostgres:
		dialect, err := sqlstore.ParseDialect(cfg.Store.Driver)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.Open(ctx, dialect, cfg.Store.DSN, logger.Named("sql"))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
