package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/asaidimu/go-daybed/api"
	"github.com/asaidimu/go-daybed/core/persistence"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Open the configured store and serve the HTTP API until SIGINT or SIGTERM.

SQL stores are migrated on start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	a, err := loadApp(ctx, opts)
	if err != nil {
		return err
	}
	logger := a.logger

	unsubscribe := a.bus.SubscribeAll(func(ctx context.Context, event persistence.Event) error {
		logger.Debug("Store event",
			zap.String("type", string(event.Type)),
			zap.String("model", event.Model),
			zap.String("record_id", event.RecordID),
			zap.Int("issues", len(event.Issues)),
		)
		return nil
	})
	defer unsubscribe()

	server := api.NewServer(a.service, logger.Named("api"), api.Options{
		MaxBodyBytes: a.config.Server.MaxBodyBytes,
		CORSOrigins:  a.config.Server.CORSOrigins,
		Version:      Version,
	})
	httpServer := &http.Server{
		Addr:         a.config.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server",
			zap.String("address", httpServer.Addr),
			zap.String("store", a.config.Store.Driver),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info("Shutting down API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Combine(serveErr, httpServer.Shutdown(shutdownCtx), a.Close())
}
