package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/catalog"
	"github.com/18061718791/AITestCraft-sub000/internal/config"
	"github.com/18061718791/AITestCraft-sub000/internal/db"
	"github.com/18061718791/AITestCraft-sub000/internal/export"
	"github.com/18061718791/AITestCraft-sub000/internal/generation"
	"github.com/18061718791/AITestCraft-sub000/internal/ingestion"
	"github.com/18061718791/AITestCraft-sub000/internal/metrics"
	"github.com/18061718791/AITestCraft-sub000/internal/notify"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"
	"github.com/18061718791/AITestCraft-sub000/internal/repository/memstore"
	"github.com/18061718791/AITestCraft-sub000/internal/server"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	return cmd
}

// healthChecks collects readiness probes of the configured backends.
type healthChecks []func(context.Context) error

func (h healthChecks) check(ctx context.Context) error {
	for _, probe := range h {
		if err := probe(ctx); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *logrus.Logger, migrate bool) error {
	var checks healthChecks

	store, closeStore, err := openStore(ctx, cfg, logger, migrate, &checks)
	if err != nil {
		return err
	}
	defer closeStore()

	progress, closeProgress, err := openProgressStore(ctx, cfg.Progress, logger, &checks)
	if err != nil {
		return err
	}
	defer closeProgress()

	registry := metrics.New()
	hub := notify.NewHub(logger, cfg.Server.CORSOrigins)
	defer hub.Close()

	importer := ingestion.NewService(store, progress,
		ingestion.WithLogger(logger),
		ingestion.WithMetrics(registry.Import),
		ingestion.WithImportLogs(store.ImportLogs()),
		ingestion.WithMaxFileSize(cfg.Import.MaxFileSize),
		ingestion.WithPacing(cfg.Import.PaceEvery, cfg.Import.Pause),
		ingestion.WithPreviewRows(cfg.Import.PreviewRows),
		ingestion.WithReportDirectory(cfg.Import.ReportDir),
	)
	defer importer.Close()

	client := generation.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if client == nil {
		logger.Warn("openai.apiKey not set, AI generation disabled")
	}
	generator := generation.NewService(client, hub,
		generation.WithLogger(logger),
		generation.WithModel(cfg.OpenAI.Model),
		generation.WithSystemPrompt(cfg.OpenAI.SystemPrompt),
	)
	defer generator.Close()

	handler := server.NewRouter(server.Deps{
		Logger:      logger,
		Store:       store,
		Catalog:     catalog.NewService(store, logger),
		Ingestion:   importer,
		Export:      export.NewService(store, logger),
		Generation:  generator,
		Hub:         hub,
		Metrics:     registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		Health:      checks.check,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger, migrate bool, checks *healthChecks) (repository.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	if migrate {
		if err := db.RunMigrations(cfg.Database); err != nil {
			return nil, nil, err
		}
	}
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	*checks = append(*checks, conn.Pool.Ping)
	logger.WithFields(logrus.Fields{"host": cfg.Database.Host, "dbname": cfg.Database.DBName}).Info("connected to database")
	return repository.NewPostgresStore(conn.Pool), conn.Close, nil
}

func openProgressStore(ctx context.Context, cfg config.ProgressConfig, logger *logrus.Logger, checks *healthChecks) (ingestion.ProgressStore, func(), error) {
	if cfg.Backend != config.ProgressRedis {
		return ingestion.NewMemoryProgressStore(cfg.Capacity, cfg.TTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	*checks = append(*checks, func(ctx context.Context) error { return client.Ping(ctx).Err() })
	logger.WithField("addr", cfg.Redis.Addr).Info("import progress stored in redis")
	return ingestion.NewRedisProgressStore(client, cfg.TTL), func() { _ = client.Close() }, nil
}
