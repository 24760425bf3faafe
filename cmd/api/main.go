package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/callcenter-analytics/internal/application"
	appanalysis "github.com/bryanwahyu/callcenter-analytics/internal/application/analysis"
	appaudio "github.com/bryanwahyu/callcenter-analytics/internal/application/audio"
	"github.com/bryanwahyu/callcenter-analytics/internal/config"
	"github.com/bryanwahyu/callcenter-analytics/internal/domain/ai"
	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/ai/gemini"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/callcenter-analytics/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/callcenter-analytics/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/callcenter-analytics/internal/infra/db/sqlite"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/fs"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/httpserver"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/media"
	minioStore "github.com/bryanwahyu/callcenter-analytics/internal/infra/storage"
	"github.com/bryanwahyu/callcenter-analytics/internal/infra/watch"
	"github.com/bryanwahyu/callcenter-analytics/internal/middleware"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "path", path, "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := middleware.NewMetrics()

	prober := media.NewProber(logger)
	library, err := fs.NewLibrary(cfg.Paths.AudioDir, prober)
	if err != nil {
		return fmt.Errorf("audio dir: %w", err)
	}
	results, err := fs.NewResultStore(cfg.Paths.ResultsDir)
	if err != nil {
		return fmt.Errorf("results dir: %w", err)
	}

	checkers := map[string]middleware.Checker{
		"audio_dir":   &middleware.DirChecker{Dir: library.Dir()},
		"results_dir": &middleware.DirChecker{Dir: results.Dir()},
	}

	svc := &appanalysis.Service{
		Client:  newModelClient(cfg),
		Results: results,
		Metrics: metrics,
		Settings: domain.Settings{
			ModelName:         cfg.ModelName,
			SystemInstruction: cfg.SystemInstruction,
			Prompt:            cfg.Prompt,
			APIKey:            cfg.APIKey(),
			APIKeyEnv:         cfg.Model.APIKeyEnv,
		},
		Clock: application.SystemClock{},
		Log:   logger,
	}
	if svc.Settings.APIKey == "" {
		// the server still starts; each analysis reports the missing credential
		logger.Warn("model credential not set", "env", cfg.Model.APIKeyEnv)
	}

	db, repo, err := openIndex(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	if db != nil {
		defer db.Close()
		svc.Index = repo
		checkers["database"] = &middleware.DBChecker{DB: db}
		logger.Info("analysis index enabled", "driver", cfg.Database.Driver)
	}

	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
		})
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		svc.Mirror = store
		logger.Info("result mirror enabled", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.BucketName)
	}

	if cfg.Watcher.Enabled {
		w := &watch.Watcher{Dir: library.Dir(), Metrics: metrics, Log: logger}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("audio watcher stopped", "error", err)
			}
		}()
	}

	audioSvc := &appaudio.Service{Library: library, Metrics: metrics, Log: logger}

	handler := httpserver.NewRouter(httpserver.Options{
		Audio:          audioSvc,
		Analysis:       svc,
		AudioDir:       library.Dir(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        metrics,
		Checkers:       checkers,
		Log:            logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// no WriteTimeout: a single model call can run for minutes
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "provider", cfg.Model.Provider, "model", cfg.ModelName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newModelClient(cfg *config.Config) ai.Client {
	switch cfg.Model.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.APIKey(), cfg.Model.BaseURL, cfg.Model.TranscriptionModel)
	default:
		return gemini.NewClient(gemini.Options{APIKey: cfg.APIKey(), BaseURL: cfg.Model.BaseURL})
	}
}

func openIndex(ctx context.Context, cfg *config.Config) (*sql.DB, domain.Repository, error) {
	var (
		db     *sql.DB
		err    error
		ensure func(context.Context, *sql.DB) error
		repo   func(*sql.DB) domain.Repository
	)
	switch cfg.Database.Driver {
	case "":
		return nil, nil, nil
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		ensure = mysqlp.EnsureSchema
		repo = func(db *sql.DB) domain.Repository { return mysqlp.NewAnalysisRepository(db) }
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		ensure = postgresp.EnsureSchema
		repo = func(db *sql.DB) domain.Repository { return postgresp.NewAnalysisRepository(db) }
	case "sqlite":
		db, err = sqlitep.Open(ctx, cfg.Database.Path)
		repo = func(db *sql.DB) domain.Repository { return sqlitep.NewAnalysisRepository(db) }
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, nil, err
	}
	if ensure != nil {
		if err := ensure(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return db, repo(db), nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
