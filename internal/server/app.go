// Package server assembles the FolioForge backend: configuration, database
// and migrations, object storage, the throttle store, and the HTTP endpoint,
// with signal-driven graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/folioforge/folioforge/internal/logging"
	"github.com/folioforge/folioforge/internal/server/auth"
	"github.com/folioforge/folioforge/internal/server/config"
	"github.com/folioforge/folioforge/internal/server/httpapi"
	"github.com/folioforge/folioforge/internal/server/ratelimit"
	"github.com/folioforge/folioforge/internal/server/repositories/repomanager"
	"github.com/folioforge/folioforge/internal/server/services"
	"github.com/folioforge/folioforge/internal/server/storage"
	"github.com/folioforge/folioforge/internal/server/uploads"
)

type App struct {
	config *config.Config
	logger logging.Logger

	db   *sql.DB
	http *httpapi.Server
}

// NewApp wires every component from the given configuration. Migrations run
// here so the process never serves against an out-of-date schema.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	tokens, err := auth.NewManager([]byte(cfg.JWTSecret))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("token manager error: %w", err)
	}

	blobStore, err := storage.NewS3Store(ctx, storage.Config{
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		Bucket:       cfg.S3Bucket,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("blob store error: %w", err)
	}

	limiter := ratelimit.NewLimiter(throttleStore(ctx, cfg, logger))
	// The upload path gets an extra shaper so window-boundary bursts cannot
	// stack expensive encryption work.
	smoother := ratelimit.NewSmoother(1, 3)

	userService := services.NewUserService(db, rm, tokens)
	uploadService := services.NewUploadService(db, rm, uploads.NewGatekeeper(blobStore), blobStore, cfg.EncryptionKey())

	handler := httpapi.NewHandler(userService, uploadService, tokens, limiter, smoother, logger, cfg.IsProduction())
	httpServer := httpapi.NewServer(cfg.EndpointAddrHTTP, handler.Routes(), logger, cfg.ShutdownTimeout)

	return &App{config: cfg, logger: logger, db: db, http: httpServer}, nil
}

// throttleStore picks Redis when an address is configured so multiple
// replicas share one set of counters, and the in-process map otherwise.
func throttleStore(ctx context.Context, cfg *config.Config, logger logging.Logger) ratelimit.Store {
	if cfg.RedisAddr == "" {
		logger.Info(ctx, "using in-memory rate limit store")
		return ratelimit.NewMemoryStore()
	}
	logger.Info(ctx, "using redis rate limit store", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	err := app.http.Run(ctx)

	if closeErr := app.db.Close(); closeErr != nil {
		app.logger.Error(ctx, "closing database", "error", closeErr.Error())
	}

	return err
}
