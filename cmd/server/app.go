package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/apiview/internal/api"
	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/platform/cache"
	"github.com/phrazzld/apiview/internal/platform/metrics"
	"github.com/phrazzld/apiview/internal/platform/postgres"
	"github.com/phrazzld/apiview/internal/service"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/storage"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// nil without a database URL
	db *sql.DB
	// nil without a redis address
	redis     *redis.Client
	userCache *cache.UserCache

	userStore   store.UserStore
	userService *service.UserServiceImpl
	codec       *auth.Codec
	resolver    *auth.Resolver
	metrics     *metrics.Metrics
	storage     storage.Storage
	dispatcher  *view.Dispatcher
}

// newApplication wires every component from cfg. Resources opened before a
// failure are released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	app.codec, err = auth.NewCodec(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	logger.Info("token codec initialized",
		"algorithm", cfg.Auth.Algorithm,
		"expiration_minutes", cfg.Auth.ExpirationMinutes)

	app.userStore, app.db, err = openUserStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.userService = service.NewUserService(app.userStore, auth.NewBcryptHasher(cfg.Auth.BcryptCost), app.db, logger)

	var users store.UserGetter = app.userStore
	if cfg.Cache.RedisAddr != "" {
		app.redis, err = cache.New(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, err
		}
		app.userCache = cache.NewUserCache(app.redis, app.userStore, time.Duration(cfg.Cache.UserTTLSeconds)*time.Second)
		users = app.userCache
		logger.Info("principal cache enabled", "ttl_seconds", cfg.Cache.UserTTLSeconds)
	}
	app.resolver = auth.NewResolver(app.codec, users, cfg.Auth.CookieName)

	if cfg.Server.MetricsEnabled {
		app.metrics = metrics.New()
	}

	app.dispatcher, err = newDispatcher(cfg, app.resolver, app.metrics, logger)
	if err != nil {
		return nil, err
	}

	app.storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger.Info("application initialized",
		"envelope", cfg.API.Envelope,
		"storage_backend", cfg.Storage.Backend,
		"database", app.db != nil)
	return app, nil
}

// openUserStore returns the Postgres store when a database URL is set and
// the in-memory store otherwise. The *sql.DB is nil for the latter.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.UserStore, *sql.DB, error) {
	if cfg.Database.URL == "" {
		logger.Warn("no database configured, users are kept in memory")
		return store.NewMemoryUserStore(), nil, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewPostgresUserStore(db, logger), db, nil
}

// guardRegistry lists the guards selectable through api.default_guards.
func guardRegistry() *permission.Registry {
	r := permission.NewRegistry()
	r.Register("basic_auth_required", api.BasicAuthRequired)
	return r
}

func newDispatcher(cfg *config.Config, resolver *auth.Resolver, m *metrics.Metrics, logger *slog.Logger) (*view.Dispatcher, error) {
	taxonomy, err := apierr.NewTaxonomy(cfg.Errors)
	if err != nil {
		return nil, fmt.Errorf("invalid error overrides: %w", err)
	}

	envelope, err := shared.NewEnvelope(cfg.API)
	if err != nil {
		return nil, err
	}

	guards, err := guardRegistry().Resolve(cfg.API.DefaultGuards)
	if err != nil {
		return nil, fmt.Errorf("invalid api.default_guards: %w", err)
	}

	return view.NewDispatcher(taxonomy, envelope,
		view.WithResolver(resolver),
		view.WithDefaultGuards(guards...),
		view.WithLogger(logger),
		view.WithMetrics(m),
	), nil
}

func (app *application) handlers() api.Handlers {
	var invalidator api.Invalidator
	if app.userCache != nil {
		invalidator = app.userCache
	}
	return api.Handlers{
		Auth:  api.NewAuthHandler(app.userService, app.codec, app.logger),
		Users: api.NewUserHandler(app.userStore, invalidator, app.logger),
		Files: api.NewFileHandler(app.storage, app.logger),
	}
}

// Run serves HTTP until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
