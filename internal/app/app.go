// Package app is the composition root: it turns a loaded configuration into a
// running HTTP server and owns the shutdown order of everything it opened.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	contract "github.com/99minutos/template-backend/api"
	httpapi "github.com/99minutos/template-backend/internal/api"
	"github.com/99minutos/template-backend/internal/api/handler"
	"github.com/99minutos/template-backend/internal/api/middleware"
	"github.com/99minutos/template-backend/internal/api/operation"
	"github.com/99minutos/template-backend/internal/core/ports"
	"github.com/99minutos/template-backend/internal/core/service"
	"github.com/99minutos/template-backend/internal/infrastructure/auth"
	"github.com/99minutos/template-backend/internal/infrastructure/config"
	"github.com/99minutos/template-backend/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/template-backend/internal/infrastructure/db/mongo"
	"github.com/99minutos/template-backend/internal/infrastructure/db/postgres"
	redisstore "github.com/99minutos/template-backend/internal/infrastructure/db/redis"
	"github.com/99minutos/template-backend/internal/infrastructure/http/handlers"
	"github.com/99minutos/template-backend/internal/infrastructure/queue"
	"github.com/99minutos/template-backend/internal/infrastructure/tracing"
)

// ShutdownTimeout bounds graceful shutdown after the run context ends.
const ShutdownTimeout = 10 * time.Second

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// App holds the wired server and the resources it must release.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	echo    *echo.Echo
	closers []closer
}

// Options overrides process-wide defaults, mostly for tests.
type Options struct {
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// New builds every component from cfg. Resources opened before a failure are
// released before New returns.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	a := &App{cfg: cfg, log: log}
	wired := false
	defer func() {
		if !wired {
			_ = a.close(context.Background())
		}
	}()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.onClose("tracing", shutdownTracing)

	// --- Credential hashing ---
	poolCtx, stopPool := context.WithCancel(context.Background())
	pool := queue.NewPool("bcrypt", cfg.Identity.HashWorkers, log)
	pool.Start(poolCtx)
	a.onClose("bcrypt pool", func(context.Context) error {
		pool.Close()
		stopPool()
		return nil
	})

	hasher := auth.NewBcryptHasher(cfg.Identity.BcryptCost, pool)
	dummyDigest, err := hasher.Hash(ctx, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("dummy digest: %w", err)
	}

	tokens, err := auth.NewJWTIssuer(
		cfg.Daemon.JWT.Secret.PlainText(),
		cfg.Daemon.JWT.ExpirationTime,
		cfg.Daemon.JWT.Renewals(),
	)
	if err != nil {
		return nil, fmt.Errorf("jwt issuer: %w", err)
	}

	// --- Storage ---
	repo, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	checks := map[string]handlers.Checker{"user_store": repo}

	var limiter ports.AttemptLimiter
	if cfg.Redis.Enabled {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			Password: cfg.Redis.Password.PlainText(),
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.onClose("redis", func(context.Context) error { return rdb.Close() })

		limiter = redisstore.NewLoginLimiter(rdb, cfg.Security.Login.MaxFailures, cfg.Security.Login.Window)
		checks["redis"] = handlers.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	identity := service.NewIdentityService(repo, hasher, tokens, limiter, service.IdentityOptions{
		HashTimeout:    cfg.Identity.HashTimeout,
		PersistTimeout: cfg.Identity.PersistTimeout,
		DummyDigest:    dummyDigest,
	}, log)

	// --- Operations ---
	c, err := operation.LoadContract(contract.Contract)
	if err != nil {
		return nil, err
	}
	d := operation.New(c,
		operation.WithAuthenticator(middleware.RequireClaims),
		operation.WithLogger(log),
	)
	if err := handler.Register(d, identity); err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, err
	}

	a.echo, err = httpapi.NewRouter(httpapi.RouterOptions{
		Log:         log,
		ServiceName: cfg.Tracing.ServiceName,
		Contract:    c,
		Dispatcher:  d,
		Tokens:      tokens,
		Checks:      checks,
		RateLimit: httpapi.RateLimit{
			Enabled: cfg.Daemon.HTTP.RateLimit.Enabled,
			RPS:     cfg.Daemon.HTTP.RateLimit.RPS,
			Burst:   cfg.Daemon.HTTP.RateLimit.Burst,
		},
		Registerer: opts.Registerer,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("env", cfg.Env).
		Str("storage", cfg.Storage.Datastore.Type).
		Bool("redis", cfg.Redis.Enabled).
		Int("operations", len(d.Operations())).
		Msg("application wired")

	wired = true
	return a, nil
}

func (a *App) openStore(ctx context.Context) (ports.UserRepository, error) {
	ds := a.cfg.Storage.Datastore

	switch ds.Type {
	case config.StoragePostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			Host:           ds.Host,
			Port:           ds.Port,
			Username:       ds.Username,
			Password:       ds.Password.PlainText(),
			Database:       ds.Database,
			MaxConnections: ds.MaxConnections,
			MaxLifetime:    ds.MaxLifetime,
			SSL:            ds.SSL.Enabled,
			CertFile:       ds.SSL.CertificateFile,
			KeyFile:        ds.SSL.KeyFile,
			Debug:          ds.DebugMode,
		}, a.log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.onClose("postgres", func(context.Context) error { return postgres.Close(db) })

		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return postgres.NewUserRepository(db), nil

	case config.StorageMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            ds.URI.PlainText(),
			Database:       ds.Database,
			MaxConnections: uint64(ds.MaxConnections),
		})
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		a.onClose("mongo", client.Disconnect)

		repo := mongostore.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, nil

	case config.StorageMemory:
		a.log.Warn().Msg("using in-memory user store; data is lost on restart")
		return memory.NewUserRepository(), nil
	}

	return nil, fmt.Errorf("unsupported storage type %q", ds.Type)
}

// Handler exposes the router, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.echo
}

// Run serves HTTP until ctx is done or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Daemon.HTTP.Addr()
	errCh := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", addr).Msg("http server listening")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown requested")
	case runErr = <-errCh:
		a.log.Error().Err(runErr).Msg("http server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// resources in reverse order of acquisition.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.echo != nil {
		if err := a.echo.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	errs = append(errs, a.close(ctx))
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
