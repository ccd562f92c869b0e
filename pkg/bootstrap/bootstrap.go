// Package bootstrap wires config, storage, notifiers, services and the
// HTTP router into one application value shared by every entry point.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wadjakorntonsri/limitlink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/lock"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/notifier"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/limitlink/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/core/services"
	"github.com/wadjakorntonsri/limitlink/pkg/logger"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const appName = "limitlink"

// App is a fully wired instance.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Repo    ports.LinkRepository
	Links   *services.LinkService
	Sweeper *services.Sweeper
	Handler http.Handler

	async   *notifier.Async
	closers []io.Closer
}

// New builds the application. Extra options are applied to the core
// services after the defaults, so tests can pin the clock.
func New(cfg *config.Config, opts ...services.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Options{
		AppName:    appName,
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	m := metrics.New()
	app := &App{Config: cfg, Logger: log, Metrics: m}

	repo, closer, err := OpenRepository(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	app.Repo = repo
	app.addCloser(closer)

	svcOpts := append([]services.Option{
		services.WithLogger(log),
		services.WithMetrics(m),
	}, opts...)
	clock := services.ResolveClock(svcOpts)

	chain := notifier.Multi{
		notifier.NewLogNotifier(log),
		notifier.NewStoreNotifier(repo, clock),
	}
	if cfg.RabbitMQURL != "" {
		rabbit, err := notifier.DialRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		app.addCloser(rabbit)
		chain = append(chain, notifier.NewAMQPNotifier(rabbit, cfg.NotifyQueue, clock))
	}
	app.async = notifier.NewAsync(chain, cfg.NotifyBuffer, log)

	var locker ports.Locker
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.addCloser(client)
		locker = lock.NewRedisLocker(client)
	}

	identities, err := services.NewIdentityService(repo, clock, cfg.IdentityCacheSize)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Links = services.NewLinkService(
		repo,
		identities,
		services.NewCodeGenerator(repo),
		app.async,
		services.Defaults{UseLimit: cfg.DefaultUseLimit, TTLHours: cfg.DefaultTTLHours},
		svcOpts...,
	)
	app.Sweeper = services.NewSweeper(repo, app.async, locker, cfg.SweepLockTTL, svcOpts...)

	app.Handler = handler.NewRouter(cfg, handler.Dependencies{
		Links:   app.Links,
		Store:   repo,
		Sweeper: app.Sweeper,
		Metrics: m,
		Logger:  log,
	})

	log.Info("application wired",
		zap.String("env", cfg.AppEnv),
		zap.Bool("rabbitmq", cfg.RabbitMQURL != ""),
		zap.Bool("redis_lock", locker != nil),
	)
	return app, nil
}

// OpenRepository picks the store from the URL scheme: memory://,
// postgres:// (or postgresql://), anything else is SQLite or Turso.
func OpenRepository(dbURL string) (ports.LinkRepository, io.Closer, error) {
	switch {
	case strings.HasPrefix(dbURL, "memory://"):
		return memory.NewRepository(), nil, nil
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		repo, err := postgres.NewRepository(dbURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		repo, err := sqlite.NewSQLiteRepository(dbURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	}
}

func (a *App) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Close stops the sweeper, drains queued notifications and releases
// connections in reverse order of acquisition.
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.async != nil {
		a.async.Close()
	}

	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	_ = a.Logger.Sync()
	return err
}
