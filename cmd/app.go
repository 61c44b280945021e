package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/axellelanca/shortlink/internal/cache"
	"github.com/axellelanca/shortlink/internal/codec"
	"github.com/axellelanca/shortlink/internal/config"
	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/idgen"
	"github.com/axellelanca/shortlink/internal/repository"
	"github.com/axellelanca/shortlink/internal/services"
	"github.com/axellelanca/shortlink/internal/stats"
	"github.com/axellelanca/shortlink/internal/telemetry"
	"github.com/axellelanca/shortlink/internal/workers"
)

// App holds every long-lived component built from a Config.
type App struct {
	DB          *gorm.DB
	Cache       cache.Cache
	LinkRepo    *repository.GormLinkRepository
	Codec       *codec.Codec
	Generator   *idgen.Generator
	Pool        *workers.Pool
	Counter     *stats.Counter
	Metrics     *telemetry.Metrics
	LinkService *services.LinkService
	Logger      *zap.Logger
}

// NewApp connects to the store and the cache, migrates the schema and
// assembles the link service. The worker pool is started.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{Logger: logger}

	db, err := repository.Open(cfg.Database.Driver, cfg.Database.Name, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	app.DB = db
	if err := repository.Migrate(db); err != nil {
		app.Close()
		return nil, err
	}
	app.LinkRepo = repository.NewLinkRepository(db)
	logger.Info("database ready", zap.String("driver", cfg.Database.Driver))

	app.Cache, err = cache.Open(cache.Options{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Path:     cfg.Cache.Path,
	})
	switch {
	case errors.Is(err, customerrors.ErrCacheUnavailable):
		// the store alone can serve every request
		logger.Warn("cache unavailable, continuing without it",
			zap.String("driver", cfg.Cache.Driver), zap.Error(err))
		app.Cache = cache.Unavailable{Err: err}
	case err != nil:
		app.Close()
		return nil, err
	default:
		logger.Info("cache ready", zap.String("driver", cfg.Cache.Driver))
	}

	app.Codec, err = codec.New(cfg.ShortCode.FixedLength)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Generator, err = idgen.New(cfg.Generator.WorkerID, cfg.Generator.DatacenterID,
		idgen.WithEpoch(cfg.Generator.EpochMillis))
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := checkAliasRange(cfg.ShortCode.Strategy, app.Codec, app.Generator); err != nil {
		app.Close()
		return nil, err
	}
	allocator, err := services.NewAllocator(ctx, cfg.ShortCode.Strategy, app.Generator, app.Codec, app.LinkRepo)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, "build allocator")
	}

	app.Pool = workers.NewPool(cfg.Workers.WorkerCount, cfg.Workers.BufferSize, cfg.TaskTimeout(), logger)
	app.Pool.Start()

	app.Counter = stats.NewCounter(time.Now())
	app.Metrics = telemetry.NewMetrics()
	app.LinkService = services.NewLinkService(
		app.LinkRepo,
		cache.NewLinkCache(app.Cache, cfg.DefaultTTL()),
		allocator,
		app.Codec,
		app.Pool,
		logger,
		services.WithCounter(app.Counter),
		services.WithRecorder(app.Metrics),
	)
	logger.Info("link service ready",
		zap.String("strategy", allocator.Name()),
		zap.Int("fixed_length", app.Codec.FixedLength()),
		zap.Int64("worker_id", app.Generator.WorkerID()),
		zap.Int64("datacenter_id", app.Generator.DatacenterID()))
	return app, nil
}

// Close drains the worker pool before closing the cache and the database.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Stop()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn("close cache", zap.Error(err))
		}
	}
	if a.DB != nil {
		if err := repository.Close(a.DB); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
}

// checkAliasRange rejects a fixed alias length too short for the ids the
// snowflake generator can emit. The other strategies count up from 1 and only
// fail once the table outgrows the alias domain.
func checkAliasRange(strategy string, c *codec.Codec, g *idgen.Generator) error {
	if strategy != services.StrategySnowflake && strategy != "" {
		return nil
	}
	if c.Max() < g.MaxID() {
		return errors.Wrapf(customerrors.ErrConfiguration,
			"shortcode.fixed_length %d holds ids up to %d, the generator emits ids up to %d",
			c.FixedLength(), c.Max(), g.MaxID())
	}
	return nil
}
