// Package app assembles the analysis stack from configuration: the StatsBomb
// client behind a read-through cache, the pipeline stages, the job store, the
// optional postgres run archive, and the orchestrator on top.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/playpulse/playpulse/external/statsbomb"
	"github.com/playpulse/playpulse/internal/config"
	"github.com/playpulse/playpulse/internal/domain/forecast"
	"github.com/playpulse/playpulse/internal/domain/job"
	"github.com/playpulse/playpulse/internal/infrastructure/repository/memory"
	"github.com/playpulse/playpulse/internal/infrastructure/repository/postgres"
	redisrepo "github.com/playpulse/playpulse/internal/infrastructure/repository/redis"
	"github.com/playpulse/playpulse/internal/infrastructure/source"
	basecache "github.com/playpulse/playpulse/internal/platform/cache"
	"github.com/playpulse/playpulse/internal/platform/logging"
	"github.com/playpulse/playpulse/internal/platform/resilience"
	"github.com/playpulse/playpulse/internal/usecase"
)

const redisPingTimeout = 5 * time.Second

// Components is the wired application graph. Orchestrator is the entry point
// for submitting, polling, and cancelling analysis jobs; Archive reads back
// completed runs.
type Components struct {
	Orchestrator *usecase.AnalysisOrchestratorService
	Archive      forecast.Repository

	closers []func() error
}

// Build assembles the stack. The context bounds the startup probes against
// redis and postgres, not the lifetime of the returned components.
func Build(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Components, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client := statsbomb.NewClient(statsbomb.ClientConfig{
		BaseURL:        cfg.StatsBombBaseURL,
		Token:          cfg.StatsBombAPIToken,
		Timeout:        cfg.StatsBombTimeout,
		MaxAttempts:    cfg.StatsBombMaxAttempts,
		RetryBaseDelay: cfg.StatsBombRetryBaseDelay,
		Logger:         logger,
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
	})
	dataSource := source.NewCachedSource(client, basecache.NewStore(cfg.SourceCacheTTL))

	resolver := usecase.NewPlayerResolverService(dataSource, usecase.PlayerResolverConfig{
		CompetitionLimit: cfg.ResolverCompetitionLimit,
		MatchSample:      cfg.ResolverMatchSample,
	}, logger)
	collector := usecase.NewMatchCollectorService(dataSource, usecase.MatchCollectorConfig{
		CompetitionLimit: cfg.CollectorCompetitionLimit,
		FetchConcurrency: cfg.CollectorFetchConcurrency,
	}, logger)
	deriver := usecase.NewMetricsDeriverService(logger)
	filter := usecase.NewAnomalyFilterService(usecase.AnomalyFilterConfig{
		Threshold: cfg.AnomalyThreshold,
	}, logger)
	engine := usecase.NewPredictionEngineService(usecase.PredictionEngineConfig{
		Window:           cfg.PredictionWindow,
		DeclineThreshold: cfg.DeclineThreshold,
	}, logger)
	pipeline := usecase.NewAnalysisPipelineService(resolver, collector, deriver, filter, engine, usecase.AnalysisPipelineConfig{
		MemoryOptimization: cfg.MemoryOptimization,
	}, logger)

	c := &Components{}

	store, err := c.openJobStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	archive, err := c.openRunArchive(ctx, cfg, logger)
	if err != nil {
		c.releaseAll(logger)
		return nil, err
	}

	orchestrator, err := usecase.NewAnalysisOrchestratorService(store, pipeline, archive, usecase.AnalysisOrchestratorConfig{
		JobTTL:            cfg.JobTTL,
		ResultTTL:         cfg.ResultTTL,
		TaskRetries:       cfg.TaskRetries,
		RetryDelay:        cfg.RetryDelay,
		WorkerPoolSize:    cfg.WorkerPoolSize,
		DefaultMaxMatches: cfg.DefaultMaxMatches,
	}, logger)
	if err != nil {
		c.releaseAll(logger)
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	c.Orchestrator = orchestrator
	c.Archive = archive
	return c, nil
}

// Close stops the orchestrator's worker pool and releases store connections
// in reverse build order. In-flight runs keep executing until their run
// contexts expire; their write boundaries then hit closed stores and the
// results are dropped.
func (c *Components) Close() error {
	if c.Orchestrator != nil {
		c.Orchestrator.Close()
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	return errors.Join(errs...)
}

// openJobStore picks the job store backend. Redis is probed at startup so a
// bad address fails the build instead of the first submit.
func (c *Components) openJobStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (job.Store, error) {
	if cfg.CacheBackend != config.CacheBackendRedis {
		return memory.NewAnalysisStore(), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis job store at %s: %w", cfg.RedisAddr, err)
	}

	c.closers = append(c.closers, client.Close)
	logger.Info("using redis job store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)

	return redisrepo.NewAnalysisStore(client), nil
}

// openRunArchive returns the postgres-backed archive when the database is
// enabled, and the in-memory archive otherwise.
func (c *Components) openRunArchive(ctx context.Context, cfg config.Config, logger *logging.Logger) (forecast.Repository, error) {
	if !cfg.DBEnabled {
		return memory.NewAnalysisRunRepository(), nil
	}

	db, err := openAnalysisDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c.closers = append(c.closers, db.Close)
	logger.Info("using postgres run archive", "db_name", dbNameFromURL(cfg.DBURL))

	return postgres.NewAnalysisRunRepository(db), nil
}

func (c *Components) releaseAll(logger *logging.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("failed to release component during teardown", "error", err)
		}
	}
	c.closers = nil
}
