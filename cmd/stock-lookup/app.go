package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-lookup/internal/adapter/storage"
	"github.com/rl1809/stock-lookup/internal/config"
	"github.com/rl1809/stock-lookup/internal/core/service"
	"github.com/rl1809/stock-lookup/internal/port"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

// app holds the wired service and the connections it owns.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	rdb     *redis.Client
	catalog *storage.MySQLAdapter
	lookup  *service.LookupService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	logx.Init(logx.LoggerOpts{
		Environment: cfg.Environment(),
		Level:       cfg.LogLevel,
	})

	db, err := cfg.MySQL.Open(ctx)
	if err != nil {
		return nil, err
	}
	logx.Info().Str("database", cfg.MySQL.Database).Msg("connected to mysql")

	keys, err := cfg.Catalog.Keys()
	if err != nil {
		db.Close()
		return nil, err
	}
	mysqlAdapter, err := storage.NewMySQLAdapter(db, storage.CatalogOptions{
		TablePrefix:    cfg.Catalog.TablePrefix,
		UploadsBaseURL: cfg.Catalog.UploadsBaseURL,
		Keys:           keys,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	var catalog port.CatalogRepository = mysqlAdapter
	if cfg.Breaker.Enabled {
		catalog = storage.NewBreakerCatalog(mysqlAdapter, storage.BreakerSettings{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		})
	}

	a := &app{cfg: cfg, db: db, catalog: mysqlAdapter}

	var attachments port.AttachmentResolver = mysqlAdapter
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			// the cache is optional, lookups still work without it
			logx.Warn().Err(err).Msg("redis unavailable, attachment cache disabled")
		} else {
			a.rdb = rdb
			attachments = storage.NewCachedAttachmentResolver(mysqlAdapter, storage.NewRedisAdapter(rdb, cfg.Redis.TTL))
			logx.Info().Dur("ttl", cfg.Redis.TTL).Msg("attachment cache enabled")
		}
	}

	a.lookup = service.NewLookupService(catalog, attachments)
	return a, nil
}

func (a *app) Close() error {
	var firstErr error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close mysql: %w", err)
	}
	return firstErr
}
