package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/internal/config"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/firestore"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/memory"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/mysql"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/postgres"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlcommon"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlite"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/storagewrappers"
)

// OpenDatastore connects to the configured engine and wraps the result with
// the read bound and, when enabled, the read cache.
func OpenDatastore(ctx context.Context, cfg *config.Config, l logger.Logger) (storage.DocumentStore, error) {
	dsCfg := cfg.Datastore

	opts := []sqlcommon.DatastoreOption{
		sqlcommon.WithUsername(dsCfg.Username),
		sqlcommon.WithPassword(dsCfg.Password),
		sqlcommon.WithLogger(l),
		sqlcommon.WithMaxInValues(dsCfg.MaxInValues),
		sqlcommon.WithMaxOpenConns(dsCfg.MaxOpenConns),
		sqlcommon.WithMaxIdleConns(dsCfg.MaxIdleConns),
		sqlcommon.WithConnMaxIdleTime(dsCfg.ConnMaxIdleTime),
		sqlcommon.WithConnMaxLifetime(dsCfg.ConnMaxLifetime),
	}
	if dsCfg.Metrics {
		opts = append(opts, sqlcommon.WithMetrics())
	}
	sqlConfig := sqlcommon.NewConfig(opts...)

	var (
		ds  storage.DocumentStore
		err error
	)
	switch dsCfg.Engine {
	case "memory":
		ds = memory.New(memory.WithMaxInValues(dsCfg.MaxInValues))
	case "sqlite":
		ds, err = sqlite.New(dsCfg.URI, sqlConfig)
	case "postgres":
		ds, err = postgres.New(dsCfg.URI, sqlConfig)
	case "mysql":
		ds, err = mysql.New(dsCfg.URI, sqlConfig)
	case "firestore":
		ds, err = firestore.New(ctx, firestore.Config{
			ProjectID:   dsCfg.ProjectID,
			DatabaseID:  dsCfg.DatabaseID,
			Logger:      l,
			MaxInValues: dsCfg.MaxInValues,
		})
	default:
		return nil, fmt.Errorf("storage engine '%s' is unsupported", dsCfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s datastore: %w", dsCfg.Engine, err)
	}

	l.Info(fmt.Sprintf("using '%v' storage engine", dsCfg.Engine))

	wrapOpts := storagewrappers.Options{
		MaxConcurrentReads: dsCfg.MaxConcurrentReads,
		Logger:             l,
	}
	if cfg.Cache.Enabled {
		cache, err := storage.NewInMemoryLRUCache[any](storage.WithMaxCacheSize[any](cfg.Cache.MaxSize))
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("failed to initialize read cache: %w", err)
		}
		wrapOpts.Cache = cache
		wrapOpts.CacheTTL = cfg.Cache.TTL
		l.Info("read cache enabled", zap.Int64("max_size", cfg.Cache.MaxSize), zap.Duration("ttl", cfg.Cache.TTL))
	}

	return storagewrappers.Wrap(ds, wrapOpts), nil
}
