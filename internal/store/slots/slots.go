// Package slots connects the storage backend named in the configuration.
package slots

import (
	"context"

	"go.uber.org/zap"

	"nexuserp/backend/internal/config"
	"nexuserp/backend/internal/store"
	"nexuserp/backend/internal/store/memory"
	pgstore "nexuserp/backend/internal/store/postgres"
	"nexuserp/backend/internal/store/redisstore"
	"nexuserp/backend/internal/store/sqlite"
)

// Open returns the configured slot and the closers that release it.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Slot, []func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storage: postgres")
		return pg, []func() error{pg.Close}, nil
	case config.BackendSQLite:
		db, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("storage: sqlite", zap.String("path", cfg.SQLitePath))
		return db, []func() error{db.Close}, nil
	case config.BackendRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		logger.Info("storage: redis")
		return rs, []func() error{rs.Close}, nil
	default:
		logger.Warn("storage: in-memory, state is lost on restart")
		return memory.New(), nil, nil
	}
}
