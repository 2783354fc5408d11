package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/adanyl0v/taskboard/internal/config"
	"github.com/adanyl0v/taskboard/internal/locker"
	"github.com/adanyl0v/taskboard/internal/storage"
	"github.com/adanyl0v/taskboard/internal/storage/sqlite"
)

var (
	globalStore       storage.Store
	globalLocker      locker.Locker
	globalRedisClient *redis.Client
)

func MustConnectStorage() {
	cfg := config.Global()
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		globalStore = mustConnectPostgres()
	case config.StorageDriverMongo:
		globalStore = mustConnectMongo()
	case config.StorageDriverSQLite:
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Str("path", cfg.SQLite.Path).
				Msg("failed to open sqlite")
			panic(err)
		}
		globalStore = store
		globalLogger.Info().
			Str("path", cfg.SQLite.Path).
			Msg("opened sqlite")
	default:
		globalLogger.Error().
			Str("storage_driver", cfg.StorageDriver).
			Msg("unknown storage driver")
		panic(fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver))
	}
}

func DisconnectStorage() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := globalStore.Close(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to close storage")
		return
	}
	globalLogger.Info().Msg("closed storage")
}

// MustInitLocker picks the redis owner lock when REDIS_ADDR is set and
// the in-process one otherwise.
func MustInitLocker() {
	cfg := config.Global().Redis
	if cfg.Addr == "" {
		globalLocker = locker.NewLocal()
		globalLogger.Info().Msg("using in-process owner lock")
		return
	}

	globalRedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := globalRedisClient.Ping(ctx).Result()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("addr", cfg.Addr).
			Msg("failed to ping redis")
		panic(err)
	}

	globalLocker = locker.NewRedis(globalRedisClient, cfg.LockTTL)
	globalLogger.Info().
		Str("addr", cfg.Addr).
		Msg("using redis owner lock")
}

func CloseLocker() {
	if globalRedisClient == nil {
		return
	}

	err := globalRedisClient.Close()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to close redis client")
		return
	}
	globalLogger.Info().Msg("closed redis client")
}
