package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/fpl-livescore/internal/config"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/file"
	"github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/fpl-livescore/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/fpl-livescore/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const backendPingTimeout = 5 * time.Second

func noopClose() error { return nil }

// openSnapshotRepository builds the configured snapshot backend and returns
// the function that releases its connections.
func openSnapshotRepository(cfg config.Config, logger *logging.Logger) (snapshot.Repository, func() error, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		logger.Info("snapshot backend ready", "backend", cfg.CacheBackend)
		return memory.NewSnapshotRepository(), noopClose, nil
	case config.CacheBackendFile, "":
		repo, err := file.NewSnapshotRepository(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("snapshot backend ready", "backend", config.CacheBackendFile, "dir", cfg.CacheDir)
		return repo, noopClose, nil
	case config.CacheBackendRedis:
		client, err := openRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("snapshot backend ready", "backend", cfg.CacheBackend, "prefix", cfg.RedisKeyPrefix)
		return redisrepo.NewSnapshotRepository(client, cfg.RedisKeyPrefix), client.Close, nil
	case config.CacheBackendPostgres:
		db, err := openPostgres(cfg.DBURL, cfg.DBDisablePreparedBinary)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("snapshot backend ready", "backend", cfg.CacheBackend, "db_name", dbNameFromURL(cfg.DBURL))
		return postgres.NewSnapshotRepository(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
}

func openRedis(rawURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), backendPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func openPostgres(rawURL string, disablePreparedBinary bool) (*sqlx.DB, error) {
	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(rawURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Open("postgres", normalizeDBURL(rawURL, disablePreparedBinary), opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
