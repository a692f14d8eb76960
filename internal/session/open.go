package session

import (
	"context"
	"fmt"

	"box-metadata-workers/internal/common/config"
	"box-metadata-workers/internal/common/database"
	"box-metadata-workers/internal/common/logger"
)

const (
	SourceRedis    = "redis"
	SourcePostgres = "postgres"
)

// Open connects the named session source. An empty kind picks Redis when an
// address is configured and Postgres otherwise. The returned func closes the
// underlying connection.
func Open(ctx context.Context, kind string, cfg config.DatabaseConfig, log logger.Logger) (Source, func() error, error) {
	if kind == "" {
		kind = SourcePostgres
		if cfg.Redis.Address != "" {
			kind = SourceRedis
		}
	}

	switch kind {
	case SourceRedis:
		client, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis session source: %w", err)
		}
		return NewRedisSource(client, cfg.Redis.KeyPrefix, log), client.Close, nil

	case SourcePostgres:
		if !cfg.Postgres.Enabled() {
			return nil, nil, fmt.Errorf("postgres session source is not configured")
		}
		client, err := database.NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("postgres session source: %w", err)
		}
		return NewPostgresSource(client, log), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session source %q", kind)
	}
}
