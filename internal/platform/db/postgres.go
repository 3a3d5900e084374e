// Package db opens the read-only PostgreSQL pool used by the postgres source.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "spa-manager"

// New creates a PostgreSQL connection pool whose sessions are read-only.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := parseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

func parseConfig(dsn string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	params := config.ConnConfig.RuntimeParams
	params["default_transaction_read_only"] = "on"
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	return config, nil
}
