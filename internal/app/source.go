package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/spamanager/spa-manager/internal/dashboard"
	"github.com/spamanager/spa-manager/internal/platform/db"
	"github.com/spamanager/spa-manager/internal/source/api"
	"github.com/spamanager/spa-manager/internal/source/pgsource"
)

// Backend is the configured system of record.
type Backend struct {
	Source dashboard.Source
	Ready  ReadinessCheck
	Close  func()
}

// OpenBackend builds the Source selected by SOURCE_DRIVER.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.SourceDriver {
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		return &Backend{Source: pgsource.New(pool), Ready: pool.Ping, Close: pool.Close}, nil
	case DriverAPI, "":
		client, err := api.NewClient(api.Config{
			BaseURL: cfg.UpstreamBaseURL,
			Token:   cfg.UpstreamToken,
			Timeout: cfg.UpstreamTimeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{Source: client, Ready: client.Ping, Close: func() {}}, nil
	}
	return nil, fmt.Errorf("app: unknown source driver %q", cfg.SourceDriver)
}

// NewReportService wires the report service with the lookup cache when Redis
// is available.
func NewReportService(source dashboard.Source, redisClient *redis.Client, cfg *Config, logger *slog.Logger, recorder dashboard.Recorder) (*dashboard.Service, *dashboard.Cache) {
	opts := []dashboard.Option{
		dashboard.WithLogger(logger),
		dashboard.WithLocation(cfg.Location()),
		dashboard.WithRecorder(recorder),
	}
	var lookupCache *dashboard.Cache
	if redisClient != nil && cfg.LookupCacheTTL > 0 {
		lookupCache = dashboard.NewCache(redisClient, cfg.LookupCacheTTL)
		opts = append(opts, dashboard.WithCache(lookupCache))
	}
	return dashboard.NewService(source, opts...), lookupCache
}
