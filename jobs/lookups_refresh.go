package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/spamanager/spa-manager/internal/dashboard"
	jobmetrics "github.com/spamanager/spa-manager/internal/jobs"
)

// LookupRefresher reloads the lookup tables.
type LookupRefresher interface {
	RefreshLookups(ctx context.Context) (dashboard.Lookups, error)
}

// LookupsRefreshLockKey serialises refreshes across workers.
const LookupsRefreshLockKey = "lock:" + TaskLookupsRefresh

// LookupsRefreshJob handles TaskLookupsRefresh. When Lock is set, a refresh
// that finds another one in progress is skipped.
type LookupsRefreshJob struct {
	Service LookupRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Lock    *redislock.Client
	LockTTL time.Duration
}

// NewLookupsRefreshJob wires dependencies for the refresh handler.
func NewLookupsRefreshJob(service LookupRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *LookupsRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupsRefreshJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle processes refresh tasks. Malformed payloads are not retried.
func (j *LookupsRefreshJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("lookups refresh: handler not configured")
	}
	var payload LookupsRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.Logger.With(slog.String("reason", payload.Reason))
	lock, err := j.obtain(ctx)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Info("lookups refresh already running, skipping")
		return nil
	}
	if err != nil {
		logger.Warn("obtain refresh lock, proceeding without it", slog.Any("error", err))
	}
	if lock != nil {
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn("release refresh lock", slog.Any("error", err))
			}
		}()
	}

	tracker := j.Metrics.Track(TaskLookupsRefresh)
	defer func() { err = tracker.End(err) }()

	start := time.Now()
	lookups, err := j.Service.RefreshLookups(ctx)
	if err != nil {
		logger.Error("refresh lookups", slog.Any("error", err))
		return err
	}
	logger.Info("refreshed lookups",
		slog.Int("branches", len(lookups.Branches)),
		slog.Int("products", len(lookups.Products)),
		slog.Int("leads", len(lookups.Leads)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *LookupsRefreshJob) obtain(ctx context.Context) (*redislock.Lock, error) {
	if j.Lock == nil {
		return nil, nil
	}
	ttl := j.LockTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return j.Lock.Obtain(ctx, LookupsRefreshLockKey, ttl, nil)
}
