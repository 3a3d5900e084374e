package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bsm/redislock"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/internal/dashboard"
	jobmetrics "github.com/spamanager/spa-manager/internal/jobs"
	"github.com/spamanager/spa-manager/internal/reporting"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshLookups(ctx context.Context) (dashboard.Lookups, error) {
	f.calls++
	if f.err != nil {
		return dashboard.Lookups{}, f.err
	}
	return dashboard.Lookups{Branches: []reporting.BranchRef{{ID: "1", Name: "Centro"}}}, nil
}

func TestNewLookupsRefreshTask(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 30, 0, 0, time.FixedZone("CST", -6*3600))
	task, err := NewLookupsRefreshTask("cron", "", now)
	require.NoError(t, err)
	assert.Equal(t, TaskLookupsRefresh, task.Type())

	var payload LookupsRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Reason)
	assert.True(t, payload.RequestedAt.Equal(now))
	assert.Equal(t, time.UTC, payload.RequestedAt.Location())
}

func TestLookupsRefreshJobHandle(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewLookupsRefreshJob(refresher, quietLogger, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewLookupsRefreshTask("manual", "", time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, refresher.calls)

	refresher.err = errors.New("backend down")
	assert.ErrorIs(t, job.Handle(context.Background(), task), refresher.err)
	assert.Equal(t, 2, refresher.calls)
}

func TestLookupsRefreshJobSkipsMalformedPayload(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewLookupsRefreshJob(refresher, quietLogger, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskLookupsRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, refresher.calls)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskLookupsRefresh, nil)))
	assert.Equal(t, 1, refresher.calls)
}

func TestLookupsRefreshJobSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	refresher := &fakeRefresher{}
	job := NewLookupsRefreshJob(refresher, quietLogger, nil)
	job.Lock = redislock.New(rdb)

	held, err := redislock.New(rdb).Obtain(ctx, LookupsRefreshLockKey, time.Minute, nil)
	require.NoError(t, err)

	task, err := NewLookupsRefreshTask("cron", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	assert.Zero(t, refresher.calls)

	require.NoError(t, held.Release(ctx))
	require.NoError(t, job.Handle(ctx, task))
	assert.Equal(t, 1, refresher.calls)
	assert.False(t, mr.Exists(LookupsRefreshLockKey))
}

func TestUnconfiguredJobFails(t *testing.T) {
	var job *LookupsRefreshJob
	assert.Error(t, job.Handle(context.Background(), asynq.NewTask(TaskLookupsRefresh, nil)))
}

func TestClientEnqueuesRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	info, err := client.EnqueueLookupsRefresh(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, TaskLookupsRefresh, info.Type)
	assert.Equal(t, QueueDefault, info.Queue)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 3, info.MaxRetry)

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{info.ID}, pending)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, quietLogger).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rec
}

func TestHealthReportsQueue(t *testing.T) {
	rec := serveHealth(t, fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Retry: 1}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":2,"active":0,"scheduled":0,"retry":1,"failed":0}`, rec.Body.String())

	rec = serveHealth(t, fakeInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serveHealth(t, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
