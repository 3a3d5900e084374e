package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLookupsRefresh reloads branches, products and leads and invalidates
	// the lookup cache.
	TaskLookupsRefresh = "lookups:refresh"
)

// LookupsRefreshPayload describes why a refresh was requested.
type LookupsRefreshPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewLookupsRefreshTask constructs the refresh task. Cron entries pass an
// empty id; manual triggers get a unique one so they can be inspected.
func NewLookupsRefreshTask(reason, id string, now time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LookupsRefreshPayload{Reason: reason, RequestedAt: now.UTC()})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(2 * time.Minute)}
	if id != "" {
		opts = append(opts, asynq.TaskID(id))
	}
	return asynq.NewTask(TaskLookupsRefresh, data, opts...), nil
}

// NewTaskID returns an identifier for a manually enqueued task.
func NewTaskID() string {
	return uuid.NewString()
}
