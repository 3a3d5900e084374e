package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spamanager/spa-manager/jobs"
)

func TestTriggerEnqueuesLookupsRefresh(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	var out bytes.Buffer
	require.NoError(t, c.dispatch(context.Background(), []string{"trigger", jobs.TaskLookupsRefresh, "catalogo", "nuevo"}, &out))
	assert.Contains(t, out.String(), "enqueued "+jobs.TaskLookupsRefresh)
	assert.Contains(t, out.String(), "queue="+jobs.QueueDefault)

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewJobsCLI(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Trigger(context.Background(), "reports:rebuild", "")
	assert.ErrorContains(t, err, "unsupported job")
}

func TestDispatchUsageErrors(t *testing.T) {
	c := &JobsCLI{}
	var out bytes.Buffer
	assert.Error(t, c.dispatch(context.Background(), []string{"trigger"}, &out))
	assert.ErrorContains(t, c.dispatch(context.Background(), []string{"purge"}, &out), "unknown command")
	assert.ErrorContains(t, c.dispatch(context.Background(), []string{"scheduled", "diez"}, &out), "invalid size")
	assert.Error(t, c.dispatch(context.Background(), []string{"stats"}, &out))
	assert.Error(t, Run(context.Background(), "127.0.0.1:0", nil, &out))
}

func TestNilCLIGuards(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), jobs.TaskLookupsRefresh, "")
	assert.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
	_, err = c.ListScheduled(context.Background(), 0)
	assert.Error(t, err)
}
