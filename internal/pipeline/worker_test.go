package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerRecoversThenTicks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, steve)
	require.NoError(t, h.pending.Put(ctx, "gone", application.Record{ActorID: "43", InGameName: "Alex"}))
	require.NoError(t, h.pipeline.Submit(ctx, application.Record{ActorID: "42", InGameName: "Steve"}))

	w, err := pipeline.NewWorker(pipeline.WorkerConfig{
		Pipeline: h.pipeline,
		Clock:    h.clock,
		Interval: 10 * time.Second,
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, worker.Stop(w)) }()

	require.NoError(t, h.clock.WaitAdvance(10*time.Second, time.Second, 1))
	assert.Eventually(t, func() bool { return h.board.postCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err = h.pending.Get(ctx, "gone")
	assert.True(t, errors.Is(err, errors.NotFound), "orphan should be purged, got %v", err)

	// the next tick finds an empty queue
	require.NoError(t, h.clock.WaitAdvance(10*time.Second, time.Second, 1))
	assert.Equal(t, 1, h.board.postCount())
}

func TestWorkerUnconfiguredKeepsQueue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.settings.s.GuildID = ""
	require.NoError(t, h.pipeline.Submit(ctx, application.Record{ActorID: "42", InGameName: "Steve"}))

	w, err := pipeline.NewWorker(pipeline.WorkerConfig{
		Pipeline: h.pipeline,
		Clock:    h.clock,
		Interval: time.Second,
	})
	require.NoError(t, err)

	require.NoError(t, h.clock.WaitAdvance(time.Second, time.Second, 1))
	require.NoError(t, h.clock.WaitAdvance(time.Second, time.Second, 1))
	require.NoError(t, worker.Stop(w))

	n, err := h.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, h.board.postCount())
}

func TestWorkerConfigValidate(t *testing.T) {
	_, err := pipeline.NewWorker(pipeline.WorkerConfig{})
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
}
