package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/queue"
	"tysmp/whitelist/internal/store"
	"tysmp/whitelist/internal/store/memory"
)

func newStore() *store.Store {
	return store.New(memory.New())
}

func TestQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := queue.New(newStore())

	for i := range 5 {
		require.NoError(t, q.Enqueue(ctx, application.Record{ActorID: fmt.Sprint(i), InGameName: fmt.Sprintf("player%d", i)}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	for i := range 5 {
		got, err := q.DequeueOldest(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), got.ActorID)
	}
	_, err = q.DequeueOldest(ctx)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestQueueEmptyFromStart(t *testing.T) {
	_, err := queue.New(newStore()).DequeueOldest(context.Background())
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestQueueConcurrentEnqueueKeepsAll(t *testing.T) {
	ctx := context.Background()
	q := queue.New(newStore())

	done := make(chan struct{})
	for i := range 20 {
		go func() {
			defer func() { done <- struct{}{} }()
			assert.NoError(t, q.Enqueue(ctx, application.Record{ActorID: fmt.Sprint(i)}))
		}()
	}
	for range 20 {
		<-done
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestDeadLettersRequeueAtTail(t *testing.T) {
	ctx := context.Background()
	q := queue.New(newStore())
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, q.Enqueue(ctx, application.Record{ActorID: "queued"}))
	require.NoError(t, q.DeadLetter(ctx, application.Record{ActorID: "a"}, "missing access", at))
	require.NoError(t, q.DeadLetter(ctx, application.Record{ActorID: "b"}, "unknown channel", at))

	letters, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, letters, 2)
	assert.Equal(t, "missing access", letters[0].Reason)
	assert.Equal(t, at, letters[0].At)

	moved, err := q.RequeueDeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	letters, err = q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Empty(t, letters)

	var order []string
	for {
		r, err := q.DequeueOldest(ctx)
		if errors.Is(err, queue.ErrEmpty) {
			break
		}
		require.NoError(t, err)
		order = append(order, r.ActorID)
	}
	assert.Equal(t, []string{"queued", "a", "b"}, order)
}

func TestRequeueNothing(t *testing.T) {
	moved, err := queue.New(newStore()).RequeueDeadLetters(context.Background())
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	p := queue.NewPending(newStore())

	_, err := p.Get(ctx, "m1")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	rec := application.Record{ActorID: "42", InGameName: "Steve"}
	require.NoError(t, p.Put(ctx, "m1", rec))

	got, err := p.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	all, err := p.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	removed, err := p.Remove(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = p.Remove(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, removed)

	all, err = p.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
