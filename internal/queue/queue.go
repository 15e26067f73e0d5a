// Package queue holds applications between submission and decision: the
// FIFO of records waiting to be posted, the records already posted and
// waiting for a reviewer, and the records that could not be posted.
package queue

import (
	"context"
	"time"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/store"
)

// ErrEmpty is returned by DequeueOldest when nothing is queued.
const ErrEmpty = errors.ConstError("queue is empty")

// DeadLetter is a record the consumer could not post for review.
type DeadLetter struct {
	Record application.Record `json:"record"`
	Reason string             `json:"reason"`
	At     time.Time          `json:"at"`
}

// Queue is the persisted FIFO of records waiting to be posted. Entries leave
// only from the head and join only at the tail.
type Queue struct {
	store *store.Store
}

func New(s *store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue appends record to the tail.
func (q *Queue) Enqueue(ctx context.Context, record application.Record) error {
	return errors.Trace(store.Update(ctx, q.store, store.KeyQueue, func(entries *[]application.Record) error {
		*entries = append(*entries, record)
		return nil
	}))
}

// DequeueOldest removes and returns the head, or ErrEmpty.
func (q *Queue) DequeueOldest(ctx context.Context) (application.Record, error) {
	var head application.Record
	err := store.Update(ctx, q.store, store.KeyQueue, func(entries *[]application.Record) error {
		if len(*entries) == 0 {
			return ErrEmpty
		}
		head = (*entries)[0]
		*entries = (*entries)[1:]
		return nil
	})
	if err != nil {
		return application.Record{}, err
	}
	return head, nil
}

// Len reports how many records are waiting.
func (q *Queue) Len(ctx context.Context) (int, error) {
	entries, err := store.Read[[]application.Record](ctx, q.store, store.KeyQueue)
	return len(entries), errors.Trace(err)
}

// DeadLetter parks a record that could not be posted.
func (q *Queue) DeadLetter(ctx context.Context, record application.Record, reason string, at time.Time) error {
	return errors.Trace(store.Update(ctx, q.store, store.KeyDeadLetters, func(letters *[]DeadLetter) error {
		*letters = append(*letters, DeadLetter{Record: record, Reason: reason, At: at})
		return nil
	}))
}

// DeadLetters lists parked records, oldest first.
func (q *Queue) DeadLetters(ctx context.Context) ([]DeadLetter, error) {
	letters, err := store.Read[[]DeadLetter](ctx, q.store, store.KeyDeadLetters)
	return letters, errors.Trace(err)
}

// RequeueDeadLetters moves every parked record back to the tail of the queue,
// oldest first, and returns how many were moved.
func (q *Queue) RequeueDeadLetters(ctx context.Context) (int, error) {
	var moved []DeadLetter
	err := store.Update(ctx, q.store, store.KeyDeadLetters, func(letters *[]DeadLetter) error {
		moved = *letters
		*letters = nil
		return nil
	})
	if err != nil {
		return 0, errors.Trace(err)
	}
	if len(moved) == 0 {
		return 0, nil
	}
	err = store.Update(ctx, q.store, store.KeyQueue, func(entries *[]application.Record) error {
		for _, l := range moved {
			*entries = append(*entries, l.Record)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Annotatef(err, "requeueing %d dead letters", len(moved))
	}
	return len(moved), nil
}
