package queue

import (
	"context"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/store"
)

// Pending maps a review post's message id to the record it shows. Presence
// means no decision has been rendered yet.
type Pending struct {
	store *store.Store
}

func NewPending(s *store.Store) *Pending {
	return &Pending{store: s}
}

// Put records that messageID shows record.
func (p *Pending) Put(ctx context.Context, messageID string, record application.Record) error {
	return errors.Trace(store.Update(ctx, p.store, store.KeyApplications, func(m *map[string]application.Record) error {
		if *m == nil {
			*m = make(map[string]application.Record)
		}
		(*m)[messageID] = record
		return nil
	}))
}

// Get returns the record awaiting a decision on messageID.
func (p *Pending) Get(ctx context.Context, messageID string) (application.Record, error) {
	m, err := store.Read[map[string]application.Record](ctx, p.store, store.KeyApplications)
	if err != nil {
		return application.Record{}, errors.Trace(err)
	}
	record, ok := m[messageID]
	if !ok {
		return application.Record{}, errors.NotFoundf("pending application for message %q", messageID)
	}
	return record, nil
}

// Remove deletes messageID and reports whether it was present.
func (p *Pending) Remove(ctx context.Context, messageID string) (bool, error) {
	removed := false
	err := store.Update(ctx, p.store, store.KeyApplications, func(m *map[string]application.Record) error {
		if _, ok := (*m)[messageID]; !ok {
			return nil
		}
		delete(*m, messageID)
		removed = true
		return nil
	})
	return removed, errors.Trace(err)
}

// All returns a copy of every pending entry.
func (p *Pending) All(ctx context.Context) (map[string]application.Record, error) {
	m, err := store.Read[map[string]application.Record](ctx, p.store, store.KeyApplications)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if m == nil {
		m = map[string]application.Record{}
	}
	return m, nil
}
