package links

import (
	"context"
	"time"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/store"
)

// Note is a staff comment on a member. Notes are append-only.
type Note struct {
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// AddNote appends note to actorID's notes.
func (r *Registry) AddNote(ctx context.Context, actorID string, note Note) error {
	if note.Text == "" {
		return errors.NotValidf("empty note")
	}
	return errors.Trace(store.Update(ctx, r.store, store.KeyUserNotes, func(m *map[string][]Note) error {
		if *m == nil {
			*m = make(map[string][]Note)
		}
		(*m)[actorID] = append((*m)[actorID], note)
		return nil
	}))
}

// Notes returns actorID's notes in the order they were added.
func (r *Registry) Notes(ctx context.Context, actorID string) ([]Note, error) {
	m, err := store.Read[map[string][]Note](ctx, r.store, store.KeyUserNotes)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m[actorID], nil
}
