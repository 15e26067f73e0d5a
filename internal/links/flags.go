package links

import (
	"context"
	"sort"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/store"
)

// Flag is a moderation marker on a member. Absence means unflagged.
type Flag string

const (
	FlagPositive Flag = "positive"
	FlagAmber    Flag = "amber"
	FlagNegative Flag = "negative"
)

// ParseFlag accepts the three flag names.
func ParseFlag(s string) (Flag, error) {
	switch f := Flag(s); f {
	case FlagPositive, FlagAmber, FlagNegative:
		return f, nil
	}
	return "", errors.NotValidf("flag %q", s)
}

// severity orders flags worst first.
func (f Flag) severity() int {
	switch f {
	case FlagNegative:
		return 0
	case FlagAmber:
		return 1
	default:
		return 2
	}
}

// Flagged is one member's flag.
type Flagged struct {
	ActorID string
	Flag    Flag
}

// SetFlag marks actorID.
func (r *Registry) SetFlag(ctx context.Context, actorID string, flag Flag) error {
	if _, err := ParseFlag(string(flag)); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(store.Update(ctx, r.store, store.KeyUserFlags, func(m *map[string]Flag) error {
		if *m == nil {
			*m = make(map[string]Flag)
		}
		(*m)[actorID] = flag
		return nil
	}))
}

// ClearFlag unflags actorID and reports whether a flag was set.
func (r *Registry) ClearFlag(ctx context.Context, actorID string) (bool, error) {
	cleared := false
	err := store.Update(ctx, r.store, store.KeyUserFlags, func(m *map[string]Flag) error {
		if _, ok := (*m)[actorID]; ok {
			delete(*m, actorID)
			cleared = true
		}
		return nil
	})
	return cleared, errors.Trace(err)
}

// Flag returns actorID's flag, or "" when unflagged.
func (r *Registry) Flag(ctx context.Context, actorID string) (Flag, error) {
	m, err := store.Read[map[string]Flag](ctx, r.store, store.KeyUserFlags)
	if err != nil {
		return "", errors.Trace(err)
	}
	return m[actorID], nil
}

// Flags lists flagged members, negative first then amber then positive.
func (r *Registry) Flags(ctx context.Context) ([]Flagged, error) {
	m, err := store.Read[map[string]Flag](ctx, r.store, store.KeyUserFlags)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]Flagged, 0, len(m))
	for actor, f := range m {
		out = append(out, Flagged{ActorID: actor, Flag: f})
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Flag.severity(), out[j].Flag.severity()
		if si != sj {
			return si < sj
		}
		return out[i].ActorID < out[j].ActorID
	})
	return out, nil
}
