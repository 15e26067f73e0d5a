// Package links maps Discord members to Minecraft usernames and keeps the
// moderation flags and notes staff attach to members.
//
// Every operation reads the whole map from the store, changes it in memory
// and writes it back while holding the key's lock. Nothing is cached between
// calls.
package links

import (
	"context"
	"sort"
	"strings"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/store"
)

// ManualPrefix marks links created by a whitelist addition that has no
// Discord member behind it.
const ManualPrefix = "manual_"

// ManualKey is the synthetic actor id for an out-of-band whitelist entry.
func ManualKey(username string) string {
	return ManualPrefix + username
}

// IsManual reports whether actorID was created by ManualKey.
func IsManual(actorID string) bool {
	return strings.HasPrefix(actorID, ManualPrefix)
}

// Link is one actor to username mapping.
type Link struct {
	ActorID  string
	Username string
}

// Registry is the link, flag and note store.
type Registry struct {
	store *store.Store
}

func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

type linkMap = map[string]string

func updateLinks(ctx context.Context, s *store.Store, fn func(linkMap) error) error {
	return store.Update(ctx, s, store.KeyLinks, func(m *linkMap) error {
		if *m == nil {
			*m = make(linkMap)
		}
		return fn(*m)
	})
}

// Link installs actorID → username, replacing any previous username for the
// actor. Collisions with other actors are left alone; use Relink to resolve
// them.
func (r *Registry) Link(ctx context.Context, actorID, username string) error {
	return errors.Trace(updateLinks(ctx, r.store, func(m linkMap) error {
		m[actorID] = username
		return nil
	}))
}

// Relink points actorID at username. Any other actor holding the same
// username (case-insensitive) is removed first so exactly one actor maps to
// it afterwards. It returns the actor's previous username and the actor that
// was displaced, either of which may be empty.
func (r *Registry) Relink(ctx context.Context, actorID, username string) (previous, displaced string, err error) {
	err = updateLinks(ctx, r.store, func(m linkMap) error {
		previous = m[actorID]
		for holder, name := range m {
			if holder != actorID && strings.EqualFold(name, username) {
				displaced = holder
				delete(m, holder)
			}
		}
		m[actorID] = username
		return nil
	})
	if err != nil {
		return "", "", errors.Trace(err)
	}
	return previous, displaced, nil
}

// Unlink removes the actor's link and returns the username it held.
func (r *Registry) Unlink(ctx context.Context, actorID string) (string, error) {
	var username string
	err := updateLinks(ctx, r.store, func(m linkMap) error {
		name, ok := m[actorID]
		if !ok {
			return errors.NotFoundf("link for %q", actorID)
		}
		username = name
		delete(m, actorID)
		return nil
	})
	return username, errors.Trace(err)
}

// UnlinkUsername removes every link to username (case-insensitive) and
// returns the actors that held it.
func (r *Registry) UnlinkUsername(ctx context.Context, username string) ([]string, error) {
	var removed []string
	err := updateLinks(ctx, r.store, func(m linkMap) error {
		for actor, name := range m {
			if strings.EqualFold(name, username) {
				removed = append(removed, actor)
				delete(m, actor)
			}
		}
		return nil
	})
	sort.Strings(removed)
	return removed, errors.Trace(err)
}

// FindByActor returns the username linked to actorID.
func (r *Registry) FindByActor(ctx context.Context, actorID string) (string, error) {
	m, err := store.Read[linkMap](ctx, r.store, store.KeyLinks)
	if err != nil {
		return "", errors.Trace(err)
	}
	name, ok := m[actorID]
	if !ok {
		return "", errors.NotFoundf("link for %q", actorID)
	}
	return name, nil
}

// FindByUsername returns the actor linked to username, compared
// case-insensitively. Real members win over manual entries.
func (r *Registry) FindByUsername(ctx context.Context, username string) (string, error) {
	all, err := r.All(ctx)
	if err != nil {
		return "", errors.Trace(err)
	}
	found := ""
	for _, l := range all {
		if !strings.EqualFold(l.Username, username) {
			continue
		}
		if found == "" || IsManual(found) {
			found = l.ActorID
		}
	}
	if found == "" {
		return "", errors.NotFoundf("player %q", username)
	}
	return found, nil
}

// All lists every link sorted by username.
func (r *Registry) All(ctx context.Context) ([]Link, error) {
	m, err := store.Read[linkMap](ctx, r.store, store.KeyLinks)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]Link, 0, len(m))
	for actor, name := range m {
		out = append(out, Link{ActorID: actor, Username: name})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Username), strings.ToLower(out[j].Username)
		if a != b {
			return a < b
		}
		return out[i].ActorID < out[j].ActorID
	})
	return out, nil
}
