// Package playercache keeps Minecraft profile lookups in the store for an
// hour so repeated page loads do not hammer the profile API.
package playercache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tysmp/whitelist/internal/store"
)

const (
	// ErrNotFound means the lookup service has no such player. It is never
	// cached.
	ErrNotFound = errors.ConstError("player not found")
	// ErrLookupFailed wraps transient lookup failures.
	ErrLookupFailed = errors.ConstError("player lookup failed")
)

// TTL is how long a fetched profile stays valid.
const TTL = 3600 * time.Second

// ProfileData is what the lookup returns for a username.
type ProfileData struct {
	UUID    string          `json:"uuid"`
	Name    string          `json:"name"`
	Profile json.RawMessage `json:"profile,omitempty"`
}

// Lookup fetches a profile from the outside world. A missing player is
// reported with ErrNotFound; any other error is treated as transient.
type Lookup interface {
	Fetch(ctx context.Context, username string) (ProfileData, error)
}

type entry struct {
	Data      ProfileData `json:"data"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Cache wraps a Lookup with a TTL cache stored under the player_cache key.
type Cache struct {
	store  *store.Store
	lookup Lookup
	clock  clock.Clock
	logger *slog.Logger

	hits    prometheus.Counter
	misses  prometheus.Counter
	lookups *prometheus.CounterVec
}

// Config holds the collaborators of a Cache.
type Config struct {
	Store        *store.Store
	Lookup       Lookup
	Clock        clock.Clock
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Store == nil {
		return errors.NotValidf("nil Store")
	}
	if c.Lookup == nil {
		return errors.NotValidf("nil Lookup")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	factory := promauto.With(cfg.PromRegistry)
	return &Cache{
		store:  cfg.Store,
		lookup: cfg.Lookup,
		clock:  cfg.Clock,
		logger: logger.With("component", "playercache"),
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_player_cache_hits_total",
			Help: "Total number of player profile cache hits",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "whitelist_player_cache_misses_total",
			Help: "Total number of player profile cache misses",
		}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "whitelist_player_lookups_total",
			Help: "External player lookups by result",
		}, []string{"result"}),
	}, nil
}

// GetOrFetch returns the cached profile for username while it is fresh and
// otherwise asks the lookup, caching only successful answers.
func (c *Cache) GetOrFetch(ctx context.Context, username string) (ProfileData, error) {
	entries, err := store.Read[map[string]entry](ctx, c.store, store.KeyPlayerCache)
	if errors.Is(err, store.ErrCorrupt) {
		c.logger.Warn("ignoring unreadable player cache", "error", err)
		entries = nil
	} else if err != nil {
		return ProfileData{}, errors.Trace(err)
	}
	now := c.clock.Now()
	if e, ok := entries[username]; ok && now.Sub(e.FetchedAt) < TTL {
		c.hits.Inc()
		return e.Data, nil
	}
	c.misses.Inc()

	data, err := c.lookup.Fetch(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		c.lookups.WithLabelValues("not_found").Inc()
		return ProfileData{}, errors.Trace(err)
	case err != nil:
		c.lookups.WithLabelValues("failed").Inc()
		c.logger.Warn("player lookup failed", "username", username, "error", err)
		return ProfileData{}, errors.WithType(err, ErrLookupFailed)
	}
	c.lookups.WithLabelValues("found").Inc()

	err = store.Update(ctx, c.store, store.KeyPlayerCache, func(m *map[string]entry) error {
		if *m == nil {
			*m = make(map[string]entry)
		}
		(*m)[username] = entry{Data: data, FetchedAt: now}
		return nil
	})
	if errors.Is(err, store.ErrCorrupt) {
		// Start over; the unreadable value cannot be merged into.
		err = c.store.Set(ctx, store.KeyPlayerCache, map[string]entry{
			username: {Data: data, FetchedAt: now},
		})
	}
	if err != nil {
		return ProfileData{}, errors.Annotatef(err, "caching %q", username)
	}
	return data, nil
}
