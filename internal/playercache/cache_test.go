package playercache_test

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/playercache"
	"tysmp/whitelist/internal/store"
	"tysmp/whitelist/internal/store/memory"
)

type fakeLookup struct {
	calls  int
	result playercache.ProfileData
	err    error
}

func (f *fakeLookup) Fetch(_ context.Context, username string) (playercache.ProfileData, error) {
	f.calls++
	if f.err != nil {
		return playercache.ProfileData{}, f.err
	}
	out := f.result
	out.Name = username
	return out, nil
}

func newCache(t *testing.T, lookup playercache.Lookup) (*playercache.Cache, *testclock.Clock, *store.Store) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	s := store.New(memory.New())
	c, err := playercache.New(playercache.Config{Store: s, Lookup: lookup, Clock: clk})
	require.NoError(t, err)
	return c, clk, s
}

func TestCacheHitWithinTTL(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{result: playercache.ProfileData{UUID: "069a79f444e94726a5befca90e38aaf5"}}
	c, clk, _ := newCache(t, lookup)

	first, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	clk.Advance(playercache.TTL - time.Second)
	second, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)

	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, first, second)
}

func TestCacheRefetchAfterTTL(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{result: playercache.ProfileData{UUID: "old"}}
	c, clk, _ := newCache(t, lookup)

	_, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)

	clk.Advance(playercache.TTL)
	lookup.result.UUID = "new"
	got, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
	assert.Equal(t, "new", got.UUID)

	// the refreshed entry is served from cache again
	_, err = c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}

func TestNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{err: playercache.ErrNotFound}
	c, _, s := newCache(t, lookup)

	_, err := c.GetOrFetch(ctx, "Stev")
	assert.True(t, errors.Is(err, playercache.ErrNotFound), "got %v", err)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, store.KeyPlayerCache)

	lookup.err = nil
	lookup.result = playercache.ProfileData{UUID: "fresh"}
	got, err := c.GetOrFetch(ctx, "Stev")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.UUID)
	assert.Equal(t, 2, lookup.calls)
}

func TestTransientFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{result: playercache.ProfileData{UUID: "cached"}}
	c, clk, _ := newCache(t, lookup)

	_, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	clk.Advance(2 * playercache.TTL)

	lookup.err = errors.New("connection reset")
	_, err = c.GetOrFetch(ctx, "Notch")
	assert.True(t, errors.Is(err, playercache.ErrLookupFailed), "got %v", err)
	assert.ErrorContains(t, err, "connection reset")

	// the expired entry is still there and is replaced on the next success
	lookup.err = nil
	lookup.result.UUID = "replaced"
	got, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.UUID)
}

func TestUnreadableCacheIsRewritten(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{result: playercache.ProfileData{UUID: "abc"}}
	c, _, s := newCache(t, lookup)
	// a JSON string where a map is expected, as written by older deployments
	require.NoError(t, s.Set(ctx, store.KeyPlayerCache, `{"Notch": {}}`))

	got, err := c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.UUID)

	_, err = c.GetOrFetch(ctx, "Notch")
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
}

func TestConfigValidate(t *testing.T) {
	_, err := playercache.New(playercache.Config{})
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
}
