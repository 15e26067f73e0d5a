package badger_test

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/store"
	"tysmp/whitelist/internal/store/badger"
)

func TestInMemoryRoundTrip(t *testing.T) {
	b, err := badger.New()
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	_, err = b.Load(ctx, "links")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	require.NoError(t, b.Save(ctx, "links", []byte(`{"42":"Steve"}`)))
	got, err := b.Load(ctx, "links")
	require.NoError(t, err)
	assert.JSONEq(t, `{"42":"Steve"}`, string(got))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"links"}, keys)

	require.NoError(t, b.Remove(ctx, "links"))
	_, err = b.Load(ctx, "links")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestDataDirSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := badger.New(badger.WithDataDir(dir), badger.WithGc(false))
	require.NoError(t, err)
	s := store.New(b)
	require.NoError(t, s.Set(ctx, store.KeyWhitelistCommand, "whitelist add"))
	require.NoError(t, s.Close())

	b, err = badger.New(badger.WithDataDir(dir), badger.WithGc(false))
	require.NoError(t, err)
	s = store.New(b)
	defer s.Close()

	var cmd string
	require.NoError(t, s.Get(ctx, store.KeyWhitelistCommand, &cmd))
	assert.Equal(t, "whitelist add", cmd)
}
