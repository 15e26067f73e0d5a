package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/im7mortal/kmutex"
	"github.com/juju/errors"
)

// Backend persists raw values by key. Implementations report a missing key
// with an error satisfying errors.Is(err, errors.NotFound).
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// ErrCorrupt marks a stored value that cannot be decoded into the
// requested type.
const ErrCorrupt = errors.ConstError("stored value corrupt")

// Store is the single source of truth for every component. Values are JSON
// encoded. There are no cross-key transactions; writers to the same key are
// serialized through a per-key lock so read-modify-write sequences made with
// Update never lose each other's changes.
type Store struct {
	backend Backend
	locks   *kmutex.Kmutex
}

// New wraps a backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		locks:   kmutex.New(),
	}
}

// Get decodes the value stored under key into dst.
func (s *Store) Get(ctx context.Context, key string, dst any) error {
	raw, err := s.backend.Load(ctx, key)
	if err != nil {
		return errors.Trace(err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.WithType(errors.Annotatef(err, "decoding %q", key), ErrCorrupt)
	}
	return nil
}

// Set replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	unlock := s.lock(key)
	defer unlock()
	return s.set(ctx, key, value)
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Annotatef(err, "encoding %q", key)
	}
	return errors.Trace(s.backend.Save(ctx, key, raw))
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	unlock := s.lock(key)
	defer unlock()
	err := s.backend.Remove(ctx, key)
	if err != nil && !errors.Is(err, errors.NotFound) {
		return errors.Trace(err)
	}
	return nil
}

// Keys lists every stored key in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) lock(key string) func() {
	s.locks.Lock(key)
	return func() { s.locks.Unlock(key) }
}

// Read returns the value under key, or the zero value of T when the key has
// never been written.
func Read[T any](ctx context.Context, s *Store, key string) (T, error) {
	var out T
	err := s.Get(ctx, key, &out)
	if errors.Is(err, errors.NotFound) {
		var zero T
		return zero, nil
	}
	return out, errors.Trace(err)
}

// Update runs one read, one in-memory modification and one full rewrite of
// key while holding the key's lock. If fn returns an error nothing is
// written and the error is returned unchanged.
func Update[T any](ctx context.Context, s *Store, key string, fn func(*T) error) error {
	unlock := s.lock(key)
	defer unlock()

	value, err := Read[T](ctx, s, key)
	if err != nil {
		return errors.Trace(err)
	}
	if err := fn(&value); err != nil {
		return err
	}
	return s.set(ctx, key, value)
}
