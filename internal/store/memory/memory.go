package memory

import (
	"context"
	"sync"

	"github.com/juju/errors"
)

// Backend keeps values in process memory. Nothing survives a restart, so it
// is only suitable for tests and dry runs.
type Backend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{values: make(map[string][]byte)}
}

func (b *Backend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	if !ok {
		return nil, errors.NotFoundf("key %q", key)
	}
	return append([]byte(nil), v...), nil
}

func (b *Backend) Save(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = append([]byte(nil), value...)
	return nil
}

func (b *Backend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

func (b *Backend) Keys(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys, nil
}

func (b *Backend) Close() error { return nil }
