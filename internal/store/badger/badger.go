package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	jujuerrors "github.com/juju/errors"
)

const gcInterval = 5 * time.Minute

// Backend stores every key in an embedded badger database. With no data dir
// the database lives in memory.
type Backend struct {
	db        *badger.DB
	logger    *slog.Logger
	dataDir   string
	gcEnabled bool
	gcTicker  *time.Ticker
	gcStopCh  chan struct{}
	gcWg      sync.WaitGroup
}

type OptionFunc func(*Backend)

// WithDataDir specifies the directory holding the database files
func WithDataDir(dataDir string) OptionFunc {
	return func(b *Backend) {
		b.dataDir = dataDir
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) OptionFunc {
	return func(b *Backend) {
		b.gcEnabled = enabled
	}
}

// New opens the database.
func New(opts ...OptionFunc) (*Backend, error) {
	b := &Backend{gcEnabled: true}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var badgerOpts badger.Options
	if b.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		// nothing to collect without a value log on disk
		b.gcEnabled = false
	} else {
		if _, err := os.Stat(b.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(b.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(b.dataDir, "kv"))
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(b.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	b.db = db

	if b.gcEnabled {
		b.gcTicker = time.NewTicker(gcInterval)
		b.gcStopCh = make(chan struct{})
		b.gcWg.Add(1)
		go b.valueLogGc(b.gcTicker, b.gcStopCh)
	}
	return b, nil
}

func (b *Backend) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer b.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := b.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just ran successfully
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					b.logger.Warn(
						fmt.Sprintf("kv store: GC failure: %s", err),
						"component", "store",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

func (b *Backend) Load(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, jujuerrors.NotFoundf("key %q", key)
	}
	return out, err
}

func (b *Backend) Save(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Backend) Remove(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *Backend) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Close stops GC and closes the database handle.
func (b *Backend) Close() error {
	if b.gcTicker != nil {
		b.gcTicker.Stop()
		close(b.gcStopCh)
		b.gcWg.Wait()
		b.gcTicker = nil
	}
	return b.db.Close()
}

// badgerLogger routes badger's printf-style logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...), "component", "badger")
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...), "component", "badger")
}
