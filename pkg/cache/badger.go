package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache is an embedded on-disk cache for single-instance deployments
// that want client lookups to survive a restart without running redis.
type BadgerCache struct {
	db         *badger.DB
	defaultTTL time.Duration
	done       chan struct{}
}

// NewBadgerCache opens (or creates) a badger database at dir.
// An empty dir opens an in-memory instance.
func NewBadgerCache(dir string, defaultTTL time.Duration) (*BadgerCache, error) {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(dir).
			WithNumVersionsToKeep(1).
			WithValueLogFileSize(32 << 20)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}
	bc := &BadgerCache{db: db, defaultTTL: defaultTTL, done: make(chan struct{})}
	if dir != "" {
		go bc.gcLoop(10 * time.Minute)
	}
	return bc, nil
}

func (bc *BadgerCache) gcLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-bc.done:
			return
		case <-ticker.C:
			for bc.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func (bc *BadgerCache) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: badger get: %w", err)
	}
	return out, nil
}

func (bc *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = bc.defaultTTL
	}
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("cache: badger set: %w", err)
	}
	return nil
}

func (bc *BadgerCache) Delete(_ context.Context, key string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("cache: badger delete: %w", err)
	}
	return nil
}

func (bc *BadgerCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := bc.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (bc *BadgerCache) Close() error {
	select {
	case <-bc.done:
	default:
		close(bc.done)
	}
	return bc.db.Close()
}

func (bc *BadgerCache) Ping(context.Context) error {
	if bc.db.IsClosed() {
		return errors.New("cache: badger is closed")
	}
	return nil
}
