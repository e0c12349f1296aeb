// Package analysiscache persists computed analysis results (dominance
// summaries, loop sets, dataflow fixed points) to an embedded badger
// database, keyed by a stable method identity, so a second analysis of the
// same method body can skip recomputation entirely.
//
// The cache stores opaque bytes: callers gob-encode their own
// dataflow.Results[T] (or any other serializable summary) before calling
// Put, and decode what Get returns. analysiscache itself never needs to know
// the concrete lattice type T, since badger's value store works over
// []byte.
package analysiscache

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/txpull/flowcore/options"
)

// ErrNotFound is returned by Get when key is absent from the cache.
var ErrNotFound = errors.New("analysiscache: key not found")

// Cache wraps a badger database dedicated to analysis results.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) the badger database at the configured path and,
// when GCIntervalM is positive, starts its periodic value-log garbage
// collection every GCIntervalM minutes.
func Open(opts options.AnalysisCache) (*Cache, error) {
	badgerOpts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.ValueLogMaxSize > 0 {
		badgerOpts = badgerOpts.WithValueLogFileSize(opts.ValueLogMaxSize)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db}

	if opts.GCIntervalM > 0 {
		go c.runGC(opts.GCIntervalM * time.Minute)
	}

	return c, nil
}

func (c *Cache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
	again:
		err := c.db.RunValueLogGC(0.5)
		if err == nil {
			goto again
		}
		if err != badger.ErrNoRewrite {
			zap.L().Warn("analysiscache: value log gc failed", zap.Error(err))
		}
	}
}

// Close flushes and closes the underlying badger database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores value under key, overwriting any prior entry.
func (c *Cache) Put(key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Get retrieves the bytes stored under key, or ErrNotFound if absent.
func (c *Cache) Get(key string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes key from the cache. Deleting an absent key is not an
// error.
func (c *Cache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
