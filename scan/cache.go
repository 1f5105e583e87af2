package scan

import (
	"encoding/json"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Cache memoizes compressed sizes across runs. Entries are keyed by
// relative path, raw size, and mtime, so any touch of a file invalidates
// its entry. Cache misses and storage errors are never fatal: the worst
// case is recompression.
type Cache struct {
	db *badger.DB
}

type cacheEntry struct {
	Gzip   int64 `json:"gzip"`
	Brotli int64 `json:"brotli"`
}

// OpenCache opens (or creates) the measurement cache at dir.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open measurement cache at %q: %w", dir, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the cache.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey includes the enabled metrics: a run with a dimension off
// caches zeros for it, and those must never be served to a run that has
// the dimension on.
func cacheKey(f walkedFile, gzipOn, brotliOn bool) []byte {
	return []byte(fmt.Sprintf("%s|%d|%d|%t|%t", f.rel, f.size, f.mod, gzipOn, brotliOn))
}

// Lookup returns the cached sizes for f, if present.
func (c *Cache) Lookup(f walkedFile, gzipOn, brotliOn bool) (gz, br int64, ok bool) {
	var entry cacheEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(f, gzipOn, brotliOn))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return 0, 0, false
	}
	return entry.Gzip, entry.Brotli, true
}

// Store records the measured sizes for f.
func (c *Cache) Store(f walkedFile, gzipOn, brotliOn bool, gz, br int64) {
	val, err := json.Marshal(cacheEntry{Gzip: gz, Brotli: br})
	if err != nil {
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(f, gzipOn, brotliOn), val)
	})
	if err != nil {
		slog.Debug("measurement cache write failed", "path", f.rel, "error", err)
	}
}
