// Package scan measures a build output directory: it walks the tree,
// then computes raw, gzip, and brotli sizes for every regular file with a
// small bounded worker pool.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/sizewatch/sizewatch/bundlestats"
)

// DefaultWorkers bounds the compression worker pool.
const DefaultWorkers = 4

// Options configures a directory measurement.
type Options struct {
	// Gzip and Brotli toggle the respective compressed measurements.
	// Disabled dimensions are recorded as 0.
	Gzip   bool
	Brotli bool

	// Workers bounds the compression pool; DefaultWorkers when 0.
	Workers int

	// Cache, when non-nil, memoizes compressed sizes across runs keyed
	// by path, size, and mtime.
	Cache *Cache
}

func (o Options) workers() int {
	if o.Workers <= 0 || o.Workers > DefaultWorkers {
		return DefaultWorkers
	}
	return o.Workers
}

// Directory measures every regular file under dir and returns the
// resulting record. File ordering in the record is deterministic (sorted
// by path) regardless of walk or worker interleaving.
func Directory(ctx context.Context, dir, commit string, opts Options) (*bundlestats.Stats, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	entries, err := measureAll(ctx, dir, files, opts)
	if err != nil {
		return nil, err
	}

	return bundlestats.New(entries, commit), nil
}

// walkedFile is one unit of measurement work.
type walkedFile struct {
	rel  string
	abs  string
	size int64
	mod  int64 // mtime in unixnano, cache key component
}

// listFiles walks dir and returns its regular files. fastwalk invokes the
// callback concurrently, so collection is mutex-guarded.
func listFiles(dir string) ([]walkedFile, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", dir, err)
	}

	var mu sync.Mutex
	var files []walkedFile

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal: a vanished
			// temp file must not kill the measurement.
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		mu.Lock()
		files = append(files, walkedFile{
			rel:  filepath.ToSlash(rel),
			abs:  path,
			size: info.Size(),
			mod:  info.ModTime().UnixNano(),
		})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", dir, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found under %q", dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// entryFor assembles the record entry for a measured file.
func entryFor(f walkedFile, gz, br int64) bundlestats.FileEntry {
	return bundlestats.FileEntry{
		Path:   f.rel,
		Name:   filepath.Base(f.abs),
		Size:   f.size,
		Gzip:   gz,
		Brotli: br,
	}
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return f, nil
}
