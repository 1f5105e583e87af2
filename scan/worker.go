package scan

import (
	"compress/gzip"
	"context"
	"io"
	"sync"

	"github.com/andybalholm/brotli"

	"github.com/sizewatch/sizewatch/bundlestats"
)

// measureAll runs the compression pool: workers pull files from a shared
// channel, measure them independently, and the caller waits for completion
// before totals are computed.
func measureAll(ctx context.Context, dir string, files []walkedFile, opts Options) ([]bundlestats.FileEntry, error) {
	jobs := make(chan walkedFile)
	entries := make([]bundlestats.FileEntry, 0, len(files))

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup

	for range opts.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				entry, err := measureOne(f, opts)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					entries = append(entries, entry)
				}
				mu.Unlock()
			}
		}()
	}

	feed := func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}
	feed()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return entries, nil
}

// measureOne computes the compressed sizes for a single file, consulting
// the cache first when configured.
func measureOne(f walkedFile, opts Options) (bundlestats.FileEntry, error) {
	if opts.Cache != nil {
		if gz, br, ok := opts.Cache.Lookup(f, opts.Gzip, opts.Brotli); ok {
			return entryFor(f, gz, br), nil
		}
	}

	gz, br, err := compressedSizes(f.abs, opts.Gzip, opts.Brotli)
	if err != nil {
		return bundlestats.FileEntry{}, err
	}

	if opts.Cache != nil {
		opts.Cache.Store(f, opts.Gzip, opts.Brotli, gz, br)
	}
	return entryFor(f, gz, br), nil
}

// compressedSizes streams the file once through the enabled compressors,
// counting output bytes instead of buffering them.
func compressedSizes(path string, gzipOn, brotliOn bool) (gz, br int64, err error) {
	if !gzipOn && !brotliOn {
		return 0, 0, nil
	}

	f, err := openFile(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var writers []io.Writer
	var gzCount, brCount countingWriter
	var gzw *gzip.Writer
	var brw *brotli.Writer

	if gzipOn {
		gzw = gzip.NewWriter(&gzCount)
		writers = append(writers, gzw)
	}
	if brotliOn {
		brw = brotli.NewWriter(&brCount)
		writers = append(writers, brw)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), f); err != nil {
		return 0, 0, err
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			return 0, 0, err
		}
	}
	if brw != nil {
		if err := brw.Close(); err != nil {
			return 0, 0, err
		}
	}

	return int64(gzCount), int64(brCount), nil
}

type countingWriter int64

func (w *countingWriter) Write(p []byte) (int, error) {
	*w += countingWriter(len(p))
	return len(p), nil
}
