package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	root := writeTree(t, map[string]string{
		"a.js": strings.Repeat("var a = 1;\n", 100),
	})

	opts := Options{Gzip: true, Brotli: true, Cache: cache}
	first, err := Directory(context.Background(), root, "x", opts)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}

	// Second scan should be served from the cache and match exactly.
	second, err := Directory(context.Background(), root, "x", opts)
	if err != nil {
		t.Fatalf("Directory (cached): %v", err)
	}
	if first.Files[0] != second.Files[0] {
		t.Errorf("cached entry differs: %+v vs %+v", first.Files[0], second.Files[0])
	}
}

func TestCacheInvalidatedOnChange(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	root := writeTree(t, map[string]string{"a.js": strings.Repeat("x", 1000)})
	opts := Options{Gzip: true, Cache: cache}

	first, err := Directory(context.Background(), root, "x", opts)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}

	// Rewriting the file with different content of a different size
	// must produce a key miss and fresh measurement.
	if err := os.WriteFile(filepath.Join(root, "a.js"), []byte(strings.Repeat("yz", 1000)), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	second, err := Directory(context.Background(), root, "x", opts)
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if first.Files[0].Gzip == second.Files[0].Gzip && first.Files[0].Size == second.Files[0].Size {
		t.Errorf("stale cache entry survived a content change")
	}
}

func TestCacheLookupMiss(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	if _, _, ok := cache.Lookup(walkedFile{rel: "nope.js", size: 1}, true, false); ok {
		t.Error("unexpected hit for unknown key")
	}
}

func TestCacheKeyedByEnabledMetrics(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	root := writeTree(t, map[string]string{"a.js": strings.Repeat("var a = 1;\n", 100)})

	// First scan without brotli caches Brotli = 0 for the file.
	if _, err := Directory(context.Background(), root, "x", Options{Gzip: true, Cache: cache}); err != nil {
		t.Fatalf("Directory: %v", err)
	}

	// A later scan with brotli on must not be served the stale zero.
	stats, err := Directory(context.Background(), root, "x", Options{Gzip: true, Brotli: true, Cache: cache})
	if err != nil {
		t.Fatalf("Directory: %v", err)
	}
	if got := stats.Files[0].Brotli; got <= 0 {
		t.Errorf("Brotli = %d, want fresh measurement", got)
	}
}
