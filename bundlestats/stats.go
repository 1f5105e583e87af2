// Package bundlestats defines the measurement record for a build's compiled
// output: per-file raw, gzip, and brotli byte counts plus aggregate totals.
//
// A Stats value is created once per build and treated as read-only
// afterwards. Totals are always recomputed from the file entries, never
// mutated independently.
package bundlestats

import (
	"sort"
	"time"
)

// UnknownCommit is recorded when the revision cannot be determined.
const UnknownCommit = "unknown"

// FileEntry holds the measured sizes for a single output file.
type FileEntry struct {
	// Path is the file path relative to the measured output directory.
	// Unique within a Stats record.
	Path string `json:"path"`

	// Name is the base name of the file.
	Name string `json:"name"`

	// Size is the raw byte count.
	Size int64 `json:"size"`

	// Gzip is the gzip-compressed byte count, 0 when gzip measurement
	// was disabled.
	Gzip int64 `json:"gzip"`

	// Brotli is the brotli-compressed byte count, 0 when brotli
	// measurement was disabled.
	Brotli int64 `json:"brotli"`
}

// Stats is an immutable snapshot of a build's output sizes.
type Stats struct {
	Files []FileEntry `json:"files"`

	TotalSize   int64 `json:"totalSize"`
	TotalGzip   int64 `json:"totalGzip"`
	TotalBrotli int64 `json:"totalBrotli"`

	// Timestamp records when the snapshot was taken. Informational only;
	// baseline selection never compares timestamps.
	Timestamp time.Time `json:"timestamp"`

	// Commit is the revision the build was produced from, UnknownCommit
	// if unavailable.
	Commit string `json:"commit"`
}

// New builds a Stats record from file entries, sorting them by path and
// recomputing the aggregate totals. An empty commit is normalized to
// UnknownCommit.
func New(files []FileEntry, commit string) *Stats {
	if commit == "" {
		commit = UnknownCommit
	}

	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	s := &Stats{
		Files:     sorted,
		Timestamp: time.Now().UTC(),
		Commit:    commit,
	}
	s.recomputeTotals()
	return s
}

func (s *Stats) recomputeTotals() {
	s.TotalSize, s.TotalGzip, s.TotalBrotli = 0, 0, 0
	for _, f := range s.Files {
		s.TotalSize += f.Size
		s.TotalGzip += f.Gzip
		s.TotalBrotli += f.Brotli
	}
}

// ByPath returns the entries indexed by relative path.
func (s *Stats) ByPath() map[string]FileEntry {
	m := make(map[string]FileEntry, len(s.Files))
	for _, f := range s.Files {
		m[f.Path] = f
	}
	return m
}
