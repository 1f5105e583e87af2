package baseline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sizewatch/sizewatch/bundlestats"
	swhttp "github.com/sizewatch/sizewatch/http"
	"github.com/sizewatch/sizewatch/retry"
	"github.com/sizewatch/sizewatch/store"
)

// Resource ceilings for artifact extraction.
const (
	// MaxDownloadBytes caps the downloaded archive size. Exceeding it is
	// a hard failure: a 50 MB baseline archive means something upstream
	// is broken, not merely stale.
	MaxDownloadBytes = 50 << 20

	// MaxUnzippedBytes caps cumulative decompressed content across all
	// entries, the zip-bomb guard.
	MaxUnzippedBytes = 200 << 20
)

// ErrArtifactTooLarge indicates the downloaded archive exceeded
// MaxDownloadBytes. Unlike extraction problems, this aborts the run.
var ErrArtifactTooLarge = errors.New("baseline artifact exceeds download size ceiling")

// Extractor downloads a baseline artifact and loads its measurement
// record. Corrupt or foreign archives degrade to ErrNoBaseline; only an
// oversized download or a malformed record file fails hard.
type Extractor struct {
	store   store.Store
	retry   retry.Policy
	tempDir string
}

// NewExtractor creates an extractor. Sandboxes are created under tempDir,
// or the system temp directory when empty.
func NewExtractor(s store.Store, tempDir string) *Extractor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Extractor{store: s, tempDir: tempDir}
}

// Load downloads ref and returns its measurement record.
func (e *Extractor) Load(ctx context.Context, ref store.ArtifactRef) (*bundlestats.Stats, error) {
	data, err := retry.DoValue(ctx, e.retry, func(ctx context.Context) ([]byte, error) {
		return e.store.Download(ctx, ref, MaxDownloadBytes)
	})
	if err != nil {
		if swhttp.IsNotFound(err) {
			// Gone between listing and download, most often an
			// expiration race. Routine, not worth a warning.
			slog.Debug("baseline artifact no longer exists", "artifact", ref.ID)
		} else {
			slog.Warn("baseline download failed, treating as no baseline", "artifact", ref.ID, "error", err)
		}
		return nil, ErrNoBaseline
	}

	if int64(len(data)) > MaxDownloadBytes {
		return nil, fmt.Errorf("artifact %d is over %d bytes: %w", ref.ID, int64(MaxDownloadBytes), ErrArtifactTooLarge)
	}
	if len(data) == 0 {
		slog.Warn("baseline artifact download was empty", "artifact", ref.ID)
		return nil, ErrNoBaseline
	}

	sandbox, err := e.newSandbox()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(sandbox)

	if err := extractZip(data, sandbox); err != nil {
		slog.Warn("baseline archive extraction failed, treating as no baseline",
			"artifact", ref.ID, "error", err)
		return nil, ErrNoBaseline
	}

	recordPath := filepath.Join(sandbox, bundlestats.RecordFileName)
	record, err := os.ReadFile(recordPath)
	if err != nil {
		slog.Warn("baseline artifact carries no stats record", "artifact", ref.ID)
		return nil, ErrNoBaseline
	}

	// A present but unreadable record is a hard failure: the artifact is
	// ours and its content contract is broken.
	stats, err := bundlestats.Decode(record)
	if err != nil {
		return nil, fmt.Errorf("artifact %d: %w", ref.ID, err)
	}
	return stats, nil
}

// newSandbox creates a fresh extraction directory, unique per invocation.
func (e *Extractor) newSandbox() (string, error) {
	id, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate sandbox id: %w", err)
	}
	dir := filepath.Join(e.tempDir, "sizewatch-baseline-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sandbox: %w", err)
	}
	return dir, nil
}

// extractZip decompresses entries into the sandbox, skipping entries that
// resolve outside it and aborting once decompressed content would exceed
// MaxUnzippedBytes.
func extractZip(data []byte, sandbox string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	var declared int64
	var written int64
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		target, ok := containedPath(sandbox, entry.Name)
		if !ok {
			slog.Warn("skipping archive entry escaping the sandbox", "entry", entry.Name)
			continue
		}

		// Declared sizes catch the cheap case before any bytes are
		// inflated; the write-side accounting below catches archives
		// that lie in their headers.
		declared += int64(entry.UncompressedSize64)
		if declared > MaxUnzippedBytes {
			return fmt.Errorf("declared decompressed size exceeds %d bytes", int64(MaxUnzippedBytes))
		}

		n, err := writeEntry(entry, target, MaxUnzippedBytes-written)
		if err != nil {
			return err
		}
		written += n
		if written > MaxUnzippedBytes {
			return fmt.Errorf("decompressed content exceeds %d bytes", int64(MaxUnzippedBytes))
		}
	}
	return nil
}

// containedPath resolves an archive entry name inside the sandbox and
// reports whether it stays there.
func containedPath(sandbox, name string) (string, bool) {
	if filepath.IsAbs(name) {
		return "", false
	}
	target := filepath.Join(sandbox, filepath.FromSlash(name))
	rel, err := filepath.Rel(sandbox, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// writeEntry materializes one entry, reading at most budget+1 bytes so an
// over-budget entry is detected without inflating it fully.
func writeEntry(entry *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := entry.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %q: %w", entry.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", target, err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		return n, fmt.Errorf("extract entry %q: %w", entry.Name, err)
	}
	return n, nil
}
