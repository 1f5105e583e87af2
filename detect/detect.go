// Package detect locates a build output directory when the user does not
// name one explicitly.
package detect

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// candidates are probed in order; the most recently modified non-empty
// directory wins. The list covers the common bundler and framework
// output locations.
var candidates = []string{
	"dist",
	"build",
	"out",
	"public",
	".next",
	".output",
	".svelte-kit",
	"_site",
	"www",
}

// ErrNoOutputDir is returned when none of the known output locations
// exists under the project root.
var ErrNoOutputDir = errors.New("detect: no build output directory found")

// OutputDir returns the build output directory under root. Only known
// locations are considered; an explicit configuration value should
// bypass this entirely.
func OutputDir(root string) (string, error) {
	var best string
	var bestMod time.Time

	for _, name := range candidates {
		dir := filepath.Join(root, name)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if empty, err := isEmpty(dir); err != nil || empty {
			continue
		}
		mod := newestFile(dir)
		if best == "" || mod.After(bestMod) {
			best, bestMod = dir, mod
		}
	}

	if best == "" {
		return "", ErrNoOutputDir
	}
	slog.Debug("detected output directory", "dir", best)
	return best, nil
}

func isEmpty(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if err != nil && len(names) == 0 {
		return true, nil
	}
	return len(names) == 0, nil
}

// newestFile finds the latest modification time among the directory's
// files. A directory whose files cannot be read falls back to its own
// mtime.
func newestFile(dir string) time.Time {
	info, err := os.Stat(dir)
	var newest time.Time
	if err == nil {
		newest = info.ModTime()
	}
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
		return nil
	})
	return newest
}
