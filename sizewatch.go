// Package sizewatch tracks build output size in CI: it measures the
// build directory, compares it against a baseline published from the
// default branch, and reports the result on the pull request.
package sizewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sizewatch/sizewatch/baseline"
	"github.com/sizewatch/sizewatch/bundlestats"
	"github.com/sizewatch/sizewatch/buildrun"
	"github.com/sizewatch/sizewatch/ci"
	"github.com/sizewatch/sizewatch/comment"
	"github.com/sizewatch/sizewatch/config"
	"github.com/sizewatch/sizewatch/detect"
	"github.com/sizewatch/sizewatch/diff"
	"github.com/sizewatch/sizewatch/report"
	"github.com/sizewatch/sizewatch/scan"
	"github.com/sizewatch/sizewatch/store"
)

// ErrMissingStore is returned when the pipeline runs without an
// artifact store.
var ErrMissingStore = errors.New("sizewatch: artifact store is required")

// Deps holds the pipeline's external collaborators. Store is required;
// the rest have working defaults.
type Deps struct {
	Store    store.Store
	Comments comment.Provider // nil disables PR commenting
	Runner   buildrun.Runner  // nil runs commands via os/exec
}

// Run executes the full pipeline rooted at root: build, measure,
// compare against the baseline (or publish a new one on trunk runs),
// and emit outputs, the job summary, and the PR comment.
//
// A failing size check is reported in the returned result's Status, not
// as an error; errors mean the pipeline itself could not complete.
func Run(ctx context.Context, root string, cfg config.Config, run *ci.RunContext, deps Deps) (diff.Result, error) {
	if deps.Store == nil {
		return diff.Result{}, ErrMissingStore
	}

	if err := build(ctx, root, cfg, deps.Runner); err != nil {
		return diff.Result{}, fmt.Errorf("build: %w", err)
	}

	current, err := measure(ctx, root, cfg, run)
	if err != nil {
		return diff.Result{}, err
	}

	opts := diff.Options{
		GzipEnabled:         cfg.Gzip,
		BrotliEnabled:       cfg.Brotli,
		BudgetMaxIncreaseKB: cfg.BudgetMaxIncreaseKB,
		WarnAboveKB:         cfg.WarnAboveKB,
		FailAboveKB:         cfg.FailAboveKB,
	}

	var result diff.Result
	if run.IsTrunk() {
		if err := baseline.NewPublisher(deps.Store).Publish(ctx, current); err != nil {
			return diff.Result{}, fmt.Errorf("publish baseline: %w", err)
		}
		result = diff.Compute(nil, current, opts)
		result.MarkBaselineUpdated()
	} else {
		base, err := loadBaseline(ctx, cfg, run, deps.Store)
		if err != nil {
			return diff.Result{}, err
		}
		result = diff.Compute(base, current, opts)
	}

	if err := report.WriteOutputs(run.OutputPath, result); err != nil {
		return result, fmt.Errorf("write outputs: %w", err)
	}
	if err := report.AppendSummary(run.SummaryPath, result); err != nil {
		return result, fmt.Errorf("write summary: %w", err)
	}

	if run.IsPullRequest() && deps.Comments != nil {
		body := report.Comment(result)
		if err := comment.Upsert(ctx, deps.Comments, run.PRNumber, report.Marker, body); err != nil {
			if cfg.FailOnCommentError {
				return result, fmt.Errorf("post comment: %w", err)
			}
			slog.Warn("could not post PR comment", "error", err)
		}
	}
	return result, nil
}

func build(ctx context.Context, root string, cfg config.Config, runner buildrun.Runner) error {
	if cfg.CleanBeforeBuild && cfg.Directory != "" {
		dir := filepath.Join(root, cfg.Directory)
		slog.Debug("cleaning output directory", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}
	return buildrun.Build(ctx, cfg.BuildCommand, buildrun.Options{
		Dir:     root,
		Shell:   cfg.Shell,
		Timeout: cfg.BuildTimeout,
		Runner:  runner,
	})
}

func measure(ctx context.Context, root string, cfg config.Config, run *ci.RunContext) (*bundlestats.Stats, error) {
	dir := cfg.Directory
	if dir == "" {
		detected, err := detect.OutputDir(root)
		if err != nil {
			return nil, err
		}
		dir = detected
	} else {
		dir = filepath.Join(root, dir)
	}

	scanOpts := scan.Options{Gzip: cfg.Gzip, Brotli: cfg.Brotli}
	if cfg.CacheDir != "" {
		cache, err := scan.OpenCache(cfg.CacheDir)
		if err != nil {
			slog.Warn("could not open size cache, scanning without it", "error", err)
		} else {
			defer cache.Close()
			scanOpts.Cache = cache
		}
	}
	return scan.Directory(ctx, dir, run.SHA, scanOpts)
}

// loadBaseline finds and extracts the baseline record. Search failures
// and unusable artifacts degrade to a nil baseline so a missing or
// broken reference never blocks the PR. The extractor's hard failures
// (oversized download, malformed record) propagate and abort the run.
func loadBaseline(ctx context.Context, cfg config.Config, run *ci.RunContext, s store.Store) (*bundlestats.Stats, error) {
	branches := cfg.Branches
	if len(branches) == 0 {
		branches = run.BaselineBranches()
	}

	ref, err := baseline.NewFinder(s).Find(ctx, baseline.FindRequest{
		WorkflowFile: run.WorkflowFile,
		WorkflowName: run.WorkflowName,
		Branches:     branches,
		PageBudget:   cfg.MaxArtifactPages,
	})
	if err != nil {
		if !errors.Is(err, baseline.ErrNoBaseline) {
			slog.Warn("baseline search failed", "error", err)
		}
		return nil, nil
	}

	stats, err := baseline.NewExtractor(s, "").Load(ctx, ref)
	if err != nil {
		if errors.Is(err, baseline.ErrNoBaseline) {
			slog.Warn("baseline artifact unusable, comparing without one", "artifact", ref.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("load baseline artifact %d: %w", ref.ID, err)
	}
	return stats, nil
}
