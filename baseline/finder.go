// Package baseline locates, loads, and publishes the stored baseline
// measurement artifact.
//
// The finder tries a targeted workflow-run search first and falls back to a
// bounded repo-wide artifact scan. The extractor unpacks a downloaded
// archive into a sandbox with containment and size ceilings. The publisher
// uploads the current record as the new baseline; it never overwrites, so
// "which artifact is the baseline" is entirely the finder's problem.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	swhttp "github.com/sizewatch/sizewatch/http"
	"github.com/sizewatch/sizewatch/retry"
	"github.com/sizewatch/sizewatch/store"
)

// ArtifactName is the fixed name baseline artifacts are stored under.
const ArtifactName = "sizewatch-baseline"

// DefaultSearchPageBudget bounds the repo-wide fallback scan.
const DefaultSearchPageBudget = 10

// runSearchLimit bounds how many recent runs per branch the targeted
// search inspects.
const runSearchLimit = 30

// ErrNoBaseline indicates no usable baseline artifact exists. This is the
// normal first-run condition, not a failure.
var ErrNoBaseline = errors.New("no baseline artifact found")

// Finder locates the most relevant baseline artifact. "Most relevant" is
// the first match in branch-priority then recency order, not the newest by
// wall clock across branches.
type Finder struct {
	store store.Store
	retry retry.Policy
}

// NewFinder creates a finder over the given store.
func NewFinder(s store.Store) *Finder {
	return &Finder{store: s}
}

// FindRequest identifies the current workflow and the branches to search.
type FindRequest struct {
	// WorkflowFile is the running workflow's file base name (e.g.
	// "ci.yml"), matched against workflow paths first.
	WorkflowFile string

	// WorkflowName is the display name, used when no file match exists.
	WorkflowName string

	// Branches are the candidate branches in priority order.
	Branches []string

	// PageBudget caps the repo-wide fallback scan;
	// DefaultSearchPageBudget when 0.
	PageBudget int
}

// Find returns the first non-expired baseline artifact in branch-priority
// then recency order, or ErrNoBaseline. Remote failures inside the search
// degrade rather than fail: the targeted path falls back to the repo-wide
// scan, and scan failures surface as ErrNoBaseline with a logged warning.
func (f *Finder) Find(ctx context.Context, req FindRequest) (store.ArtifactRef, error) {
	if ref, ok := f.findViaWorkflowRuns(ctx, req); ok {
		return ref, nil
	}
	return f.findViaRepoScan(ctx, req)
}

// findViaWorkflowRuns is the targeted path: resolve our workflow, then
// walk each candidate branch's recent runs looking for the artifact.
func (f *Finder) findViaWorkflowRuns(ctx context.Context, req FindRequest) (store.ArtifactRef, bool) {
	workflowID, err := f.resolveWorkflow(ctx, req.WorkflowFile, req.WorkflowName)
	if err != nil {
		slog.Warn("could not resolve current workflow, skipping targeted search", "error", err)
		return store.ArtifactRef{}, false
	}

	for _, branch := range req.Branches {
		runs, err := retry.DoValue(ctx, f.retry, func(ctx context.Context) ([]store.Run, error) {
			return f.store.ListRuns(ctx, workflowID, branch, runSearchLimit)
		})
		if err != nil {
			slog.Warn("listing workflow runs failed", "branch", branch, "error", err)
			continue
		}

		for _, run := range runs {
			artifacts, err := retry.DoValue(ctx, f.retry, func(ctx context.Context) ([]store.ArtifactRef, error) {
				return f.store.ListRunArtifacts(ctx, run.ID)
			})
			if err != nil {
				slog.Warn("listing run artifacts failed", "run", run.ID, "error", err)
				continue
			}

			for _, a := range artifacts {
				if a.Name == ArtifactName && !a.Expired {
					slog.Debug("baseline found via workflow runs",
						"artifact", a.ID, "branch", branch, "run", run.ID)
					return a, true
				}
			}
		}
	}

	return store.ArtifactRef{}, false
}

// resolveWorkflow finds the current workflow's id, preferring a file-name
// match over a display-name match. Ambiguous name matches take the first
// with a warning.
func (f *Finder) resolveWorkflow(ctx context.Context, file, name string) (int64, error) {
	workflows, err := retry.DoValue(ctx, f.retry, func(ctx context.Context) ([]store.Workflow, error) {
		return f.store.ListWorkflows(ctx)
	})
	if err != nil {
		return 0, err
	}

	if file != "" {
		for _, wf := range workflows {
			if pathBase(wf.Path) == file {
				return wf.ID, nil
			}
		}
	}

	if name != "" {
		var matches []store.Workflow
		for _, wf := range workflows {
			if wf.Name == name {
				matches = append(matches, wf)
			}
		}
		if len(matches) > 1 {
			slog.Warn("multiple workflows share a name, using the first",
				"name", name, "count", len(matches))
		}
		if len(matches) > 0 {
			return matches[0].ID, nil
		}
	}

	return 0, fmt.Errorf("no workflow matches file %q or name %q", file, name)
}

// findViaRepoScan walks the repo-wide artifact listing page by page. The
// page counter is the loop invariant: at most budget pages are fetched.
func (f *Finder) findViaRepoScan(ctx context.Context, req FindRequest) (store.ArtifactRef, error) {
	budget := req.PageBudget
	if budget <= 0 {
		budget = DefaultSearchPageBudget
	}

	candidates := make(map[string]struct{}, len(req.Branches))
	for _, b := range req.Branches {
		candidates[b] = struct{}{}
	}

	scanned := 0
	for page := 1; page <= budget; page++ {
		p, err := retry.DoValue(ctx, f.retry, func(ctx context.Context) (swhttp.Page[store.ArtifactRef], error) {
			return f.store.ArtifactPage(ctx, page)
		})
		if err != nil {
			if errors.Is(err, swhttp.ErrRateLimited) {
				slog.Warn("rate limited during repo-wide artifact scan, treating as no baseline",
					"page", page,
					"hint", "lower maxArtifactPages or use App credentials for a higher limit")
			} else {
				slog.Warn("repo-wide artifact scan failed, treating as no baseline",
					"page", page, "error", err)
			}
			return store.ArtifactRef{}, ErrNoBaseline
		}

		for _, a := range p.Items {
			scanned++
			if a.Name != ArtifactName || a.Expired {
				continue
			}
			if _, ok := candidates[a.Branch]; ok {
				slog.Debug("baseline found via repo scan", "artifact", a.ID, "branch", a.Branch, "page", page)
				return a, nil
			}
		}

		if p.Done {
			return store.ArtifactRef{}, ErrNoBaseline
		}
	}

	slog.Warn("baseline search exhausted its page budget",
		"pages", budget, "artifactsScanned", scanned,
		"hint", "raise maxArtifactPages if the baseline is older than the scanned window")
	return store.ArtifactRef{}, ErrNoBaseline
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
