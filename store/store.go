// Package store abstracts the remote CI artifact and workflow API.
//
// The Store interface is capability-shaped: listing workflows and runs,
// listing artifacts (per run and repo-wide paginated), downloading, and
// uploading. The GitHub implementation lives in this package; tests use
// Mock.
package store

import (
	"context"
	"errors"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// PerPage is the fixed page size for repo-wide artifact listing.
const PerPage = 100

// Store errors.
var (
	// ErrArtifactNotFound indicates the requested artifact does not exist
	// or has expired remotely.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrNoUploadCredentials indicates the runtime upload credentials
	// (runtime token / results URL) are missing.
	ErrNoUploadCredentials = errors.New("artifact upload credentials not available")
)

// Workflow identifies a workflow definition in the repository.
type Workflow struct {
	ID   int64
	Name string
	// Path is the workflow file path, e.g. ".github/workflows/ci.yml".
	Path string
}

// Run identifies one execution of a workflow.
type Run struct {
	ID     int64
	Branch string
}

// ArtifactRef identifies a stored artifact. Transient: it exists only
// between lookup and download.
type ArtifactRef struct {
	ID        int64
	Name      string
	SizeBytes int64
	Expired   bool

	// RunID and Branch describe the workflow run that produced the
	// artifact, when the listing endpoint reported them.
	RunID  int64
	Branch string
}

// Store is the remote artifact and workflow API consumed by the baseline
// lookup, extractor, and publisher.
type Store interface {
	// ListWorkflows returns the repository's workflow definitions.
	ListWorkflows(ctx context.Context) ([]Workflow, error)

	// ListRuns returns recent runs of a workflow on a branch, most
	// recent first, at most limit entries.
	ListRuns(ctx context.Context, workflowID int64, branch string, limit int) ([]Run, error)

	// ListRunArtifacts returns the artifacts produced by a run.
	ListRunArtifacts(ctx context.Context, runID int64) ([]ArtifactRef, error)

	// ArtifactPage returns one page of the repo-wide artifact listing,
	// most recent first. Pages are numbered from 1.
	ArtifactPage(ctx context.Context, page int) (swhttp.Page[ArtifactRef], error)

	// Download fetches the artifact's zip archive, reading at most
	// maxBytes+1 bytes so callers can detect oversized downloads.
	Download(ctx context.Context, ref ArtifactRef, maxBytes int64) ([]byte, error)

	// Upload stores files as a new artifact under name, retained for
	// retentionDays. Append-only: it never replaces an existing
	// artifact id.
	Upload(ctx context.Context, name string, files map[string][]byte, retentionDays int) error
}
