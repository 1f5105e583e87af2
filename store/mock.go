package store

import (
	"context"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// Mock is a func-field implementation of Store for tests.
type Mock struct {
	ListWorkflowsFunc    func(ctx context.Context) ([]Workflow, error)
	ListRunsFunc         func(ctx context.Context, workflowID int64, branch string, limit int) ([]Run, error)
	ListRunArtifactsFunc func(ctx context.Context, runID int64) ([]ArtifactRef, error)
	ArtifactPageFunc     func(ctx context.Context, page int) (swhttp.Page[ArtifactRef], error)
	DownloadFunc         func(ctx context.Context, ref ArtifactRef, maxBytes int64) ([]byte, error)
	UploadFunc           func(ctx context.Context, name string, files map[string][]byte, retentionDays int) error
}

// ListWorkflows implements Store.
func (m *Mock) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	if m.ListWorkflowsFunc != nil {
		return m.ListWorkflowsFunc(ctx)
	}
	return nil, nil
}

// ListRuns implements Store.
func (m *Mock) ListRuns(ctx context.Context, workflowID int64, branch string, limit int) ([]Run, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, workflowID, branch, limit)
	}
	return nil, nil
}

// ListRunArtifacts implements Store.
func (m *Mock) ListRunArtifacts(ctx context.Context, runID int64) ([]ArtifactRef, error) {
	if m.ListRunArtifactsFunc != nil {
		return m.ListRunArtifactsFunc(ctx, runID)
	}
	return nil, nil
}

// ArtifactPage implements Store.
func (m *Mock) ArtifactPage(ctx context.Context, page int) (swhttp.Page[ArtifactRef], error) {
	if m.ArtifactPageFunc != nil {
		return m.ArtifactPageFunc(ctx, page)
	}
	return swhttp.Page[ArtifactRef]{Done: true}, nil
}

// Download implements Store.
func (m *Mock) Download(ctx context.Context, ref ArtifactRef, maxBytes int64) ([]byte, error) {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, ref, maxBytes)
	}
	return nil, ErrArtifactNotFound
}

// Upload implements Store.
func (m *Mock) Upload(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, name, files, retentionDays)
	}
	return nil
}
