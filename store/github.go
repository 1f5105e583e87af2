package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// downloadRedirects bounds redirect-following when resolving an artifact's
// download URL.
const downloadRedirects = 5

// GitHub implements Store against the GitHub Actions API.
type GitHub struct {
	client  *github.Client
	blobs   *swhttp.Client
	results *resultsClient
	owner   string
	repo    string
}

// GitHubConfig configures the GitHub store.
type GitHubConfig struct {
	// Token is a personal access token, workflow token, or App
	// installation token for REST calls.
	Token string
	Owner string
	Repo  string

	// RuntimeToken and ResultsURL authenticate artifact uploads against
	// the Actions results service. Optional: lookups and downloads work
	// without them, Upload returns ErrNoUploadCredentials.
	RuntimeToken string
	ResultsURL   string

	// Client overrides the go-github client. Used by tests to point at
	// an httptest server.
	Client *github.Client
}

// NewGitHub creates a GitHub-backed store.
func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	client := cfg.Client
	if client == nil {
		if cfg.Token == "" {
			return nil, fmt.Errorf("GitHub token is required")
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}

	g := &GitHub{
		client: client,
		blobs:  swhttp.NewClient(swhttp.ClientConfig{ServiceName: "artifact-download"}),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
	}
	if cfg.RuntimeToken != "" && cfg.ResultsURL != "" {
		rc, err := newResultsClient(cfg.ResultsURL, cfg.RuntimeToken)
		if err != nil {
			return nil, fmt.Errorf("init results client: %w", err)
		}
		g.results = rc
	}
	return g, nil
}

// ListWorkflows implements Store.
func (g *GitHub) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	wfs, _, err := g.client.Actions.ListWorkflows(ctx, g.owner, g.repo,
		&github.ListOptions{PerPage: PerPage})
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	out := make([]Workflow, 0, len(wfs.Workflows))
	for _, wf := range wfs.Workflows {
		out = append(out, Workflow{ID: wf.GetID(), Name: wf.GetName(), Path: wf.GetPath()})
	}
	return out, nil
}

// ListRuns implements Store.
func (g *GitHub) ListRuns(ctx context.Context, workflowID int64, branch string, limit int) ([]Run, error) {
	runs, _, err := g.client.Actions.ListWorkflowRunsByID(ctx, g.owner, g.repo, workflowID,
		&github.ListWorkflowRunsOptions{
			Branch:      branch,
			ListOptions: github.ListOptions{PerPage: limit},
		})
	if err != nil {
		return nil, fmt.Errorf("list runs for workflow %d on %s: %w", workflowID, branch, err)
	}

	out := make([]Run, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		out = append(out, Run{ID: run.GetID(), Branch: run.GetHeadBranch()})
	}
	return out, nil
}

// ListRunArtifacts implements Store.
func (g *GitHub) ListRunArtifacts(ctx context.Context, runID int64) ([]ArtifactRef, error) {
	list, _, err := g.client.Actions.ListWorkflowRunArtifacts(ctx, g.owner, g.repo, runID,
		&github.ListOptions{PerPage: PerPage})
	if err != nil {
		return nil, fmt.Errorf("list artifacts for run %d: %w", runID, err)
	}

	out := make([]ArtifactRef, 0, len(list.Artifacts))
	for _, a := range list.Artifacts {
		out = append(out, refFromArtifact(a))
	}
	return out, nil
}

// ArtifactPage implements Store. The raw payload is decoded through
// decodeArtifactList so shape ambiguity stays in one adapter.
func (g *GitHub) ArtifactPage(ctx context.Context, page int) (swhttp.Page[ArtifactRef], error) {
	path := fmt.Sprintf("repos/%s/%s/actions/artifacts?per_page=%d&page=%d",
		g.owner, g.repo, PerPage, page)
	req, err := g.client.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return swhttp.Page[ArtifactRef]{}, fmt.Errorf("build artifact page request: %w", err)
	}

	var raw json.RawMessage
	if _, err := g.client.Do(ctx, req, &raw); err != nil {
		return swhttp.Page[ArtifactRef]{}, fmt.Errorf("list artifacts page %d: %w", page, err)
	}

	items, total, err := decodeArtifactList(raw)
	if err != nil {
		return swhttp.Page[ArtifactRef]{}, fmt.Errorf("artifacts page %d: %w", page, err)
	}

	done := len(items) == 0
	if total >= 0 && page*PerPage >= total {
		done = true
	}
	return swhttp.Page[ArtifactRef]{Items: items, Done: done}, nil
}

// Download implements Store.
func (g *GitHub) Download(ctx context.Context, ref ArtifactRef, maxBytes int64) ([]byte, error) {
	url, resp, err := g.client.Actions.DownloadArtifact(ctx, g.owner, g.repo, ref.ID, downloadRedirects)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("artifact %d: %w", ref.ID, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("resolve download URL for artifact %d: %w", ref.ID, err)
	}

	data, err := g.blobs.GetLimited(ctx, url.String(), maxBytes)
	if err != nil {
		return nil, fmt.Errorf("download artifact %d: %w", ref.ID, err)
	}
	return data, nil
}

// Upload implements Store.
func (g *GitHub) Upload(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
	if g.results == nil {
		return ErrNoUploadCredentials
	}
	return g.results.upload(ctx, name, files, retentionDays)
}

func refFromArtifact(a *github.Artifact) ArtifactRef {
	ref := ArtifactRef{
		ID:        a.GetID(),
		Name:      a.GetName(),
		SizeBytes: a.GetSizeInBytes(),
		Expired:   a.GetExpired(),
	}
	if wr := a.GetWorkflowRun(); wr != nil {
		ref.RunID = wr.GetID()
		ref.Branch = wr.GetHeadBranch()
	}
	return ref
}

// decodeArtifactList decodes an artifact-listing payload. The endpoint
// normally returns an object carrying an "artifacts" field, but proxies and
// older deployments have returned a bare array; both shapes are accepted
// here and nowhere else. The returned total is -1 when unknown.
func decodeArtifactList(raw []byte) ([]ArtifactRef, int, error) {
	var rich struct {
		TotalCount *int              `json:"total_count"`
		Artifacts  []*github.Artifact `json:"artifacts"`
	}
	if err := json.Unmarshal(raw, &rich); err == nil && rich.Artifacts != nil {
		total := -1
		if rich.TotalCount != nil {
			total = *rich.TotalCount
		}
		return refsFromArtifacts(rich.Artifacts), total, nil
	}

	var bare []*github.Artifact
	if err := json.Unmarshal(raw, &bare); err == nil {
		return refsFromArtifacts(bare), -1, nil
	}

	return nil, 0, fmt.Errorf("unrecognized artifact list payload")
}

func refsFromArtifacts(artifacts []*github.Artifact) []ArtifactRef {
	out := make([]ArtifactRef, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, refFromArtifact(a))
	}
	return out
}
