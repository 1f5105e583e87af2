// Package ci builds an immutable description of the enclosing CI run from
// the GitHub Actions environment.
//
// The environment is read exactly once, at process start, via FromEnv; every
// other package receives the resulting RunContext by parameter. Nothing else
// in the module reads process environment variables.
package ci

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Event names this module distinguishes.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventPRTarget    = "pull_request_target"
)

// ErrMissingRepository indicates GITHUB_REPOSITORY was absent or malformed.
var ErrMissingRepository = errors.New("repository not identified (GITHUB_REPOSITORY unset or not owner/name)")

// RunContext is an immutable snapshot of the CI run's identity, constructed
// once at process start.
type RunContext struct {
	EventName string
	Ref       string // full ref, e.g. refs/heads/main or refs/pull/12/merge
	Owner     string
	Repo      string
	SHA       string
	RunID     int64

	// WorkflowName is the display name of the running workflow;
	// WorkflowFile is the workflow file's base name derived from
	// GITHUB_WORKFLOW_REF (empty when unavailable).
	WorkflowName string
	WorkflowFile string

	// Token authenticates REST API calls. RuntimeToken and ResultsURL
	// authenticate artifact uploads against the Actions results service.
	Token        string
	RuntimeToken string
	ResultsURL   string

	// OutputPath and SummaryPath are the files job outputs and the step
	// summary are appended to, when set.
	OutputPath  string
	SummaryPath string

	// PRNumber and BaseBranch are populated from the event payload on
	// pull request events; zero/empty otherwise.
	PRNumber      int
	BaseBranch    string
	DefaultBranch string
}

// IsPullRequest reports whether the run was triggered by a pull request
// event.
func (rc *RunContext) IsPullRequest() bool {
	return rc.EventName == EventPullRequest || rc.EventName == EventPRTarget
}

// IsTrunk reports whether this run's output should become the new baseline:
// a push to a branch (typically the default branch), not a pull request.
func (rc *RunContext) IsTrunk() bool {
	return rc.EventName == EventPush && strings.HasPrefix(rc.Ref, "refs/heads/")
}

// Branch returns the branch name for branch refs, "" otherwise.
func (rc *RunContext) Branch() string {
	return strings.TrimPrefix(rc.Ref, "refs/heads/")
}

// BaselineBranches returns the branches to search for a baseline, most
// preferred first: the PR base branch, then the repository default branch,
// deduplicated. For trunk builds it is the pushed branch itself.
func (rc *RunContext) BaselineBranches() []string {
	var candidates []string
	if rc.IsPullRequest() {
		candidates = []string{rc.BaseBranch, rc.DefaultBranch}
	} else {
		candidates = []string{rc.Branch(), rc.DefaultBranch}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, b := range candidates {
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// FromEnv constructs the RunContext from the process environment, reading
// the event payload from GITHUB_EVENT_PATH when present.
func FromEnv() (*RunContext, error) {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	var payload []byte
	if path := vars["GITHUB_EVENT_PATH"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read event payload: %w", err)
		}
		payload = data
	}

	return Parse(vars, payload)
}

// Parse builds a RunContext from an environment map and a raw event
// payload. Split out from FromEnv for testability.
func Parse(vars map[string]string, payload []byte) (*RunContext, error) {
	owner, repo, ok := strings.Cut(vars["GITHUB_REPOSITORY"], "/")
	if !ok || owner == "" || repo == "" {
		return nil, ErrMissingRepository
	}

	rc := &RunContext{
		EventName:    vars["GITHUB_EVENT_NAME"],
		Ref:          vars["GITHUB_REF"],
		Owner:        owner,
		Repo:         repo,
		SHA:          vars["GITHUB_SHA"],
		WorkflowName: vars["GITHUB_WORKFLOW"],
		WorkflowFile: workflowFileFromRef(vars["GITHUB_WORKFLOW_REF"]),
		Token:        vars["GITHUB_TOKEN"],
		RuntimeToken: vars["ACTIONS_RUNTIME_TOKEN"],
		ResultsURL:   vars["ACTIONS_RESULTS_URL"],
		OutputPath:   vars["GITHUB_OUTPUT"],
		SummaryPath:  vars["GITHUB_STEP_SUMMARY"],
	}

	if idStr := vars["GITHUB_RUN_ID"]; idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse GITHUB_RUN_ID %q: %w", idStr, err)
		}
		rc.RunID = id
	}

	if len(payload) > 0 {
		ev, err := parseEvent(payload)
		if err != nil {
			return nil, err
		}
		rc.PRNumber = ev.prNumber
		rc.BaseBranch = ev.baseBranch
		rc.DefaultBranch = ev.defaultBranch
		if rc.SHA == "" {
			rc.SHA = ev.headSHA
		}
	}

	return rc, nil
}

// workflowFileFromRef extracts "ci.yml" from
// "owner/repo/.github/workflows/ci.yml@refs/heads/main".
func workflowFileFromRef(ref string) string {
	path, _, _ := strings.Cut(ref, "@")
	if path == "" {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
