package ci

import (
	"encoding/json"
	"fmt"
)

// eventInfo is the subset of the webhook payload this module consumes.
type eventInfo struct {
	prNumber      int
	baseBranch    string
	defaultBranch string
	headSHA       string
}

func parseEvent(payload []byte) (eventInfo, error) {
	var raw struct {
		Number      int `json:"number"`
		PullRequest *struct {
			Number int `json:"number"`
			Base   struct {
				Ref string `json:"ref"`
			} `json:"base"`
			Head struct {
				SHA string `json:"sha"`
			} `json:"head"`
		} `json:"pull_request"`
		Repository struct {
			DefaultBranch string `json:"default_branch"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return eventInfo{}, fmt.Errorf("parse event payload: %w", err)
	}

	info := eventInfo{defaultBranch: raw.Repository.DefaultBranch}
	if raw.PullRequest != nil {
		info.prNumber = raw.PullRequest.Number
		if info.prNumber == 0 {
			info.prNumber = raw.Number
		}
		info.baseBranch = raw.PullRequest.Base.Ref
		info.headSHA = raw.PullRequest.Head.SHA
	}
	return info, nil
}
