package comment

import (
	"context"
	"fmt"

	"github.com/xanzy/go-gitlab"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// GitLab posts comments as merge request notes.
type GitLab struct {
	client    *gitlab.Client
	projectID string
}

// NewGitLab creates a GitLab comment provider. baseURL is the instance
// URL, empty for gitlab.com. projectID is a numeric ID or a
// "namespace/project" path.
func NewGitLab(token, baseURL, projectID string) (*GitLab, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	var client *gitlab.Client
	var err error
	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}
	return &GitLab{client: client, projectID: projectID}, nil
}

func (g *GitLab) ListPage(ctx context.Context, number, page int) (swhttp.Page[Comment], error) {
	opts := &gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{Page: page, PerPage: listPerPage},
	}
	notes, resp, err := g.client.Notes.ListMergeRequestNotes(g.projectID, number, opts,
		gitlab.WithContext(ctx))
	if err != nil {
		return swhttp.Page[Comment]{}, err
	}

	out := make([]Comment, 0, len(notes))
	for _, n := range notes {
		out = append(out, Comment{ID: int64(n.ID), Body: n.Body})
	}
	return swhttp.Page[Comment]{Items: out, Done: resp.NextPage == 0}, nil
}

func (g *GitLab) Create(ctx context.Context, number int, body string) error {
	_, _, err := g.client.Notes.CreateMergeRequestNote(g.projectID, number,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)},
		gitlab.WithContext(ctx))
	return err
}

func (g *GitLab) Update(ctx context.Context, number int, id int64, body string) error {
	_, _, err := g.client.Notes.UpdateMergeRequestNote(g.projectID, number, int(id),
		&gitlab.UpdateMergeRequestNoteOptions{Body: gitlab.Ptr(body)},
		gitlab.WithContext(ctx))
	return err
}
