package comment

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	swhttp "github.com/sizewatch/sizewatch/http"
)

const listPerPage = 100

// GitHub posts comments through the issues API, which backs pull
// request conversation threads.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub creates a GitHub comment provider. An existing client can
// be supplied to redirect requests in tests; otherwise one is built
// from the token.
func NewGitHub(token, owner, repo string, client *github.Client) (*GitHub, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}
	if client == nil {
		if token == "" {
			return nil, fmt.Errorf("GitHub token is required")
		}
		client = github.NewClient(nil).WithAuthToken(token)
	}
	return &GitHub{client: client, owner: owner, repo: repo}, nil
}

func (g *GitHub) ListPage(ctx context.Context, number, page int) (swhttp.Page[Comment], error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{Page: page, PerPage: listPerPage},
	}
	comments, resp, err := g.client.Issues.ListComments(ctx, g.owner, g.repo, number, opts)
	if err != nil {
		return swhttp.Page[Comment]{}, err
	}

	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, Comment{ID: c.GetID(), Body: c.GetBody()})
	}
	return swhttp.Page[Comment]{Items: out, Done: resp.NextPage == 0}, nil
}

func (g *GitHub) Create(ctx context.Context, number int, body string) error {
	_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, number,
		&github.IssueComment{Body: github.String(body)})
	return err
}

func (g *GitHub) Update(ctx context.Context, number int, id int64, body string) error {
	_, _, err := g.client.Issues.EditComment(ctx, g.owner, g.repo, id,
		&github.IssueComment{Body: github.String(body)})
	return err
}
