// Package comment posts and updates the size report on a pull request.
// Implementations exist for GitHub and GitLab.
package comment

import (
	"context"
	"fmt"
	"strings"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// maxListPages bounds the comment search on threads with pathological
// comment counts.
const maxListPages = 20

// Comment is a single comment on a pull request thread.
type Comment struct {
	ID   int64
	Body string
}

// Provider lists and writes pull request comments. Listing is exposed
// page by page so the caller controls how far to search.
type Provider interface {
	// ListPage fetches one page of comments for a pull request.
	// Pages are numbered from 1.
	ListPage(ctx context.Context, number, page int) (swhttp.Page[Comment], error)

	// Create posts a new comment.
	Create(ctx context.Context, number int, body string) error

	// Update replaces the body of an existing comment.
	Update(ctx context.Context, number int, id int64, body string) error
}

// Upsert finds the comment carrying marker and updates it in place, or
// creates a new comment when none exists. The marker keeps repeated
// runs from piling up duplicate reports.
func Upsert(ctx context.Context, p Provider, number int, marker, body string) error {
	existing, err := findMarked(ctx, p, number, marker)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	if existing != nil {
		if err := p.Update(ctx, number, existing.ID, body); err != nil {
			return fmt.Errorf("update comment %d: %w", existing.ID, err)
		}
		return nil
	}
	if err := p.Create(ctx, number, body); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func findMarked(ctx context.Context, p Provider, number int, marker string) (*Comment, error) {
	fetch := func(ctx context.Context, page int) (swhttp.Page[Comment], error) {
		return p.ListPage(ctx, number, page)
	}
	comments, err := swhttp.Collect(ctx, fetch, maxListPages)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if strings.Contains(c.Body, marker) {
			return &c, nil
		}
	}
	return nil, nil
}
