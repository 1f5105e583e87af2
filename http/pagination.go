package http

import "context"

// Page holds one page of results and whether more pages remain.
type Page[T any] struct {
	Items []T
	Done  bool
}

// PageFunc fetches one page of items. Pages are numbered from 1. Callers
// drive it in an ordinary loop with an explicit page counter, so page
// ceilings are plain loop invariants.
type PageFunc[T any] func(ctx context.Context, page int) (Page[T], error)

// Collect fetches up to maxPages pages and returns all items. maxPages <= 0
// means no limit.
func Collect[T any](ctx context.Context, fetch PageFunc[T], maxPages int) ([]T, error) {
	var all []T
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		p, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Items...)
		if p.Done {
			break
		}
	}
	return all, nil
}
