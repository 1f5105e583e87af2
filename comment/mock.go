package comment

import (
	"context"

	swhttp "github.com/sizewatch/sizewatch/http"
)

// Mock is a Provider for testing.
type Mock struct {
	ListPageFunc func(ctx context.Context, number, page int) (swhttp.Page[Comment], error)
	CreateFunc   func(ctx context.Context, number int, body string) error
	UpdateFunc   func(ctx context.Context, number int, id int64, body string) error
}

// ListPage implements Provider.
func (m *Mock) ListPage(ctx context.Context, number, page int) (swhttp.Page[Comment], error) {
	if m.ListPageFunc != nil {
		return m.ListPageFunc(ctx, number, page)
	}
	return swhttp.Page[Comment]{Done: true}, nil
}

// Create implements Provider.
func (m *Mock) Create(ctx context.Context, number int, body string) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, number, body)
	}
	return nil
}

// Update implements Provider.
func (m *Mock) Update(ctx context.Context, number int, id int64, body string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, number, id, body)
	}
	return nil
}
