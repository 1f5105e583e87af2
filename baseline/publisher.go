package baseline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sizewatch/sizewatch/bundlestats"
	"github.com/sizewatch/sizewatch/retry"
	"github.com/sizewatch/sizewatch/store"
)

// RetentionDays bounds how long a published baseline artifact is kept.
const RetentionDays = 90

// Publisher uploads the current measurement record as a new baseline
// artifact. Append-only: re-publishing identical content creates a new
// artifact id with equivalent content, and the finder's ordering rules
// decide which one future runs see.
type Publisher struct {
	store store.Store
	retry retry.Policy
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(s store.Store) *Publisher {
	return &Publisher{store: s}
}

// Publish serializes stats and uploads it under the fixed artifact name.
func (p *Publisher) Publish(ctx context.Context, stats *bundlestats.Stats) error {
	data, err := bundlestats.Encode(stats)
	if err != nil {
		return err
	}

	files := map[string][]byte{bundlestats.RecordFileName: data}
	err = retry.Do(ctx, p.retry, func(ctx context.Context) error {
		return p.store.Upload(ctx, ArtifactName, files, RetentionDays)
	})
	if err != nil {
		return fmt.Errorf("publish baseline: %w", err)
	}

	slog.Info("published new baseline", "commit", stats.Commit,
		"files", len(stats.Files), "totalSize", stats.TotalSize)
	return nil
}
