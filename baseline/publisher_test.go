package baseline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sizewatch/sizewatch/bundlestats"
	"github.com/sizewatch/sizewatch/store"
)

func TestPublish(t *testing.T) {
	stats := bundlestats.New([]bundlestats.FileEntry{
		{Path: "app.js", Name: "app.js", Size: 100, Gzip: 40, Brotli: 30},
	}, "abc123")

	t.Run("uploads record under fixed names", func(t *testing.T) {
		var gotName string
		var gotFiles map[string][]byte
		var gotRetention int
		mock := &store.Mock{
			UploadFunc: func(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
				gotName, gotFiles, gotRetention = name, files, retentionDays
				return nil
			},
		}

		p := NewPublisher(mock)
		p.retry = fastRetry()
		if err := p.Publish(context.Background(), stats); err != nil {
			t.Fatalf("Publish: %v", err)
		}

		if gotName != ArtifactName {
			t.Errorf("artifact name = %q", gotName)
		}
		if gotRetention != RetentionDays {
			t.Errorf("retention = %d", gotRetention)
		}
		record, ok := gotFiles[bundlestats.RecordFileName]
		if !ok {
			t.Fatalf("record file missing, files = %v", gotFiles)
		}
		decoded, err := bundlestats.Decode(record)
		if err != nil {
			t.Fatalf("decode uploaded record: %v", err)
		}
		if decoded.Commit != "abc123" || decoded.TotalSize != 100 {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("republish produces equivalent content", func(t *testing.T) {
		var uploads [][]byte
		mock := &store.Mock{
			UploadFunc: func(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
				uploads = append(uploads, files[bundlestats.RecordFileName])
				return nil
			},
		}

		p := NewPublisher(mock)
		p.retry = fastRetry()
		for range 2 {
			if err := p.Publish(context.Background(), stats); err != nil {
				t.Fatalf("Publish: %v", err)
			}
		}

		if len(uploads) != 2 {
			t.Fatalf("uploads = %d, want 2 (append-only, no overwrite)", len(uploads))
		}
		if !bytes.Equal(uploads[0], uploads[1]) {
			t.Error("republished record content differs")
		}
	})

	t.Run("upload failure propagates after retries", func(t *testing.T) {
		calls := 0
		mock := &store.Mock{
			UploadFunc: func(ctx context.Context, name string, files map[string][]byte, retentionDays int) error {
				calls++
				return errors.New("upload broken")
			},
		}

		p := NewPublisher(mock)
		p.retry = fastRetry()
		if err := p.Publish(context.Background(), stats); err == nil {
			t.Fatal("expected error")
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2 (retried)", calls)
		}
	})
}
