package stats

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), logger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	uploads := []Upload{
		{UserID: 1, ChatID: 1, FileName: "a.png", Size: 1000, Kind: "photo", Backend: "imagebed", URL: "https://x/a.png"},
		{UserID: 1, ChatID: 1, FileName: "b.mp4", Size: 5000, Kind: "video", Backend: "imagebed", URL: "https://x/b.mp4"},
		{UserID: 2, ChatID: 2, FileName: "c.pdf", Size: 700, Kind: "file", Backend: "webdav", URL: "https://x/c.pdf"},
	}
	for _, u := range uploads {
		if err := store.Record(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := store.UserSummary(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count != 2 || sum.TotalBytes != 6000 {
		t.Errorf("user 1 summary = %+v", sum)
	}
	if sum.LastAt.IsZero() {
		t.Error("LastAt should be set")
	}

	sum2, err := store.UserSummary(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sum2.Count != 1 || sum2.TotalBytes != 700 {
		t.Errorf("user 2 summary = %+v", sum2)
	}
}

func TestUserSummary_NoUploads(t *testing.T) {
	store := newTestStore(t)
	sum, err := store.UserSummary(context.Background(), 99)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count != 0 || sum.TotalBytes != 0 || !sum.LastAt.IsZero() {
		t.Errorf("empty summary = %+v", sum)
	}
}
