package repository

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intel-agent/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testStorePath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "intel_data.json")
}

func TestFileEventRepository_GetAll(t *testing.T) {
	t.Run("should return empty list when store file does not exist", func(t *testing.T) {
		repo := NewFileEventRepository(testStorePath(t), testLogger())

		events, err := repo.GetAll(context.Background())

		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("should treat corrupted store as empty", func(t *testing.T) {
		path := testStorePath(t)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		repo := NewFileEventRepository(path, testLogger())

		events, err := repo.GetAll(context.Background())

		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestFileEventRepository_ReplaceAll(t *testing.T) {
	t.Run("should persist events across repository instances", func(t *testing.T) {
		path := testStorePath(t)

		first := NewFileEventRepository(path, testLogger())
		require.NoError(t, first.ReplaceAll(context.Background(), []models.Event{
			{Competitor: "Stripe", Title: "Stripe: Billing v2", SourceURL: "https://stripe.com/blog/1"},
		}))

		second := NewFileEventRepository(path, testLogger())

		events, err := second.GetAll(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "Stripe", events[0].Competitor)
	})

	t.Run("should dedupe by title and source url", func(t *testing.T) {
		repo := NewFileEventRepository(testStorePath(t), testLogger())

		err := repo.ReplaceAll(context.Background(), []models.Event{
			{Competitor: "Shopify", Title: "Launch", SourceURL: "https://x.test/a"},
			{Competitor: "Shopify", Title: "Launch", SourceURL: "https://x.test/a"},
			{Competitor: "Shopify", Title: "Launch", SourceURL: "https://x.test/b"},
		})
		require.NoError(t, err)

		events, err := repo.GetAll(context.Background())

		require.NoError(t, err)
		// Same title under a different URL survives the store-layer key.
		assert.Len(t, events, 2)
	})

	t.Run("should discard prior contents on replace", func(t *testing.T) {
		repo := NewFileEventRepository(testStorePath(t), testLogger())
		ctx := context.Background()

		require.NoError(t, repo.ReplaceAll(ctx, []models.Event{{Competitor: "A", Title: "old"}}))
		require.NoError(t, repo.ReplaceAll(ctx, []models.Event{{Competitor: "B", Title: "new"}}))

		events, err := repo.GetAll(ctx)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "new", events[0].Title)
	})

	t.Run("should propagate write failures", func(t *testing.T) {
		dir := t.TempDir()
		// A directory at the store path makes the rename fail.
		path := filepath.Join(dir, "store-as-dir")
		require.NoError(t, os.Mkdir(path, 0o755))

		repo := NewFileEventRepository(path, testLogger())

		err := repo.ReplaceAll(context.Background(), []models.Event{{Competitor: "A", Title: "x"}})

		assert.Error(t, err)
	})
}

func TestFileEventRepository_Clear(t *testing.T) {
	t.Run("should leave an empty observable store", func(t *testing.T) {
		path := testStorePath(t)
		repo := NewFileEventRepository(path, testLogger())
		ctx := context.Background()

		require.NoError(t, repo.ReplaceAll(ctx, []models.Event{{Competitor: "A", Title: "x"}}))
		require.NoError(t, repo.Clear(ctx))

		events, err := repo.GetAll(ctx)

		require.NoError(t, err)
		assert.Empty(t, events)

		// Clear persists, it does not just reset memory.
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(data))
	})
}
