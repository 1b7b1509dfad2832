package file

import (
	"context"
	"testing"

	"cartsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	snap := &domain.Snapshot{
		SessionID: "sess-1",
		Items: []domain.CartItem{
			{ID: "l1", ProductID: "P1", Name: "Shirt", Price: 12.75, Quantity: 2, MaxStock: 10},
		},
	}
	require.NoError(t, repo.Save(ctx, "sess-1", snap))

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestLoadMissingSnapshot(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sess-1", &domain.Snapshot{SessionID: "sess-1", Items: []domain.CartItem{{ID: "a", Quantity: 1}}}))
	require.NoError(t, repo.Save(ctx, "sess-1", &domain.Snapshot{SessionID: "sess-1"}))

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestDelete(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "sess-1", &domain.Snapshot{SessionID: "sess-1"}))
	require.NoError(t, repo.Delete(ctx, "sess-1"))
	require.NoError(t, repo.Delete(ctx, "sess-1"), "deleting a missing snapshot is fine")

	_, err = repo.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestRejectsPathTraversalKeys(t *testing.T) {
	repo, err := NewSnapshotRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		_, err := repo.Load(ctx, key)
		assert.Error(t, err, "key %q", key)
		assert.NotErrorIs(t, err, domain.ErrSnapshotNotFound)
	}
}
