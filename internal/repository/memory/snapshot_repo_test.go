package memory

import (
	"context"
	"testing"

	"cartsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAndIsolation(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()

	snap := &domain.Snapshot{
		SessionID: "sess-1",
		Items:     []domain.CartItem{{ID: "l1", ProductID: "P1", Quantity: 2}},
	}
	require.NoError(t, repo.Save(ctx, "sess-1", snap))

	// Mutating the caller's copy must not leak into the stored snapshot.
	snap.Items[0].Quantity = 99

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestMissingAndDelete(t *testing.T) {
	repo := NewSnapshotRepository()
	ctx := context.Background()

	_, err := repo.Load(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	require.NoError(t, repo.Save(ctx, "sess-1", &domain.Snapshot{SessionID: "sess-1"}))
	require.NoError(t, repo.Delete(ctx, "sess-1"))
	_, err = repo.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}
