package memory

import (
	"context"

	"cartsync/internal/domain"

	gocache "github.com/patrickmn/go-cache"
)

// SnapshotRepository keeps snapshots in process memory. Carts do not
// survive a restart; intended for development and tests.
type SnapshotRepository struct {
	store *gocache.Cache
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{store: gocache.New(gocache.NoExpiration, 0)}
}

func (r *SnapshotRepository) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	v, ok := r.store.Get(sessionKey)
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return clone(v.(*domain.Snapshot)), nil
}

func (r *SnapshotRepository) Save(ctx context.Context, sessionKey string, snap *domain.Snapshot) error {
	r.store.Set(sessionKey, clone(snap), gocache.NoExpiration)
	return nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, sessionKey string) error {
	r.store.Delete(sessionKey)
	return nil
}

// clone keeps stored snapshots isolated from caller-side mutation.
func clone(snap *domain.Snapshot) *domain.Snapshot {
	return &domain.Snapshot{
		Items:     append([]domain.CartItem(nil), snap.Items...),
		SessionID: snap.SessionID,
	}
}
