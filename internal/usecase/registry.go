package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cartsync/internal/domain"

	gocache "github.com/patrickmn/go-cache"
)

// StoreRegistry hands out one CartStore per session. Instances are cached
// with a TTL; an evicted session is rebuilt from its snapshot on the next
// request, so eviction never loses a cart.
type StoreRegistry struct {
	mu        sync.Mutex
	stores    *gocache.Cache
	remote    domain.RemoteCartService
	snapshots domain.SnapshotRepository
}

// NewStoreRegistry creates a registry.
// ttl: how long an idle store stays resident
// cleanupInterval: how often expired stores are swept
func NewStoreRegistry(remote domain.RemoteCartService, snapshots domain.SnapshotRepository, ttl, cleanupInterval time.Duration) *StoreRegistry {
	return &StoreRegistry{
		stores:    gocache.New(ttl, cleanupInterval),
		remote:    remote,
		snapshots: snapshots,
	}
}

// NewStore creates an unregistered store for a request that carries no
// session yet. The store generates its session id on its first mutation;
// Register indexes it afterwards.
func (r *StoreRegistry) NewStore() *CartStore {
	return NewCartStore(r.remote, r.snapshots)
}

// Resolve returns the store for a session id, rebuilding it from the
// snapshot repository when it is not resident.
func (r *StoreRegistry) Resolve(ctx context.Context, sessionID string) *CartStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.stores.Get(sessionID); ok {
		store := v.(*CartStore)
		r.stores.Set(sessionID, store, gocache.DefaultExpiration) // refresh TTL
		return store
	}

	store := NewCartStore(r.remote, r.snapshots)
	snap, err := r.snapshots.Load(ctx, sessionID)
	switch {
	case err == nil:
		store.Restore(snap)
	case errors.Is(err, domain.ErrSnapshotNotFound):
		// First time we see this session on this node.
	default:
		slog.Warn("Registry: snapshot load failed, starting empty", "session_id", sessionID, "error", err)
	}
	store.AdoptSession(sessionID)

	r.stores.Set(sessionID, store, gocache.DefaultExpiration)
	return store
}

// Register indexes a store under the session id it generated on its first
// mutation. Registering an already-known id is a no-op.
func (r *StoreRegistry) Register(sessionID string, store *CartStore) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores.Get(sessionID); !ok {
		r.stores.Set(sessionID, store, gocache.DefaultExpiration)
	}
}
