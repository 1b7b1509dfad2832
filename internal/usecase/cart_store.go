package usecase

import (
	"context"
	"log/slog"
	"sync"

	"cartsync/internal/domain"
	"cartsync/pkg/utils"
)

// Source tells a consumer which side produced the items it got back: the
// upstream service's confirmed view or the local fallback merge.
type Source string

const (
	SourceServer Source = "server"
	SourceLocal  Source = "local"
)

// MutationResult is returned by every mutating operation. Warning carries
// the upstream rejection message when the mutation was still applied
// locally, so partial failure is visible to the caller instead of hiding in
// a side channel.
type MutationResult struct {
	Items   []domain.CartItem `json:"items"`
	Source  Source            `json:"source"`
	Warning string            `json:"warning,omitempty"`
}

// CartStore holds one session's cart as local-first state. Mutations are
// mirrored to the upstream cart service; a confirmed response replaces the
// item list wholesale, any failure falls back to an element-level local
// merge so user intent always lands. Committed changes are persisted as
// snapshots.
//
// Local application is last-writer-wins. Whole-list replacement is guarded
// by a revision counter: a server response observed across a concurrent
// commit is stale and the operation degrades to the local merge instead.
type CartStore struct {
	mu        sync.Mutex
	items     []domain.CartItem
	sessionID string
	loading   bool
	lastErr   string
	revision  uint64

	remote    domain.RemoteCartService
	snapshots domain.SnapshotRepository
}

func NewCartStore(remote domain.RemoteCartService, snapshots domain.SnapshotRepository) *CartStore {
	return &CartStore{remote: remote, snapshots: snapshots}
}

// Restore rehydrates items and session id from a persisted snapshot. It
// never overwrites a session id that is already set.
func (s *CartStore) Restore(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]domain.CartItem(nil), snap.Items...)
	if s.sessionID == "" {
		s.sessionID = snap.SessionID
	}
}

// AdoptSession pins a caller-provided session id on a fresh store. A session
// id that is already set wins.
func (s *CartStore) AdoptSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID == "" {
		s.sessionID = sessionID
	}
}

// begin starts a mutating operation: loading on, last error cleared, and a
// session id generated if this is the first mutation of the store's life.
func (s *CartStore) begin() (sessionID string, rev uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastErr = ""
	if s.sessionID == "" {
		s.sessionID = utils.GenerateUUID()
	}
	return s.sessionID, s.revision
}

// settle ends an operation. Must be called with the lock held; every exit
// path of every operation goes through it.
func (s *CartStore) settle() {
	s.loading = false
}

// AddItem mirrors an add to the upstream and guarantees that afterwards the
// requested (product, variant) pair is present with at least the requested
// quantity, subject to the stock cap, whether or not the upstream was
// reachable.
func (s *CartStore) AddItem(ctx context.Context, in domain.NewItem) (*MutationResult, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	sessionID, rev := s.begin()
	remoteCart, err := s.remote.AddItem(ctx, sessionID, in.ProductID, in.VariantID, in.Quantity)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settle()

	res := &MutationResult{Source: SourceLocal}
	switch {
	case err == nil && remoteCart != nil && remoteCart.Items != nil:
		if rev == s.revision {
			s.items = domain.MapRemoteItems(remoteCart.Items)
			if remoteCart.SessionID != "" {
				s.sessionID = remoteCart.SessionID
			}
			res.Source = SourceServer
		} else {
			// Another mutation committed while this request was in flight;
			// the server view is stale and would drop it.
			slog.Warn("CartStore: AddItem - stale server response, merging locally",
				"session_id", sessionID, "product_id", in.ProductID)
			s.mergeLocked(in)
		}
	case err == nil || domain.IsUnreachable(err):
		// Success without a usable payload, or the upstream never answered.
		s.mergeLocked(in)
	default:
		msg := err.Error()
		slog.Error("CartStore: AddItem - upstream rejected, applying locally",
			"session_id", sessionID, "product_id", in.ProductID, "error", msg)
		s.lastErr = msg
		res.Warning = msg
		s.mergeLocked(in)
	}
	s.revision++
	s.persistLocked(ctx)

	res.Items = s.itemsCopyLocked()
	return res, nil
}

// UpdateQuantity patches a line's quantity. Zero removes the line. The
// removal/update rule is applied locally whether the upstream call succeeds
// or fails; an unknown item id is a no-op that still round-trips through the
// loading state.
func (s *CartStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) (*MutationResult, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	sessionID, _ := s.begin()

	s.mu.Lock()
	present := s.indexOfLocked(itemID) >= 0
	if !present {
		defer s.mu.Unlock()
		defer s.settle()
		return &MutationResult{Items: s.itemsCopyLocked(), Source: SourceLocal}, nil
	}
	s.mu.Unlock()

	err := s.remote.UpdateQuantity(ctx, sessionID, itemID, quantity)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settle()

	res := &MutationResult{Source: SourceLocal}
	if err != nil {
		msg := err.Error()
		slog.Error("CartStore: UpdateQuantity - upstream failed, applying locally",
			"session_id", sessionID, "item_id", itemID, "quantity", quantity, "error", msg)
		s.lastErr = msg
		res.Warning = msg
	} else {
		res.Source = SourceServer
	}

	if idx := s.indexOfLocked(itemID); idx >= 0 {
		if quantity == 0 {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		} else {
			s.items[idx].Quantity = quantity
		}
	}
	s.revision++
	s.persistLocked(ctx)

	res.Items = s.itemsCopyLocked()
	return res, nil
}

// RemoveItem deletes a line upstream and removes it locally on success and
// failure alike. Delivery of user intent takes priority over strict
// consistency with the backend.
func (s *CartStore) RemoveItem(ctx context.Context, itemID string) *MutationResult {
	sessionID, _ := s.begin()
	err := s.remote.RemoveItem(ctx, sessionID, itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settle()

	res := &MutationResult{Source: SourceServer}
	if err != nil {
		msg := err.Error()
		slog.Error("CartStore: RemoveItem - upstream failed, removing locally",
			"session_id", sessionID, "item_id", itemID, "error", msg)
		s.lastErr = msg
		res.Warning = msg
		res.Source = SourceLocal
	}

	if idx := s.indexOfLocked(itemID); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	s.revision++
	s.persistLocked(ctx)

	res.Items = s.itemsCopyLocked()
	return res
}

// ClearCart empties the cart locally regardless of the upstream outcome.
// The store itself lives on; only the items go.
func (s *CartStore) ClearCart(ctx context.Context) *MutationResult {
	sessionID, _ := s.begin()
	err := s.remote.ClearCart(ctx, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settle()

	res := &MutationResult{Source: SourceServer}
	if err != nil {
		msg := err.Error()
		slog.Error("CartStore: ClearCart - upstream failed, clearing locally",
			"session_id", sessionID, "error", msg)
		s.lastErr = msg
		res.Warning = msg
		res.Source = SourceLocal
	}

	s.items = nil
	s.revision++
	s.persistLocked(ctx)

	res.Items = nil
	return res
}

// Sync pulls the upstream cart and replaces the local items wholesale.
// Called on mount of cart-consuming views and after returning from external
// payment redirects, which is why an unreachable upstream is benign: the
// local cart is kept untouched and no error is surfaced.
func (s *CartStore) Sync(ctx context.Context) *MutationResult {
	s.mu.Lock()
	if s.sessionID == "" {
		// Nothing to sync yet.
		items := s.itemsCopyLocked()
		s.mu.Unlock()
		return &MutationResult{Items: items, Source: SourceLocal}
	}
	s.loading = true
	s.lastErr = ""
	sessionID := s.sessionID
	rev := s.revision
	s.mu.Unlock()

	remoteCart, err := s.remote.FetchCart(ctx, sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.settle()

	res := &MutationResult{Source: SourceLocal}
	switch {
	case err == nil && remoteCart != nil:
		if rev == s.revision {
			s.items = domain.MapRemoteItems(remoteCart.Items)
			s.revision++
			s.persistLocked(ctx)
			res.Source = SourceServer
		}
	case domain.IsUnreachable(err):
		// Benign: likely mid-redirect from a payment provider.
		slog.Info("CartStore: Sync - upstream unreachable, keeping local cart", "session_id", sessionID)
	case err != nil:
		msg := err.Error()
		slog.Error("CartStore: Sync - upstream error", "session_id", sessionID, "error", msg)
		s.lastErr = msg
		res.Warning = msg
	}

	res.Items = s.itemsCopyLocked()
	return res
}

// State returns a consumer-facing copy of the store.
func (s *CartStore) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartState{
		Items:     s.itemsCopyLocked(),
		SessionID: s.sessionID,
		IsLoading: s.loading,
		Error:     s.lastErr,
	}
}

// SessionID returns the session id, or "" before the first mutation.
func (s *CartStore) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Total sums price x quantity over the items.
func (s *CartStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SubtotalOf(s.items)
}

// Subtotal is intentionally identical to Total: a single total-computation
// contract until promotions exist.
func (s *CartStore) Subtotal() float64 {
	return s.Total()
}

// ItemCount sums the quantities over the items.
func (s *CartStore) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.QuantityOf(s.items)
}

// mergeLocked applies the local fallback: an existing (product, variant)
// line grows by the requested quantity capped at its stock ceiling,
// otherwise a new line is appended with a locally generated id.
func (s *CartStore) mergeLocked(in domain.NewItem) {
	for idx := range s.items {
		if s.items[idx].MatchesLine(in.ProductID, in.VariantID) {
			line := &s.items[idx]
			qty := line.Quantity + in.Quantity
			if limit := line.StockCap(); qty > limit {
				qty = limit
			}
			line.Quantity = qty
			return
		}
	}

	item := domain.CartItem{
		ID:          utils.GenerateUUID(),
		ProductID:   in.ProductID,
		VariantID:   in.VariantID,
		Name:        in.Name,
		VariantName: in.VariantName,
		SKU:         in.SKU,
		Image:       in.Image,
		Slug:        in.Slug,
		Price:       in.Price,
		Quantity:    in.Quantity,
		MaxStock:    in.MaxStock,
	}
	if limit := item.StockCap(); item.Quantity > limit {
		item.Quantity = limit
	}
	s.items = append(s.items, item)
}

func (s *CartStore) indexOfLocked(itemID string) int {
	for idx := range s.items {
		if s.items[idx].ID == itemID {
			return idx
		}
	}
	return -1
}

func (s *CartStore) itemsCopyLocked() []domain.CartItem {
	return append([]domain.CartItem(nil), s.items...)
}

// persistLocked saves a snapshot of the committed state. Persistence
// failures are logged, never surfaced: the in-memory cart is already
// authoritative for this session.
func (s *CartStore) persistLocked(ctx context.Context) {
	if s.snapshots == nil || s.sessionID == "" {
		return
	}
	snap := &domain.Snapshot{Items: s.itemsCopyLocked(), SessionID: s.sessionID}
	if err := s.snapshots.Save(ctx, s.sessionID, snap); err != nil {
		slog.Warn("CartStore: failed to persist snapshot", "session_id", s.sessionID, "error", err)
	}
}
