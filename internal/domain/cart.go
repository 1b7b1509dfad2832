package domain

import "context"

// DefaultMaxStock caps a line's quantity when the product's stock ceiling is
// unknown.
const DefaultMaxStock = 99

// CartItem is one line of a session's cart. Name, price and the other
// display fields are snapshotted at add-time, never looked up live.
type CartItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Name        string  `json:"name"`
	VariantName *string `json:"variantName,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Image       string  `json:"image,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	MaxStock    int     `json:"maxStock"`
}

// MatchesLine reports whether the item refers to the same purchasable entity
// as the given (productID, variantID) pair. A nil variant means the base
// product.
func (i CartItem) MatchesLine(productID string, variantID *string) bool {
	if i.ProductID != productID {
		return false
	}
	if i.VariantID == nil && variantID == nil {
		return true
	}
	if i.VariantID != nil && variantID != nil {
		return *i.VariantID == *variantID
	}
	return false
}

// StockCap returns the effective quantity ceiling for the line.
func (i CartItem) StockCap() int {
	if i.MaxStock > 0 {
		return i.MaxStock
	}
	return DefaultMaxStock
}

// NewItem carries an add-to-cart request before the line has an id. The id
// is assigned by the upstream service, or generated locally when the item is
// merged offline.
type NewItem struct {
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId,omitempty"`
	Name        string  `json:"name"`
	VariantName *string `json:"variantName,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	Image       string  `json:"image,omitempty"`
	Slug        string  `json:"slug,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	MaxStock    int     `json:"maxStock"`
}

// Snapshot is the durable part of a cart: items and the session id. Loading
// and error flags are transient and never persisted.
type Snapshot struct {
	Items     []CartItem `json:"items"`
	SessionID string     `json:"sessionId"`
}

// CartState is the consumer-facing view of a store.
type CartState struct {
	Items     []CartItem `json:"items"`
	SessionID string     `json:"sessionId,omitempty"`
	IsLoading bool       `json:"isLoading"`
	Error     string     `json:"error,omitempty"`
}

// SubtotalOf sums price x quantity over the items.
func SubtotalOf(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// QuantityOf sums the quantities over the items.
func QuantityOf(items []CartItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// SnapshotRepository persists cart snapshots keyed by session id.
type SnapshotRepository interface {
	// Load returns ErrSnapshotNotFound when no snapshot exists for the key.
	Load(ctx context.Context, sessionKey string) (*Snapshot, error)
	Save(ctx context.Context, sessionKey string, snap *Snapshot) error
	Delete(ctx context.Context, sessionKey string) error
}
