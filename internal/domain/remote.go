package domain

import (
	"context"
	"strconv"
)

// RemoteCart is the cart payload the upstream cart service returns on
// successful add and fetch calls.
type RemoteCart struct {
	Items     []RemoteCartItem `json:"items"`
	SessionID string           `json:"sessionId"`
}

// RemoteCartItem is a single line as the upstream serializes it. Any field
// may be absent; mapping must tolerate all of them missing.
type RemoteCartItem struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"product_id"`
	VariantID     *string  `json:"variant_id"`
	ProductName   string   `json:"product_name"`
	VariantName   *string  `json:"variant_name"`
	SKU           string   `json:"sku"`
	PriceSnapshot string   `json:"price_snapshot"`
	Quantity      int      `json:"quantity"`
	Images        []string `json:"images"`
	Slug          string   `json:"slug"`
	VariantStock  *int     `json:"variant_stock"`
	StockQuantity *int     `json:"stock_quantity"`
}

// ToCartItem maps an upstream line to the local shape. The price snapshot is
// a decimal-as-string; the stock ceiling falls back from variant stock to
// product stock to DefaultMaxStock. The first image is used as thumbnail.
func (r RemoteCartItem) ToCartItem() CartItem {
	price, err := strconv.ParseFloat(r.PriceSnapshot, 64)
	if err != nil || price < 0 {
		price = 0
	}

	maxStock := DefaultMaxStock
	switch {
	case r.VariantStock != nil && *r.VariantStock > 0:
		maxStock = *r.VariantStock
	case r.StockQuantity != nil && *r.StockQuantity > 0:
		maxStock = *r.StockQuantity
	}

	image := ""
	if len(r.Images) > 0 {
		image = r.Images[0]
	}

	return CartItem{
		ID:          r.ID,
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		Name:        r.ProductName,
		VariantName: r.VariantName,
		SKU:         r.SKU,
		Image:       image,
		Slug:        r.Slug,
		Price:       price,
		Quantity:    r.Quantity,
		MaxStock:    maxStock,
	}
}

// MapRemoteItems converts an upstream item list wholesale.
func MapRemoteItems(remote []RemoteCartItem) []CartItem {
	items := make([]CartItem, len(remote))
	for i, r := range remote {
		items[i] = r.ToCartItem()
	}
	return items
}

// RemoteCartService is the upstream cart service the store mirrors
// mutations to. A nil *RemoteCart on a nil error means the call succeeded
// but returned no usable cart payload.
type RemoteCartService interface {
	AddItem(ctx context.Context, sessionID, productID string, variantID *string, quantity int) (*RemoteCart, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, sessionID, itemID string) error
	ClearCart(ctx context.Context, sessionID string) error
	FetchCart(ctx context.Context, sessionID string) (*RemoteCart, error)
}
