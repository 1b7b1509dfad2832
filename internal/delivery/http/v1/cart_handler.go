package v1

import (
	"log/slog"
	"net/http"

	"cartsync/internal/domain"
	"cartsync/internal/usecase"
	"cartsync/pkg/utils"

	"github.com/goccy/go-json"
)

const sessionHeader = "X-Session-Id"

// CartHandler exposes one session's cart store over HTTP. The session is
// carried in the X-Session-Id header; responses echo the (possibly newly
// created) id back in the same header.
type CartHandler struct {
	registry        *usecase.StoreRegistry
	maxItemQuantity int
}

func NewCartHandler(registry *usecase.StoreRegistry, maxItemQuantity int) *CartHandler {
	return &CartHandler{
		registry:        registry,
		maxItemQuantity: maxItemQuantity,
	}
}

// cartPayload is the cart view the storefront renders from.
type cartPayload struct {
	Items     []domain.CartItem `json:"items"`
	SessionID string            `json:"sessionId,omitempty"`
	IsLoading bool              `json:"isLoading"`
	Error     string            `json:"error,omitempty"`
	Total     float64           `json:"total"`
	Subtotal  float64           `json:"subtotal"`
	ItemCount int               `json:"itemCount"`
	Warning   string            `json:"warning,omitempty"`
	Source    usecase.Source    `json:"source,omitempty"`
}

func (h *CartHandler) resolveStore(r *http.Request) *usecase.CartStore {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		return h.registry.NewStore()
	}
	return h.registry.Resolve(r.Context(), sessionID)
}

// commit registers a store under the session id it generated and echoes the
// id so the browser can persist it.
func (h *CartHandler) commit(w http.ResponseWriter, store *usecase.CartStore) {
	if sessionID := store.SessionID(); sessionID != "" {
		h.registry.Register(sessionID, store)
		w.Header().Set(sessionHeader, sessionID)
	}
}

func (h *CartHandler) payload(store *usecase.CartStore, res *usecase.MutationResult) cartPayload {
	state := store.State()
	p := cartPayload{
		Items:     state.Items,
		SessionID: state.SessionID,
		IsLoading: state.IsLoading,
		Error:     state.Error,
		Total:     store.Total(),
		Subtotal:  store.Subtotal(),
		ItemCount: store.ItemCount(),
	}
	if res != nil {
		p.Warning = res.Warning
		p.Source = res.Source
	}
	return p
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store := h.resolveStore(r)
	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, nil))
}

type addItemReq struct {
	ProductID   string  `json:"productId"`
	VariantID   *string `json:"variantId"`
	Name        string  `json:"name"`
	VariantName *string `json:"variantName"`
	SKU         string  `json:"sku"`
	Image       string  `json:"image"`
	Slug        string  `json:"slug"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	MaxStock    int     `json:"maxStock"`
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if req.ProductID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Product ID required")
		return
	}
	if req.Quantity <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}
	if req.Quantity > h.maxItemQuantity {
		utils.WriteError(w, http.StatusBadRequest, "Quantity exceeds maximum limit")
		return
	}
	if req.Price < 0 {
		utils.WriteError(w, http.StatusBadRequest, "Price must be non-negative")
		return
	}

	store := h.resolveStore(r)
	res, err := store.AddItem(r.Context(), domain.NewItem{
		ProductID:   req.ProductID,
		VariantID:   req.VariantID,
		Name:        req.Name,
		VariantName: req.VariantName,
		SKU:         req.SKU,
		Image:       req.Image,
		Slug:        req.Slug,
		Price:       req.Price,
		Quantity:    req.Quantity,
		MaxStock:    req.MaxStock,
	})
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.Warning != "" {
		slog.Warn("Handler: AddItem applied locally", "product_id", req.ProductID, "warning", res.Warning)
	}

	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, res))
}

type updateQuantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("itemId")
	if itemID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Item ID required")
		return
	}

	var req updateQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Quantity < 0 {
		utils.WriteError(w, http.StatusBadRequest, "Quantity must not be negative")
		return
	}
	if req.Quantity > h.maxItemQuantity {
		utils.WriteError(w, http.StatusBadRequest, "Quantity exceeds maximum limit")
		return
	}

	store := h.resolveStore(r)
	res, err := store.UpdateQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, res))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("itemId")
	if itemID == "" {
		utils.WriteError(w, http.StatusBadRequest, "Item ID required")
		return
	}

	store := h.resolveStore(r)
	res := store.RemoveItem(r.Context(), itemID)

	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, res))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store := h.resolveStore(r)
	res := store.ClearCart(r.Context())

	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, res))
}

func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	store := h.resolveStore(r)
	res := store.Sync(r.Context())

	h.commit(w, store)
	utils.WriteSuccess(w, http.StatusOK, h.payload(store, res))
}
