package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cartsync/internal/domain"
	"cartsync/internal/remote"
	"cartsync/internal/repository/memory"
	"cartsync/internal/usecase"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cartResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Items     []domain.CartItem `json:"items"`
		SessionID string            `json:"sessionId"`
		Total     float64           `json:"total"`
		Subtotal  float64           `json:"subtotal"`
		ItemCount int               `json:"itemCount"`
		Warning   string            `json:"warning"`
		Source    string            `json:"source"`
	} `json:"data"`
}

func newTestMux(upstreamURL string) *http.ServeMux {
	client := remote.NewClient(upstreamURL, time.Second)
	registry := usecase.NewStoreRegistry(client, memory.NewSnapshotRepository(), time.Minute, time.Minute)
	handler := NewCartHandler(registry, 999)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/cart", handler.GetCart)
	mux.HandleFunc("POST /api/v1/cart/sync", handler.Sync)
	mux.HandleFunc("POST /api/v1/cart/items", handler.AddItem)
	mux.HandleFunc("PATCH /api/v1/cart/items/{itemId}", handler.UpdateQuantity)
	mux.HandleFunc("DELETE /api/v1/cart/items/{itemId}", handler.RemoveItem)
	mux.HandleFunc("DELETE /api/v1/cart", handler.ClearCart)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, sessionID, body string) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp cartResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestAddItemCreatesSessionAndEchoesHeader(t *testing.T) {
	// Upstream is down: the edge must still commit the add locally.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	mux := newTestMux(upstream.URL)

	rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", "",
		`{"productId": "P1", "name": "Shirt", "price": 12.50, "quantity": 2, "maxStock": 5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 2, resp.Data.Items[0].Quantity)
	assert.Equal(t, "local", resp.Data.Source)
	assert.InDelta(t, 25.0, resp.Data.Total, 1e-9)

	sessionID := rec.Header().Get("X-Session-Id")
	require.NotEmpty(t, sessionID, "new session id is echoed for the browser to persist")
	assert.Equal(t, resp.Data.SessionID, sessionID)

	// The same session sees the same cart on a later request.
	rec, resp = doJSON(t, mux, http.MethodGet, "/api/v1/cart", sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, 2, resp.Data.ItemCount)
}

func TestAddItemServerConfirmedCart(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"cart": {
				"sessionId": "confirmed-1",
				"items": [{"id": "srv-l1", "product_id": "P1", "product_name": "Shirt", "price_snapshot": "12.50", "quantity": 2, "stock_quantity": 5}]
			}
		}`))
	}))
	defer upstream.Close()

	mux := newTestMux(upstream.URL)

	rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", "",
		`{"productId": "P1", "quantity": 2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server", resp.Data.Source)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "srv-l1", resp.Data.Items[0].ID)
	assert.Equal(t, "confirmed-1", rec.Header().Get("X-Session-Id"))
}

func TestAddItemValidation(t *testing.T) {
	mux := newTestMux("http://localhost:0")

	cases := map[string]string{
		"missing product":    `{"quantity": 1}`,
		"zero quantity":      `{"productId": "P1", "quantity": 0}`,
		"excessive quantity": `{"productId": "P1", "quantity": 10000}`,
		"negative price":     `{"productId": "P1", "quantity": 1, "price": -1}`,
		"not json":           `{{{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestUpdateRemoveClearFlow(t *testing.T) {
	// Upstream accepts everything with empty bodies.
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	mux := newTestMux(upstream.URL)

	rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", "",
		`{"productId": "P1", "price": 10, "quantity": 2, "maxStock": 9}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get("X-Session-Id")
	itemID := resp.Data.Items[0].ID

	rec, resp = doJSON(t, mux, http.MethodPatch, "/api/v1/cart/items/"+itemID, sessionID, `{"quantity": 7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, resp.Data.Items[0].Quantity)

	rec, resp = doJSON(t, mux, http.MethodDelete, "/api/v1/cart/items/"+itemID, sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Data.Items)

	doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", sessionID, `{"productId": "P2", "price": 1, "quantity": 1}`)
	rec, resp = doJSON(t, mux, http.MethodDelete, "/api/v1/cart", sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, resp.Data.Items)
	assert.Zero(t, resp.Data.ItemCount)
}

func TestSyncReplacesFromUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{
				"success": true,
				"cart": {"items": [{"id": "srv-1", "product_id": "P9", "price_snapshot": "3.00", "quantity": 4}]}
			}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	mux := newTestMux(upstream.URL)

	rec, _ := doJSON(t, mux, http.MethodPost, "/api/v1/cart/items", "", `{"productId": "P1", "price": 1, "quantity": 1}`)
	sessionID := rec.Header().Get("X-Session-Id")
	require.NotEmpty(t, sessionID)

	rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/sync", sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server", resp.Data.Source)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "P9", resp.Data.Items[0].ProductID)
	assert.Equal(t, 4, resp.Data.ItemCount)
}

func TestSyncWithoutSessionIsBenign(t *testing.T) {
	mux := newTestMux("http://localhost:0")

	rec, resp := doJSON(t, mux, http.MethodPost, "/api/v1/cart/sync", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Data.Items)
}
