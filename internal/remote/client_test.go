package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartsync/internal/domain"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemSendsContractRequest(t *testing.T) {
	var gotMethod, gotPath, gotSession string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotSession = r.Header.Get("X-Session-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"cart": {
				"sessionId": "sess-9",
				"items": [{"id": "l1", "product_id": "P1", "price_snapshot": "9.99", "quantity": 2}]
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	cart, err := client.AddItem(context.Background(), "sess-9", "P1", nil, 2)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/cart/items", gotPath)
	assert.Equal(t, "sess-9", gotSession)
	assert.Equal(t, "P1", gotBody["productId"])
	assert.Equal(t, float64(2), gotBody["quantity"])
	assert.NotContains(t, gotBody, "variantId", "nil variant is omitted")

	require.NotNil(t, cart)
	assert.Equal(t, "sess-9", cart.SessionID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "9.99", cart.Items[0].PriceSnapshot)
}

func TestErrorStatusBecomesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "message": "insufficient stock"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.AddItem(context.Background(), "s", "P1", nil, 2)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	assert.Equal(t, "insufficient stock", remoteErr.Message)
	assert.False(t, domain.IsUnreachable(err), "a received response is not a network failure")
}

func TestExplicitNonSuccessPayloadBecomesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "cart locked"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.UpdateQuantity(context.Background(), "s", "item-1", 3)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "cart locked", remoteErr.Message)
}

func TestEmptyBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	assert.NoError(t, client.RemoveItem(context.Background(), "s", "item-1"))
	assert.NoError(t, client.ClearCart(context.Background(), "s"))
}

func TestConnectionFailureIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	client := NewClient(srv.URL, time.Second)
	_, err := client.FetchCart(context.Background(), "s")
	assert.True(t, domain.IsUnreachable(err))
}

func TestTimeoutIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 30*time.Millisecond)
	_, err := client.FetchCart(context.Background(), "s")
	assert.True(t, domain.IsUnreachable(err), "timeouts are network-class")

	var remoteErr *domain.RemoteError
	assert.False(t, errors.As(err, &remoteErr))
}

func TestGarbageBodyOnSuccessIsTolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	cart, err := client.AddItem(context.Background(), "s", "P1", nil, 1)
	require.NoError(t, err)
	assert.Nil(t, cart, "undecodable 2xx body means no usable payload")
}
