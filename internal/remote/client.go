package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cartsync/internal/domain"
	"cartsync/pkg/logger"

	"github.com/goccy/go-json"
)

const sessionHeader = "X-Session-Id"

// Client consumes the upstream cart service HTTP contract. Add and fetch
// calls are bounded by syncTimeout; update, remove and clear rely on
// transport-level defaults.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	syncTimeout time.Duration
}

func NewClient(baseURL string, syncTimeout time.Duration) *Client {
	if syncTimeout <= 0 {
		syncTimeout = 8 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{},
		syncTimeout: syncTimeout,
	}
}

// cartEnvelope is the upstream response shape. Success is a pointer so an
// explicit {"success": false} can be told apart from an empty body.
type cartEnvelope struct {
	Success *bool              `json:"success"`
	Message string             `json:"message"`
	Error   string             `json:"error"`
	Cart    *domain.RemoteCart `json:"cart"`
}

type addItemRequest struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Client) AddItem(ctx context.Context, sessionID, productID string, variantID *string, quantity int) (*domain.RemoteCart, error) {
	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	env, err := c.do(ctx, http.MethodPost, "/cart/items", sessionID, addItemRequest{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	})
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) error {
	_, err := c.do(ctx, http.MethodPatch, "/cart/items/"+itemID, sessionID, updateQuantityRequest{Quantity: quantity})
	return err
}

func (c *Client) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/items/"+itemID, sessionID, nil)
	return err
}

func (c *Client) ClearCart(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart", sessionID, nil)
	return err
}

func (c *Client) FetchCart(ctx context.Context, sessionID string) (*domain.RemoteCart, error) {
	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	env, err := c.do(ctx, http.MethodGet, "/cart", sessionID, nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

// do performs one round trip and classifies failures: transport errors and
// timeouts become ErrUnreachable, responses with an error status or an
// explicit non-success payload become *RemoteError.
func (c *Client) do(ctx context.Context, method, path, sessionID string, body interface{}) (*cartEnvelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	logger.UpstreamCall(method, path, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env cartEnvelope
	if len(raw) > 0 {
		// Tolerate non-JSON bodies: an undecodable payload from a 2xx is
		// treated the same as no payload at all.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= 400 {
		return nil, &domain.RemoteError{StatusCode: resp.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}
	if env.Success != nil && !*env.Success {
		return nil, &domain.RemoteError{StatusCode: resp.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}
	return &env, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
