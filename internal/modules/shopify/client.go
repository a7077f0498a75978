package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

const (
	DefaultAPIVersion = "2024-10"
	defaultRetries    = 3
)

var ErrNotFound = errors.New("shopify: resource not found")

// APIError is returned for any non-2xx Admin API response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to the Shopify Admin REST API for a single store. Requests go
// through go-shopify, which signs them and retries throttled calls.
type Client struct {
	api *goshopify.Client
}

// NewClient builds a client for storeURL, which may be a bare shop handle,
// a myshopify.com host or a full URL. A nil hc gets a 30s timeout client.
func NewClient(storeURL, token, apiVersion string, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	api, err := goshopify.NewClient(goshopify.App{}, ShopName(storeURL), token,
		goshopify.WithVersion(apiVersion),
		goshopify.WithRetry(defaultRetries),
		goshopify.WithHTTPClient(hc),
	)
	if err != nil {
		return nil, fmt.Errorf("shopify client for %q: %w", storeURL, err)
	}
	return &Client{api: api}, nil
}

// ShopName reduces a configured store URL to the host or handle go-shopify
// expects.
func ShopName(storeURL string) string {
	s := strings.TrimSpace(storeURL)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

type customerResource struct {
	Customer *Customer `json:"customer"`
}

type customersResource struct {
	Customers []Customer `json:"customers"`
}

type orderResource struct {
	Order *Order `json:"order"`
}

type ordersResource struct {
	Orders []Order `json:"orders"`
}

type searchQuery struct {
	Query string `url:"query"`
}

type listQuery struct {
	Status       string `url:"status,omitempty"`
	CreatedAtMin string `url:"created_at_min,omitempty"`
	SinceID      int64  `url:"since_id,omitempty"`
	Limit        int    `url:"limit,omitempty"`
}

// ── Customers ──────────────────────────────────────────────────────────────

func (c *Client) SearchCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	const path = "customers/search.json"
	var out customersResource
	if err := c.api.Get(ctx, path, &out, searchQuery{Query: "email:" + email}); err != nil {
		return nil, apiError(http.MethodGet, path, err)
	}
	for i := range out.Customers {
		if strings.EqualFold(out.Customers[i].Email, email) {
			return &out.Customers[i], nil
		}
	}
	return nil, ErrNotFound
}

func (c *Client) CreateCustomer(ctx context.Context, in Customer) (*Customer, error) {
	const path = "customers.json"
	var out customerResource
	if err := c.api.Post(ctx, path, customerResource{Customer: &in}, &out); err != nil {
		return nil, apiError(http.MethodPost, path, err)
	}
	return decoded(out.Customer, path)
}

func (c *Client) UpdateCustomer(ctx context.Context, in Customer) (*Customer, error) {
	if in.ID == 0 {
		return nil, errors.New("shopify: update customer without id")
	}
	path := "customers/" + strconv.FormatInt(in.ID, 10) + ".json"
	var out customerResource
	if err := c.api.Put(ctx, path, customerResource{Customer: &in}, &out); err != nil {
		return nil, apiError(http.MethodPut, path, err)
	}
	return decoded(out.Customer, path)
}

// ── Orders ─────────────────────────────────────────────────────────────────

func (c *Client) CreateOrder(ctx context.Context, in Order) (*Order, error) {
	const path = "orders.json"
	var out orderResource
	if err := c.api.Post(ctx, path, orderResource{Order: &in}, &out); err != nil {
		return nil, apiError(http.MethodPost, path, err)
	}
	return decoded(out.Order, path)
}

// ListOrders returns one page of orders in ascending id order.
func (c *Client) ListOrders(ctx context.Context, p ListOrdersParams) ([]Order, error) {
	const path = "orders.json"
	q := listQuery{Status: p.Status, SinceID: p.SinceID, Limit: p.Limit}
	if q.Status == "" {
		q.Status = "any"
	}
	if !p.CreatedAtMin.IsZero() {
		q.CreatedAtMin = p.CreatedAtMin.UTC().Format(time.RFC3339)
	}
	var out ordersResource
	if err := c.api.Get(ctx, path, &out, q); err != nil {
		return nil, apiError(http.MethodGet, path, err)
	}
	return out.Orders, nil
}

func decoded[T any](v *T, path string) (*T, error) {
	if v == nil {
		return nil, fmt.Errorf("shopify %s: empty response", path)
	}
	return v, nil
}

// apiError keeps status and message of go-shopify's response errors so callers
// only need to know about APIError.
func apiError(method, path string, err error) error {
	var rl goshopify.RateLimitError
	if errors.As(err, &rl) {
		return &APIError{Method: method, Path: path, Status: rl.Status, Body: rl.Error()}
	}
	var re goshopify.ResponseError
	if errors.As(err, &re) {
		return &APIError{Method: method, Path: path, Status: re.Status, Body: re.Error()}
	}
	return fmt.Errorf("shopify %s %s: %w", method, path, err)
}
