package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/phenrril/orderdesk/internal/composer"
	"github.com/phenrril/orderdesk/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client talks to the orderdesk REST API: catalog search, variant lookup and
// order submission. Every failure comes back as *domain.CatalogUnavailableError.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. When ts is nil requests go out
// without an Authorization header.
func NewClient(baseURL string, ts oauth2.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if ts != nil {
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = timeout
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

// StaticToken wraps a fixed bearer token.
func StaticToken(token string) oauth2.TokenSource {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

type productsResp struct {
	Products []domain.Product `json:"products"`
}

type variantsResp struct {
	Variants []domain.Variant `json:"variants"`
}

type errorResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) SearchProducts(ctx context.Context, tenantID, query string, limit int) ([]domain.Product, error) {
	const op = "search products"
	q := url.Values{}
	if query = strings.TrimSpace(query); query != "" {
		q.Set("search", query)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/products/tenant/" + url.PathEscape(tenantID)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var out productsResp
	if err := c.do(ctx, op, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) ProductVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	const op = "product variants"
	endpoint := c.baseURL + "/product/" + url.PathEscape(productID) + "/variants"
	var out variantsResp
	if err := c.do(ctx, op, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Variants, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req composer.SubmitRequest) (composer.SubmitResult, error) {
	const op = "submit order"
	var out composer.SubmitResult
	buf, err := json.Marshal(req)
	if err != nil {
		return out, &domain.CatalogUnavailableError{Op: op, Err: fmt.Errorf("encode body: %w", err)}
	}
	if err := c.do(ctx, op, http.MethodPost, c.baseURL+"/order/submit", buf, &out); err != nil {
		return out, err
	}
	if out.Order.ID == "" {
		return out, &domain.CatalogUnavailableError{Op: op, Err: errors.New("incomplete response")}
	}
	return out, nil
}

type orderResp struct {
	SelectedProducts []domain.OrderLine `json:"selectedProducts"`
}

// OrderLines fetches a submitted order as lines carrying quantity and price,
// suitable for Composer.Restore.
func (c *Client) OrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const op = "load order"
	var out orderResp
	if err := c.do(ctx, op, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		return nil, err
	}
	return out.SelectedProducts, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return &domain.CatalogUnavailableError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.CatalogUnavailableError{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &domain.CatalogUnavailableError{Op: op, Status: res.StatusCode, Err: errors.New(errorMessage(b))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &domain.CatalogUnavailableError{Op: op, Status: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var e errorResp
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "empty response"
}
