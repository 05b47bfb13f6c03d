package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client is a cookie-session REST client for the backend. One client holds
// one login session; it is safe for sequential use from one workflow.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// APIError is a non-2xx response decoded from the backend's error envelope.
type APIError struct {
	Status int
	Code   string
	Body   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(data)}
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Code = envelope.Error
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the session cookie in the client's jar.
func (c *Client) Login(ctx context.Context, loginID, password string) error {
	body := map[string]string{"login_id": loginID, "password": password}
	return c.do(ctx, http.MethodPost, "/login", body, nil)
}

// Session is the authenticated user context used to prefill forms.
type Session struct {
	ID          uint    `json:"id"`
	LoginID     string  `json:"login_id"`
	DisplayName string  `json:"display_name"`
	Role        string  `json:"role"`
	ShopID      *uint   `json:"shop_id"`
	ShopName    *string `json:"shop_name"`
}

func (c *Client) CurrentUser(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodGet, "/auth/user", nil, &s)
	return s, err
}

// FindSimilar runs the similarity check. An all-empty query is a no-op: no
// network call is made and the zero result is returned, which is distinct
// from the backend answering "zero candidates".
func (c *Client) FindSimilar(ctx context.Context, q Query) (SimilarResult, error) {
	if q.Empty() {
		return SimilarResult{}, nil
	}
	var result SimilarResult
	err := c.do(ctx, http.MethodPost, "/customers/similar/", q, &result)
	return result, err
}

func (c *Client) GetCustomer(ctx context.Context, id uint) (CustomerDetail, error) {
	var detail CustomerDetail
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/customers/%d/", id), nil, &detail)
	return detail, err
}

type created struct {
	ID uint `json:"id"`
}

// CreateCustomer submits a snapshot to POST /customers/ and returns the new id.
func (c *Client) CreateCustomer(ctx context.Context, snap Snapshot) (uint, error) {
	var out created
	if err := c.do(ctx, http.MethodPost, "/customers/", snap, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// EstimateItem is one estimate line in an outbound estimate payload.
type EstimateItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `json:"tax_type,omitempty"`
	Discount  float64 `json:"discount,omitempty"`
	SaleType  string  `json:"sale_type,omitempty"`
}

// EstimateRequest carries either PartyID (existing party) or NewParty
// (snapshot), never both.
type EstimateRequest struct {
	ShopID   *uint          `json:"shop,omitempty"`
	PartyID  *uint          `json:"party_id,omitempty"`
	NewParty *Snapshot      `json:"new_party,omitempty"`
	Items    []EstimateItem `json:"items"`
}

func (c *Client) CreateEstimate(ctx context.Context, req EstimateRequest) (uint, error) {
	var out created
	if err := c.do(ctx, http.MethodPost, "/estimates/", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// OrderItem is one order line in an outbound order payload.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxType   string  `json:"tax_type,omitempty"`
	Discount  float64 `json:"discount,omitempty"`
	SaleType  string  `json:"sale_type,omitempty"`
}

// OrderRequest carries either CustomerID (existing customer) or NewCustomer
// (snapshot), never both.
type OrderRequest struct {
	ShopID      *uint       `json:"shop,omitempty"`
	CustomerID  *uint       `json:"customer_id,omitempty"`
	NewCustomer *Snapshot   `json:"new_customer,omitempty"`
	Items       []OrderItem `json:"items"`
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (uint, error) {
	var out created
	if err := c.do(ctx, http.MethodPost, "/orders/", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}
