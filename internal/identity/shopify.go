// Package identity resolves commerce customers that users log in as.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when the customer does not exist
var ErrNotFound = errors.New("customer not found")

// Customer is the subset of a commerce customer the service needs
type Customer struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	ShopDomain string
}

// Name joins the first and last name
func (c *Customer) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Provider looks up customers
type Provider interface {
	CustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CustomerByID(ctx context.Context, id string) (*Customer, error)
}

// ShopifyConfig holds Admin API access settings
type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	// BaseURL overrides https://<shop domain>
	BaseURL string
}

// Shopify is a Provider backed by the Shopify Admin REST API
type Shopify struct {
	cfg    ShopifyConfig
	base   string
	client *http.Client
}

// NewShopify creates a Shopify client. A nil client uses a 10s timeout.
func NewShopify(cfg ShopifyConfig, client *http.Client) *Shopify {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01"
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.ShopDomain
	}
	return &Shopify{
		cfg:    cfg,
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}

type shopifyCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Shopify) toCustomer(c shopifyCustomer) *Customer {
	return &Customer{
		ID:         strconv.FormatInt(c.ID, 10),
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		ShopDomain: s.cfg.ShopDomain,
	}
}

// CustomerByEmail searches customers by email and returns the first match
func (s *Shopify) CustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	q := url.Values{}
	q.Set("query", "email:"+email)

	var resp struct {
		Customers []shopifyCustomer `json:"customers"`
	}
	if err := s.get(ctx, "/customers/search.json?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Customers) == 0 {
		return nil, ErrNotFound
	}
	return s.toCustomer(resp.Customers[0]), nil
}

// CustomerByID fetches a customer by its numeric ID
func (s *Shopify) CustomerByID(ctx context.Context, id string) (*Customer, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, ErrNotFound
	}

	var resp struct {
		Customer *shopifyCustomer `json:"customer"`
	}
	if err := s.get(ctx, "/customers/"+id+".json", &resp); err != nil {
		return nil, err
	}
	if resp.Customer == nil {
		return nil, ErrNotFound
	}
	return s.toCustomer(*resp.Customer), nil
}

func (s *Shopify) get(ctx context.Context, path string, out any) error {
	endpoint := fmt.Sprintf("%s/admin/api/%s%s", s.base, s.cfg.APIVersion, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", s.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("shopify returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode shopify response: %w", err)
	}
	return nil
}
