package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestShopify(t *testing.T, handler http.HandlerFunc) *Shopify {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewShopify(ShopifyConfig{
		ShopDomain:  "adventure.myshopify.com",
		AccessToken: "shpat_test",
		APIVersion:  "2024-01",
		BaseURL:     srv.URL,
	}, srv.Client())
}

func TestCustomerByEmail(t *testing.T) {
	s := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/api/2024-01/customers/search.json", r.URL.Path)
		require.Equal(t, "email:hiker@example.com", r.URL.Query().Get("query"))
		require.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"customers":[{"id":7021,"email":"hiker@example.com","first_name":"Ada","last_name":"Trail"}]}`))
	})

	c, err := s.CustomerByEmail(context.Background(), "hiker@example.com")
	require.NoError(t, err)
	require.Equal(t, "7021", c.ID)
	require.Equal(t, "Ada Trail", c.Name())
	require.Equal(t, "adventure.myshopify.com", c.ShopDomain)
}

func TestCustomerByEmail_NoMatch(t *testing.T) {
	s := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"customers":[]}`))
	})

	_, err := s.CustomerByEmail(context.Background(), "nobody@example.com")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCustomerByID(t *testing.T) {
	s := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/api/2024-01/customers/42.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"customer":{"id":42,"email":"a@example.com","first_name":"A","last_name":""}}`))
	})

	c, err := s.CustomerByID(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, "42", c.ID)
	require.Equal(t, "A", c.Name())

	_, err = s.CustomerByID(context.Background(), "43")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.CustomerByID(context.Background(), "not-a-number")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCustomerByID_UpstreamError(t *testing.T) {
	s := newTestShopify(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := s.CustomerByID(context.Background(), "42")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}
