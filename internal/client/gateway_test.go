package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SergeyBogomolovv/purchase-order-service/internal/client"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/config"
	"github.com/SergeyBogomolovv/purchase-order-service/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dependencyConfig(url string) config.Dependency {
	return config.Dependency{
		URL:              url,
		Timeout:          time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}
}

func TestUserClient_GetUser(t *testing.T) {
	testCases := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus entities.VerificationStatus
		wantName   string
	}{
		{
			name: "valid payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"user_id": 1, "user_name": "alice", "response_code": "OK"}`))
			},
			wantStatus: entities.VerificationValid,
			wantName:   "alice",
		},
		{
			name: "not found is a business outcome",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "no such user", http.StatusNotFound)
			},
			wantStatus: entities.VerificationNotFound,
		},
		{
			name: "service unavailable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			wantStatus: entities.VerificationUnavailable,
		},
		{
			name: "content type mismatch",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html></html>"))
			},
			wantStatus: entities.VerificationRemoteError,
		},
		{
			name: "broken json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"user_id": `))
			},
			wantStatus: entities.VerificationRemoteError,
		},
		{
			name: "missing display name",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"user_id": 1}`))
			},
			wantStatus: entities.VerificationInvalidPayload,
		},
		{
			name: "unexpected status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "teapot", http.StatusTeapot)
			},
			wantStatus: entities.VerificationRemoteError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := client.NewUserClient(testLogger(), dependencyConfig(srv.URL))
			user, outcome := c.GetUser(context.Background(), 1)

			assert.Equal(t, tc.wantStatus, outcome.Status)
			assert.Equal(t, tc.wantName, user.Name)
		})
	}
}

func TestUserClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := dependencyConfig(srv.URL)
	cfg.Timeout = 30 * time.Millisecond

	c := client.NewUserClient(testLogger(), cfg)
	outcome := c.VerifyExists(context.Background(), 1)

	assert.Equal(t, entities.VerificationUnavailable, outcome.Status)
}

func TestUserClient_OpenBreakerSuppressesCalls(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := dependencyConfig(srv.URL)
	cfg.BreakerThreshold = 1
	cfg.BreakerCooldown = time.Minute

	c := client.NewUserClient(testLogger(), cfg)

	outcome := c.VerifyExists(context.Background(), 1)
	require.Equal(t, entities.VerificationUnavailable, outcome.Status)
	require.EqualValues(t, 1, hits.Load())

	// circuit is open now, the second call must not reach the server
	outcome = c.VerifyExists(context.Background(), 1)
	assert.Equal(t, entities.VerificationUnavailable, outcome.Status)
	assert.EqualValues(t, 1, hits.Load())
}

func TestProductClient_GetProduct(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus entities.VerificationStatus
		wantPrice  string
		wantQty    int
	}{
		{
			name:       "valid payload",
			body:       `{"product_id": 7, "price": 10.00, "quantity": 50}`,
			wantStatus: entities.VerificationValid,
			wantPrice:  "10",
			wantQty:    50,
		},
		{
			name:       "missing price",
			body:       `{"product_id": 7, "quantity": 50}`,
			wantStatus: entities.VerificationInvalidPayload,
		},
		{
			name:       "missing quantity",
			body:       `{"product_id": 7, "price": 10.00}`,
			wantStatus: entities.VerificationInvalidPayload,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/products/7", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := client.NewProductClient(testLogger(), dependencyConfig(srv.URL))
			product, outcome := c.GetProduct(context.Background(), 7)

			assert.Equal(t, tc.wantStatus, outcome.Status)
			if tc.wantStatus == entities.VerificationValid {
				assert.Equal(t, tc.wantPrice, product.Price.String())
				assert.Equal(t, tc.wantQty, product.Quantity)
			}
		})
	}
}

func TestProductClient_UpdateQuantity(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/7/quantity", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	c := client.NewProductClient(testLogger(), dependencyConfig(srv.URL))
	outcome := c.UpdateQuantity(context.Background(), 7, 47)

	require.True(t, outcome.Valid(), "outcome: %s %s", outcome.Status, outcome.Detail)
	assert.JSONEq(t, `{"quantity": 47}`, string(gotBody))
}

func TestProductClient_UpdateQuantityRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := client.NewProductClient(testLogger(), dependencyConfig(srv.URL))
	outcome := c.UpdateQuantity(context.Background(), 7, 47)

	assert.Equal(t, entities.VerificationRemoteError, outcome.Status)
}
