package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, "test-key", 2*time.Second), srv
}

func TestInitPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/payments/init-payment", r.URL.Path)
			assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))

			var req InitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(114000), req.AmountMillimes)
			assert.Equal(t, "TND", req.Currency)

			json.NewEncoder(w).Encode(InitResponse{PaymentRef: "pay_123", PayURL: "https://gw.test/pay/pay_123"})
		})
		defer srv.Close()

		out, err := client.InitPayment(ctx, &InitRequest{
			OrderID:        "ord_1",
			AmountMillimes: 114000,
			Currency:       "TND",
			Email:          "renter@test.tn",
		})
		require.NoError(t, err)
		assert.Equal(t, "pay_123", out.PaymentRef)
		assert.Equal(t, "https://gw.test/pay/pay_123", out.PayURL)
	})

	t.Run("MissingPayURL", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(InitResponse{PaymentRef: "pay_123"})
		})
		defer srv.Close()

		_, err := client.InitPayment(ctx, &InitRequest{OrderID: "ord_1"})
		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Contains(t, ge.Message, "pay_url")
	})

	t.Run("ServerError", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		defer srv.Close()

		_, err := client.InitPayment(ctx, &InitRequest{OrderID: "ord_1"})
		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, http.StatusInternalServerError, ge.StatusCode)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		defer srv.Close()

		_, err := client.InitPayment(ctx, &InitRequest{OrderID: "ord_1"})
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})
}

func TestGetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Completed", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/pay_123", r.URL.Path)
			json.NewEncoder(w).Encode(Details{
				Status:         StatusCompleted,
				AmountMillimes: 114000,
				OrderID:        "ord_1",
				PayerEmail:     "renter@test.tn",
			})
		})
		defer srv.Close()

		out, err := client.GetPayment(ctx, "pay_123")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out.Status)
		assert.Equal(t, int64(114000), out.AmountMillimes)
		assert.Equal(t, "ord_1", out.OrderID)
	})

	t.Run("TypedErrors", func(t *testing.T) {
		cases := []struct {
			code int
			want error
		}{
			{http.StatusNotFound, ErrPaymentNotFound},
			{http.StatusUnauthorized, ErrUnauthorized},
			{http.StatusGone, ErrPaymentExpired},
		}
		for _, tc := range cases {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
			})
			_, err := client.GetPayment(ctx, "pay_123")
			assert.True(t, errors.Is(err, tc.want), "status %d", tc.code)
			srv.Close()
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		client := NewClient(srv.URL, "test-key", 50*time.Millisecond)

		_, err := client.GetPayment(ctx, "pay_123")
		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
	})
}
