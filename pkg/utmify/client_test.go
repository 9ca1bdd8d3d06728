package utmify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"configas/pkg/utmify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommission(t *testing.T) {
	c := utmify.NewCommission(10000)
	assert.Equal(t, int64(10000), c.TotalPriceInCents)
	assert.Equal(t, int64(400), c.GatewayFeeInCents)
	assert.Equal(t, int64(9600), c.UserCommissionInCents)

	// Rounded, not truncated.
	c = utmify.NewCommission(8870)
	assert.Equal(t, int64(355), c.GatewayFeeInCents)
	assert.Equal(t, int64(8515), c.UserCommissionInCents)
}

func TestSendOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api-credentials/orders", r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("x-api-token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ord-1", body["orderId"])
		assert.Equal(t, "pix", body["paymentMethod"])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := utmify.NewClient(srv.URL, "tok-123")
	err := client.SendOrder(context.Background(), &utmify.OrderPayload{
		OrderID:       "ord-1",
		PaymentMethod: "pix",
		Status:        "waiting_payment",
	})
	require.NoError(t, err)
}

func TestSendOrderCollectorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := utmify.NewClient(srv.URL, "bad")
	err := client.SendOrder(context.Background(), &utmify.OrderPayload{OrderID: "ord-1"})
	assert.Error(t, err)
}
