package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"configas/internal/domain"
	"configas/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEzzpagCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "Basic dG9rZW46eA==", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pix", body["paymentMethod"])
		assert.Equal(t, float64(8870), body["amount"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     12345,
			"status": "waiting_payment",
			"amount": 8870,
			"pix": map[string]any{
				"qrcode":         "000201qrpayload",
				"expirationDate": "2026-08-30T12:00:00Z",
			},
		})
	}))
	defer srv.Close()

	provider := gateway.NewEzzpagProvider(srv.URL, "dG9rZW46eA==")
	charge, err := provider.CreateCharge(context.Background(), gateway.ChargeRequest{
		AmountCents: 8870,
		Customer: gateway.Customer{
			Name:     "Maria da Silva",
			Phone:    "5511999990000",
			Document: "52998224725",
		},
		Items: []gateway.Item{{Title: "Gás 13kg", UnitPriceCents: 8870, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", charge.ProviderRef)
	assert.Equal(t, domain.StatusWaitingPayment, charge.Status)
	assert.Equal(t, int64(8870), charge.AmountCents)
	assert.Equal(t, "000201qrpayload", charge.QRCode)
	assert.False(t, charge.ExpiresAt.IsZero())
}

func TestEzzpagChargeStatusPaid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transactions/12345", r.URL.Path)
		assert.Contains(t, r.Header.Get("Cache-Control"), "no-cache")

		json.NewEncoder(w).Encode(map[string]any{
			"id":     12345,
			"status": "paid",
			"paidAt": "2026-08-30T12:05:00Z",
		})
	}))
	defer srv.Close()

	provider := gateway.NewEzzpagProvider(srv.URL, "dG9rZW46eA==")
	status, err := provider.ChargeStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, status.Status)
	require.NotNil(t, status.PaidAt)
}

func TestEzzpagCreateChargeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid document"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	provider := gateway.NewEzzpagProvider(srv.URL, "dG9rZW46eA==")
	_, err := provider.CreateCharge(context.Background(), gateway.ChargeRequest{AmountCents: 100})
	assert.Error(t, err)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, domain.StatusPaid, gateway.NormalizeStatus(gateway.Ezzpag, "approved"))
	assert.Equal(t, domain.StatusRefused, gateway.NormalizeStatus(gateway.Ghost, "chargedback"))
	assert.Equal(t, domain.StatusWaitingPayment, gateway.NormalizeStatus(gateway.Ghost, "in_analisys"))
	assert.Equal(t, domain.StatusPaid, gateway.NormalizeStatus(gateway.BlackCat, "approved"))
	assert.Equal(t, domain.StatusRefused, gateway.NormalizeStatus(gateway.Umbrela, "failed"))
	assert.Equal(t, domain.StatusRefused, gateway.NormalizeStatus(gateway.BlackCat, "expired"))
	assert.Equal(t, domain.StatusExpired, gateway.NormalizeStatus(gateway.Ezzpag, "expired"))
}
