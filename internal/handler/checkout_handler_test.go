package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"configas/config"
	"configas/internal/domain"
	"configas/internal/handler"
	"configas/internal/models"
	"configas/internal/poller"
	"configas/internal/repository"
	"configas/internal/service"
	"configas/internal/store"
	"configas/internal/ws"
	"configas/pkg/gateway"
	"configas/pkg/utmify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubProvider is a settable in-process gateway.
type stubProvider struct {
	mu      sync.Mutex
	status  string
	created int
}

func (p *stubProvider) CreateCharge(_ context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return &gateway.Charge{
		ProviderRef: fmt.Sprintf("tx-%d", p.created),
		Status:      domain.StatusWaitingPayment,
		AmountCents: req.AmountCents,
		QRCode:      "000201qr",
	}, nil
}

func (p *stubProvider) ChargeStatus(_ context.Context, providerRef string) (*gateway.ChargeStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &gateway.ChargeStatus{ProviderRef: providerRef, Status: p.status}, nil
}

func (p *stubProvider) setStatus(status string) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

type okSender struct{}

func (okSender) SendOrder(context.Context, *utmify.OrderPayload) error { return nil }

type checkoutEnv struct {
	engine   *gin.Engine
	db       *gorm.DB
	provider *stubProvider
	charges  *repository.ChargeRepository
	store    *store.MemoryStore
}

func newCheckoutEnv(t *testing.T) *checkoutEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{}, &models.PixCharge{}, &models.UtmifyDelivery{},
		&models.Product{}, &models.SmsReminder{},
	))
	require.NoError(t, db.Create(&models.Product{
		Name: "Água Mineral 20L", PriceCents: 1500, Category: "water", Active: true,
	}).Error)

	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test", PublicURL: "https://configas.test"},
		Utmify: config.UtmifyConfig{Platform: "Configas"},
		Checkout: config.CheckoutConfig{
			// Long enough that the background watcher never ticks during
			// a test run.
			PollInterval: time.Hour,
			PollTimeout:  time.Hour,
			PendingTTL:   2 * time.Hour,
			PaidOrderTTL: 24 * time.Hour,
			SplitRatio:   0.70,
		},
	}

	orderRepo := repository.NewOrderRepository(db)
	chargeRepo := repository.NewChargeRepository(db)
	productRepo := repository.NewProductRepository(db)
	utmifyRepo := repository.NewUtmifyRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	kv := store.NewMemoryStore()
	hub := ws.NewHub()
	provider := &stubProvider{status: domain.StatusWaitingPayment}
	registry := gateway.NewRegistry(
		[]gateway.Descriptor{{ID: gateway.Ezzpag, Name: "Ezzpag", Alias: "gateway_a", Enabled: true, Weight: 1}},
		map[string]gateway.Provider{gateway.Ezzpag: provider},
	)
	selector := gateway.NewSelector(registry, kv)
	dispatcher := utmify.NewDispatcher(okSender{}, kv)
	dispatcher.Backoff = time.Millisecond

	paymentSvc := service.NewPaymentService(cfg, orderRepo, chargeRepo, utmifyRepo, kv, dispatcher, hub)
	reminderSvc := service.NewReminderService(chargeRepo, reminderRepo, nil, time.Hour)
	watchers := poller.NewManager(&cfg.Checkout, registry, chargeRepo, paymentSvc)
	t.Cleanup(watchers.Shutdown)

	h := handler.NewCheckoutHandler(cfg, selector, registry, orderRepo, chargeRepo,
		productRepo, kv, paymentSvc, reminderSvc, watchers, dispatcher)

	engine := gin.New()
	engine.POST("/api/v1/checkout/charges", h.CreateCharge)
	engine.GET("/api/v1/checkout/charges/:id", h.ChargeStatus)

	return &checkoutEnv{engine: engine, db: db, provider: provider, charges: chargeRepo, store: kv}
}

func (e *checkoutEnv) createCharge(t *testing.T, abandon bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body := map[string]any{
		"session_id": "sess-1",
		"customer": map[string]any{
			"name":     "Maria da Silva",
			"phone":    "5511999990000",
			"document": "529.982.247-25",
		},
		"items":   []map[string]any{{"name": "Água Mineral 20L", "quantity": 2}},
		"abandon": abandon,
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/charges", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	e.engine.ServeHTTP(rec, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func chargeID(t *testing.T, resp map[string]any) uint {
	t.Helper()
	id, ok := resp["id"].(float64)
	require.True(t, ok, "response carries a charge id: %v", resp)
	return uint(id)
}

func TestCreateChargeReturnsOpenChargeOnReentry(t *testing.T) {
	env := newCheckoutEnv(t)

	first, resp := env.createCharge(t, false)
	require.Equal(t, http.StatusCreated, first.Code)
	firstID := chargeID(t, resp)

	second, resp := env.createCharge(t, false)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, firstID, chargeID(t, resp), "re-entry must return the open charge, not mint another")
}

func TestCreateChargeAbandonReplacesOpenCharge(t *testing.T) {
	env := newCheckoutEnv(t)

	first, resp := env.createCharge(t, false)
	require.Equal(t, http.StatusCreated, first.Code)
	firstID := chargeID(t, resp)

	second, resp := env.createCharge(t, true)
	require.Equal(t, http.StatusCreated, second.Code)
	secondID := chargeID(t, resp)
	require.NotEqual(t, firstID, secondID)

	old, err := env.charges.GetByID(firstID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, old.Status, "the abandoned charge must be terminal")

	var rec struct {
		ChargeID uint `json:"chargeId"`
	}
	require.True(t, store.GetJSON(env.store, store.PixKey("sess-1"), &rec))
	assert.Equal(t, secondID, rec.ChargeID, "the pending record must point at the replacement charge")
}

func TestChargeStatusReadsThroughToProvider(t *testing.T) {
	env := newCheckoutEnv(t)

	created, resp := env.createCharge(t, false)
	require.Equal(t, http.StatusCreated, created.Code)
	id := chargeID(t, resp)

	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/checkout/charges/%d", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, domain.StatusWaitingPayment, status["status"])
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")

	env.provider.setStatus(domain.StatusPaid)

	rec = httptest.NewRecorder()
	env.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/checkout/charges/%d", id), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, domain.StatusPaid, status["status"])

	settled, err := env.charges.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, settled.Status)
	require.NotNil(t, settled.PaidAt)
}
