package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"configas/config"
	"configas/internal/domain"
	"configas/internal/models"
	"configas/internal/poller"
	"configas/internal/repository"
	"configas/internal/service"
	"configas/internal/store"
	"configas/pkg/cpf"
	"configas/pkg/gateway"
	"configas/pkg/utmify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// chargeRecord is the per-session snapshot of an open charge, the piece the
// checkout page needs to restore the QR code after a reload.
type chargeRecord struct {
	ChargeID    uint      `json:"chargeId"`
	ProviderRef string    `json:"providerRef"`
	QRCode      string    `json:"qrCode"`
	AmountCents int64     `json:"amountCents"`
	Leg         string    `json:"leg"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CheckoutHandler struct {
	cfg        *config.Config
	selector   *gateway.Selector
	registry   *gateway.Registry
	orders     *repository.OrderRepository
	charges    *repository.ChargeRepository
	products   *repository.ProductRepository
	store      store.Store
	payments   *service.PaymentService
	reminders  *service.ReminderService
	watchers   *poller.Manager
	dispatcher *utmify.Dispatcher
}

func NewCheckoutHandler(
	cfg *config.Config,
	selector *gateway.Selector,
	registry *gateway.Registry,
	orders *repository.OrderRepository,
	charges *repository.ChargeRepository,
	products *repository.ProductRepository,
	st store.Store,
	payments *service.PaymentService,
	reminders *service.ReminderService,
	watchers *poller.Manager,
	dispatcher *utmify.Dispatcher,
) *CheckoutHandler {
	return &CheckoutHandler{
		cfg:        cfg,
		selector:   selector,
		registry:   registry,
		orders:     orders,
		charges:    charges,
		products:   products,
		store:      st,
		payments:   payments,
		reminders:  reminders,
		watchers:   watchers,
		dispatcher: dispatcher,
	}
}

// OpenSession opens (or resumes) a checkout session. UTM parameters from
// the landing URL are captured here, and any conversion event that failed
// to deliver on a previous visit is replayed in the background.
func (h *CheckoutHandler) OpenSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	_ = c.ShouldBindJSON(&req)

	sessionID := req.SessionID
	fresh := sessionID == ""
	if fresh {
		sessionID = uuid.NewString()
	}

	h.captureUtmParams(c, sessionID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		h.dispatcher.Replay(ctx, sessionID)
	}()

	resp := gin.H{"session_id": sessionID}
	if !fresh {
		if rec, ok := h.resumablePaidOrder(sessionID); ok {
			resp["paid_order"] = rec
		}
		if rec, ok := h.resumableCharge(sessionID, domain.LegMain); ok {
			resp["pending_charge"] = rec
		}
		if rec, ok := h.resumableCharge(sessionID, domain.LegTax); ok {
			resp["pending_tax_charge"] = rec
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) captureUtmParams(c *gin.Context, sessionID string) {
	take := func(name string) *string {
		if v := c.Query(name); v != "" {
			return &v
		}
		return nil
	}
	params := utmify.TrackingParameters{
		Src:         take("src"),
		Sck:         take("sck"),
		UtmSource:   take("utm_source"),
		UtmCampaign: take("utm_campaign"),
		UtmMedium:   take("utm_medium"),
		UtmContent:  take("utm_content"),
		UtmTerm:     take("utm_term"),
	}
	if params == (utmify.TrackingParameters{}) {
		return
	}
	if err := store.SetJSON(h.store, store.UtmParamsKey(sessionID), params); err != nil {
		log.Printf("[Checkout] save utm params: %v", err)
	}
}

// resumablePaidOrder returns the paid-order snapshot if it is still inside
// its restore window; stale records are purged.
func (h *CheckoutHandler) resumablePaidOrder(sessionID string) (*service.PaidOrderRecord, bool) {
	var rec service.PaidOrderRecord
	if !store.GetJSON(h.store, store.PaidOrderKey(sessionID), &rec) {
		return nil, false
	}
	if time.Since(rec.PaidAt) > h.cfg.Checkout.PaidOrderTTL {
		h.store.Delete(store.PaidOrderKey(sessionID))
		return nil, false
	}
	return &rec, true
}

// resumableCharge returns the open charge record for a leg if the charge is
// still actually waiting on the gateway side of our books; otherwise the
// record is purged.
func (h *CheckoutHandler) resumableCharge(sessionID, leg string) (*chargeRecord, bool) {
	key := store.PixKey(sessionID)
	if leg == domain.LegTax {
		key = store.TaxPixKey(sessionID)
	}
	var rec chargeRecord
	if !store.GetJSON(h.store, key, &rec) {
		return nil, false
	}
	charge, err := h.charges.GetByID(rec.ChargeID)
	if err != nil || charge.Status != domain.StatusWaitingPayment ||
		time.Since(charge.CreatedAt) > h.cfg.Checkout.PendingTTL {
		h.store.Delete(key)
		return nil, false
	}
	h.watchers.Watch(context.Background(), charge.ID)
	return &rec, true
}

// CreateCharge validates the customer, prices the cart server-side, picks a
// gateway and creates the PIX charge, walking the fallback chain when a
// provider fails. The winning gateway is committed to the session only
// after a successful creation.
func (h *CheckoutHandler) CreateCharge(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Leg       string `json:"leg"`
		Customer  struct {
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email"`
			Phone    string `json:"phone" binding:"required"`
			Document string `json:"document" binding:"required"`
		} `json:"customer" binding:"required"`
		Address struct {
			Street       string `json:"street"`
			StreetNumber string `json:"street_number"`
			Complement   string `json:"complement"`
			Neighborhood string `json:"neighborhood"`
			City         string `json:"city"`
			State        string `json:"state"`
			ZipCode      string `json:"zip_code"`
		} `json:"address"`
		Items []struct {
			Name     string `json:"name" binding:"required"`
			Quantity int    `json:"quantity" binding:"required,min=1"`
		} `json:"items"`
		CpfDiscount bool `json:"cpf_discount"`
		// A live pending charge is returned as-is unless the client
		// explicitly abandons it to start over with a new cart.
		Abandon bool `json:"abandon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Leg == "" {
		req.Leg = domain.LegMain
	}
	if req.Leg != domain.LegMain && req.Leg != domain.LegTax {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid leg"})
		return
	}
	document := cpf.Clean(req.Customer.Document)
	if !cpf.Valid(document) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid CPF"})
		return
	}

	// Re-entry with an open charge returns it instead of creating another,
	// unless the client abandons it to change the cart.
	if existing, err := h.charges.PendingForSession(req.SessionID, req.Leg); err == nil {
		if !req.Abandon {
			c.JSON(http.StatusOK, h.chargeResponse(existing))
			return
		}
		h.watchers.Stop(existing.ID)
		h.payments.HandleExpired(existing)
		log.Printf("[Checkout] charge %d abandoned session=%s", existing.ID, req.SessionID)
	}

	if req.Leg == domain.LegTax {
		h.createTaxCharge(c, req.SessionID)
		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty cart"})
		return
	}

	var (
		items      []models.OrderItem
		totalCents int64
		split      bool
	)
	for _, item := range req.Items {
		product, err := h.products.GetByName(item.Name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product: " + item.Name})
			return
		}
		items = append(items, models.OrderItem{
			Title:          product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
		})
		totalCents += product.PriceCents * int64(item.Quantity)
		if product.SplitPayment {
			split = true
		}
	}
	var discountCents int64
	if req.CpfDiscount {
		discountCents = totalCents / 10
		totalCents -= discountCents
	}

	itemsJSON, _ := json.Marshal(items)
	order := models.Order{
		SessionID:        req.SessionID,
		CustomerName:     req.Customer.Name,
		CustomerEmail:    req.Customer.Email,
		CustomerPhone:    req.Customer.Phone,
		CustomerDocument: document,
		Street:           req.Address.Street,
		StreetNumber:     req.Address.StreetNumber,
		Complement:       req.Address.Complement,
		Neighborhood:     req.Address.Neighborhood,
		City:             req.Address.City,
		State:            req.Address.State,
		ZipCode:          req.Address.ZipCode,
		Items:            string(itemsJSON),
		TotalCents:       totalCents,
		DiscountCents:    discountCents,
		Split:            split,
		ConversionTag:    service.ConversionTag(c.Request.Host),
		Status:           domain.StatusWaitingPayment,
	}
	if err := h.orders.Create(&order); err != nil {
		log.Printf("[Checkout] create order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create order"})
		return
	}

	amountCents := totalCents
	if split {
		amountCents = int64(float64(totalCents)*h.cfg.Checkout.SplitRatio + 0.5)
	}

	h.issueCharge(c, &order, domain.LegMain, amountCents)
}

// createTaxCharge issues the remainder charge of a split order. The main
// leg must already be paid.
func (h *CheckoutHandler) createTaxCharge(c *gin.Context, sessionID string) {
	order, err := h.orders.GetBySession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no order for session"})
		return
	}
	if !order.Split || order.Status != "awaiting_tax" {
		c.JSON(http.StatusConflict, gin.H{"error": "order is not awaiting the delivery charge"})
		return
	}
	mainAmount := int64(float64(order.TotalCents)*h.cfg.Checkout.SplitRatio + 0.5)
	h.issueCharge(c, order, domain.LegTax, order.TotalCents-mainAmount)
}

// issueCharge runs the gateway selection and fallback chain for one charge
// and wires up the pending record, conversion dispatch, reminder and
// watcher on success.
func (h *CheckoutHandler) issueCharge(c *gin.Context, order *models.Order, leg string, amountCents int64) {
	sessionID := order.SessionID
	descriptor, err := h.selector.SessionGateway(sessionID)
	if err != nil {
		log.Printf("[Checkout] gateway selection session=%s: %v", sessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no payment gateway available"})
		return
	}

	var items []models.OrderItem
	_ = json.Unmarshal([]byte(order.Items), &items)
	req := gateway.ChargeRequest{
		AmountCents: amountCents,
		Description: "Pedido Configás",
		Customer: gateway.Customer{
			Name:     order.CustomerName,
			Email:    order.CustomerEmail,
			Phone:    order.CustomerPhone,
			Document: order.CustomerDocument,
		},
		Address: gateway.Address{
			Street:       order.Street,
			StreetNumber: order.StreetNumber,
			Complement:   order.Complement,
			Neighborhood: order.Neighborhood,
			City:         order.City,
			State:        order.State,
			ZipCode:      order.ZipCode,
		},
	}
	for _, item := range items {
		req.Items = append(req.Items, gateway.Item{
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	if leg == domain.LegTax {
		req.Description = "Taxa de entrega"
		req.Items = []gateway.Item{{Title: "Taxa de entrega", UnitPriceCents: amountCents, Quantity: 1}}
	}

	exclude := make(map[string]bool)
	var created *gateway.Charge
	for {
		provider, ok := h.registry.Provider(descriptor.ID)
		if !ok {
			exclude[descriptor.ID] = true
		} else {
			req.PostbackURL = h.cfg.Server.PublicURL + "/api/v1/webhooks/" + descriptor.ID
			created, err = provider.CreateCharge(c.Request.Context(), req)
			if err == nil {
				break
			}
			log.Printf("[Checkout] charge creation failed gateway=%s session=%s: %v", descriptor.ID, sessionID, err)
			exclude[descriptor.ID] = true
		}
		next, ok := h.selector.NextFallback(exclude)
		if !ok {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment is unavailable right now"})
			return
		}
		descriptor = next
	}

	h.selector.Commit(sessionID, descriptor.ID)
	h.selector.TrackUsage(descriptor.ID)

	charge := models.PixCharge{
		OrderID:     order.ID,
		SessionID:   sessionID,
		Gateway:     descriptor.ID,
		ProviderRef: created.ProviderRef,
		Leg:         leg,
		AmountCents: amountCents,
		QRCode:      created.QRCode,
		Status:      domain.StatusWaitingPayment,
	}
	if !created.ExpiresAt.IsZero() {
		expires := created.ExpiresAt
		charge.PixExpiresAt = &expires
	}
	if err := h.charges.Create(&charge); err != nil {
		log.Printf("[Checkout] persist charge session=%s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not persist charge"})
		return
	}
	if order.Gateway == "" {
		order.Gateway = descriptor.ID
		if err := h.orders.Update(order); err != nil {
			log.Printf("[Checkout] update order %d: %v", order.ID, err)
		}
	}

	rec := chargeRecord{
		ChargeID:    charge.ID,
		ProviderRef: charge.ProviderRef,
		QRCode:      charge.QRCode,
		AmountCents: charge.AmountCents,
		Leg:         leg,
		CreatedAt:   charge.CreatedAt,
	}
	key := store.PixKey(sessionID)
	if leg == domain.LegTax {
		key = store.TaxPixKey(sessionID)
	}
	if err := store.SetJSON(h.store, key, rec); err != nil {
		log.Printf("[Checkout] save charge record: %v", err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		h.payments.DispatchPending(ctx, order, &charge)
	}()
	if leg == domain.LegMain {
		h.reminders.Schedule(charge.ID, order.CustomerPhone)
	}
	h.watchers.Watch(context.Background(), charge.ID)

	log.Printf("[Checkout] charge created id=%d gateway=%s leg=%s amount=%d session=%s",
		charge.ID, descriptor.ID, leg, amountCents, sessionID)
	c.JSON(http.StatusCreated, h.chargeResponse(&charge))
}

// ChargeStatus is the poll fallback for clients without a websocket. Reads
// through to the provider while the charge is open, so a payment is never
// missed between webhook and poller.
func (h *CheckoutHandler) ChargeStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid charge id"})
		return
	}
	charge, err := h.charges.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "charge not found"})
		return
	}

	if charge.Status == domain.StatusWaitingPayment {
		if provider, ok := h.registry.Provider(charge.Gateway); ok {
			status, err := provider.ChargeStatus(c.Request.Context(), charge.ProviderRef)
			if err == nil && status.Status == domain.StatusPaid {
				if err := h.payments.HandlePaid(c.Request.Context(), charge.ID, status.PaidAt); err == nil {
					h.watchers.Stop(charge.ID)
					if fresh, err := h.charges.GetByID(uint(id)); err == nil {
						charge = fresh
					} else {
						// Settled but the reload failed; answer from what we know.
						charge.Status = domain.StatusPaid
						charge.PaidAt = status.PaidAt
					}
				}
			}
		}
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, h.chargeResponse(charge))
}

func (h *CheckoutHandler) chargeResponse(charge *models.PixCharge) gin.H {
	alias := ""
	if d, ok := h.registry.Lookup(charge.Gateway); ok {
		alias = d.Alias
	}
	return gin.H{
		"id":             charge.ID,
		"status":         charge.Status,
		"leg":            charge.Leg,
		"amount_cents":   charge.AmountCents,
		"qr_code":        charge.QRCode,
		"gateway":        alias,
		"pix_expires_at": charge.PixExpiresAt,
		"paid_at":        charge.PaidAt,
		"created_at":     charge.CreatedAt,
	}
}
