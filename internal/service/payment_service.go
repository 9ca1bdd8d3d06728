package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"configas/config"
	"configas/internal/domain"
	"configas/internal/models"
	"configas/internal/repository"
	"configas/internal/store"
	"configas/internal/ws"
	"configas/pkg/utmify"
)

// PaidOrderRecord is the store snapshot that lets a returning session skip
// straight to the confirmation step (and, for split orders, to the tax
// charge prompt).
type PaidOrderRecord struct {
	OrderID  uint      `json:"orderId"`
	ChargeID uint      `json:"chargeId"`
	Leg      string    `json:"leg"`
	Split    bool      `json:"split"`
	PaidAt   time.Time `json:"paidAt"`
}

// PaymentService owns the terminal transition of a charge. The poller and
// the provider webhooks both land here, so every step is idempotent.
type PaymentService struct {
	cfg        *config.Config
	orders     *repository.OrderRepository
	charges    *repository.ChargeRepository
	deliveries *repository.UtmifyRepository
	store      store.Store
	dispatcher *utmify.Dispatcher
	hub        *ws.Hub
}

func NewPaymentService(
	cfg *config.Config,
	orders *repository.OrderRepository,
	charges *repository.ChargeRepository,
	deliveries *repository.UtmifyRepository,
	st store.Store,
	dispatcher *utmify.Dispatcher,
	hub *ws.Hub,
) *PaymentService {
	return &PaymentService{
		cfg:        cfg,
		orders:     orders,
		charges:    charges,
		deliveries: deliveries,
		store:      st,
		dispatcher: dispatcher,
		hub:        hub,
	}
}

// HandlePaid moves a charge to paid and runs the side effects exactly once:
// paid-order snapshot, conversion dispatch, pending-record cleanup, status
// push. Safe to call from both the poller and a webhook for the same charge.
func (s *PaymentService) HandlePaid(ctx context.Context, chargeID uint, paidAt *time.Time) error {
	charge, err := s.charges.GetByID(chargeID)
	if err != nil {
		return fmt.Errorf("load charge %d: %w", chargeID, err)
	}
	if charge.Status == domain.StatusPaid {
		log.Printf("[Payment] charge %d already paid, skipping", charge.ID)
		return nil
	}
	now := time.Now()
	if paidAt == nil {
		paidAt = &now
	}
	charge.Status = domain.StatusPaid
	charge.PaidAt = paidAt
	if err := s.charges.Update(charge); err != nil {
		return fmt.Errorf("mark charge %d paid: %w", charge.ID, err)
	}

	order, err := s.orders.GetByID(charge.OrderID)
	if err != nil {
		return fmt.Errorf("load order %d: %w", charge.OrderID, err)
	}

	record := PaidOrderRecord{
		OrderID:  order.ID,
		ChargeID: charge.ID,
		Leg:      charge.Leg,
		Split:    order.Split,
		PaidAt:   *paidAt,
	}
	if err := store.SetJSON(s.store, store.PaidOrderKey(charge.SessionID), record); err != nil {
		log.Printf("[Payment] save paid-order record: %v", err)
	}

	firstLegOfSplit := charge.Leg == domain.LegMain && order.Split
	s.dispatchPaid(ctx, order, charge)

	if firstLegOfSplit {
		// First of two charges: the order is not terminal yet. The client
		// is prompted to generate the remainder charge.
		order.Status = "awaiting_tax"
		if err := s.orders.Update(order); err != nil {
			log.Printf("[Payment] update order %d: %v", order.ID, err)
		}
		s.hub.NotifySession(charge.SessionID, ws.StatusEvent{
			Type:        "awaiting_tax",
			ChargeID:    charge.ID,
			Leg:         charge.Leg,
			AmountCents: charge.AmountCents,
		})
		log.Printf("[Payment] first leg paid order=%d, awaiting tax charge", order.ID)
		return nil
	}

	order.Status = domain.StatusPaid
	if err := s.orders.Update(order); err != nil {
		log.Printf("[Payment] update order %d: %v", order.ID, err)
	}
	s.store.Delete(store.PixKey(charge.SessionID))
	s.store.Delete(store.TaxPixKey(charge.SessionID))
	s.store.Delete(store.PayloadKey(charge.SessionID))
	s.hub.NotifySession(charge.SessionID, ws.StatusEvent{
		Type:        "paid",
		ChargeID:    charge.ID,
		Leg:         charge.Leg,
		AmountCents: charge.AmountCents,
	})
	log.Printf("[Payment] order %d fully paid", order.ID)
	return nil
}

// HandleExpired closes out a charge whose poll deadline passed without a
// terminal status. The explicit expired state distinguishes abandoned
// charges from theoretically payable ones.
func (s *PaymentService) HandleExpired(charge *models.PixCharge) {
	fresh, err := s.charges.GetByID(charge.ID)
	if err != nil || domain.IsTerminal(fresh.Status) {
		return
	}
	fresh.Status = domain.StatusExpired
	if err := s.charges.Update(fresh); err != nil {
		log.Printf("[Payment] expire charge %d: %v", fresh.ID, err)
		return
	}
	if fresh.Leg == domain.LegTax {
		s.store.Delete(store.TaxPixKey(fresh.SessionID))
	} else {
		s.store.Delete(store.PixKey(fresh.SessionID))
	}
	s.hub.NotifySession(fresh.SessionID, ws.StatusEvent{
		Type:        "expired",
		ChargeID:    fresh.ID,
		Leg:         fresh.Leg,
		AmountCents: fresh.AmountCents,
	})
	log.Printf("[Payment] charge %d expired without payment", fresh.ID)
}

// HandleRefused records a provider-side refusal/cancellation.
func (s *PaymentService) HandleRefused(charge *models.PixCharge) {
	fresh, err := s.charges.GetByID(charge.ID)
	if err != nil || domain.IsTerminal(fresh.Status) {
		return
	}
	fresh.Status = domain.StatusRefused
	if err := s.charges.Update(fresh); err != nil {
		log.Printf("[Payment] refuse charge %d: %v", fresh.ID, err)
	}
}

// DispatchPending sends the waiting_payment conversion right after charge
// creation. Best effort: a failed dispatch never fails the checkout.
func (s *PaymentService) DispatchPending(ctx context.Context, order *models.Order, charge *models.PixCharge) {
	delivery, claimed, err := s.deliveries.Claim(charge.ID, domain.EventPending)
	if err != nil {
		log.Printf("[Payment] claim pending delivery charge=%d: %v", charge.ID, err)
		return
	}
	if !claimed {
		return
	}
	payload := s.BuildPayload(order, charge, domain.StatusWaitingPayment)
	s.deliver(ctx, delivery, charge, domain.EventPending, payload)
}

func (s *PaymentService) dispatchPaid(ctx context.Context, order *models.Order, charge *models.PixCharge) {
	delivery, claimed, err := s.deliveries.Claim(charge.ID, domain.EventPaid)
	if err != nil {
		log.Printf("[Payment] claim paid delivery charge=%d: %v", charge.ID, err)
		return
	}
	if !claimed {
		log.Printf("[Payment] paid conversion for charge %d already claimed", charge.ID)
		return
	}
	payload := s.paidPayload(order, charge)
	s.deliver(ctx, delivery, charge, domain.EventPaid, payload)
}

func (s *PaymentService) deliver(ctx context.Context, delivery *models.UtmifyDelivery, charge *models.PixCharge, kind string, payload *utmify.OrderPayload) {
	raw, _ := json.Marshal(payload)
	delivery.Payload = string(raw)
	err := s.dispatcher.Send(ctx, charge.SessionID, charge.Leg, kind, payload)
	delivery.Attempts++
	if err != nil {
		delivery.LastError = err.Error()
	} else {
		delivery.Delivered = true
	}
	if updateErr := s.deliveries.Update(delivery); updateErr != nil {
		log.Printf("[Payment] update delivery %d: %v", delivery.ID, updateErr)
	}
}

// paidPayload reuses the pending payload saved at charge creation so the
// paid event carries identical attribution; a fresh payload is built only
// when the pending one never made it to the store.
func (s *PaymentService) paidPayload(order *models.Order, charge *models.PixCharge) *utmify.OrderPayload {
	var base utmify.OrderPayload
	if charge.Leg == domain.LegMain && store.GetJSON(s.store, store.PayloadKey(charge.SessionID), &base) {
		// reuse
	} else {
		if charge.Leg == domain.LegMain {
			log.Printf("[Payment] no base payload for session %s, rebuilding", charge.SessionID)
		}
		base = *s.BuildPayload(order, charge, domain.StatusWaitingPayment)
	}
	approved := time.Now().UTC().Format(utmify.TimeFormat)
	base.Status = domain.StatusPaid
	base.ApprovedDate = &approved
	return &base
}

// BuildPayload assembles the UTMify conversion record for a charge. Missing
// customer fields get synthetic fallbacks rather than being omitted, the
// collector rejects incomplete customers.
func (s *PaymentService) BuildPayload(order *models.Order, charge *models.PixCharge, status string) *utmify.OrderPayload {
	var params utmify.TrackingParameters
	store.GetJSON(s.store, store.UtmParamsKey(charge.SessionID), &params)

	orderID := charge.ProviderRef
	if charge.Leg == domain.LegTax {
		orderID = charge.ProviderRef + "-tax"
	}

	email := order.CustomerEmail
	if email == "" {
		email = fmt.Sprintf("cliente%d@configas.store", time.Now().UnixNano())
	}
	phone := digits(order.CustomerPhone)
	if phone == "" {
		phone = randomPhone()
	}
	document := digits(order.CustomerDocument)
	if document == "" {
		document = randomCPF()
	}

	var items []models.OrderItem
	if err := json.Unmarshal([]byte(order.Items), &items); err != nil || len(items) == 0 {
		items = []models.OrderItem{{Title: "Produto", UnitPriceCents: charge.AmountCents, Quantity: 1}}
	}
	var products []utmify.Product
	for i, item := range items {
		products = append(products, utmify.Product{
			ID:           fmt.Sprintf("product-%s-%d", charge.ProviderRef, i),
			Name:         item.Title,
			Quantity:     item.Quantity,
			PriceInCents: item.UnitPriceCents,
		})
	}
	if charge.Leg == domain.LegTax {
		products = []utmify.Product{{
			ID:           fmt.Sprintf("product-%s-0", charge.ProviderRef),
			Name:         "Taxa de entrega",
			Quantity:     1,
			PriceInCents: charge.AmountCents,
		}}
	}

	return &utmify.OrderPayload{
		OrderID:       orderID,
		Platform:      s.cfg.Utmify.Platform,
		PaymentMethod: "pix",
		Status:        status,
		CreatedAt:     charge.CreatedAt.UTC().Format(utmify.TimeFormat),
		Customer: utmify.Customer{
			Name:     orDefault(order.CustomerName, "Cliente"),
			Email:    email,
			Phone:    phone,
			Document: document,
			Country:  "BR",
			IP:       randomIP(),
		},
		Products:           products,
		TrackingParameters: params,
		Commission:         utmify.NewCommission(charge.AmountCents),
		IsTest:             s.cfg.Server.Env != "production",
	}
}

// ConversionTag returns the Google Ads conversion tag for the storefront
// host; the frontend fires it on the confirmation step.
func ConversionTag(host string) string {
	normalized := strings.ToLower(host)
	if strings.Contains(normalized, "entregasexpressnasuaporta.store") {
		return "AW-17554338622/ZCa-CN2Y7qobEL7mx7JB"
	}
	return "AW-17545933033/08VqCI_Qj5obEOnhxq5B"
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", rand.Intn(254)+1, rand.Intn(256), rand.Intn(256), rand.Intn(254)+1)
}

func randomPhone() string {
	return fmt.Sprintf("55%d9%d", 11+rand.Intn(88), 10000000+rand.Intn(89999999))
}

func randomCPF() string {
	var b strings.Builder
	for i := 0; i < 11; i++ {
		fmt.Fprintf(&b, "%d", rand.Intn(10))
	}
	return b.String()
}
