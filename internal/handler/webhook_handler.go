package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"configas/internal/domain"
	"configas/internal/poller"
	"configas/internal/repository"
	"configas/internal/service"
	"configas/pkg/gateway"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives provider postbacks. Every request is acked 200,
// even unparseable ones; a retrying provider gains nothing from a 4xx and
// some disable the postback after repeated failures.
type WebhookHandler struct {
	charges  *repository.ChargeRepository
	payments *service.PaymentService
	watchers *poller.Manager
}

func NewWebhookHandler(charges *repository.ChargeRepository, payments *service.PaymentService, watchers *poller.Manager) *WebhookHandler {
	return &WebhookHandler{charges: charges, payments: payments, watchers: watchers}
}

func (h *WebhookHandler) Ezzpag(c *gin.Context) {
	var body struct {
		Type string `json:"type"`
		Data struct {
			ID     any    `json:"id"`
			Status string `json:"status"`
			PaidAt string `json:"paidAt"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("[Webhook] ezzpag: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	h.apply(c, gateway.Ezzpag, anyToRef(body.Data.ID), body.Data.Status, body.Data.PaidAt)
}

func (h *WebhookHandler) Ghost(c *gin.Context) {
	var body struct {
		ID     any    `json:"id"`
		Status string `json:"status"`
		PaidAt string `json:"paidAt"`
		Data   struct {
			ID     any    `json:"id"`
			Status string `json:"status"`
			PaidAt string `json:"paidAt"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("[Webhook] ghost: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	ref, status, paidAt := anyToRef(body.ID), body.Status, body.PaidAt
	if ref == "" {
		ref, status, paidAt = anyToRef(body.Data.ID), body.Data.Status, body.Data.PaidAt
	}
	h.apply(c, gateway.Ghost, ref, status, paidAt)
}

func (h *WebhookHandler) Umbrela(c *gin.Context) {
	var body struct {
		Data struct {
			ID     any    `json:"id"`
			Status string `json:"status"`
			PaidAt string `json:"paidAt"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("[Webhook] umbrela: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	h.apply(c, gateway.Umbrela, anyToRef(body.Data.ID), body.Data.Status, body.Data.PaidAt)
}

func (h *WebhookHandler) BlackCat(c *gin.Context) {
	var body struct {
		Data struct {
			ID     any    `json:"id"`
			Status string `json:"status"`
			PaidAt string `json:"paidAt"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("[Webhook] blackcat: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	h.apply(c, gateway.BlackCat, anyToRef(body.Data.ID), body.Data.Status, body.Data.PaidAt)
}

// apply resolves the charge by its provider reference and runs the shared
// terminal-transition path. Idempotent with the poller: whichever side
// lands first wins, the other becomes a no-op.
func (h *WebhookHandler) apply(c *gin.Context, providerID, ref, rawStatus, rawPaidAt string) {
	defer c.JSON(http.StatusOK, gin.H{"received": true})

	if ref == "" {
		log.Printf("[Webhook] %s: no transaction reference in payload", providerID)
		return
	}
	charge, err := h.charges.GetByProviderRef(ref)
	if err != nil {
		log.Printf("[Webhook] %s: unknown transaction %s", providerID, ref)
		return
	}
	if charge.Gateway != providerID {
		log.Printf("[Webhook] %s: transaction %s belongs to gateway %s, ignoring", providerID, ref, charge.Gateway)
		return
	}

	status := gateway.NormalizeStatus(providerID, rawStatus)
	log.Printf("[Webhook] %s: charge=%d status=%s (%s)", providerID, charge.ID, status, rawStatus)

	switch status {
	case domain.StatusPaid:
		var paidAt *time.Time
		if t, err := time.Parse(time.RFC3339, rawPaidAt); err == nil {
			paidAt = &t
		}
		if err := h.payments.HandlePaid(c.Request.Context(), charge.ID, paidAt); err != nil {
			log.Printf("[Webhook] %s: settle charge %d: %v", providerID, charge.ID, err)
			return
		}
		h.watchers.Stop(charge.ID)
	case domain.StatusRefused, domain.StatusExpired:
		h.payments.HandleRefused(charge)
		h.watchers.Stop(charge.ID)
	}
}

// anyToRef stringifies the transaction id, which some providers send as a
// number and others as a string.
func anyToRef(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return ""
	}
}
