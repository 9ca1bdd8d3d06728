package handler

import (
	"log"
	"net/http"

	"configas/config"
	"configas/internal/auth"
	"configas/internal/repository"
	"configas/pkg/gateway"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	cfg       *config.Config
	operators *repository.OperatorRepository
	registry  *gateway.Registry
	selector  *gateway.Selector
}

func NewAdminHandler(cfg *config.Config, operators *repository.OperatorRepository, registry *gateway.Registry, selector *gateway.Selector) *AdminHandler {
	return &AdminHandler{cfg: cfg, operators: operators, registry: registry, selector: selector}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	operator, err := h.operators.GetByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateToken(&h.cfg.JWT, operator.ID, operator.Email)
	if err != nil {
		log.Printf("[Admin] generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"operator": gin.H{
			"id":    operator.ID,
			"email": operator.Email,
		},
	})
}

// Gateways returns the full provider table with usage counters. Unlike the
// public surface, the admin view includes real provider names.
func (h *AdminHandler) Gateways(c *gin.Context) {
	stats := h.selector.UsageStats()
	var out []gin.H
	for _, d := range h.registry.All() {
		out = append(out, gin.H{
			"id":      d.ID,
			"name":    d.Name,
			"alias":   d.Alias,
			"enabled": d.Enabled,
			"weight":  d.Weight,
			"usage":   stats[d.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"gateways": out})
}

// SetSelection pins a gateway for one checkout session, the operator-side
// escape hatch when a provider misbehaves mid-incident.
func (h *AdminHandler) SetSelection(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		GatewayID string `json:"gateway_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.selector.SetManually(req.SessionID, req.GatewayID) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "gateway does not exist or is disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID, "gateway_id": req.GatewayID})
}

// ResetSelection clears the pinned gateway; the session reselects on its
// next charge.
func (h *AdminHandler) ResetSelection(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.selector.Reset(req.SessionID)
	c.JSON(http.StatusOK, gin.H{"session_id": req.SessionID})
}
