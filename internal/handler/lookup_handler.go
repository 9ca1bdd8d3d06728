package handler

import (
	"log"
	"net/http"

	"configas/pkg/cep"
	"configas/pkg/cpf"

	"github.com/gin-gonic/gin"
)

// LookupHandler proxies the address and document lookups the checkout form
// uses. Both are best effort: a failed lookup never blocks the purchase.
type LookupHandler struct {
	cep *cep.Client
	cpf *cpf.Client
}

func NewLookupHandler(cepClient *cep.Client, cpfClient *cpf.Client) *LookupHandler {
	return &LookupHandler{cep: cepClient, cpf: cpfClient}
}

func (h *LookupHandler) Cep(c *gin.Context) {
	var req struct {
		Cep string `json:"cep" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	address, err := h.cep.Lookup(c.Request.Context(), req.Cep)
	if err != nil {
		log.Printf("[Lookup] cep %s: %v", req.Cep, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "CEP not found"})
		return
	}
	c.JSON(http.StatusOK, address)
}

// Cpf resolves the document holder's name for the discount confirmation
// step. Invalid check digits fail fast without a network call.
func (h *LookupHandler) Cpf(c *gin.Context) {
	var req struct {
		Document string `json:"document" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !cpf.Valid(req.Document) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid CPF"})
		return
	}
	result, err := h.cpf.Lookup(c.Request.Context(), req.Document)
	if err != nil {
		log.Printf("[Lookup] cpf: %v", err)
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": result.Found, "name": result.FullName})
}
