package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"configas/internal/models"
	"configas/internal/repository"
	"configas/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	products *repository.ProductRepository
	images   cloudinary.Client
}

func NewProductHandler(products *repository.ProductRepository, images cloudinary.Client) *ProductHandler {
	return &ProductHandler{products: products, images: images}
}

// List is the public catalog endpoint: active products only.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.ListActive()
	if err != nil {
		log.Printf("[Products] list: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		PriceCents   int64  `json:"price_cents" binding:"required,min=1"`
		Category     string `json:"category" binding:"required,oneof=gas water combo"`
		SplitPayment bool   `json:"split_payment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product := models.Product{
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		Category:     req.Category,
		SplitPayment: req.SplitPayment,
		Active:       true,
	}
	if err := h.products.Create(&product); err != nil {
		log.Printf("[Products] create: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": "could not create product"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	product, err := h.products.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	var req struct {
		Name         *string `json:"name"`
		PriceCents   *int64  `json:"price_cents"`
		Category     *string `json:"category"`
		SplitPayment *bool   `json:"split_payment"`
		Active       *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.PriceCents != nil {
		product.PriceCents = *req.PriceCents
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.SplitPayment != nil {
		product.SplitPayment = *req.SplitPayment
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := h.products.Update(product); err != nil {
		log.Printf("[Products] update %d: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	if err := h.products.Delete(uint(id)); err != nil {
		log.Printf("[Products] delete %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// UploadImage attaches a catalog image to a product via Cloudinary.
func (h *ProductHandler) UploadImage(c *gin.Context) {
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image uploads are not configured"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}
	product, err := h.products.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
		return
	}
	defer file.Close()

	publicID := fmt.Sprintf("product_%d_%d", product.ID, time.Now().Unix())
	url, _, err := h.images.UploadImage(c.Request.Context(), file, "products", publicID)
	if err != nil {
		log.Printf("[Products] upload image product=%d: %v", product.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}
	product.ImageURL = url
	if err := h.products.Update(product); err != nil {
		log.Printf("[Products] save image url product=%d: %v", product.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save image"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}
