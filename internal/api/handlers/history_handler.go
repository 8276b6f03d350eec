// backend-go/internal/api/handlers/history_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HistoryReader is the read side of the history service.
type HistoryReader interface {
	GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error)
	GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error)
	ListProducts(ctx context.Context, search string, limit int) ([]domain.Product, error)
}

type HistoryHandler struct {
	service HistoryReader
}

func NewHistoryHandler(service HistoryReader) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// GetHistory returns the transactions, supplier stats and overall stats of a product.
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	productID := domain.ParseID(c.Param("product"))
	if productID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}

	rng, err := domain.ParseDateRange(strings.TrimSpace(c.Query("startDate")), strings.TrimSpace(c.Query("endDate")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	history, err := h.service.GetHistory(c.Request.Context(), productID, rng)
	if errors.Is(err, repository.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("product_id", productID.String()).Str("range", rng.Key()).Msg("failed to fetch history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetProducts lists products, optionally filtered by a search term.
func (h *HistoryHandler) GetProducts(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	products, err := h.service.ListProducts(c.Request.Context(), search, limit)
	if err != nil {
		log.Error().Err(err).Str("search", search).Msg("failed to list products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	c.JSON(http.StatusOK, domain.ProductList{Products: products})
}

// GetProduct returns a single product.
func (h *HistoryHandler) GetProduct(c *gin.Context) {
	productID := domain.ParseID(c.Param("product"))
	if productID.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product is required"})
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("product_id", productID.String()).Msg("failed to fetch product")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, product)
}
