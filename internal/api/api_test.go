package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type emptyHistory struct{}

func (emptyHistory) GetHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	return &domain.History{}, nil
}

func (emptyHistory) FetchHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	return &domain.History{}, nil
}

func (emptyHistory) GetProduct(ctx context.Context, productID domain.ID) (*domain.Product, error) {
	return &domain.Product{ID: productID, Name: "Widget", Code: "W"}, nil
}

func (emptyHistory) ListProducts(ctx context.Context, search string, limit int) ([]domain.Product, error) {
	return nil, nil
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " ", "https://c.example"})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://c.example"}, origins)

	origins, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
	assert.Empty(t, origins)
}

func TestNewRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&Services{HistoryService: emptyHistory{}}, []string{"*"})

	tests := []struct {
		method string
		target string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/history/1", http.StatusOK},
		{http.MethodGet, "/api/v1/product", http.StatusOK},
		{http.MethodGet, "/api/v1/product/1", http.StatusOK},
		{http.MethodPost, "/api/v1/dashboard/actions", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&Services{
		HistoryService: emptyHistory{},
		RateLimit:      config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1},
	}, nil)

	get := func(target string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("/api/v1/product"))
	assert.Equal(t, http.StatusTooManyRequests, get("/api/v1/product"))
	assert.Equal(t, http.StatusOK, get("/health"), "health is outside the limited group")
}
