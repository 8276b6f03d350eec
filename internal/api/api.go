// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/api/handlers"
	"github.com/andresuchdata/pricetrack/backend-go/internal/api/middleware"
	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/live"
	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HistoryService is what the router needs from the history service.
type HistoryService interface {
	handlers.HistoryReader
	tracker.HistoryFetcher
}

type Services struct {
	HistoryService HistoryService
	Sessions       *live.Registry
	Tracker        config.TrackerConfig
	RateLimit      config.RateLimitConfig
	Clock          tracker.Clock
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Datastar-Request"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")
	if services == nil || services.HistoryService == nil {
		return router
	}

	if services.RateLimit.Enabled && services.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(services.RateLimit.RequestsPerSecond, services.RateLimit.Burst)
		apiGroup.Use(middleware.RateLimit(limiter))
	}

	historyHandler := handlers.NewHistoryHandler(services.HistoryService)
	apiGroup.GET("/history/:product", historyHandler.GetHistory)

	productGroup := apiGroup.Group("/product")
	{
		productGroup.GET("", historyHandler.GetProducts)
		productGroup.GET("/:product", historyHandler.GetProduct)
	}

	sessions := services.Sessions
	if sessions == nil {
		sessions = live.NewRegistry()
	}
	dashboardHandler := handlers.NewDashboardHandler(services.HistoryService, services.HistoryService, sessions, handlers.DashboardOptions{
		QueueSize:    services.Tracker.QueueSize,
		ProductLimit: services.Tracker.ProductLimit,
		Clock:        services.Clock,
	})
	dashboardGroup := apiGroup.Group("/dashboard")
	{
		dashboardGroup.GET("/stream", dashboardHandler.Stream)
		dashboardGroup.POST("/actions", dashboardHandler.Action)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
