// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/api"
	"github.com/andresuchdata/pricetrack/backend-go/internal/cache"
	"github.com/andresuchdata/pricetrack/backend-go/internal/config"
	"github.com/andresuchdata/pricetrack/backend-go/internal/live"
	"github.com/andresuchdata/pricetrack/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/pricetrack/backend-go/internal/service"
	"github.com/andresuchdata/pricetrack/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.Mode, cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	historyCache, err := cache.NewHistoryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, history cache disabled")
		historyCache = cache.NewNoopHistoryCache()
	}

	// Initialize services
	historyService := service.NewHistoryService(postgres.NewHistoryRepository(db), historyCache, cfg.Tracker.FetchTimeout)
	sessions := live.NewRegistry()

	router := api.NewRouter(&api.Services{
		HistoryService: historyService,
		Sessions:       sessions,
		Tracker:        cfg.Tracker,
		RateLimit:      cfg.RateLimit,
	}, cfg.Server.AllowedOrigins)

	// Streams stay open for the life of a dashboard, so WriteTimeout defaults to 0.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	srv.BaseContext = func(_ net.Listener) context.Context { return ctx }

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Int("sessions", sessions.Len()).Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
