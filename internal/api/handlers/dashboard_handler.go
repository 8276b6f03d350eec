// backend-go/internal/api/handlers/dashboard_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/pricetrack/backend-go/internal/live"
	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/starfederation/datastar-go/datastar"
)

type DashboardOptions struct {
	QueueSize    int
	ProductLimit int
	Clock        tracker.Clock
}

type DashboardHandler struct {
	service  HistoryReader
	fetcher  tracker.HistoryFetcher
	registry *live.Registry
	opts     DashboardOptions
}

func NewDashboardHandler(service HistoryReader, fetcher tracker.HistoryFetcher, registry *live.Registry, opts DashboardOptions) *DashboardHandler {
	return &DashboardHandler{service: service, fetcher: fetcher, registry: registry, opts: opts}
}

// Stream opens one live dashboard session for the lifetime of the request.
func (h *DashboardHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := uuid.NewString()
	stream := live.NewStream(c.Writer, c.Request)

	products, err := h.service.ListProducts(ctx, "", h.opts.ProductLimit)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("dashboard: failed to list products")
	}
	if err := live.SendWelcome(stream, sessionID, products); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("dashboard: client went away")
		return
	}

	renderer := live.NewViewRenderer(stream, sessionID)
	session, err := tracker.NewSession(h.fetcher, live.NewChartSurface(stream), tracker.SessionOptions{
		ID:        sessionID,
		Clock:     h.opts.Clock,
		Listener:  renderer.Publish,
		QueueSize: h.opts.QueueSize,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("dashboard: failed to start session")
		return
	}

	h.registry.Add(session)
	defer h.registry.Remove(sessionID)

	log.Info().Str("session_id", sessionID).Int("sessions", h.registry.Len()).Msg("dashboard: session opened")
	if err := session.Run(ctx); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("dashboard: session ended with error")
	}
	log.Info().Str("session_id", sessionID).Msg("dashboard: session closed")
}

// Action applies one control change posted as datastar signals.
func (h *DashboardHandler) Action(c *gin.Context) {
	var signals live.ActionSignals
	if err := datastar.ReadSignals(c.Request, &signals); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signals"})
		return
	}

	session, ok := h.registry.Get(signals.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	err := live.Dispatch(session, signals.Action, signals.Value)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, tracker.ErrSessionClosed):
		c.JSON(http.StatusGone, gin.H{"error": "session closed"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
