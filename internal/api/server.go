// Package api exposes matchday's thin REST/websocket surface (§4.13):
// routing glue over the services built elsewhere in this module, with no
// business logic of its own. Grounded on the teacher's internal/api
// Server/NewServer/setupMiddleware/setupRoutes shape, stripped down to the
// handful of routes SPEC_FULL.md names — the teacher's surface covers full
// CRUD/auth/portal/metadata concerns this port deliberately leaves out.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/matchday/matchday/internal/autosearch"
	"github.com/matchday/matchday/internal/downloader/queue"
	"github.com/matchday/matchday/internal/events"
	"github.com/matchday/matchday/internal/indexer/status"
	"github.com/matchday/matchday/internal/rsssync"
	"github.com/matchday/matchday/internal/websocket"
)

// Server wires every collaborator the REST surface delegates to behind a
// single echo.Echo instance.
type Server struct {
	echo *echo.Echo

	events          *events.Store
	queue           *queue.Store
	statuses        *status.Tracker
	rsssync         *rsssync.Service
	rsssyncSettings *rsssync.SettingsHandler
	autosearch      *autosearch.Service
	hub             *websocket.Hub

	logger zerolog.Logger
}

// NewServer constructs the Server and registers middleware and routes.
// rsssyncSettings may be nil to leave the rss-sync settings endpoints
// unregistered.
func NewServer(
	eventsStore *events.Store,
	queueStore *queue.Store,
	statuses *status.Tracker,
	rss *rsssync.Service,
	rsssyncSettings *rsssync.SettingsHandler,
	search *autosearch.Service,
	hub *websocket.Hub,
	apiKey string,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:            e,
		events:          eventsStore,
		queue:           queueStore,
		statuses:        statuses,
		rsssync:         rss,
		rsssyncSettings: rsssyncSettings,
		autosearch:      search,
		hub:             hub,
		logger:          logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes(apiKey)
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(securityHeaders())
	s.echo.Use(middleware.BodyLimit("2M"))
	s.echo.Use(sameOriginCORS())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogError:   true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

func (s *Server) setupRoutes(apiKey string) {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := s.echo.Group("/api/v1")

	// The browser WebSocket API cannot set an Authorization header, so the
	// live-event stream accepts the key as a query parameter instead of
	// going through bearerAuth.
	v1.GET("/ws", s.serveWebSocket, queryKeyAuth(apiKey))

	protected := v1.Group("")
	protected.Use(bearerAuth(apiKey))
	protected.GET("/events", s.listEvents)
	protected.POST("/events/:id/search", s.searchEvent)
	protected.GET("/queue", s.listQueue)
	protected.GET("/indexers/status", s.indexerStatus)
	protected.GET("/rsssync/status", s.rssSyncStatus)
	protected.POST("/rsssync/run", s.runRSSSync)

	if s.rsssyncSettings != nil {
		protected.GET("/settings/rsssync", s.rsssyncSettings.GetSettings)
		protected.PUT("/settings/rsssync", s.rsssyncSettings.UpdateSettings)
	}
}

// Start begins serving HTTP on address, blocking until the server stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	err := s.echo.Start(address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}
