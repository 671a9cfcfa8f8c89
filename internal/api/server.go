// Package api exposes the HTTP surface: job control, index queries,
// completeness reports, exclusions, and the WebSocket event stream.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medley-app/medley/internal/completeness"
	"github.com/medley-app/medley/internal/jobs"
	"github.com/medley-app/medley/internal/media"
	"github.com/medley-app/medley/internal/scheduler"
	"github.com/medley-app/medley/internal/websocket"
)

// Server handles HTTP requests for the Medley API.
type Server struct {
	echo      *echo.Echo
	store     *media.Store
	records   *completeness.Records
	queue     *jobs.Queue
	scheduler *scheduler.Scheduler
	hub       *websocket.Hub
	logger    zerolog.Logger
}

// NewServer creates an API server.
func NewServer(store *media.Store, records *completeness.Records, queue *jobs.Queue, sched *scheduler.Scheduler, hub *websocket.Hub, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		store:     store,
		records:   records,
		queue:     queue,
		scheduler: sched,
		hub:       hub,
		logger:    logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit("2M"))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/api/health", s.handleHealth)

	jobsGroup := s.echo.Group("/api/jobs")
	jobsGroup.GET("", s.handleGetQueue)
	jobsGroup.POST("", s.handleEnqueue)
	jobsGroup.DELETE("/current", s.handleCancelCurrent)
	jobsGroup.POST("/pause", s.handlePause)
	jobsGroup.POST("/resume", s.handleResume)

	sources := s.echo.Group("/api/sources")
	sources.GET("", s.handleListSources)
	sources.POST("", s.handleCreateSource)
	sources.DELETE("/:id", s.handleDeleteSource)
	sources.GET("/:id/stats", s.handleSourceStats)

	s.echo.GET("/api/items", s.handleListItems)

	comp := s.echo.Group("/api/completeness")
	comp.GET("", s.handleListCompleteness)
	comp.GET("/:entityType/:key", s.handleGetCompleteness)

	excl := s.echo.Group("/api/exclusions")
	excl.PUT("", s.handleAddExclusion)
	excl.DELETE("", s.handleRemoveExclusion)

	tasks := s.echo.Group("/api/tasks")
	tasks.GET("", s.handleListTasks)
	tasks.POST("/:id/run", s.handleRunTask)

	s.echo.GET("/ws", s.hub.HandleWebSocket)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
